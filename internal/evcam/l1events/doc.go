// Package l1events owns Layer 1 (Events) of the event-camera data model.
//
// Responsibilities: the fixed-layout Event record, polarity constants,
// pixel addressing, time ordering, and the EventSource contract through
// which chunked event batches enter the pipeline.
// Key types: Event, PixelKey, EventSource.
//
// Dependency rule: L1 depends on nothing else in internal/evcam.
// Decoding sensor file formats is deliberately out of scope; sources in
// this package are in-memory or synthetic.
package l1events
