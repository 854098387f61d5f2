// Package l3filters owns Layer 3 (Filters) of the event-camera data model.
//
// Responsibilities: proximity search over scaled (x, y, t) event
// coordinates and the four composable noise filters built on it:
// isolated-event, low-pass (flicker), hot-pixel and opposite-polarity.
// Key types: NeighbourIndex, Filter, Chain.
//
// Dependency rule: L3 may depend on L1-L2, but never on L4+.
package l3filters
