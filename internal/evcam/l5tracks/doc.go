// Package l5tracks owns Layer 5 (Tracks) of the event-camera data model.
//
// Responsibilities: linking particles across time bins into tracks with
// a greedy, order-dependent nearest-candidate rule, freezing tracks that
// miss a bin, and run-level track statistics.
// Key types: Track, Tracker, RunStatistics.
//
// Dependency rule: L5 may depend on L1-L4, but never on the pipeline.
package l5tracks
