// Package l2window owns Layer 2 (Window) of the event-camera data model.
//
// Responsibilities: rolling the accumulation window forward as chunks
// arrive, defining stream-end behaviour, and building the time-bin
// boundaries used by the tracker.
//
// Dependency rule: L2 may depend on L1 only.
package l2window
