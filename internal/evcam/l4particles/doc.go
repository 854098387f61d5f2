// Package l4particles owns Layer 4 (Particles) of the event-camera data model.
//
// Responsibilities: clustering one window's ON events into particles with
// 8-connected component labelling, and computing each particle's pixel
// area, spatial centroid and time centroid.
// Key types: Particle, Detector.
//
// Dependency rule: L4 may depend on L1-L3, but never on L5+.
package l4particles
