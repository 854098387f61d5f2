// Package pipeline provides orchestration for the event-camera tracking
// pipeline.
//
// It wires an event source through the accumulation window, the noise
// filter chain and the particle detector, then links every detected
// particle into tracks. The pipeline does not own domain logic; it
// delegates to the layer packages.
package pipeline
