// Package pipeline provides orchestration for the gait analysis pipeline.
//
// It wires together the layer packages L1-L6 into a per-frame processing
// flow for one video: smoothing, kinematics, phase tracking, strike
// classification at contact, and session aggregation. The pipeline does
// not own domain logic; it delegates to the layer packages and measures
// per-frame latency against the configured budget.
//
// A Pipeline carries short-lived state for exactly one stream and is not
// restartable. Independent videos use independent Pipelines.
package pipeline
