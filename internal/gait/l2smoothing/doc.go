// Package l2smoothing owns Layer 2 (Smoothed landmarks) of the gait data model.
//
// Responsibilities: per-joint jitter suppression over a bounded window of
// raw observations, carry-forward of briefly occluded joints, and explicit
// unavailability when a joint has no usable observation in the window.
// Key types: Smoother, Frame, Landmark, Status.
//
// Dependency rule: L2 may depend on L1 only.
package l2smoothing
