// Package l3kinematics owns Layer 3 (Kinematics) of the gait data model.
//
// Responsibilities: joint angles from smoothed positions, per-joint
// velocity from timestamp deltas, and hysteresis-banded ground-contact and
// lift-off candidate signals per foot.
// Key types: AngleBundle, Measurement, VelocityTracker, FootSignal.
//
// Dependency rule: L3 may depend on L1-L2, but never on L4+.
package l3kinematics
