// Package l1landmarks owns Layer 1 (Landmarks) of the gait data model.
//
// Responsibilities: the immutable per-frame input produced by the external
// pose estimator (named joints with normalised positions and visibility),
// joint naming per leg, and decoding of recorded landmark streams.
// Key types: Frame, Landmark, Joint, Side.
//
// Dependency rule: L1 depends on nothing else in internal/gait.
package l1landmarks
