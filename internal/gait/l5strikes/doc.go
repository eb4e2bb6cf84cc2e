// Package l5strikes owns Layer 5 (Strike classification) of the gait data
// model.
//
// Responsibilities: labelling a foot strike from the heel/toe vertical
// ratio at the moment of contact, and scoring that label's confidence from
// landmark confidence and agreement with knee/ankle angle ranges. Angles
// adjust confidence only; they never change the label.
// Key types: Strike, Input, Result, Config.
//
// Dependency rule: L5 may depend on L1-L4, but never on L6+.
package l5strikes
