// Package l4phases owns Layer 4 (Gait phases) of the gait data model.
//
// Responsibilities: a debounced per-leg state machine over the foot contact
// signals from L3 (SWING, CONTACT, STANCE, TOE_OFF), and the frame
// boundaries of each completed gait cycle.
// Key types: Machine, Phase, Step, Bounds.
//
// Dependency rule: L4 may depend on L1-L3, but never on L5+.
package l4phases
