package l6sessions

// Flag marks a frame or cycle with a non-fatal data-quality condition.
type Flag string

const (
	// FlagInsufficientLandmarkData marks frames whose landmark confidence
	// fell below the detection threshold or that lacked a required joint,
	// and cycles that contained such frames.
	FlagInsufficientLandmarkData Flag = "insufficient_landmark_data"
	// FlagDegenerateGeometry marks results with an undefined angle caused
	// by coincident joints.
	FlagDegenerateGeometry Flag = "degenerate_geometry"
	// FlagLatencyBudgetExceeded marks frames that took longer than the
	// latency budget. The frame is still processed.
	FlagLatencyBudgetExceeded Flag = "latency_budget_exceeded"
	// FlagIncompleteCycle marks a session summary in which at least one
	// cycle was still open when the stream ended. Such cycles are counted
	// in DroppedPartialCycles and discarded.
	FlagIncompleteCycle Flag = "incomplete_cycle_at_stream_end"
)

// Flags is an ordered set of flags.
type Flags []Flag

// Has reports whether f is present.
func (fs Flags) Has(f Flag) bool {
	for _, x := range fs {
		if x == f {
			return true
		}
	}
	return false
}

// With returns fs with f appended unless already present.
func (fs Flags) With(f Flag) Flags {
	if fs.Has(f) {
		return fs
	}
	return append(fs, f)
}
