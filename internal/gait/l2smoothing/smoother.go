package l2smoothing

import (
	"math"

	"github.com/banshee-data/gait.report/internal/config"
	"github.com/banshee-data/gait.report/internal/gait/l1landmarks"
	"gonum.org/v1/gonum/spatial/r3"
)

// Status describes where a smoothed landmark's value came from this frame.
type Status int

const (
	// Unavailable means no valid observation exists in the window.
	// The position must not be used.
	Unavailable Status = iota
	// Observed means the joint was seen above the visibility floor this frame.
	Observed
	// CarriedForward means the joint was not seen this frame and the last
	// smoothed value is being held with decayed confidence.
	CarriedForward
)

func (s Status) String() string {
	switch s {
	case Observed:
		return "observed"
	case CarriedForward:
		return "carried_forward"
	default:
		return "unavailable"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Landmark is the smoothed state of one joint.
type Landmark struct {
	Position   r3.Vec
	Confidence float64 // [0,1]; visibility when observed, decayed when carried
	ObservedAt float64 // timestamp (s) of the newest observation folded into Position
	Status     Status
}

// Available reports whether the position may be used.
func (l Landmark) Available() bool {
	return l.Status != Unavailable
}

// Frame is the smoother's output for one input frame.
type Frame struct {
	Index     int64
	Timestamp float64
	Landmarks map[l1landmarks.Joint]Landmark
}

// Get returns the smoothed landmark for j. Untracked joints are Unavailable.
func (f Frame) Get(j l1landmarks.Joint) Landmark {
	return f.Landmarks[j]
}

// Config holds the smoother parameters.
type Config struct {
	Window            int     // ring buffer capacity per joint (frames)
	VisibilityFloor   float64 // observations below this are excluded
	MinAlpha          float64 // weight of a new sample for a stationary joint
	MaxAlpha          float64 // weight of a new sample for a fast joint
	SpeedRef          float64 // window speed (units/s) at which MaxAlpha applies
	CarryForwardDecay float64 // confidence multiplier per carried frame
	Joints            []l1landmarks.Joint
}

// ConfigFromTuning builds a smoother Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Window:            cfg.GetSmoothingWindow(),
		VisibilityFloor:   cfg.GetVisibilityFloor(),
		MinAlpha:          cfg.GetSmoothingMinAlpha(),
		MaxAlpha:          cfg.GetSmoothingMaxAlpha(),
		SpeedRef:          cfg.GetSmoothingSpeedRef(),
		CarryForwardDecay: cfg.GetCarryForwardDecay(),
		Joints:            l1landmarks.AllJoints,
	}
}

type jointState struct {
	window *ring
	out    Landmark
}

// Smoother filters raw landmark positions frame by frame.
//
// Each joint keeps a fixed-capacity ring of raw observations. The output is
// a one-pole filter whose weight is chosen per frame from the joint's raw
// speed across the window: slow joints get MinAlpha (strong smoothing,
// jitter suppressed), fast joints approach MaxAlpha (little lag).
// A Smoother is not safe for concurrent use.
type Smoother struct {
	cfg    Config
	joints map[l1landmarks.Joint]*jointState
}

// NewSmoother creates a smoother for the configured joints.
func NewSmoother(cfg Config) *Smoother {
	if cfg.Window < 1 {
		cfg.Window = 1
	}
	if len(cfg.Joints) == 0 {
		cfg.Joints = l1landmarks.AllJoints
	}
	s := &Smoother{cfg: cfg}
	s.Reset()
	return s
}

// Reset discards all history.
func (s *Smoother) Reset() {
	s.joints = make(map[l1landmarks.Joint]*jointState, len(s.cfg.Joints))
	for _, j := range s.cfg.Joints {
		s.joints[j] = &jointState{window: newRing(s.cfg.Window)}
	}
}

// Update folds a raw frame into the per-joint state and returns the
// smoothed positions.
func (s *Smoother) Update(raw l1landmarks.Frame) Frame {
	out := Frame{
		Index:     raw.Index,
		Timestamp: raw.Timestamp,
		Landmarks: make(map[l1landmarks.Joint]Landmark, len(s.joints)),
	}
	for j, st := range s.joints {
		pos, vis, ok := raw.Observation(j, s.cfg.VisibilityFloor)
		st.window.push(sample{pos: pos, t: raw.Timestamp, valid: ok})

		switch {
		case ok && st.out.Status == Unavailable:
			// First observation, or recovery after the window ran dry: reseed.
			st.out = Landmark{Position: pos, Confidence: vis, ObservedAt: raw.Timestamp, Status: Observed}
		case ok:
			alpha := s.alpha(st.window, pos, raw.Timestamp)
			st.out.Position = r3.Add(st.out.Position, r3.Scale(alpha, r3.Sub(pos, st.out.Position)))
			st.out.Confidence = vis
			st.out.ObservedAt = raw.Timestamp
			st.out.Status = Observed
		case st.window.validCount() == 0:
			st.out = Landmark{Status: Unavailable}
		case st.out.Status != Unavailable:
			st.out.Status = CarriedForward
			st.out.Confidence *= s.cfg.CarryForwardDecay
		}
		out.Landmarks[j] = st.out
	}
	return out
}

// alpha picks the new-sample weight from the raw speed between the current
// observation and the oldest valid observation still in the window.
func (s *Smoother) alpha(w *ring, pos r3.Vec, t float64) float64 {
	oldest, ok := w.oldestValidBefore(t)
	if !ok || s.cfg.SpeedRef <= 0 {
		return s.cfg.MaxAlpha
	}
	dt := t - oldest.t
	if dt <= 0 {
		return s.cfg.MaxAlpha
	}
	speed := r3.Norm(r3.Sub(pos, oldest.pos)) / dt
	frac := math.Min(1, speed/s.cfg.SpeedRef)
	return s.cfg.MinAlpha + (s.cfg.MaxAlpha-s.cfg.MinAlpha)*frac
}
