package l3kinematics

import (
	"math"

	"github.com/banshee-data/gait.report/internal/config"
	"github.com/banshee-data/gait.report/internal/gait/l1landmarks"
	"github.com/banshee-data/gait.report/internal/gait/l2smoothing"
	"gonum.org/v1/gonum/spatial/r3"
)

// Sample is the velocity of one joint at one frame, in normalised units per
// second. Invalid samples carry no velocity and must be ignored.
type Sample struct {
	Joint      l1landmarks.Joint
	FrameIndex int64
	Velocity   r3.Vec
	Valid      bool
}

// FootSignal is the per-frame contact evidence for one foot.
//
// Vertical is upward-positive (the negated image-y velocity), so a
// descending foot has Vertical < 0.
type FootSignal struct {
	Side             l1landmarks.Side
	FrameIndex       int64
	Timestamp        float64
	Vertical         float64
	Valid            bool
	InBand           bool // inside the near-zero hysteresis band
	ContactCandidate bool // in band after a descent
	LiftoffCandidate bool // out of band and ascending
}

// Observation bundles everything the tracker derived from one frame.
type Observation struct {
	FrameIndex int64
	Timestamp  float64
	Samples    map[l1landmarks.Joint]Sample
	Feet       map[l1landmarks.Side]FootSignal
}

// VelocityConfig holds the hysteresis thresholds. All values are speeds in
// normalised units per second; ContactEnter must be below ContactExit.
type VelocityConfig struct {
	DescentArm   float64 // descent speed that arms contact detection
	ContactEnter float64 // |v| at or below this enters the near-zero band
	ContactExit  float64 // |v| above this leaves the band
	Liftoff      float64 // upward speed that signals lift-off
	Sides        []l1landmarks.Side
}

// VelocityConfigFromTuning builds a VelocityConfig from a loaded TuningConfig.
func VelocityConfigFromTuning(cfg *config.TuningConfig) VelocityConfig {
	sides := []l1landmarks.Side{l1landmarks.Left}
	if cfg.GetBilateral() {
		sides = l1landmarks.Sides
	}
	return VelocityConfig{
		DescentArm:   cfg.GetDescentArmVelocity(),
		ContactEnter: cfg.GetContactEnterVelocity(),
		ContactExit:  cfg.GetContactExitVelocity(),
		Liftoff:      cfg.GetLiftoffVelocity(),
		Sides:        sides,
	}
}

type footBand struct {
	armed  bool // a descent has been seen since the foot last left the band
	inBand bool
}

// VelocityTracker derives joint velocities from consecutive smoothed frames
// and turns foot motion into contact/lift-off candidates.
// A VelocityTracker is not safe for concurrent use.
type VelocityTracker struct {
	cfg   VelocityConfig
	prev  map[l1landmarks.Joint]l2smoothing.Landmark
	bands map[l1landmarks.Side]*footBand
}

// NewVelocityTracker creates a tracker with the given thresholds.
func NewVelocityTracker(cfg VelocityConfig) *VelocityTracker {
	if len(cfg.Sides) == 0 {
		cfg.Sides = l1landmarks.Sides
	}
	t := &VelocityTracker{cfg: cfg}
	t.Reset()
	return t
}

// Reset discards the previous frame and all hysteresis state.
func (t *VelocityTracker) Reset() {
	t.prev = make(map[l1landmarks.Joint]l2smoothing.Landmark)
	t.bands = make(map[l1landmarks.Side]*footBand, len(t.cfg.Sides))
	for _, s := range t.cfg.Sides {
		t.bands[s] = &footBand{}
	}
}

// Observe computes velocities for every joint in f and updates the foot
// signals. Velocity is only valid when the joint was observed this frame
// and had a usable value before; the time delta comes from the
// observation timestamps, never from an assumed frame rate.
func (t *VelocityTracker) Observe(f l2smoothing.Frame) Observation {
	obs := Observation{
		FrameIndex: f.Index,
		Timestamp:  f.Timestamp,
		Samples:    make(map[l1landmarks.Joint]Sample, len(f.Landmarks)),
		Feet:       make(map[l1landmarks.Side]FootSignal, len(t.cfg.Sides)),
	}
	for j, cur := range f.Landmarks {
		s := Sample{Joint: j, FrameIndex: f.Index}
		if prev, ok := t.prev[j]; ok && cur.Status == l2smoothing.Observed && prev.Available() {
			if dt := cur.ObservedAt - prev.ObservedAt; dt > 0 {
				s.Velocity = r3.Scale(1/dt, r3.Sub(cur.Position, prev.Position))
				s.Valid = true
			}
		}
		obs.Samples[j] = s
		t.prev[j] = cur
	}
	for _, side := range t.cfg.Sides {
		obs.Feet[side] = t.footSignal(side, obs)
	}
	return obs
}

// footSignal applies the hysteresis band to the foot's vertical velocity.
// The foot is tracked at the heel/toe midpoint, falling back to the ankle.
func (t *VelocityTracker) footSignal(side l1landmarks.Side, obs Observation) FootSignal {
	leg := l1landmarks.Leg(side)
	sig := FootSignal{Side: side, FrameIndex: obs.FrameIndex, Timestamp: obs.Timestamp}

	heel, toe, ankle := obs.Samples[leg.Heel], obs.Samples[leg.Toe], obs.Samples[leg.Ankle]
	switch {
	case heel.Valid && toe.Valid:
		sig.Vertical = -(heel.Velocity.Y + toe.Velocity.Y) / 2
		sig.Valid = true
	case ankle.Valid:
		sig.Vertical = -ankle.Velocity.Y
		sig.Valid = true
	}

	band := t.bands[side]
	if sig.Valid {
		speed := math.Abs(sig.Vertical)
		if band.inBand {
			if speed > t.cfg.ContactExit {
				band.inBand = false
				band.armed = false
			}
		} else if band.armed && speed <= t.cfg.ContactEnter {
			band.inBand = true
		}
		if !band.inBand && sig.Vertical < -t.cfg.DescentArm {
			band.armed = true
		}
		sig.ContactCandidate = band.inBand
		sig.LiftoffCandidate = !band.inBand && sig.Vertical >= t.cfg.Liftoff
	}
	sig.InBand = band.inBand
	return sig
}
