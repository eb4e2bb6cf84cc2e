package l4phases

import (
	"github.com/banshee-data/gait.report/internal/config"
	"github.com/banshee-data/gait.report/internal/gait/l1landmarks"
	"github.com/banshee-data/gait.report/internal/gait/l3kinematics"
)

// Phase is the gait phase of one leg.
type Phase string

const (
	Swing   Phase = "SWING"   // foot airborne
	Contact Phase = "CONTACT" // foot has just touched down
	Stance  Phase = "STANCE"  // foot planted
	ToeOff  Phase = "TOE_OFF" // foot leaving the ground
)

// next is the only legal successor of each phase.
var next = map[Phase]Phase{
	Swing:   Contact,
	Contact: Stance,
	Stance:  ToeOff,
	ToeOff:  Swing,
}

// Next returns the phase that legally follows p.
func (p Phase) Next() Phase {
	return next[p]
}

// Config holds the debounce parameters of the phase machine.
type Config struct {
	DebounceFrames int     // consecutive candidates required for CONTACT and TOE_OFF
	SettleFrames   int     // frames after which CONTACT becomes STANCE regardless
	MinAscent      float64 // upward speed (units/s) that ends TOE_OFF
}

// ConfigFromTuning builds a machine Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		DebounceFrames: cfg.GetDebounceFrames(),
		SettleFrames:   cfg.GetSettleFrames(),
		MinAscent:      cfg.GetMinAscentVelocity(),
	}
}

// Bounds are the frame boundaries of one gait cycle: from the frame on
// which CONTACT was entered to the frame on which TOE_OFF was left.
type Bounds struct {
	Side        l1landmarks.Side
	StartFrame  int64
	EndFrame    int64
	StartTime   float64
	EndTime     float64
	ToeOffFrame int64
	ToeOffTime  float64
}

// Duration returns the cycle length in seconds.
func (b Bounds) Duration() float64 {
	return b.EndTime - b.StartTime
}

// ContactTime returns the ground-contact time in seconds, from touch-down
// to the start of TOE_OFF.
func (b Bounds) ContactTime() float64 {
	return b.ToeOffTime - b.StartTime
}

// Step reports the machine's state after one frame.
type Step struct {
	Side       l1landmarks.Side
	FrameIndex int64
	Phase      Phase
	Previous   Phase
	Sealed     *Bounds // set on the TOE_OFF to SWING transition
}

// Entered reports whether the machine changed phase on this frame.
func (s Step) Entered(p Phase) bool {
	return s.Phase == p && s.Previous != p
}

// Machine is the per-leg gait phase state machine. It starts in SWING and
// only ever advances to the next phase in the cycle. A Machine is not safe
// for concurrent use.
type Machine struct {
	cfg     Config
	side    l1landmarks.Side
	phase   Phase
	hits    int // consecutive candidates toward the next debounced transition
	inPhase int // frames since the current phase was entered
	open    *Bounds
}

// NewMachine creates a machine for one leg.
func NewMachine(cfg Config, side l1landmarks.Side) *Machine {
	if cfg.DebounceFrames < 1 {
		cfg.DebounceFrames = 1
	}
	if cfg.SettleFrames < 1 {
		cfg.SettleFrames = 1
	}
	return &Machine{cfg: cfg, side: side, phase: Swing}
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	return m.phase
}

// Step advances the machine by one frame of foot evidence.
func (m *Machine) Step(sig l3kinematics.FootSignal) Step {
	st := Step{Side: m.side, FrameIndex: sig.FrameIndex, Previous: m.phase}
	m.inPhase++

	switch m.phase {
	case Swing:
		if m.debounce(sig.ContactCandidate) {
			m.enter(Contact)
			m.open = &Bounds{Side: m.side, StartFrame: sig.FrameIndex, StartTime: sig.Timestamp}
		}
	case Contact:
		if (sig.Valid && sig.InBand) || m.inPhase >= m.cfg.SettleFrames {
			m.enter(Stance)
		}
	case Stance:
		if m.debounce(sig.LiftoffCandidate) {
			m.enter(ToeOff)
			m.open.ToeOffFrame = sig.FrameIndex
			m.open.ToeOffTime = sig.Timestamp
		}
	case ToeOff:
		if sig.Valid && sig.Vertical >= m.cfg.MinAscent {
			m.enter(Swing)
			sealed := *m.open
			sealed.EndFrame = sig.FrameIndex
			sealed.EndTime = sig.Timestamp
			st.Sealed = &sealed
			m.open = nil
		}
	}

	st.Phase = m.phase
	return st
}

// debounce counts consecutive candidate frames; any miss resets the count.
func (m *Machine) debounce(candidate bool) bool {
	if !candidate {
		m.hits = 0
		return false
	}
	m.hits++
	return m.hits >= m.cfg.DebounceFrames
}

func (m *Machine) enter(p Phase) {
	m.phase = p
	m.hits = 0
	m.inPhase = 0
}

// Abort ends the stream. A cycle that was opened but never sealed is
// returned for counting and the machine returns to SWING; partial cycles
// are never closed.
func (m *Machine) Abort() (Bounds, bool) {
	open := m.open
	m.open = nil
	m.enter(Swing)
	if open == nil {
		return Bounds{}, false
	}
	return *open, true
}
