package l6sessions

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/banshee-data/gait.report/internal/config"
	"github.com/banshee-data/gait.report/internal/gait/l1landmarks"
	"github.com/banshee-data/gait.report/internal/gait/l3kinematics"
	"github.com/banshee-data/gait.report/internal/gait/l5strikes"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrFinalized is returned when data is added after Finalize.
	ErrFinalized = errors.New("session already finalized")
	// ErrInvalidCycle is returned for a cycle whose end does not follow its start.
	ErrInvalidCycle = errors.New("invalid cycle bounds")
)

// Cycle is one sealed gait cycle of one leg.
type Cycle struct {
	ID         int              `json:"id"`
	Side       l1landmarks.Side `json:"side"`
	StartFrame int64            `json:"start_frame"`
	EndFrame   int64            `json:"end_frame"`
	StartTime  float64          `json:"start_time"`
	EndTime    float64          `json:"end_time"`
	// Strike classification made at the CONTACT transition
	Strike         l5strikes.Strike `json:"strike"`
	Confidence     float64          `json:"confidence"`
	HeelToeRatio   float64          `json:"heel_toe_ratio"`
	AngleAgreement float64          `json:"angle_agreement"`
	// Angles at the CONTACT frame
	Angles l3kinematics.AngleBundle `json:"angles"`
	// Timing, seconds
	DurationSeconds    float64 `json:"duration_s"`
	ContactTimeSeconds float64 `json:"contact_time_s"`
	Flags              Flags   `json:"flags,omitempty"`
}

// FrameStats is what the aggregator needs to know about one processed frame.
type FrameStats struct {
	Timestamp    float64
	Confidence   float64 // landmark confidence of the tracked legs, [0,1]
	Insufficient bool
	Latency      time.Duration
}

// LatencySummary describes per-frame processing time.
type LatencySummary struct {
	MeanMs   float64 `json:"mean_ms"`
	P95Ms    float64 `json:"p95_ms"`
	MaxMs    float64 `json:"max_ms"`
	BudgetMs float64 `json:"budget_ms"`
	// Frames that took longer than the budget; they were still processed.
	Exceeded int `json:"exceeded"`
}

// AngleSummary describes one contact angle across all cycles where it was
// defined. StdDev is only set with two or more samples.
type AngleSummary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stddev,omitempty"`
}

// Summary is the finalized session aggregate.
type Summary struct {
	SessionID string `json:"session_id"`

	TotalFrames          int     `json:"total_frames"`
	FramesWithConfidence int     `json:"frames_with_confidence"`
	DetectionRate        float64 `json:"detection_rate"`
	InsufficientFrames   int     `json:"insufficient_frames"`
	DurationSeconds      float64 `json:"duration_s"`

	Latency LatencySummary `json:"latency"`

	// Dominant strike pattern by simple majority over classified cycles.
	// UNKNOWN when no cycle was classified.
	DominantStrike     l5strikes.Strike `json:"dominant_strike"`
	DominantConfidence float64          `json:"dominant_confidence"`
	DominantShare      float64          `json:"dominant_share"`

	StrikeCounts         map[l5strikes.Strike]int `json:"strike_counts"`
	DroppedPartialCycles int                      `json:"dropped_partial_cycles"`

	AngleSummaries map[string]AngleSummary `json:"angle_summaries,omitempty"`
	// CadenceSPM is steps per minute of both legs. In single-leg mode each
	// cycle is one stride and stands for two steps.
	CadenceSPM             float64 `json:"cadence_spm"`
	MeanContactTimeSeconds float64 `json:"mean_contact_time_s"`

	// Session-level conditions, e.g. incomplete_cycle_at_stream_end.
	Flags Flags `json:"flags,omitempty"`

	Cycles []Cycle `json:"cycles"`
}

// Config holds the aggregator parameters.
type Config struct {
	SessionID           string // generated when empty
	DetectionConfidence float64
	LatencyBudget       time.Duration
	TrackedLegs         int // 1 or 2; 0 means 2
}

// ConfigFromTuning builds an aggregator Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	c := Config{
		DetectionConfidence: cfg.GetDetectionConfidence(),
		LatencyBudget:       cfg.GetLatencyBudget(),
		TrackedLegs:         2,
	}
	if !cfg.GetBilateral() {
		c.TrackedLegs = 1
	}
	return c
}

// NewSessionID returns a fresh session identifier.
func NewSessionID() string {
	return fmt.Sprintf("gait_%s", uuid.NewString())
}

// Aggregator accumulates per-frame statistics and sealed cycles for one
// session. It is not safe for concurrent use.
type Aggregator struct {
	cfg Config

	frames       int
	detected     int
	insufficient int
	firstTS      float64
	lastTS       float64
	latenciesMs  []float64
	exceeded     int

	cycles  []Cycle
	dropped int
	nextID  int

	summary *Summary
}

// NewAggregator creates an empty session.
func NewAggregator(cfg Config) *Aggregator {
	if cfg.SessionID == "" {
		cfg.SessionID = NewSessionID()
	}
	return &Aggregator{cfg: cfg, nextID: 1}
}

// SessionID returns the session identifier.
func (a *Aggregator) SessionID() string {
	return a.cfg.SessionID
}

// RecordFrame adds one processed frame. It reports whether the frame
// exceeded the latency budget.
func (a *Aggregator) RecordFrame(fs FrameStats) (bool, error) {
	if a.summary != nil {
		return false, ErrFinalized
	}
	if a.frames == 0 {
		a.firstTS = fs.Timestamp
	}
	a.lastTS = fs.Timestamp
	a.frames++
	if fs.Confidence >= a.cfg.DetectionConfidence {
		a.detected++
	}
	if fs.Insufficient {
		a.insufficient++
	}
	a.latenciesMs = append(a.latenciesMs, float64(fs.Latency)/float64(time.Millisecond))
	over := a.cfg.LatencyBudget > 0 && fs.Latency > a.cfg.LatencyBudget
	if over {
		a.exceeded++
	}
	return over, nil
}

// AddCycle stores a sealed cycle, assigning its ID. Cycles are kept in the
// order they were added.
func (a *Aggregator) AddCycle(c Cycle) (Cycle, error) {
	if a.summary != nil {
		return Cycle{}, ErrFinalized
	}
	if c.EndFrame <= c.StartFrame {
		return Cycle{}, fmt.Errorf("%w: start %d end %d", ErrInvalidCycle, c.StartFrame, c.EndFrame)
	}
	c.ID = a.nextID
	a.nextID++
	c.Flags = slices.Clone(c.Flags)
	a.cycles = append(a.cycles, c)
	return c, nil
}

// RecordDroppedCycle counts a partial cycle discarded at stream end.
func (a *Aggregator) RecordDroppedCycle() error {
	if a.summary != nil {
		return ErrFinalized
	}
	a.dropped++
	return nil
}

// Finalize computes the session summary. Calling it again returns the
// same summary without recomputation; the aggregator accepts no further
// data once finalized.
func (a *Aggregator) Finalize() Summary {
	if a.summary == nil {
		s := a.compute()
		a.summary = &s
	}
	return a.summary.clone()
}

// clone returns a copy of s that shares no maps or slices with it.
func (s Summary) clone() Summary {
	out := s
	out.StrikeCounts = maps.Clone(s.StrikeCounts)
	out.AngleSummaries = maps.Clone(s.AngleSummaries)
	out.Flags = slices.Clone(s.Flags)
	out.Cycles = slices.Clone(s.Cycles)
	for i := range out.Cycles {
		out.Cycles[i].Flags = slices.Clone(out.Cycles[i].Flags)
	}
	return out
}

// Finalized reports whether Finalize has been called.
func (a *Aggregator) Finalized() bool {
	return a.summary != nil
}

func (a *Aggregator) compute() Summary {
	s := Summary{
		SessionID:            a.cfg.SessionID,
		TotalFrames:          a.frames,
		FramesWithConfidence: a.detected,
		InsufficientFrames:   a.insufficient,
		DurationSeconds:      a.lastTS - a.firstTS,
		DroppedPartialCycles: a.dropped,
		StrikeCounts:         make(map[l5strikes.Strike]int),
		Cycles:               slices.Clone(a.cycles),
		DominantStrike:       l5strikes.Unknown,
	}
	if s.Cycles == nil {
		s.Cycles = []Cycle{}
	}
	if a.dropped > 0 {
		s.Flags = s.Flags.With(FlagIncompleteCycle)
	}
	if a.frames > 0 {
		s.DetectionRate = float64(a.detected) / float64(a.frames)
	}

	s.Latency = a.latency()

	for _, c := range a.cycles {
		s.StrikeCounts[c.Strike]++
	}
	s.DominantStrike, s.DominantConfidence, s.DominantShare = dominant(a.cycles)

	s.AngleSummaries = angleSummaries(a.cycles)

	if len(a.cycles) > 0 {
		contact := make([]float64, len(a.cycles))
		for i, c := range a.cycles {
			contact[i] = c.ContactTimeSeconds
		}
		s.MeanContactTimeSeconds = stat.Mean(contact, nil)
		if s.DurationSeconds > 0 {
			legs := a.cfg.TrackedLegs
			if legs <= 0 || legs > 2 {
				legs = 2
			}
			steps := float64(len(a.cycles)) * 2 / float64(legs)
			s.CadenceSPM = steps / s.DurationSeconds * 60
		}
	}
	return s
}

func (a *Aggregator) latency() LatencySummary {
	ls := LatencySummary{
		BudgetMs: float64(a.cfg.LatencyBudget) / float64(time.Millisecond),
		Exceeded: a.exceeded,
	}
	if len(a.latenciesMs) == 0 {
		return ls
	}
	sorted := slices.Clone(a.latenciesMs)
	sort.Float64s(sorted)
	ls.MeanMs = stat.Mean(sorted, nil)
	ls.P95Ms = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	ls.MaxMs = floats.Max(sorted)
	return ls
}

// dominant picks the majority strike among classified cycles. Ties go to
// the highest mean confidence, then to the order of l5strikes.Strikes.
func dominant(cycles []Cycle) (l5strikes.Strike, float64, float64) {
	counts := make(map[l5strikes.Strike]int)
	confSum := make(map[l5strikes.Strike]float64)
	classified := 0
	for _, c := range cycles {
		if c.Strike == l5strikes.Unknown || c.Strike == "" {
			continue
		}
		counts[c.Strike]++
		confSum[c.Strike] += c.Confidence
		classified++
	}
	if classified == 0 {
		return l5strikes.Unknown, 0, 0
	}

	best := l5strikes.Unknown
	bestMean := -1.0
	for _, st := range l5strikes.Strikes {
		n := counts[st]
		if n == 0 {
			continue
		}
		mean := confSum[st] / float64(n)
		if best == l5strikes.Unknown || n > counts[best] || (n == counts[best] && mean > bestMean) {
			best, bestMean = st, mean
		}
	}
	return best, bestMean, float64(counts[best]) / float64(classified)
}

func angleSummaries(cycles []Cycle) map[string]AngleSummary {
	values := make(map[string][]float64)
	for _, c := range cycles {
		for name, m := range c.Angles.Named() {
			if m.Defined && !math.IsNaN(m.Degrees) {
				values[name] = append(values[name], m.Degrees)
			}
		}
	}
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]AngleSummary, len(values))
	for name, v := range values {
		as := AngleSummary{
			Count: len(v),
			Mean:  stat.Mean(v, nil),
			Min:   floats.Min(v),
			Max:   floats.Max(v),
		}
		if len(v) >= 2 {
			as.StdDev = stat.StdDev(v, nil)
		}
		out[name] = as
	}
	return out
}
