package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"time"

	"github.com/banshee-data/gait.report/internal/config"
	"github.com/banshee-data/gait.report/internal/gait/l1landmarks"
	"github.com/banshee-data/gait.report/internal/gait/l2smoothing"
	"github.com/banshee-data/gait.report/internal/gait/l3kinematics"
	"github.com/banshee-data/gait.report/internal/gait/l4phases"
	"github.com/banshee-data/gait.report/internal/gait/l5strikes"
	"github.com/banshee-data/gait.report/internal/gait/l6sessions"
	"github.com/banshee-data/gait.report/internal/timeutil"
)

var (
	// ErrNonMonotonicTimestamp is returned for a frame whose timestamp does
	// not strictly follow the previous accepted frame. The frame is rejected
	// and pipeline state is left unchanged.
	ErrNonMonotonicTimestamp = errors.New("non-monotonic frame timestamp")
	// ErrFinalized is returned when frames arrive after Finalize.
	ErrFinalized = l6sessions.ErrFinalized
)

// Config configures a Pipeline. Zero values select the defaults.
type Config struct {
	Tuning    *config.TuningConfig
	Clock     timeutil.Clock
	SessionID string
}

// LegRecord is the per-frame state of one leg.
type LegRecord struct {
	Phase            l4phases.Phase           `json:"phase"`
	VerticalVelocity float64                  `json:"vertical_velocity"`
	VelocityValid    bool                     `json:"velocity_valid"`
	Angles           l3kinematics.AngleBundle `json:"angles"`
}

// FrameRecord is the pipeline output for one accepted frame.
type FrameRecord struct {
	Index     int64   `json:"index"`
	Timestamp float64 `json:"timestamp"`
	// Legs holds one entry per tracked leg.
	Legs map[l1landmarks.Side]LegRecord `json:"legs"`
	// Confidence is the mean raw visibility of the tracked legs' joints.
	Confidence      float64          `json:"confidence"`
	Detected        bool             `json:"detected"`
	Latency         time.Duration    `json:"latency_ns"`
	LatencyExceeded bool             `json:"latency_exceeded,omitempty"`
	Flags           l6sessions.Flags `json:"flags,omitempty"`
	// Cycles sealed on this frame, already assigned IDs.
	Cycles []l6sessions.Cycle `json:"cycles,omitempty"`
}

// pendingCycle holds what was decided at CONTACT until the cycle seals.
type pendingCycle struct {
	result       l5strikes.Result
	angles       l3kinematics.AngleBundle
	insufficient bool // a joint of the leg was unavailable at some point in the cycle
}

type leg struct {
	side    l1landmarks.Side
	joints  l1landmarks.LegJoints
	machine *l4phases.Machine
	pending *pendingCycle
}

// Pipeline turns a stream of landmark frames into gait phases, classified
// cycles and a session summary. It processes frames strictly in order on
// the caller's goroutine and is not safe for concurrent use.
type Pipeline struct {
	clock timeutil.Clock

	detectionConfidence float64
	insufficientPenalty float64
	useDepth            bool
	strikes             l5strikes.Config

	smoother *l2smoothing.Smoother
	tracker  *l3kinematics.VelocityTracker
	legs     []*leg
	required []l1landmarks.Joint
	agg      *l6sessions.Aggregator

	started bool
	lastTS  float64
}

// New creates a pipeline for one stream.
func New(cfg Config) *Pipeline {
	tuning := cfg.Tuning
	if tuning == nil {
		tuning = config.EmptyTuningConfig()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	vcfg := l3kinematics.VelocityConfigFromTuning(tuning)
	mcfg := l4phases.ConfigFromTuning(tuning)

	p := &Pipeline{
		clock:               clock,
		detectionConfidence: tuning.GetDetectionConfidence(),
		insufficientPenalty: tuning.GetInsufficientDataPenalty(),
		useDepth:            tuning.GetUseDepth(),
		strikes:             l5strikes.ConfigFromTuning(tuning),
		tracker:             l3kinematics.NewVelocityTracker(vcfg),
	}
	for _, side := range vcfg.Sides {
		joints := l1landmarks.Leg(side)
		p.legs = append(p.legs, &leg{
			side:    side,
			joints:  joints,
			machine: l4phases.NewMachine(mcfg, side),
		})
		p.required = append(p.required, joints.All()...)
	}

	scfg := l2smoothing.ConfigFromTuning(tuning)
	scfg.Joints = p.required
	p.smoother = l2smoothing.NewSmoother(scfg)

	acfg := l6sessions.ConfigFromTuning(tuning)
	acfg.SessionID = cfg.SessionID
	p.agg = l6sessions.NewAggregator(acfg)
	return p
}

// SessionID returns the identifier of the session this pipeline feeds.
func (p *Pipeline) SessionID() string {
	return p.agg.SessionID()
}

// Process runs one frame through every stage. Frames must arrive with
// strictly increasing timestamps; a frame that does not is rejected with
// ErrNonMonotonicTimestamp and has no effect.
func (p *Pipeline) Process(f l1landmarks.Frame) (FrameRecord, error) {
	if p.agg.Finalized() {
		return FrameRecord{}, ErrFinalized
	}
	if math.IsNaN(f.Timestamp) || math.IsInf(f.Timestamp, 0) || (p.started && f.Timestamp <= p.lastTS) {
		opsf("rejected frame %d: timestamp %.6fs does not follow %.6fs", f.Index, f.Timestamp, p.lastTS)
		return FrameRecord{}, fmt.Errorf("%w: frame %d at %.6fs, previous %.6fs",
			ErrNonMonotonicTimestamp, f.Index, f.Timestamp, p.lastTS)
	}
	p.started = true
	p.lastTS = f.Timestamp

	start := p.clock.Now()

	smoothed := p.smoother.Update(f)
	obs := p.tracker.Observe(smoothed)

	rec := FrameRecord{
		Index:      f.Index,
		Timestamp:  f.Timestamp,
		Legs:       make(map[l1landmarks.Side]LegRecord, len(p.legs)),
		Confidence: f.MeanVisibility(p.required),
	}
	rec.Detected = rec.Confidence >= p.detectionConfidence
	insufficient := !rec.Detected

	for _, l := range p.legs {
		angles := l3kinematics.LegAngles(smoothed, l.side, p.useDepth)
		if angles.DegenerateCount() > 0 {
			rec.Flags = rec.Flags.With(l6sessions.FlagDegenerateGeometry)
		}
		missing := !allAvailable(smoothed, l.joints.All())
		insufficient = insufficient || missing

		sig := obs.Feet[l.side]
		step := l.machine.Step(sig)
		if step.Phase != step.Previous {
			tracef("frame %d %s: %s -> %s (v=%.3f)", f.Index, l.side, step.Previous, step.Phase, sig.Vertical)
		}
		if l.pending != nil && missing {
			l.pending.insufficient = true
		}

		if step.Entered(l4phases.Contact) {
			res := l5strikes.Classify(p.strikes, l5strikes.Input{
				Heel:   smoothed.Get(l.joints.Heel),
				Toe:    smoothed.Get(l.joints.Toe),
				Angles: angles,
			})
			l.pending = &pendingCycle{result: res, angles: angles, insufficient: missing}
			tracef("frame %d %s: contact classified %s ratio=%.3f conf=%.2f",
				f.Index, l.side, res.Strike, res.Ratio, res.Confidence)
		}

		if step.Sealed != nil {
			c, err := p.seal(l, *step.Sealed)
			if err != nil {
				diagf("frame %d %s: cycle not recorded: %v", f.Index, l.side, err)
			} else {
				rec.Cycles = append(rec.Cycles, c)
				tracef("frame %d %s: sealed cycle %d [%d,%d] %s conf=%.2f",
					f.Index, l.side, c.ID, c.StartFrame, c.EndFrame, c.Strike, c.Confidence)
			}
		}

		rec.Legs[l.side] = LegRecord{
			Phase:            step.Phase,
			VerticalVelocity: sig.Vertical,
			VelocityValid:    sig.Valid,
			Angles:           angles,
		}
	}
	if insufficient {
		rec.Flags = rec.Flags.With(l6sessions.FlagInsufficientLandmarkData)
	}

	rec.Latency = p.clock.Since(start)
	over, err := p.agg.RecordFrame(l6sessions.FrameStats{
		Timestamp:    f.Timestamp,
		Confidence:   rec.Confidence,
		Insufficient: insufficient,
		Latency:      rec.Latency,
	})
	if err != nil {
		return FrameRecord{}, fmt.Errorf("failed to record frame %d: %w", f.Index, err)
	}
	if over {
		rec.LatencyExceeded = true
		rec.Flags = rec.Flags.With(l6sessions.FlagLatencyBudgetExceeded)
		diagf("frame %d: latency %v exceeded budget", f.Index, rec.Latency)
	}
	return rec, nil
}

// seal turns the machine's cycle bounds and the pending classification
// into a recorded cycle.
func (p *Pipeline) seal(l *leg, b l4phases.Bounds) (l6sessions.Cycle, error) {
	pc := l.pending
	l.pending = nil
	if pc == nil {
		pc = &pendingCycle{result: l5strikes.Result{Strike: l5strikes.Unknown, MissingLandmarks: true}}
	}

	c := l6sessions.Cycle{
		Side:               l.side,
		StartFrame:         b.StartFrame,
		EndFrame:           b.EndFrame,
		StartTime:          b.StartTime,
		EndTime:            b.EndTime,
		Strike:             pc.result.Strike,
		Confidence:         pc.result.Confidence,
		HeelToeRatio:       pc.result.Ratio,
		AngleAgreement:     pc.result.Agreement,
		Angles:             pc.angles,
		DurationSeconds:    b.Duration(),
		ContactTimeSeconds: b.ContactTime(),
	}
	if pc.result.MissingLandmarks {
		c.Flags = c.Flags.With(l6sessions.FlagInsufficientLandmarkData)
	}
	if pc.result.DegenerateAngles > 0 {
		c.Flags = c.Flags.With(l6sessions.FlagDegenerateGeometry)
	}
	if pc.insufficient {
		c.Confidence *= 1 - p.insufficientPenalty
		c.Flags = c.Flags.With(l6sessions.FlagInsufficientLandmarkData)
	}
	return p.agg.AddCycle(c)
}

func allAvailable(f l2smoothing.Frame, joints []l1landmarks.Joint) bool {
	for _, j := range joints {
		if !f.Get(j).Available() {
			return false
		}
	}
	return true
}

// Run returns a lazy sequence of frame records for frames. The sequence
// stops at the first error, which is yielded; a cancelled ctx yields
// ctx.Err(). Call Finalize afterwards for the session summary.
func (p *Pipeline) Run(ctx context.Context, frames iter.Seq[l1landmarks.Frame]) iter.Seq2[FrameRecord, error] {
	return func(yield func(FrameRecord, error) bool) {
		for f := range frames {
			if err := ctx.Err(); err != nil {
				yield(FrameRecord{}, err)
				return
			}
			rec, err := p.Process(f)
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// Finalize ends the stream and returns the session summary. Cycles still
// open are dropped and counted. Finalize is idempotent; later frames are
// rejected with ErrFinalized.
func (p *Pipeline) Finalize() l6sessions.Summary {
	if !p.agg.Finalized() {
		for _, l := range p.legs {
			if b, open := l.machine.Abort(); open {
				diagf("%s: dropped partial cycle starting at frame %d", l.side, b.StartFrame)
				// Cannot fail: the aggregator is not yet finalized.
				_ = p.agg.RecordDroppedCycle()
			}
			l.pending = nil
		}
	}
	return p.agg.Finalize()
}
