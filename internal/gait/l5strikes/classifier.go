package l5strikes

import (
	"math"

	"github.com/banshee-data/gait.report/internal/config"
	"github.com/banshee-data/gait.report/internal/gait/l2smoothing"
	"github.com/banshee-data/gait.report/internal/gait/l3kinematics"
)

// Strike is the foot-strike pattern of one cycle.
type Strike string

const (
	Heel     Strike = "HEEL_STRIKE"
	Midfoot  Strike = "MIDFOOT_STRIKE"
	Forefoot Strike = "FOREFOOT_STRIKE"
	Unknown  Strike = "UNKNOWN"
)

// Strikes lists the classifiable strike types in tie-break order.
var Strikes = []Strike{Heel, Midfoot, Forefoot}

// AngleRange is a closed interval in degrees.
type AngleRange struct {
	Min, Max float64
}

// distance returns how far deg lies outside the range (0 inside).
func (r AngleRange) distance(deg float64) float64 {
	switch {
	case deg < r.Min:
		return r.Min - deg
	case deg > r.Max:
		return deg - r.Max
	}
	return 0
}

// typicalAngles are knee and ankle angles at initial contact commonly
// reported for each strike pattern. The ranges overlap and never decide
// the label.
var typicalAngles = map[Strike]struct{ Knee, Ankle AngleRange }{
	Heel:     {Knee: AngleRange{160, 180}, Ankle: AngleRange{80, 110}},
	Midfoot:  {Knee: AngleRange{150, 172}, Ankle: AngleRange{95, 125}},
	Forefoot: {Knee: AngleRange{140, 165}, Ankle: AngleRange{110, 150}},
}

const (
	// angleTolerance is the distance outside a typical range (degrees) at
	// which an angle counts as fully disagreeing.
	angleTolerance = 20.0
	// boundaryMargin is the ratio distance from a threshold beyond which
	// the label is considered unambiguous.
	boundaryMargin = 0.05
	// boundaryFloor is the confidence factor for a ratio sitting exactly on
	// a threshold.
	boundaryFloor = 0.9
)

// Config holds the classifier thresholds and penalties.
type Config struct {
	HighRatio           float64 // ratio at or above which the strike is HEEL
	LowRatio            float64 // ratio at or below which the strike is FOREFOOT
	DisagreementPenalty float64 // confidence lost at full angle disagreement
	UndefinedPenalty    float64 // fractional confidence lost per undefined knee/ankle or degenerate hip/trunk angle
}

// ConfigFromTuning builds a classifier Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		HighRatio:           cfg.GetStrikeHighRatio(),
		LowRatio:            cfg.GetStrikeLowRatio(),
		DisagreementPenalty: cfg.GetAngleDisagreementPenalty(),
		UndefinedPenalty:    cfg.GetDegenerateAnglePenalty(),
	}
}

// Input is the evidence available on the frame CONTACT was confirmed.
type Input struct {
	Heel   l2smoothing.Landmark
	Toe    l2smoothing.Landmark
	Angles l3kinematics.AngleBundle
}

// Result is the outcome of one classification.
type Result struct {
	Strike     Strike  `json:"strike"`
	Confidence float64 `json:"confidence"`
	Ratio      float64 `json:"heel_toe_ratio"`
	// Agreement is how well the knee and ankle angles fit the label's
	// typical ranges, in [0,1]. 1 when no angle is defined.
	Agreement float64 `json:"angle_agreement"`
	// MissingLandmarks is set when heel or toe was unusable.
	MissingLandmarks bool `json:"missing_landmarks,omitempty"`
	// UndefinedAngles counts undefined knee/ankle angles.
	UndefinedAngles int `json:"undefined_angles,omitempty"`
	// DegenerateAngles counts angles of the whole bundle undefined because
	// of coincident joints.
	DegenerateAngles int `json:"degenerate_angles,omitempty"`
}

// Classify labels a foot strike. The heel/toe vertical ratio alone decides
// the label; knee and ankle angles only scale the confidence.
func Classify(cfg Config, in Input) Result {
	res := Result{Agreement: 1, DegenerateAngles: in.Angles.DegenerateCount()}
	for _, m := range [...]l3kinematics.Measurement{in.Angles.Knee, in.Angles.Ankle} {
		if !m.Defined {
			res.UndefinedAngles++
		}
	}
	penalised := res.UndefinedAngles
	// Hip and trunk lean never vote on agreement but still cost confidence
	// when their joints coincide.
	for _, m := range [...]l3kinematics.Measurement{in.Angles.Hip, in.Angles.TrunkLean} {
		if m.Degenerate {
			penalised++
		}
	}

	if !in.Heel.Available() || !in.Toe.Available() || in.Toe.Position.Y <= 0 {
		res.Strike = Unknown
		res.MissingLandmarks = true
		return res
	}

	res.Ratio = in.Heel.Position.Y / in.Toe.Position.Y
	switch {
	case res.Ratio >= cfg.HighRatio:
		res.Strike = Heel
	case res.Ratio <= cfg.LowRatio:
		res.Strike = Forefoot
	default:
		res.Strike = Midfoot
	}

	res.Agreement = agreement(res.Strike, in.Angles)
	conf := math.Min(in.Heel.Confidence, in.Toe.Confidence)
	conf *= boundaryFactor(cfg, res.Ratio)
	conf *= 1 - cfg.DisagreementPenalty*(1-res.Agreement)
	conf *= math.Pow(1-cfg.UndefinedPenalty, float64(penalised))
	res.Confidence = clamp01(conf)
	return res
}

// boundaryFactor lowers confidence for ratios close to a threshold.
func boundaryFactor(cfg Config, ratio float64) float64 {
	d := math.Min(math.Abs(ratio-cfg.HighRatio), math.Abs(ratio-cfg.LowRatio))
	return boundaryFloor + (1-boundaryFloor)*math.Min(1, d/boundaryMargin)
}

// agreement scores the defined knee/ankle angles against the typical
// ranges for s. Each angle scores 1 inside its range, falling linearly to
// 0 at angleTolerance degrees outside.
func agreement(s Strike, b l3kinematics.AngleBundle) float64 {
	ranges, ok := typicalAngles[s]
	if !ok {
		return 1
	}
	var sum float64
	var n int
	if b.Knee.Defined {
		sum += score(ranges.Knee, b.Knee.Degrees)
		n++
	}
	if b.Ankle.Defined {
		sum += score(ranges.Ankle, b.Ankle.Degrees)
		n++
	}
	if n == 0 {
		return 1
	}
	return sum / float64(n)
}

func score(r AngleRange, deg float64) float64 {
	return math.Max(0, 1-r.distance(deg)/angleTolerance)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
