package l3kinematics

import (
	"errors"
	"math"

	"github.com/banshee-data/gait.report/internal/gait/l1landmarks"
	"github.com/banshee-data/gait.report/internal/gait/l2smoothing"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrDegenerateGeometry is returned when an angle has no defined value,
// i.e. one of the arms has zero length.
var ErrDegenerateGeometry = errors.New("degenerate geometry: coincident points")

// minArmLength is the shortest arm (normalised units) treated as non-zero.
const minArmLength = 1e-9

// Angle returns the angle at vertex b formed by a-b-c, in degrees [0, 180].
func Angle(a, b, c r3.Vec) (float64, error) {
	ba := r3.Sub(a, b)
	bc := r3.Sub(c, b)
	na := r3.Norm(ba)
	nc := r3.Norm(bc)
	if !(na > minArmLength) || !(nc > minArmLength) || math.IsInf(na, 0) || math.IsInf(nc, 0) {
		return 0, ErrDegenerateGeometry
	}
	cos := r3.Dot(ba, bc) / (na * nc)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi, nil
}

// Measurement is an angle that may be undefined. Degenerate marks the
// undefined case caused by coincident points rather than missing joints.
type Measurement struct {
	Degrees    float64 `json:"degrees"`
	Defined    bool    `json:"defined"`
	Degenerate bool    `json:"degenerate,omitempty"`
}

// AngleBundle holds the joint angles of one leg at one frame.
type AngleBundle struct {
	Knee      Measurement `json:"knee"`       // hip-knee-ankle; 180 is a straight leg
	Ankle     Measurement `json:"ankle"`      // knee-ankle-toe
	Hip       Measurement `json:"hip"`        // shoulder-hip-knee
	TrunkLean Measurement `json:"trunk_lean"` // vertical-hip-shoulder; 0 is upright
}

// Named returns the measurements keyed by their summary names.
func (b AngleBundle) Named() map[string]Measurement {
	return map[string]Measurement{
		"knee":       b.Knee,
		"ankle":      b.Ankle,
		"hip":        b.Hip,
		"trunk_lean": b.TrunkLean,
	}
}

// UndefinedCount returns how many of the four angles are undefined.
func (b AngleBundle) UndefinedCount() int {
	n := 0
	for _, m := range [...]Measurement{b.Knee, b.Ankle, b.Hip, b.TrunkLean} {
		if !m.Defined {
			n++
		}
	}
	return n
}

// DegenerateCount returns how many angles were undefined due to coincident points.
func (b AngleBundle) DegenerateCount() int {
	n := 0
	for _, m := range [...]Measurement{b.Knee, b.Ankle, b.Hip, b.TrunkLean} {
		if m.Degenerate {
			n++
		}
	}
	return n
}

func measure(a, b, c l2smoothing.Landmark, useDepth bool) Measurement {
	if !a.Available() || !b.Available() || !c.Available() {
		return Measurement{}
	}
	deg, err := Angle(project(a.Position, useDepth), project(b.Position, useDepth), project(c.Position, useDepth))
	if err != nil {
		return Measurement{Degenerate: true}
	}
	return Measurement{Degrees: deg, Defined: true}
}

// project drops depth unless requested; estimator depth is far noisier than
// the image-plane coordinates.
func project(p r3.Vec, useDepth bool) r3.Vec {
	if !useDepth {
		p.Z = 0
	}
	return p
}

// LegAngles computes the angle bundle for one leg from a smoothed frame.
func LegAngles(f l2smoothing.Frame, side l1landmarks.Side, useDepth bool) AngleBundle {
	leg := l1landmarks.Leg(side)
	shoulder := f.Get(leg.Shoulder)
	hip := f.Get(leg.Hip)
	knee := f.Get(leg.Knee)
	ankle := f.Get(leg.Ankle)
	toe := f.Get(leg.Toe)

	// Image y grows downwards, so "up" from the hip is -y.
	up := hip
	up.Position = r3.Sub(hip.Position, r3.Vec{Y: 1})

	return AngleBundle{
		Knee:      measure(hip, knee, ankle, useDepth),
		Ankle:     measure(knee, ankle, toe, useDepth),
		Hip:       measure(shoulder, hip, knee, useDepth),
		TrunkLean: measure(up, hip, shoulder, useDepth),
	}
}
