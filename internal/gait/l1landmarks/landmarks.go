package l1landmarks

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Side identifies a leg.
type Side string

const (
	Left  Side = "left"
	Right Side = "right"
)

// Sides lists the legs in a stable order.
var Sides = []Side{Left, Right}

// Joint is the name of a tracked anatomical landmark, e.g. "left_heel".
type Joint string

// Landmark names, per side.
const (
	LeftShoulder  Joint = "left_shoulder"
	RightShoulder Joint = "right_shoulder"
	LeftHip       Joint = "left_hip"
	RightHip      Joint = "right_hip"
	LeftKnee      Joint = "left_knee"
	RightKnee     Joint = "right_knee"
	LeftAnkle     Joint = "left_ankle"
	RightAnkle    Joint = "right_ankle"
	LeftHeel      Joint = "left_heel"
	RightHeel     Joint = "right_heel"
	LeftToe       Joint = "left_toe"
	RightToe      Joint = "right_toe"
)

// AllJoints lists every joint the pipeline tracks.
var AllJoints = []Joint{
	LeftShoulder, RightShoulder,
	LeftHip, RightHip,
	LeftKnee, RightKnee,
	LeftAnkle, RightAnkle,
	LeftHeel, RightHeel,
	LeftToe, RightToe,
}

// LegJoints names the joints that make up one leg plus the same-side
// shoulder used for hip angle and trunk lean.
type LegJoints struct {
	Shoulder Joint
	Hip      Joint
	Knee     Joint
	Ankle    Joint
	Heel     Joint
	Toe      Joint
}

// All returns the leg's joints in proximal to distal order.
func (l LegJoints) All() []Joint {
	return []Joint{l.Shoulder, l.Hip, l.Knee, l.Ankle, l.Heel, l.Toe}
}

// Leg returns the joint names for the given side.
func Leg(side Side) LegJoints {
	if side == Right {
		return LegJoints{RightShoulder, RightHip, RightKnee, RightAnkle, RightHeel, RightToe}
	}
	return LegJoints{LeftShoulder, LeftHip, LeftKnee, LeftAnkle, LeftHeel, LeftToe}
}

// Landmark is one joint as reported by the pose estimator. Coordinates are
// image-normalised: x to the right, y downwards (larger y is lower in the
// frame), z is relative depth.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Position returns the landmark as a vector.
func (l Landmark) Position() r3.Vec {
	return r3.Vec{X: l.X, Y: l.Y, Z: l.Z}
}

// finite reports whether all coordinates are usable numbers.
func (l Landmark) finite() bool {
	for _, v := range [...]float64{l.X, l.Y, l.Z, l.Visibility} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Frame is one unit of input: a frame index, a capture timestamp in seconds
// and the landmarks detected in that frame. A Frame is treated as immutable
// once handed to the pipeline.
type Frame struct {
	Index     int64              `json:"index"`
	Timestamp float64            `json:"timestamp"`
	Landmarks map[Joint]Landmark `json:"landmarks"`
}

// Visibility returns the joint's visibility clamped to [0,1]. Joints that
// are absent or carry non-finite values report 0, so "missing" and
// "present with visibility 0" are indistinguishable downstream.
func (f Frame) Visibility(j Joint) float64 {
	lm, ok := f.Landmarks[j]
	if !ok || !lm.finite() {
		return 0
	}
	return math.Max(0, math.Min(1, lm.Visibility))
}

// Observation returns the joint position if its visibility is at least floor.
func (f Frame) Observation(j Joint, floor float64) (r3.Vec, float64, bool) {
	vis := f.Visibility(j)
	if vis <= 0 || vis < floor {
		return r3.Vec{}, vis, false
	}
	return f.Landmarks[j].Position(), vis, true
}

// MeanVisibility averages the visibility of the given joints, counting
// missing joints as zero.
func (f Frame) MeanVisibility(joints []Joint) float64 {
	if len(joints) == 0 {
		return 0
	}
	var sum float64
	for _, j := range joints {
		sum += f.Visibility(j)
	}
	return sum / float64(len(joints))
}
