package testutil

import (
	"github.com/banshee-data/gait.report/internal/gait/l1landmarks"
)

// StrideOptions shapes a synthetic single-stride stream.
//
// The left foot starts in the air, descends at 0.6 units/s from frame 10,
// lands on frame 29, stays planted until frame 59, lifts off at 0.6
// units/s and hovers from frame 75. The right leg stands still throughout.
type StrideOptions struct {
	Frames     int
	FPS        float64
	Visibility float64
	// Ratio is heel_y / toe_y of the left foot when planted.
	Ratio float64
	// Frames in [BlackoutFrom, BlackoutTo] report every joint with
	// visibility 0. Disabled when BlackoutTo < BlackoutFrom.
	BlackoutFrom, BlackoutTo int
	// SpikeFrame holds the left foot at its previous height for one
	// frame, a single-frame velocity spike. Disabled when negative.
	SpikeFrame int
}

// DefaultStride is a clean 30 fps, 90 frame heel-strike stride.
func DefaultStride() StrideOptions {
	return StrideOptions{
		Frames:       90,
		FPS:          30,
		Visibility:   0.98,
		Ratio:        0.99,
		BlackoutFrom: 0,
		BlackoutTo:   -1,
		SpikeFrame:   -1,
	}
}

// Stride timing in frames for the moving foot.
const (
	DescentStart = 10
	Landing      = 29
	LiftStart    = 60
	HoverStart   = 75
)

// groundY is the image y of the floor under the toe.
const groundY = 0.90

// FootLift returns how far (normalised units) the left foot is above its
// planted position on frame f.
func FootLift(f int) float64 {
	const step = 0.02
	switch {
	case f < DescentStart:
		return 0.4
	case f <= Landing:
		return 0.4 - step*float64(f-DescentStart+1)
	case f < LiftStart:
		return 0
	case f < HoverStart:
		return step * float64(f-LiftStart+1)
	default:
		return 0.3
	}
}

// StancePose returns one leg's joints planted on the floor with the given
// heel/toe ratio. Knee and ankle angles fall inside the typical ranges of
// both heel and midfoot strikes.
func StancePose(side l1landmarks.Side, ratio, visibility float64) map[l1landmarks.Joint]l1landmarks.Landmark {
	leg := l1landmarks.Leg(side)
	dx := 0.0
	if side == l1landmarks.Right {
		dx = 0.04
	}
	at := func(x, y float64) l1landmarks.Landmark {
		return l1landmarks.Landmark{X: x + dx, Y: y, Visibility: visibility}
	}
	return map[l1landmarks.Joint]l1landmarks.Landmark{
		leg.Shoulder: at(0.49, 0.20),
		leg.Hip:      at(0.50, 0.50),
		leg.Knee:     at(0.52, 0.70),
		leg.Ankle:    at(0.50, 0.88),
		leg.Heel:     at(0.48, groundY*ratio),
		leg.Toe:      at(0.58, groundY),
	}
}

// Stride generates the frames described by opts.
func Stride(opts StrideOptions) []l1landmarks.Frame {
	left := l1landmarks.Leg(l1landmarks.Left)
	frames := make([]l1landmarks.Frame, opts.Frames)
	for f := range frames {
		vis := opts.Visibility
		if f >= opts.BlackoutFrom && f <= opts.BlackoutTo {
			vis = 0
		}
		lift := FootLift(f)
		if f == opts.SpikeFrame && f > 0 {
			lift = FootLift(f - 1)
		}

		lms := StancePose(l1landmarks.Left, opts.Ratio, vis)
		for _, j := range []l1landmarks.Joint{left.Ankle, left.Heel, left.Toe} {
			lm := lms[j]
			lm.Y -= lift
			lms[j] = lm
		}
		for j, lm := range StancePose(l1landmarks.Right, 1, vis) {
			lms[j] = lm
		}

		frames[f] = l1landmarks.Frame{
			Index:     int64(f),
			Timestamp: float64(f) / opts.FPS,
			Landmarks: lms,
		}
	}
	return frames
}
