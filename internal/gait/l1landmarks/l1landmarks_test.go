package l1landmarks

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameVisibility(t *testing.T) {
	t.Parallel()

	f := Frame{
		Landmarks: map[Joint]Landmark{
			LeftHeel:  {X: 0.4, Y: 0.9, Visibility: 0.95},
			LeftToe:   {X: 0.5, Y: 0.9, Visibility: 1.4},
			LeftKnee:  {X: math.NaN(), Y: 0.7, Visibility: 0.9},
			LeftAnkle: {X: 0.4, Y: 0.88, Visibility: -0.2},
		},
	}

	assert.InDelta(t, 0.95, f.Visibility(LeftHeel), 1e-12)
	assert.Equal(t, 1.0, f.Visibility(LeftToe), "visibility is clamped to 1")
	assert.Equal(t, 0.0, f.Visibility(LeftKnee), "non-finite landmark counts as missing")
	assert.Equal(t, 0.0, f.Visibility(LeftAnkle), "negative visibility is clamped to 0")
	assert.Equal(t, 0.0, f.Visibility(LeftHip), "absent joint has zero visibility")
}

func TestFrameObservation(t *testing.T) {
	t.Parallel()

	f := Frame{Landmarks: map[Joint]Landmark{
		LeftHeel: {X: 0.4, Y: 0.9, Z: -0.1, Visibility: 0.8},
		LeftToe:  {X: 0.5, Y: 0.9, Visibility: 0.3},
		LeftHip:  {X: 0.5, Y: 0.5, Visibility: 0},
	}}

	pos, vis, ok := f.Observation(LeftHeel, 0.5)
	require.True(t, ok)
	assert.InDelta(t, 0.8, vis, 1e-12)
	assert.Equal(t, 0.4, pos.X)
	assert.Equal(t, -0.1, pos.Z)

	_, _, ok = f.Observation(LeftToe, 0.5)
	assert.False(t, ok, "below floor")

	// Absent and zero-visibility joints are treated identically, even with a zero floor.
	_, _, okAbsent := f.Observation(RightHeel, 0)
	_, _, okZero := f.Observation(LeftHip, 0)
	assert.False(t, okAbsent)
	assert.False(t, okZero)
}

func TestMeanVisibility(t *testing.T) {
	t.Parallel()

	f := Frame{Landmarks: map[Joint]Landmark{
		LeftHeel: {Visibility: 1},
		LeftToe:  {Visibility: 0.5},
	}}
	assert.InDelta(t, 0.5, f.MeanVisibility([]Joint{LeftHeel, LeftToe, LeftKnee}), 1e-12)
	assert.Equal(t, 0.0, f.MeanVisibility(nil))
}

func TestLeg(t *testing.T) {
	t.Parallel()

	left := Leg(Left)
	right := Leg(Right)
	assert.Equal(t, LeftHeel, left.Heel)
	assert.Equal(t, RightToe, right.Toe)
	assert.Len(t, left.All(), 6)
	for _, j := range right.All() {
		assert.True(t, strings.HasPrefix(string(j), "right_"), "joint %s", j)
	}
}

func TestFromPoseArray(t *testing.T) {
	t.Parallel()

	points := make([]Landmark, PoseNumLandmarks)
	for i := range points {
		points[i] = Landmark{X: float64(i), Visibility: 1}
	}

	f, err := FromPoseArray(7, 0.25, points)
	require.NoError(t, err)
	assert.Equal(t, int64(7), f.Index)
	assert.Equal(t, 0.25, f.Timestamp)
	assert.Len(t, f.Landmarks, len(AllJoints))
	assert.Equal(t, float64(PoseLeftFootIndex), f.Landmarks[LeftToe].X)
	assert.Equal(t, float64(PoseRightHeel), f.Landmarks[RightHeel].X)

	_, err = FromPoseArray(0, 0, points[:10])
	assert.Error(t, err)
}

func TestDecoder(t *testing.T) {
	t.Parallel()

	pose := make([]string, PoseNumLandmarks)
	for i := range pose {
		pose[i] = `{"x":0.5,"y":0.5,"z":0,"visibility":0.9}`
	}
	input := strings.Join([]string{
		`{"index":0,"timestamp":0.0,"landmarks":{"left_heel":{"x":0.4,"y":0.9,"z":0,"visibility":0.99}}}`,
		``,
		`{"index":1,"timestamp":0.033,"pose":[` + strings.Join(pose, ",") + `]}`,
		`{"index":2,"timestamp":0.066}`,
	}, "\n")

	dec := NewDecoder(strings.NewReader(input))
	var frames []Frame
	for f, err := range dec.All() {
		require.NoError(t, err)
		frames = append(frames, f)
	}

	require.Len(t, frames, 3)
	assert.InDelta(t, 0.99, frames[0].Visibility(LeftHeel), 1e-12)
	assert.Equal(t, int64(1), frames[1].Index)
	assert.InDelta(t, 0.9, frames[1].Visibility(RightKnee), 1e-12)
	assert.NotNil(t, frames[2].Landmarks, "frame without landmarks decodes to an empty map")
}

func TestDecoderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"malformed json", `{"index":0,`},
		{"missing index", `{"timestamp":0.1}`},
		{"missing timestamp", `{"index":3}`},
		{"short pose", `{"index":0,"timestamp":0,"pose":[{"x":0,"y":0,"z":0,"visibility":1}]}`},
		{"both forms", `{"index":0,"timestamp":0,"landmarks":{},"pose":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dec := NewDecoder(strings.NewReader(tt.input))
			var gotErr error
			for _, err := range dec.All() {
				gotErr = err
			}
			assert.Error(t, gotErr)
			assert.Contains(t, gotErr.Error(), "line 1")
		})
	}
}
