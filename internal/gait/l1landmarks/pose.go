package l1landmarks

import "fmt"

// Indices into the 33-point full-body pose layout emitted by the estimator.
// Only the landmarks the gait core consumes are listed.
const (
	PoseLeftShoulder   = 11
	PoseRightShoulder  = 12
	PoseLeftHip        = 23
	PoseRightHip       = 24
	PoseLeftKnee       = 25
	PoseRightKnee      = 26
	PoseLeftAnkle      = 27
	PoseRightAnkle     = 28
	PoseLeftHeel       = 29
	PoseRightHeel      = 30
	PoseLeftFootIndex  = 31
	PoseRightFootIndex = 32
	PoseNumLandmarks   = 33
)

var poseIndex = map[Joint]int{
	LeftShoulder:  PoseLeftShoulder,
	RightShoulder: PoseRightShoulder,
	LeftHip:       PoseLeftHip,
	RightHip:      PoseRightHip,
	LeftKnee:      PoseLeftKnee,
	RightKnee:     PoseRightKnee,
	LeftAnkle:     PoseLeftAnkle,
	RightAnkle:    PoseRightAnkle,
	LeftHeel:      PoseLeftHeel,
	RightHeel:     PoseRightHeel,
	LeftToe:       PoseLeftFootIndex,
	RightToe:      PoseRightFootIndex,
}

// FromPoseArray builds a Frame from the estimator's indexed 33-point output.
func FromPoseArray(index int64, timestamp float64, points []Landmark) (Frame, error) {
	if len(points) != PoseNumLandmarks {
		return Frame{}, fmt.Errorf("pose array has %d landmarks, want %d", len(points), PoseNumLandmarks)
	}
	lms := make(map[Joint]Landmark, len(poseIndex))
	for j, idx := range poseIndex {
		lms[j] = points[idx]
	}
	return Frame{Index: index, Timestamp: timestamp, Landmarks: lms}, nil
}
