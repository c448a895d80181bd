// Package pose provides the 33-point body landmark model and the detectors
// that produce it from camera frames.
package pose

import (
	"math"
	"strings"
)

// Pose landmark indices following the MediaPipe pose topology.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

var names = [NumLandmarks]string{
	"nose",
	"left_eye_inner", "left_eye", "left_eye_outer",
	"right_eye_inner", "right_eye", "right_eye_outer",
	"left_ear", "right_ear",
	"mouth_left", "mouth_right",
	"left_shoulder", "right_shoulder",
	"left_elbow", "right_elbow",
	"left_wrist", "right_wrist",
	"left_pinky", "right_pinky",
	"left_index", "right_index",
	"left_thumb", "right_thumb",
	"left_hip", "right_hip",
	"left_knee", "right_knee",
	"left_ankle", "right_ankle",
	"left_heel", "right_heel",
	"left_foot_index", "right_foot_index",
}

var indexByName = func() map[string]int {
	m := make(map[string]int, NumLandmarks)
	for i, n := range names {
		m[n] = i
	}
	return m
}()

// Landmark is a single detected body point. X and Y are normalized to [0,1]
// with the origin at the top-left of the image; Z is relative depth.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility,omitempty"`
}

// Valid reports whether the landmark holds finite coordinates.
func (l Landmark) Valid() bool {
	return !math.IsNaN(l.X) && !math.IsNaN(l.Y) && !math.IsInf(l.X, 0) && !math.IsInf(l.Y, 0)
}

// Frame is one full set of pose landmarks for a single video frame.
type Frame [NumLandmarks]Landmark

// NewFrame builds a Frame from a detector result. It returns false when
// fewer than NumLandmarks points are present; extra points are ignored.
func NewFrame(points []Landmark) (Frame, bool) {
	var f Frame
	if len(points) < NumLandmarks {
		return f, false
	}
	copy(f[:], points[:NumLandmarks])
	return f, true
}

// Points returns the frame as a slice.
func (f *Frame) Points() []Landmark {
	return f[:]
}

// Name returns the canonical name of a landmark index, or "" if out of range.
func Name(index int) string {
	if index < 0 || index >= NumLandmarks {
		return ""
	}
	return names[index]
}

// IndexOf resolves a landmark name to its index. Lookup is case-insensitive.
func IndexOf(name string) (int, bool) {
	i, ok := indexByName[strings.ToLower(strings.TrimSpace(name))]
	return i, ok
}
