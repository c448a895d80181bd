package pose

import (
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu        sync.Mutex
	landmarks []Landmark
	err       error
	calls     int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetLandmarks sets the landmarks that will be returned by Detect.
func (m *MockDetector) SetLandmarks(landmarks []Landmark) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.landmarks = landmarks
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured landmarks or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]Landmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.landmarks, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// StandingPose returns a preset frame of a person standing upright facing
// the camera with both arms hanging straight down.
func StandingPose() []Landmark {
	f := make([]Landmark, NumLandmarks)

	f[Nose] = Landmark{X: 0.50, Y: 0.12}
	f[LeftEyeInner] = Landmark{X: 0.52, Y: 0.10}
	f[LeftEye] = Landmark{X: 0.53, Y: 0.10}
	f[LeftEyeOuter] = Landmark{X: 0.54, Y: 0.10}
	f[RightEyeInner] = Landmark{X: 0.48, Y: 0.10}
	f[RightEye] = Landmark{X: 0.47, Y: 0.10}
	f[RightEyeOuter] = Landmark{X: 0.46, Y: 0.10}
	f[LeftEar] = Landmark{X: 0.56, Y: 0.11}
	f[RightEar] = Landmark{X: 0.44, Y: 0.11}
	f[MouthLeft] = Landmark{X: 0.52, Y: 0.15}
	f[MouthRight] = Landmark{X: 0.48, Y: 0.15}

	f[LeftShoulder] = Landmark{X: 0.60, Y: 0.25}
	f[RightShoulder] = Landmark{X: 0.40, Y: 0.25}
	f[LeftElbow] = Landmark{X: 0.60, Y: 0.40}
	f[RightElbow] = Landmark{X: 0.40, Y: 0.40}
	f[LeftWrist] = Landmark{X: 0.60, Y: 0.55}
	f[RightWrist] = Landmark{X: 0.40, Y: 0.55}
	f[LeftPinky] = Landmark{X: 0.61, Y: 0.57}
	f[RightPinky] = Landmark{X: 0.39, Y: 0.57}
	f[LeftIndex] = Landmark{X: 0.60, Y: 0.58}
	f[RightIndex] = Landmark{X: 0.40, Y: 0.58}
	f[LeftThumb] = Landmark{X: 0.59, Y: 0.56}
	f[RightThumb] = Landmark{X: 0.41, Y: 0.56}

	f[LeftHip] = Landmark{X: 0.56, Y: 0.55}
	f[RightHip] = Landmark{X: 0.44, Y: 0.55}
	f[LeftKnee] = Landmark{X: 0.56, Y: 0.72}
	f[RightKnee] = Landmark{X: 0.44, Y: 0.72}
	f[LeftAnkle] = Landmark{X: 0.56, Y: 0.90}
	f[RightAnkle] = Landmark{X: 0.44, Y: 0.90}
	f[LeftHeel] = Landmark{X: 0.55, Y: 0.92}
	f[RightHeel] = Landmark{X: 0.45, Y: 0.92}
	f[LeftFootIndex] = Landmark{X: 0.58, Y: 0.94}
	f[RightFootIndex] = Landmark{X: 0.42, Y: 0.94}

	for i := range f {
		f[i].Visibility = 0.99
	}
	return f
}

// LeftElbowPose returns a standing pose with the left forearm bent so the
// shoulder-elbow-wrist angle equals degrees. 180 is a straight arm; small
// values bring the wrist up towards the shoulder.
func LeftElbowPose(degrees float64) []Landmark {
	f := StandingPose()
	f[LeftWrist] = bend(f[LeftShoulder], f[LeftElbow], degrees)
	return f
}

// LeftKneePose returns a standing pose with the left knee bent so the
// hip-knee-ankle angle equals degrees.
func LeftKneePose(degrees float64) []Landmark {
	f := StandingPose()
	f[LeftAnkle] = bend(f[LeftHip], f[LeftKnee], degrees)
	return f
}

// bend places a point at the same distance from joint as anchor, rotated
// degrees away from the anchor direction.
func bend(anchor, joint Landmark, degrees float64) Landmark {
	dx, dy := anchor.X-joint.X, anchor.Y-joint.Y
	length := math.Hypot(dx, dy)
	base := math.Atan2(dy, dx)
	theta := base + degrees*math.Pi/180
	return Landmark{
		X:          joint.X + length*math.Cos(theta),
		Y:          joint.Y + length*math.Sin(theta),
		Visibility: joint.Visibility,
	}
}
