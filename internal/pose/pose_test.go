package pose

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-9

func TestIndexOf(t *testing.T) {
	tests := []struct {
		name  string
		want  int
		found bool
	}{
		{"nose", Nose, true},
		{"left_elbow", LeftElbow, true},
		{"LEFT_ELBOW", LeftElbow, true},
		{" right_knee ", RightKnee, true},
		{"right_foot_index", RightFootIndex, true},
		{"left_tail", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := IndexOf(tt.name)
			if ok != tt.found {
				t.Fatalf("IndexOf(%q) found = %v, want %v", tt.name, ok, tt.found)
			}
			if ok && got != tt.want {
				t.Errorf("IndexOf(%q) = %d, want %d", tt.name, got, tt.want)
			}
		})
	}
}

func TestName(t *testing.T) {
	for i := 0; i < NumLandmarks; i++ {
		idx, ok := IndexOf(Name(i))
		if !ok || idx != i {
			t.Errorf("Name(%d) = %q does not round trip", i, Name(i))
		}
	}
	if Name(-1) != "" || Name(NumLandmarks) != "" {
		t.Error("expected empty name for out of range index")
	}
}

func TestNewFrame(t *testing.T) {
	t.Run("rejects short input", func(t *testing.T) {
		if _, ok := NewFrame(make([]Landmark, 32)); ok {
			t.Error("expected 32 landmarks to be rejected")
		}
		if _, ok := NewFrame(nil); ok {
			t.Error("expected nil input to be rejected")
		}
	})

	t.Run("accepts exactly 33", func(t *testing.T) {
		points := StandingPose()
		f, ok := NewFrame(points)
		if !ok {
			t.Fatal("expected full frame to be accepted")
		}
		if f[LeftElbow] != points[LeftElbow] {
			t.Errorf("left elbow = %+v, want %+v", f[LeftElbow], points[LeftElbow])
		}
	})

	t.Run("ignores extra points", func(t *testing.T) {
		points := append(StandingPose(), Landmark{X: 9, Y: 9})
		f, ok := NewFrame(points)
		if !ok {
			t.Fatal("expected frame to be accepted")
		}
		if len(f.Points()) != NumLandmarks {
			t.Errorf("expected %d points, got %d", NumLandmarks, len(f.Points()))
		}
	})
}

func TestLandmark_Valid(t *testing.T) {
	if !(Landmark{X: 0.5, Y: 0.5}).Valid() {
		t.Error("expected finite landmark to be valid")
	}
	if (Landmark{X: math.NaN(), Y: 0.5}).Valid() {
		t.Error("expected NaN landmark to be invalid")
	}
	if (Landmark{X: 0.5, Y: math.Inf(1)}).Valid() {
		t.Error("expected infinite landmark to be invalid")
	}
}

func TestLeftElbowPose(t *testing.T) {
	for _, deg := range []float64{30, 90, 160, 180} {
		f := LeftElbowPose(deg)
		s, e, w := f[LeftShoulder], f[LeftElbow], f[LeftWrist]
		a := math.Atan2(s.Y-e.Y, s.X-e.X)
		b := math.Atan2(w.Y-e.Y, w.X-e.X)
		got := math.Abs(b-a) * 180 / math.Pi
		if got > 180 {
			got = 360 - got
		}
		if math.Abs(got-deg) > 1e-6 {
			t.Errorf("LeftElbowPose(%v) produced %v degrees", deg, got)
		}
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty landmarks by default", func(t *testing.T) {
		mock := NewMockDetector()

		points, err := mock.Detect(nil)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if points != nil {
			t.Errorf("expected nil landmarks, got %v", points)
		}
	})

	t.Run("returns configured landmarks", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetLandmarks(StandingPose())

		points, err := mock.Detect(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(points) != NumLandmarks {
			t.Errorf("expected %d landmarks, got %d", NumLandmarks, len(points))
		}
		if mock.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()
		want := errors.New("boom")
		mock.SetError(want)

		if _, err := mock.Detect(nil); !errors.Is(err, want) {
			t.Errorf("expected %v, got %v", want, err)
		}
	})
}

func TestParseResponse(t *testing.T) {
	t.Run("landmarks", func(t *testing.T) {
		points, err := parseResponse([]byte(`{"landmarks":[{"x":0.1,"y":0.2,"z":-0.3,"visibility":0.9}]}` + "\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(points) != 1 {
			t.Fatalf("expected 1 landmark, got %d", len(points))
		}
		if math.Abs(points[0].Z+0.3) > epsilon || math.Abs(points[0].Visibility-0.9) > epsilon {
			t.Errorf("unexpected landmark %+v", points[0])
		}
	})

	t.Run("service error", func(t *testing.T) {
		if _, err := parseResponse([]byte(`{"landmarks":[],"error":"decode failed"}`)); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("malformed", func(t *testing.T) {
		if _, err := parseResponse([]byte(`not json`)); err == nil {
			t.Error("expected error")
		}
	})
}
