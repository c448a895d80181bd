package evaluate

import (
	"errors"
	"fmt"

	"github.com/korefront/repcoach/internal/pose"
)

// EvaluationType selects the transition policy of a Counter.
type EvaluationType string

const (
	// HighToLow starts a rep above Up and completes it below Down (e.g. bicep curls).
	HighToLow EvaluationType = "high_to_low"
	// LowToHigh starts a rep below Down and completes it above Up (e.g. knee extensions).
	LowToHigh EvaluationType = "low_to_high"
	// Custom starts a rep below Up and completes it above Down.
	Custom EvaluationType = "custom"
)

// ErrUnresolved is returned when a classification cannot be mapped onto
// landmark indices.
var ErrUnresolved = errors.New("unresolved classification")

// Thresholds holds the angle bounds, in degrees, used by the transition policy.
type Thresholds struct {
	Up   float64 `json:"up" yaml:"up"`
	Down float64 `json:"down" yaml:"down"`
}

// ClassificationSpec describes how an exercise is evaluated: the three
// landmarks whose middle one is the angle vertex, the thresholds and the
// transition policy.
type ClassificationSpec struct {
	Landmarks      []string       `json:"landmarks" yaml:"landmarks"`
	Thresholds     Thresholds     `json:"thresholds" yaml:"thresholds"`
	EvaluationType EvaluationType `json:"evaluationType" yaml:"evaluationType"`
}

// Resolve maps the first three landmark names onto frame indices.
func (s ClassificationSpec) Resolve() ([3]int, error) {
	var idx [3]int
	if len(s.Landmarks) < 3 {
		return idx, fmt.Errorf("%w: need 3 landmarks, have %d", ErrUnresolved, len(s.Landmarks))
	}
	for i := 0; i < 3; i++ {
		n, ok := pose.IndexOf(s.Landmarks[i])
		if !ok {
			return idx, fmt.Errorf("%w: unknown landmark %q", ErrUnresolved, s.Landmarks[i])
		}
		idx[i] = n
	}
	return idx, nil
}

// Validate reports configuration problems that would make evaluation a no-op.
func (s ClassificationSpec) Validate() error {
	if _, err := s.Resolve(); err != nil {
		return err
	}
	switch s.EvaluationType {
	case HighToLow, LowToHigh, Custom:
		return nil
	default:
		return fmt.Errorf("%w: unknown evaluation type %q", ErrUnresolved, s.EvaluationType)
	}
}
