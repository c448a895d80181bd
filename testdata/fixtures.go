// Package testdata provides recorded landmark sequences used by tests.
package testdata

import (
	"embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/korefront/repcoach/internal/pose"
	"github.com/korefront/repcoach/internal/session"
)

//go:embed sequences/*.yaml
var sequencesFS embed.FS

// Sequence is a scripted movement of one joint, sampled at a fixed interval.
type Sequence struct {
	Exercise     string        `yaml:"exercise"`
	Joint        string        `yaml:"joint"`
	Interval     time.Duration `yaml:"interval"`
	ExpectedReps int           `yaml:"expectedReps"`
	Angles       []float64     `yaml:"angles"`
}

// LoadSequence loads a sequence by file name without extension.
func LoadSequence(name string) (*Sequence, error) {
	data, err := sequencesFS.ReadFile("sequences/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("load sequence %s: %w", name, err)
	}

	var seq Sequence
	if err := yaml.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("decode sequence %s: %w", name, err)
	}
	if seq.Interval <= 0 {
		return nil, fmt.Errorf("sequence %s: interval must be positive", name)
	}
	return &seq, nil
}

// SequenceNames lists the embedded sequences.
func SequenceNames() ([]string, error) {
	entries, err := sequencesFS.ReadDir("sequences")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		names = append(names, name[:len(name)-len(".yaml")])
	}
	return names, nil
}

// Frames renders the sequence into landmark frames starting at start.
func (s *Sequence) Frames(start time.Time) ([]session.RecordedFrame, error) {
	var build func(float64) []pose.Landmark
	switch s.Joint {
	case "left_elbow":
		build = pose.LeftElbowPose
	case "left_knee":
		build = pose.LeftKneePose
	default:
		return nil, fmt.Errorf("unsupported joint %q", s.Joint)
	}

	frames := make([]session.RecordedFrame, len(s.Angles))
	for i, angle := range s.Angles {
		frames[i] = session.RecordedFrame{
			At:        start.Add(time.Duration(i) * s.Interval),
			Landmarks: build(angle),
		}
	}
	return frames, nil
}
