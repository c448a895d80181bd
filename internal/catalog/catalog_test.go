package catalog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korefront/repcoach/internal/animation"
	"github.com/korefront/repcoach/internal/evaluate"
	"github.com/korefront/repcoach/internal/store"
)

func TestBuiltin(t *testing.T) {
	entries, err := Builtin()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	curl := entries[0]
	assert.Equal(t, "Bicep curl", curl.Name)
	assert.Equal(t, evaluate.HighToLow, curl.Classification.EvaluationType)
	assert.Equal(t, evaluate.Thresholds{Up: 160, Down: 30}, curl.Classification.Thresholds)
	require.NotNil(t, curl.Animation)
	assert.Equal(t, animation.Oscillating, curl.Animation.AnimationType)

	compiled, err := animation.Compile(*curl.Animation)
	require.NoError(t, err)
	assert.True(t, compiled.IsMoving("left_wrist"))
	assert.False(t, compiled.IsMoving("right_wrist"))

	assert.Equal(t, evaluate.LowToHigh, entries[1].Classification.EvaluationType)
	assert.Equal(t, evaluate.Custom, entries[2].Classification.EvaluationType)
	assert.Equal(t, animation.Loop, entries[2].Animation.AnimationType)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "missing name",
			doc: `exercises:
  - classification: {landmarks: [left_hip, left_knee, left_ankle], thresholds: {up: 160, down: 90}, evaluationType: low_to_high}`,
			want: "name is required",
		},
		{
			name: "duplicate name",
			doc: `exercises:
  - name: Squat
    classification: {landmarks: [left_hip, left_knee, left_ankle], thresholds: {up: 160, down: 90}, evaluationType: high_to_low}
  - name: squat
    classification: {landmarks: [left_hip, left_knee, left_ankle], thresholds: {up: 160, down: 90}, evaluationType: high_to_low}`,
			want: "duplicate name",
		},
		{
			name: "unknown landmark",
			doc: `exercises:
  - name: Squat
    classification: {landmarks: [left_hip, left_kneecap, left_ankle], thresholds: {up: 160, down: 90}, evaluationType: high_to_low}`,
			want: "left_kneecap",
		},
		{
			name: "unknown evaluation type",
			doc: `exercises:
  - name: Squat
    classification: {landmarks: [left_hip, left_knee, left_ankle], thresholds: {up: 160, down: 90}, evaluationType: sideways}`,
			want: "sideways",
		},
		{
			name: "rig with undefined anchor",
			doc: `exercises:
  - name: Squat
    classification: {landmarks: [left_hip, left_knee, left_ankle], thresholds: {up: 160, down: 90}, evaluationType: high_to_low}
    animation:
      basePoints: {hip: [0, 0, 0]}
      keyframes:
        - progress: 0
          transformations:
            - {type: relative_translate, joint: knee, relativeTo: thigh, offset: [0, 1, 0]}`,
			want: "thigh",
		},
		{
			name: "unknown field",
			doc: `exercises:
  - name: Squat
    reps: 4`,
			want: "reps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	entries, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exercises.yaml")
	require.NoError(t, os.WriteFile(path, builtinYAML, 0o644))

	entries, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	entries, err := Parse(bytes.NewReader(builtinYAML))
	require.NoError(t, err)

	created, err := Seed(s, entries, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	// Edits survive a reseed.
	curl, err := s.Exercises().GetByName("Bicep curl")
	require.NoError(t, err)
	curl.RepTarget = 15
	require.NoError(t, s.Exercises().Update(curl))

	created, err = Seed(s, entries, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	curl, err = s.Exercises().GetByName("Bicep curl")
	require.NoError(t, err)
	assert.Equal(t, 15, curl.RepTarget)
	require.NotNil(t, curl.Animation)
	assert.Len(t, curl.Animation.Keyframes, 2)
}

func TestEntry_ExerciseDefaultsRepTarget(t *testing.T) {
	e := Entry{Name: "Squat"}
	ex := e.Exercise(10)
	assert.Equal(t, 10, ex.RepTarget)
	assert.NotEmpty(t, ex.ID)
}
