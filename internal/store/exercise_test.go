package store

import (
	"errors"
	"testing"

	"github.com/korefront/repcoach/internal/animation"
	"github.com/korefront/repcoach/internal/evaluate"
)

func testExercise(id, name string) *Exercise {
	return &Exercise{
		ID:          id,
		Name:        name,
		Description: "Elbow flexion with the arm at the side",
		Classification: evaluate.ClassificationSpec{
			Landmarks:      []string{"left_shoulder", "left_elbow", "left_wrist"},
			Thresholds:     evaluate.Thresholds{Up: 160, Down: 30},
			EvaluationType: evaluate.HighToLow,
		},
		Animation: &animation.Rig{
			BasePoints: map[string]animation.Vec3{"left_elbow": {0, 0, 0}},
			Keyframes: []animation.Keyframe{
				{Progress: 0, Transformations: animation.Transformations{
					animation.RelativeTranslate{Joint: "left_wrist", RelativeTo: "left_elbow", Offset: animation.Vec3{0, 1, 0}},
				}},
				{Progress: 1, Transformations: animation.Transformations{
					animation.RotateAroundJoint{Joint: "left_wrist", PivotJoint: "left_elbow", Axis: animation.AxisZ, Angle: 150, Distance: 1},
				}},
			},
			AnimationType: animation.Oscillating,
		},
		RepTarget: 10,
	}
}

func TestExerciseRepository_Create(t *testing.T) {
	s := newTestStore(t)
	repo := s.Exercises()

	e := testExercise("ex-1", "Bicep curl")
	if err := repo.Create(e); err != nil {
		t.Fatalf("failed to create exercise: %v", err)
	}
	if e.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	got, err := repo.GetByID("ex-1")
	if err != nil {
		t.Fatalf("failed to get exercise: %v", err)
	}
	if got.Name != e.Name || got.Description != e.Description {
		t.Errorf("unexpected exercise %+v", got)
	}
	if got.Classification.EvaluationType != evaluate.HighToLow {
		t.Errorf("expected high_to_low, got %q", got.Classification.EvaluationType)
	}
	if got.Animation == nil || len(got.Animation.Keyframes) != 2 {
		t.Fatalf("expected animation with 2 keyframes, got %+v", got.Animation)
	}
	if _, ok := got.Animation.Keyframes[1].Transformations[0].(animation.RotateAroundJoint); !ok {
		t.Errorf("expected rotate transformation, got %T", got.Animation.Keyframes[1].Transformations[0])
	}

	byName, err := repo.GetByName("Bicep curl")
	if err != nil {
		t.Fatalf("failed to get exercise by name: %v", err)
	}
	if byName.ID != "ex-1" {
		t.Errorf("expected ex-1, got %s", byName.ID)
	}
}

func TestExerciseRepository_Create_DuplicateName(t *testing.T) {
	s := newTestStore(t)
	repo := s.Exercises()

	if err := repo.Create(testExercise("ex-1", "Squat")); err != nil {
		t.Fatalf("failed to create exercise: %v", err)
	}
	if err := repo.Create(testExercise("ex-2", "Squat")); err == nil {
		t.Error("expected error for duplicate name")
	}
}

func TestExerciseRepository_WithoutAnimation(t *testing.T) {
	s := newTestStore(t)
	repo := s.Exercises()

	e := testExercise("ex-1", "Knee extension")
	e.Animation = nil
	if err := repo.Create(e); err != nil {
		t.Fatalf("failed to create exercise: %v", err)
	}

	got, err := repo.GetByID("ex-1")
	if err != nil {
		t.Fatalf("failed to get exercise: %v", err)
	}
	if got.Animation != nil {
		t.Errorf("expected no animation, got %+v", got.Animation)
	}
}

func TestExerciseRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Exercises()

	for _, e := range []*Exercise{testExercise("b", "Squat"), testExercise("a", "Bicep curl")} {
		if err := repo.Create(e); err != nil {
			t.Fatalf("failed to create exercise: %v", err)
		}
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("failed to list exercises: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 exercises, got %d", len(list))
	}
	if list[0].Name != "Bicep curl" {
		t.Errorf("expected exercises ordered by name, got %s first", list[0].Name)
	}
}

func TestExerciseRepository_Update(t *testing.T) {
	s := newTestStore(t)
	repo := s.Exercises()

	e := testExercise("ex-1", "Bicep curl")
	if err := repo.Create(e); err != nil {
		t.Fatalf("failed to create exercise: %v", err)
	}

	e.RepTarget = 12
	e.Classification.Thresholds.Down = 40
	if err := repo.Update(e); err != nil {
		t.Fatalf("failed to update exercise: %v", err)
	}

	got, _ := repo.GetByID("ex-1")
	if got.RepTarget != 12 || got.Classification.Thresholds.Down != 40 {
		t.Errorf("update not persisted: %+v", got)
	}

	missing := testExercise("nope", "Ghost")
	if err := repo.Update(missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExerciseRepository_Delete(t *testing.T) {
	s := newTestStore(t)
	repo := s.Exercises()

	if err := repo.Create(testExercise("ex-1", "Bicep curl")); err != nil {
		t.Fatalf("failed to create exercise: %v", err)
	}
	if err := repo.Delete("ex-1"); err != nil {
		t.Fatalf("failed to delete exercise: %v", err)
	}
	if _, err := repo.GetByID("ex-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete("ex-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}
