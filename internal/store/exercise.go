package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/korefront/repcoach/internal/animation"
	"github.com/korefront/repcoach/internal/evaluate"
)

// Exercise is an exercise definition: how it is evaluated and how its
// reference motion is animated.
type Exercise struct {
	ID              string                      `json:"id"`
	Name            string                      `json:"name"`
	Description     string                      `json:"description"`
	InstructionsURL string                      `json:"instructions_url"`
	Classification  evaluate.ClassificationSpec `json:"classification"`
	Animation       *animation.Rig              `json:"animation,omitempty"`
	RepTarget       int                         `json:"rep_target"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

// ExerciseRepository provides CRUD operations for exercises.
type ExerciseRepository struct {
	db *sql.DB
}

// Exercises returns the exercise repository for this store.
func (s *Store) Exercises() *ExerciseRepository {
	return &ExerciseRepository{db: s.db}
}

const exerciseColumns = `id, name, description, instructions_url, classification, animation, rep_target, created_at, updated_at`

// Create inserts a new exercise.
func (r *ExerciseRepository) Create(e *Exercise) error {
	classification, animationJSON, err := encodeExercise(e)
	if err != nil {
		return err
	}

	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err = r.db.Exec(
		`INSERT INTO exercises (`+exerciseColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Description, e.InstructionsURL, classification, animationJSON, e.RepTarget, e.CreatedAt, e.UpdatedAt,
	)
	return err
}

// GetByID retrieves an exercise by its ID.
func (r *ExerciseRepository) GetByID(id string) (*Exercise, error) {
	return scanExercise(r.db.QueryRow(`SELECT `+exerciseColumns+` FROM exercises WHERE id = ?`, id))
}

// GetByName retrieves an exercise by its name.
func (r *ExerciseRepository) GetByName(name string) (*Exercise, error) {
	return scanExercise(r.db.QueryRow(`SELECT `+exerciseColumns+` FROM exercises WHERE name = ?`, name))
}

// List retrieves all exercises ordered by name.
func (r *ExerciseRepository) List() ([]*Exercise, error) {
	rows, err := r.db.Query(`SELECT ` + exerciseColumns + ` FROM exercises ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exercises []*Exercise
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		exercises = append(exercises, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return exercises, nil
}

// Update replaces an existing exercise definition.
func (r *ExerciseRepository) Update(e *Exercise) error {
	classification, animationJSON, err := encodeExercise(e)
	if err != nil {
		return err
	}
	e.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE exercises
		 SET name = ?, description = ?, instructions_url = ?, classification = ?, animation = ?, rep_target = ?, updated_at = ?
		 WHERE id = ?`,
		e.Name, e.Description, e.InstructionsURL, classification, animationJSON, e.RepTarget, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// Delete removes an exercise and, by cascade, its sessions.
func (r *ExerciseRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM exercises WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

func encodeExercise(e *Exercise) (string, sql.NullString, error) {
	classification, err := json.Marshal(e.Classification)
	if err != nil {
		return "", sql.NullString{}, fmt.Errorf("encode classification: %w", err)
	}
	var anim sql.NullString
	if e.Animation != nil {
		data, err := json.Marshal(e.Animation)
		if err != nil {
			return "", sql.NullString{}, fmt.Errorf("encode animation: %w", err)
		}
		anim = sql.NullString{String: string(data), Valid: true}
	}
	return string(classification), anim, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExercise(row rowScanner) (*Exercise, error) {
	e := &Exercise{}
	var classification string
	var anim sql.NullString

	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.InstructionsURL, &classification, &anim, &e.RepTarget, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(classification), &e.Classification); err != nil {
		return nil, fmt.Errorf("decode classification of %s: %w", e.ID, err)
	}
	if anim.Valid {
		e.Animation = &animation.Rig{}
		if err := json.Unmarshal([]byte(anim.String), e.Animation); err != nil {
			return nil, fmt.Errorf("decode animation of %s: %w", e.ID, err)
		}
	}
	return e, nil
}

func expectOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
