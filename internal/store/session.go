package store

import (
	"database/sql"
	"errors"
	"time"
)

// SessionStatus is the lifecycle state of a recorded session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAborted   SessionStatus = "aborted"
)

// Session is the persisted record of an exercise session.
type Session struct {
	ID         string        `json:"id"`
	ExerciseID string        `json:"exercise_id"`
	Facing     string        `json:"facing"`
	Status     SessionStatus `json:"status"`
	RepCount   int           `json:"rep_count"`
	RepTarget  int           `json:"rep_target"`
	StartedAt  time.Time     `json:"started_at"`
	EndedAt    *time.Time    `json:"ended_at,omitempty"`
}

// SessionRepository provides access to session records.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

const sessionColumns = `id, exercise_id, facing, status, rep_count, rep_target, started_at, ended_at`

// Create inserts a new active session.
func (r *SessionRepository) Create(s *Session) error {
	if s.Status == "" {
		s.Status = SessionActive
	}
	_, err := r.db.Exec(
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.ExerciseID, s.Facing, string(s.Status), s.RepCount, s.RepTarget, s.StartedAt, s.EndedAt,
	)
	return err
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	return scanSession(r.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
}

// List retrieves sessions, most recent first. An empty exerciseID lists
// every exercise.
func (r *SessionRepository) List(exerciseID string, limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + sessionColumns + ` FROM sessions`
	args := []any{}
	if exerciseID != "" {
		query += ` WHERE exercise_id = ?`
		args = append(args, exerciseID)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// UpdateProgress records the current repetition count.
func (r *SessionRepository) UpdateProgress(id string, repCount int) error {
	result, err := r.db.Exec(`UPDATE sessions SET rep_count = ? WHERE id = ?`, repCount, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// Complete marks a session as having reached its repetition target.
func (r *SessionRepository) Complete(id string, repCount int) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET status = ?, rep_count = ? WHERE id = ?`,
		string(SessionCompleted), repCount, id,
	)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// Finish closes a session. Sessions that never completed are marked aborted.
func (r *SessionRepository) Finish(id string, repCount int, endedAt time.Time) error {
	result, err := r.db.Exec(
		`UPDATE sessions
		 SET status = CASE WHEN status = ? THEN status ELSE ? END,
		     rep_count = ?, ended_at = ?
		 WHERE id = ?`,
		string(SessionCompleted), string(SessionAborted), repCount, endedAt, id,
	)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

func scanSession(row rowScanner) (*Session, error) {
	s := &Session{}
	var status string
	var ended sql.NullTime

	err := row.Scan(&s.ID, &s.ExerciseID, &s.Facing, &status, &s.RepCount, &s.RepTarget, &s.StartedAt, &ended)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.Status = SessionStatus(status)
	if ended.Valid {
		t := ended.Time
		s.EndedAt = &t
	}
	return s, nil
}
