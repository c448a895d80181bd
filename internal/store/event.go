package store

import (
	"database/sql"

	"github.com/korefront/repcoach/internal/evaluate"
	"github.com/korefront/repcoach/internal/session"
)

// EventRepository stores session events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Append stores one event.
func (r *EventRepository) Append(e session.Event) error {
	_, err := r.db.Exec(
		`INSERT INTO session_events (session_id, kind, stage, rep_count, angle, at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.SessionID, string(e.Kind), string(e.Stage), e.RepCount, e.Angle, e.At,
	)
	return err
}

// ListBySession returns the events of a session in the order they happened.
func (r *EventRepository) ListBySession(sessionID string) ([]session.Event, error) {
	rows, err := r.db.Query(
		`SELECT e.kind, e.session_id, s.exercise_id, e.stage, e.rep_count, e.angle, e.at
		 FROM session_events e JOIN sessions s ON s.id = e.session_id
		 WHERE e.session_id = ?
		 ORDER BY e.id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []session.Event
	for rows.Next() {
		var e session.Event
		var kind, stage string
		if err := rows.Scan(&kind, &e.SessionID, &e.ExerciseID, &stage, &e.RepCount, &e.Angle, &e.At); err != nil {
			return nil, err
		}
		e.Kind = session.EventKind(kind)
		e.Stage = evaluate.Stage(stage)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
