package store

import (
	"context"

	"github.com/korefront/repcoach/internal/session"
)

// Recorder persists session events. It implements session.Sink.
type Recorder struct {
	store *Store
}

// NewRecorder creates a Recorder backed by s.
func NewRecorder(s *Store) *Recorder {
	return &Recorder{store: s}
}

// Name implements session.Sink.
func (r *Recorder) Name() string { return "sqlite" }

// Handle stores the event and keeps the session record in step.
func (r *Recorder) Handle(_ context.Context, e session.Event) error {
	if err := r.store.Events().Append(e); err != nil {
		return err
	}

	sessions := r.store.Sessions()
	switch e.Kind {
	case session.EventRep:
		return sessions.UpdateProgress(e.SessionID, e.RepCount)
	case session.EventCompleted:
		return sessions.Complete(e.SessionID, e.RepCount)
	case session.EventEnded:
		return sessions.Finish(e.SessionID, e.RepCount, e.At)
	}
	return nil
}

// Begin creates the record of a session that is about to start. It is
// meant for session.ManagerConfig.OnStart.
func (r *Recorder) Begin(s *session.Session) error {
	return r.store.Sessions().Create(&Session{
		ID:         s.ID(),
		ExerciseID: s.ExerciseID(),
		Facing:     string(s.Facing()),
		Status:     SessionActive,
		RepTarget:  s.RepTarget(),
		StartedAt:  s.StartedAt(),
	})
}
