// Package session owns the per-patient exercise session: one repetition
// counter, the overlay geometry for its camera, and the events it emits.
package session

import (
	"sync"
	"time"

	"github.com/korefront/repcoach/internal/evaluate"
	"github.com/korefront/repcoach/internal/overlay"
	"github.com/korefront/repcoach/internal/pose"
)

// DefaultRepTarget is the number of repetitions that completes a session.
const DefaultRepTarget = 10

// Config describes a session to start.
type Config struct {
	ExerciseID     string
	Classification evaluate.ClassificationSpec
	RepTarget      int
	Facing         overlay.Facing
	Viewport       overlay.Viewport
	Topology       overlay.Topology
	Counter        evaluate.Config
	// Frames, if set, receives every full frame for later review.
	Frames FrameRecorder
}

// FrameRecorder stores the raw landmark frames of a session.
type FrameRecorder interface {
	RecordFrame(sessionID string, at time.Time, points []pose.Landmark)
}

// Update is the result of processing one frame.
type Update struct {
	Segments []overlay.Segment `json:"segments"`
	Snapshot evaluate.Snapshot `json:"snapshot"`
	// Accepted is true when the frame advanced the counter.
	Accepted  bool   `json:"accepted"`
	Completed bool   `json:"completed"`
	Feedback  string `json:"feedback_message"`
}

// Session is a single exercise recording. Process may be called from any
// goroutine.
type Session struct {
	id        string
	startedAt time.Time
	config    Config
	counter   *evaluate.Counter
	publisher Publisher

	mu        sync.Mutex
	completed bool
	ended     bool
}

func newSession(id string, config Config, publisher Publisher) *Session {
	if config.RepTarget <= 0 {
		config.RepTarget = DefaultRepTarget
	}
	if config.Facing == "" {
		config.Facing = overlay.Front
	}
	if config.Topology.Connections == nil {
		config.Topology = overlay.TopologyV1
	}
	if config.Counter.Clock == nil {
		config.Counter.Clock = evaluate.SystemClock{}
	}
	return &Session{
		id:        id,
		startedAt: config.Counter.Clock.Now(),
		config:    config,
		counter:   evaluate.NewCounter(config.Classification, config.Counter),
		publisher: publisher,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// ExerciseID returns the exercise being performed.
func (s *Session) ExerciseID() string { return s.config.ExerciseID }

// StartedAt returns when the session began.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// RepTarget returns the repetition count that completes the session.
func (s *Session) RepTarget() int { return s.config.RepTarget }

// Facing returns the camera facing used for the overlay.
func (s *Session) Facing() overlay.Facing { return s.config.Facing }

// State returns the counter state without processing a frame.
func (s *Session) State() evaluate.Snapshot { return s.counter.State() }

// Completed reports whether the repetition target has been reached.
func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Process runs one detector result through the session. The overlay is
// built even for partial frames; evaluation only runs on full frames.
// at is the capture time reported with emitted events.
func (s *Session) Process(points []pose.Landmark, at time.Time) Update {
	u := Update{
		Segments: overlay.Segments(points, s.config.Viewport, s.config.Facing, s.config.Topology),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		u.Snapshot = s.counter.State()
		u.Completed = s.completed
		u.Feedback = feedback(u.Snapshot, u.Completed, true)
		return u
	}

	frame, full := pose.NewFrame(points)
	if full {
		if s.config.Frames != nil {
			s.config.Frames.RecordFrame(s.id, at, frame.Points())
		}
		u.Snapshot, u.Accepted = s.counter.Evaluate(&frame)
	}
	if !u.Accepted {
		u.Snapshot = s.counter.State()
	}

	if u.Accepted {
		if u.Snapshot.Changed {
			s.emit(EventStage, u.Snapshot, at)
		}
		if u.Snapshot.Counted {
			s.emit(EventRep, u.Snapshot, at)
		}
		if !s.completed && u.Snapshot.RepCount >= s.config.RepTarget {
			s.completed = true
			s.emit(EventCompleted, u.Snapshot, at)
		}
	}

	u.Completed = s.completed
	u.Feedback = feedback(u.Snapshot, u.Completed, full)
	return u
}

// end marks the session finished and emits the ended event once.
func (s *Session) end(at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return false
	}
	s.ended = true
	s.emit(EventEnded, s.counter.State(), at)
	return true
}

func (s *Session) emit(kind EventKind, snap evaluate.Snapshot, at time.Time) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(Event{
		Kind:       kind,
		SessionID:  s.id,
		ExerciseID: s.config.ExerciseID,
		Facing:     string(s.config.Facing),
		RepTarget:  s.config.RepTarget,
		Stage:      snap.Stage,
		RepCount:   snap.RepCount,
		Angle:      snap.Angle,
		At:         at,
	})
}

func feedback(snap evaluate.Snapshot, completed, fullFrame bool) string {
	switch {
	case completed:
		return "Exercise complete, well done!"
	case !fullFrame:
		return "Step back so your whole body is in view"
	case snap.Stage == evaluate.StageStart:
		return "Good, now complete the movement"
	case snap.Stage == evaluate.StageEnd:
		return "Rep counted, return to the start position"
	default:
		return "Get into the start position"
	}
}
