package session

import (
	"context"
	"log"
	"time"

	"github.com/korefront/repcoach/internal/evaluate"
)

// EventKind identifies what happened in a session.
type EventKind string

const (
	EventStarted   EventKind = "started"
	EventStage     EventKind = "stage"
	EventRep       EventKind = "rep"
	EventCompleted EventKind = "completed"
	EventEnded     EventKind = "ended"
)

// closing reports whether the event finishes a session. Sinks rely on
// these to close out their records.
func (k EventKind) closing() bool {
	return k == EventCompleted || k == EventEnded
}

// Event is one observable change in a session.
type Event struct {
	Kind       EventKind      `json:"kind"`
	SessionID  string         `json:"session_id"`
	ExerciseID string         `json:"exercise_id"`
	Facing     string         `json:"facing,omitempty"`
	RepTarget  int            `json:"rep_target,omitempty"`
	Stage      evaluate.Stage `json:"stage"`
	RepCount   int            `json:"rep_count"`
	Angle      float64        `json:"angle"`
	At         time.Time      `json:"at"`
}

// Publisher accepts session events.
type Publisher interface {
	Publish(e Event)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(e Event)

// Publish calls f(e).
func (f PublisherFunc) Publish(e Event) { f(e) }

// Sink consumes events delivered by a Dispatcher.
type Sink interface {
	Name() string
	Handle(ctx context.Context, e Event) error
}

// DefaultBufferSize is the event queue length of a Dispatcher.
const DefaultBufferSize = 256

// DefaultClosingWait bounds how long Publish waits for queue space for a
// completed or ended event.
const DefaultClosingWait = 2 * time.Second

// Dispatcher queues events and fans them out to sinks from a single
// goroutine, so slow sinks never stall frame processing.
type Dispatcher struct {
	events      chan Event
	sinks       []Sink
	closingWait time.Duration
}

// NewDispatcher creates a dispatcher delivering to sinks.
func NewDispatcher(bufferSize int, sinks ...Sink) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Dispatcher{
		events:      make(chan Event, bufferSize),
		sinks:       sinks,
		closingWait: DefaultClosingWait,
	}
}

// Publish queues e. Stage, rep and started events are dropped when the
// queue is full; completed and ended events wait up to the closing wait
// for space first.
func (d *Dispatcher) Publish(e Event) {
	select {
	case d.events <- e:
		return
	default:
	}

	if e.Kind.closing() {
		timer := time.NewTimer(d.closingWait)
		defer timer.Stop()
		select {
		case d.events <- e:
			return
		case <-timer.C:
		}
	}
	log.Printf("session: event queue full, dropping %s event for %s", e.Kind, e.SessionID)
}

// Run delivers queued events until ctx is cancelled, then drains whatever
// is still queued.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case e := <-d.events:
			d.deliver(ctx, e)
		}
	}
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		select {
		case e := <-d.events:
			d.deliver(ctx, e)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, e Event) {
	for _, s := range d.sinks {
		if err := s.Handle(ctx, e); err != nil {
			log.Printf("session: sink %s: %v", s.Name(), err)
		}
	}
}
