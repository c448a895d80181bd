package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/korefront/repcoach/internal/evaluate"
	"github.com/korefront/repcoach/internal/overlay"
	"github.com/korefront/repcoach/internal/pose"
)

var epoch = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Publish(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, len(l.events))
	for i, e := range l.events {
		out[i] = e.Kind
	}
	return out
}

type frameLog struct {
	mu    sync.Mutex
	count int
}

func (f *frameLog) RecordFrame(string, time.Time, []pose.Landmark) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
}

func curlConfig(clock evaluate.Clock, target int) Config {
	return Config{
		ExerciseID: "bicep-curl",
		Classification: evaluate.ClassificationSpec{
			Landmarks:      []string{"left_shoulder", "left_elbow", "left_wrist"},
			Thresholds:     evaluate.Thresholds{Up: 160, Down: 30},
			EvaluationType: evaluate.HighToLow,
		},
		RepTarget: target,
		Viewport:  overlay.Viewport{Width: 360, Height: 640},
		Counter:   evaluate.Config{Interval: evaluate.DefaultInterval, Clock: clock},
	}
}

func TestSession_Process(t *testing.T) {
	clock := evaluate.NewManualClock(epoch)
	log := &eventLog{}
	frames := &frameLog{}
	m := NewManager(ManagerConfig{Publisher: log})
	cfg := curlConfig(clock, 2)
	cfg.Frames = frames
	s, err := m.Start(cfg)
	require.NoError(t, err)

	rep := func() Update {
		clock.Advance(time.Second)
		s.Process(pose.LeftElbowPose(175), clock.Now())
		clock.Advance(time.Second)
		return s.Process(pose.LeftElbowPose(15), clock.Now())
	}

	u := rep()
	assert.True(t, u.Accepted)
	assert.Equal(t, 1, u.Snapshot.RepCount)
	assert.False(t, u.Completed)
	assert.Len(t, u.Segments, len(overlay.TopologyV1.Connections))
	assert.Equal(t, "Rep counted, return to the start position", u.Feedback)

	u = rep()
	assert.True(t, u.Completed)
	assert.Equal(t, 2, u.Snapshot.RepCount)

	// Completion is reported once even if the patient keeps going.
	u = rep()
	assert.True(t, u.Completed)
	assert.Equal(t, 3, u.Snapshot.RepCount)

	assert.Equal(t, []EventKind{
		EventStarted,
		EventStage, EventStage, EventRep,
		EventStage, EventStage, EventRep, EventCompleted,
		EventStage, EventStage, EventRep,
	}, log.kinds())
	assert.Equal(t, 6, frames.count)
}

func TestSession_PartialFrame(t *testing.T) {
	clock := evaluate.NewManualClock(epoch)
	s, err := NewManager(ManagerConfig{}).Start(curlConfig(clock, 0))
	require.NoError(t, err)

	u := s.Process(pose.StandingPose()[:20], clock.Now())

	assert.False(t, u.Accepted)
	assert.NotEmpty(t, u.Segments, "partial frames still render")
	assert.Equal(t, "Step back so your whole body is in view", u.Feedback)
	assert.Equal(t, DefaultRepTarget, s.RepTarget())
}

func TestSession_Throttled(t *testing.T) {
	clock := evaluate.NewManualClock(epoch)
	s, err := NewManager(ManagerConfig{}).Start(curlConfig(clock, 0))
	require.NoError(t, err)

	u := s.Process(pose.LeftElbowPose(175), clock.Now())
	require.True(t, u.Accepted)

	clock.Advance(100 * time.Millisecond)
	u = s.Process(pose.LeftElbowPose(15), clock.Now())
	assert.False(t, u.Accepted)
	assert.Equal(t, evaluate.StageStart, u.Snapshot.Stage)
	assert.Equal(t, 0, u.Snapshot.RepCount)
}

func TestManager(t *testing.T) {
	clock := evaluate.NewManualClock(epoch)
	log := &eventLog{}
	var started []string
	m := NewManager(ManagerConfig{
		Publisher: log,
		OnStart: func(s *Session) error {
			started = append(started, s.ID())
			return nil
		},
	})

	a, err := m.Start(curlConfig(clock, 0))
	require.NoError(t, err)
	clock.Advance(time.Second)
	b, err := m.Start(curlConfig(clock, 0))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, []string{a.ID(), b.ID()}, started)

	got, err := m.Get(a.ID())
	require.NoError(t, err)
	assert.Same(t, a, got)

	list := m.List()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID(), list[0].ID())

	stopped, err := m.Stop(a.ID())
	require.NoError(t, err)
	assert.Same(t, a, stopped)

	_, err = m.Get(a.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = m.Stop(a.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// A stopped session no longer counts.
	u := a.Process(pose.LeftElbowPose(175), clock.Now())
	assert.False(t, u.Accepted)

	m.StopAll()
	assert.Empty(t, m.List())
	assert.Equal(t, []EventKind{EventStarted, EventStarted, EventEnded, EventEnded}, log.kinds())
}

func TestManager_OnStartFailure(t *testing.T) {
	log := &eventLog{}
	m := NewManager(ManagerConfig{
		Publisher: log,
		OnStart:   func(*Session) error { return errors.New("disk full") },
	})

	_, err := m.Start(curlConfig(evaluate.NewManualClock(epoch), 0))

	assert.Error(t, err)
	assert.Empty(t, m.List())
	assert.Empty(t, log.kinds())
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recordingSink) Name() string { return "recording" }

func (r *recordingSink) Handle(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingSink) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestDispatcher(t *testing.T) {
	t.Run("fans out to every sink", func(t *testing.T) {
		ok := &recordingSink{}
		failing := &recordingSink{err: errors.New("broker down")}
		d := NewDispatcher(8, failing, ok)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			d.Run(ctx)
			close(done)
		}()

		d.Publish(Event{Kind: EventRep, SessionID: "s1"})
		d.Publish(Event{Kind: EventCompleted, SessionID: "s1"})

		require.Eventually(t, func() bool { return ok.len() == 2 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, 2, failing.len(), "a failing sink does not stop delivery")

		cancel()
		<-done
	})

	t.Run("full queue drops progress but waits for closing events", func(t *testing.T) {
		d := NewDispatcher(1)
		d.Publish(Event{Kind: EventStage, SessionID: "s1"})
		d.Publish(Event{Kind: EventRep, SessionID: "s1"})

		queued := make(chan struct{})
		go func() {
			d.Publish(Event{Kind: EventEnded, SessionID: "s1"})
			close(queued)
		}()

		assert.Equal(t, EventStage, (<-d.events).Kind)
		select {
		case <-queued:
		case <-time.After(time.Second):
			t.Fatal("ended event was not queued once space freed up")
		}
		assert.Equal(t, EventEnded, (<-d.events).Kind)
		assert.Empty(t, d.events, "rep event was dropped")
	})

	t.Run("closing wait is bounded", func(t *testing.T) {
		d := NewDispatcher(1)
		d.closingWait = 10 * time.Millisecond
		d.Publish(Event{Kind: EventStage, SessionID: "s1"})

		start := time.Now()
		d.Publish(Event{Kind: EventCompleted, SessionID: "s1"})
		assert.Less(t, time.Since(start), time.Second)
		assert.Len(t, d.events, 1)
	})

	t.Run("drains on shutdown", func(t *testing.T) {
		sink := &recordingSink{}
		d := NewDispatcher(4, sink)
		d.Publish(Event{Kind: EventStarted})
		d.Publish(Event{Kind: EventEnded})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		d.Run(ctx)

		assert.Equal(t, 2, sink.len())
	})

	t.Run("drops when full", func(t *testing.T) {
		sink := &recordingSink{}
		d := NewDispatcher(1, sink)
		d.Publish(Event{Kind: EventStarted})
		d.Publish(Event{Kind: EventRep})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		d.Run(ctx)

		assert.Equal(t, 1, sink.len())
	})
}

func TestReplay(t *testing.T) {
	spec := curlConfig(nil, 0).Classification
	at := func(ms int) time.Time { return epoch.Add(time.Duration(ms) * time.Millisecond) }

	frames := []RecordedFrame{
		{At: at(0), Landmarks: pose.LeftElbowPose(170)},
		{At: at(100), Landmarks: pose.LeftElbowPose(20)}, // throttled
		{At: at(600), Landmarks: pose.LeftElbowPose(20)},
		{At: at(700), Landmarks: pose.StandingPose()[:10]}, // partial
		{At: at(1200), Landmarks: pose.LeftElbowPose(20)},
		{At: at(1800), Landmarks: pose.LeftElbowPose(170)},
		{At: at(2400), Landmarks: pose.LeftElbowPose(25)},
	}

	res := Replay(spec, frames, evaluate.DefaultInterval)

	assert.Equal(t, 2, res.RepCount)
	assert.Equal(t, evaluate.StageEnd, res.Stage)
	require.Len(t, res.Samples, 5)
	assert.Equal(t, at(600), res.Samples[1].At)
	assert.InDelta(t, 20.0, res.Samples[1].Angle, 1e-6)

	empty := Replay(spec, nil, evaluate.DefaultInterval)
	assert.Zero(t, empty.RepCount)
	assert.Empty(t, empty.Samples)
}

func TestReplay_ThrottlesOnCaptureTime(t *testing.T) {
	spec := curlConfig(nil, 0).Classification
	at := func(ms int) time.Time { return epoch.Add(time.Duration(ms) * time.Millisecond) }

	spaced := Replay(spec, []RecordedFrame{
		{At: at(0), Landmarks: pose.LeftElbowPose(170)},
		{At: at(500), Landmarks: pose.LeftElbowPose(20)},
	}, evaluate.DefaultInterval)
	assert.Equal(t, 1, spaced.RepCount, "frames captured an interval apart are both evaluated")

	bunched := Replay(spec, []RecordedFrame{
		{At: at(0), Landmarks: pose.LeftElbowPose(170)},
		{At: at(499), Landmarks: pose.LeftElbowPose(20)},
	}, evaluate.DefaultInterval)
	assert.Zero(t, bunched.RepCount)
	assert.Len(t, bunched.Samples, 1)
}
