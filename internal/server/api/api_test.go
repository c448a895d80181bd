package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/korefront/repcoach/internal/evaluate"
	"github.com/korefront/repcoach/internal/pose"
	"github.com/korefront/repcoach/internal/session"
	"github.com/korefront/repcoach/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func curlClassification() evaluate.ClassificationSpec {
	return evaluate.ClassificationSpec{
		Landmarks:      []string{"left_shoulder", "left_elbow", "left_wrist"},
		Thresholds:     evaluate.Thresholds{Up: 160, Down: 30},
		EvaluationType: evaluate.HighToLow,
	}
}

func createExercise(t *testing.T, s *store.Store, id, name string) *store.Exercise {
	t.Helper()

	e := &store.Exercise{
		ID:             id,
		Name:           name,
		Classification: curlClassification(),
		RepTarget:      2,
	}
	require.NoError(t, s.Exercises().Create(e))
	return e
}

// syncFrames writes frames straight to the store so tests can read them
// back without running a FrameWriter.
type syncFrames struct {
	t     *testing.T
	store *store.Store
}

func (f syncFrames) RecordFrame(sessionID string, at time.Time, points []pose.Landmark) {
	err := f.store.Frames().AppendBatch([]store.FrameRecord{
		{SessionID: sessionID, RecordedFrame: session.RecordedFrame{At: at, Landmarks: points}},
	})
	if err != nil {
		f.t.Errorf("failed to record frame: %v", err)
	}
}

type fakeCamera struct {
	attached []string
	detached []string
}

func (c *fakeCamera) Attach(s *session.Session) { c.attached = append(c.attached, s.ID()) }
func (c *fakeCamera) Detach(id string)          { c.detached = append(c.detached, id) }

type testEnv struct {
	store   *store.Store
	manager *session.Manager
	clock   *evaluate.ManualClock
	camera  *fakeCamera
	handler *SessionHandler
}

// newTestEnv wires a SessionHandler whose events are recorded synchronously.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s := newTestStore(t)
	recorder := store.NewRecorder(s)
	publisher := session.PublisherFunc(func(e session.Event) {
		if err := recorder.Handle(t.Context(), e); err != nil {
			t.Errorf("failed to record %s event: %v", e.Kind, err)
		}
	})

	env := &testEnv{
		store:  s,
		clock:  evaluate.NewManualClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		camera: &fakeCamera{},
	}
	env.manager = session.NewManager(session.ManagerConfig{
		Publisher: publisher,
		OnStart:   recorder.Begin,
	})
	env.handler = NewSessionHandler(SessionsConfig{
		Store:   s,
		Manager: env.manager,
		Camera:  env.camera,
		Frames:  syncFrames{t: t, store: s},
		Counter: evaluate.Config{Interval: 500 * time.Millisecond, Clock: env.clock},
	})
	return env
}

// do sends a request with an optional JSON body to h.
func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path, id, sub string
	}{
		{"/api/sessions", "", ""},
		{"/api/sessions/", "", ""},
		{"/api/sessions/abc", "abc", ""},
		{"/api/sessions/abc/", "abc", ""},
		{"/api/sessions/abc/events", "abc", "events"},
		{"/api/sessions/abc/a/b", "abc", "a/b"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			id, sub := splitPath(tt.path, "/api/sessions")
			if id != tt.id || sub != tt.sub {
				t.Errorf("splitPath(%q) = (%q, %q), want (%q, %q)", tt.path, id, sub, tt.id, tt.sub)
			}
		})
	}
}
