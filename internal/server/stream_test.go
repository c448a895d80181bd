package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/korefront/repcoach/internal/pose"
)

type fakePreviewer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (p *fakePreviewer) Preview() (gocv.Mat, []pose.Landmark, time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return gocv.Mat{}, nil, time.Time{}, p.err
	}
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 40, 40, 0), 120, 160, gocv.MatTypeCV8UC3)
	return img, pose.LeftElbowPose(90), time.Now(), nil
}

func TestStreamHandler(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping OpenCV encoding test in short mode")
	}

	source := &fakePreviewer{}
	h := NewStreamHandler(source)
	h.interval = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
		t.Errorf("unexpected Content-Type %q", ct)
	}
	body := rec.Body.String()
	if n := strings.Count(body, "--frame"); n < 2 {
		t.Errorf("expected several frames, got %d", n)
	}
	if !strings.Contains(body, "Content-Type: image/jpeg") {
		t.Error("expected JPEG parts")
	}
}

func TestStreamHandler_WaitsForFrames(t *testing.T) {
	source := &fakePreviewer{err: errors.New("not running")}
	h := NewStreamHandler(source)
	h.interval = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Body.Len() != 0 {
		t.Errorf("expected no frames, got %d bytes", rec.Body.Len())
	}
	if source.calls < 2 {
		t.Errorf("expected the source to be polled, got %d calls", source.calls)
	}
}

func TestStreamHandler_MethodNotAllowed(t *testing.T) {
	h := NewStreamHandler(&fakePreviewer{})

	req := httptest.NewRequest(http.MethodPost, "/api/stream", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

