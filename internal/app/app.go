// Package app runs the camera pipeline that feeds pose landmarks into the
// attached exercise session.
package app

import (
	"errors"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/korefront/repcoach/internal/capture"
	"github.com/korefront/repcoach/internal/pose"
	"github.com/korefront/repcoach/internal/session"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate while nobody is moving and no session is attached.
	IdleFPS = 5
	// ActiveFPS is the frame rate during active detection.
	ActiveFPS = 15
	// IdleTimeout is how long without motion before dropping back to IdleFPS.
	IdleTimeout = 2 * time.Second
)

// ErrNotRunning is returned by operations that need a started pipeline.
var ErrNotRunning = errors.New("pipeline is not running")

// Config holds configuration options for the application.
type Config struct {
	Camera   capture.Config
	Motion   capture.MotionConfig
	Detector pose.Config
}

// UpdateFunc receives the result of every frame a session processed.
type UpdateFunc func(s *session.Session, u session.Update)

// App owns the camera, the motion gate and the pose detector.
type App struct {
	config   Config
	camera   capture.Camera
	motion   *capture.MotionDetector
	detector pose.Detector

	enabled   bool
	attached  *session.Session
	callbacks []UpdateFunc
	stopCh    chan struct{}
	doneCh    chan struct{}
	mu        sync.RWMutex

	preview preview
}

// preview is the most recent frame and the landmarks found on it.
type preview struct {
	mu     sync.Mutex
	frame  gocv.Mat
	points []pose.Landmark
	at     time.Time
	ok     bool
}

// New creates an App. It prefers the MediaPipe detector and falls back to a
// mock detector when the pose service is not installed.
func New(config Config) *App {
	a := &App{
		config: config,
		camera: capture.NewCamera(config.Camera),
		motion: capture.NewMotionDetector(config.Motion),
	}

	if mp, err := pose.NewMediaPipeDetector(config.Detector); err == nil {
		a.detector = mp
		log.Println("Using MediaPipe pose detection")
	} else {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		a.detector = pose.NewMockDetector()
	}

	return a
}

// SetEnabled enables or disables frame processing.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled reports whether frame processing is enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector replaces the pose detector.
func (a *App) SetDetector(d pose.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetCamera replaces the frame source. It must be called before Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// Attach routes detected landmarks into s. Any previously attached session
// is replaced but not stopped.
func (a *App) Attach(s *session.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attached = s
	log.Printf("Camera attached to session %s", s.ID())
}

// Detach stops routing landmarks to the session with the given ID. It is a
// no-op when another session is attached.
func (a *App) Detach(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.attached != nil && a.attached.ID() == sessionID {
		a.attached = nil
		log.Printf("Camera detached from session %s", sessionID)
	}
}

// Attached returns the session receiving camera landmarks, if any.
func (a *App) Attached() *session.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.attached
}

// OnUpdate registers fn to be called after every processed frame.
func (a *App) OnUpdate(fn UpdateFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.callbacks = append(a.callbacks, fn)
}

// Start opens the camera and begins the pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(IdleFPS)

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	log.Println("Capture pipeline started")
	return nil
}

// Stop halts the pipeline and releases the camera, motion and pose
// resources.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	a.motion.Close()

	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	a.preview.mu.Lock()
	if a.preview.ok {
		a.preview.frame.Close()
		a.preview.ok = false
	}
	a.preview.mu.Unlock()

	log.Println("Capture pipeline stopped")
}

// Running reports whether the pipeline goroutine is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// Preview returns a copy of the latest frame with the landmarks detected on
// it. The caller must close the returned Mat.
func (a *App) Preview() (gocv.Mat, []pose.Landmark, time.Time, error) {
	a.preview.mu.Lock()
	defer a.preview.mu.Unlock()

	if !a.preview.ok {
		return gocv.Mat{}, nil, time.Time{}, ErrNotRunning
	}
	points := make([]pose.Landmark, len(a.preview.points))
	copy(points, a.preview.points)
	return a.preview.frame.Clone(), points, a.preview.at, nil
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// Detector returns the pose detector.
func (a *App) Detector() pose.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}
