package app

import (
	"log"
	"time"

	"github.com/korefront/repcoach/internal/capture"
	"github.com/korefront/repcoach/internal/pose"
	"github.com/korefront/repcoach/internal/session"
)

// pacer tracks idle and active mode from motion results.
type pacer struct {
	active     bool
	lastMotion time.Time
}

// observe updates the mode and returns the frame rate to switch to, or 0
// when the rate should stay as it is.
func (p *pacer) observe(m capture.Motion, attached bool, now time.Time) int {
	if m.Detected || attached {
		p.lastMotion = now
		if !p.active {
			p.active = true
			return ActiveFPS
		}
		return 0
	}
	if p.active && now.Sub(p.lastMotion) > IdleTimeout {
		p.active = false
		return IdleFPS
	}
	return 0
}

// runPipeline reads frames until stopCh closes.
//
// Motion switches the camera between IdleFPS and ActiveFPS. An attached
// session keeps the pipeline active so a held position is still sampled.
// Pose detection runs only in active mode.
func (a *App) runPipeline(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	var p pacer
	ticker := time.NewTicker(time.Second / IdleFPS)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}

			frame, err := a.Camera().Read()
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}

			m := a.motion.Detect(frame.Mat)
			if fps := p.observe(m, a.Attached() != nil, frame.At); fps != 0 {
				a.Camera().SetFPS(fps)
				ticker.Reset(time.Second / time.Duration(fps))
				log.Printf("Switched to %d fps", fps)
			}

			if p.active {
				a.processFrame(frame)
			}
			frame.Close()
		}
	}
}

// processFrame detects landmarks on frame, stores the preview and feeds the
// attached session. It returns the session update when one was produced.
func (a *App) processFrame(frame *capture.Frame) (session.Update, bool) {
	d := a.Detector()
	if d == nil {
		return session.Update{}, false
	}

	points, err := d.Detect(frame.Mat)
	if err != nil {
		log.Printf("Error detecting pose: %v", err)
		return session.Update{}, false
	}

	a.storePreview(frame, points)

	s := a.Attached()
	if s == nil || len(points) == 0 {
		return session.Update{}, false
	}

	u := s.Process(points, frame.At)

	a.mu.RLock()
	callbacks := a.callbacks
	a.mu.RUnlock()
	for _, fn := range callbacks {
		fn(s, u)
	}
	return u, true
}

func (a *App) storePreview(frame *capture.Frame, points []pose.Landmark) {
	a.preview.mu.Lock()
	defer a.preview.mu.Unlock()

	if a.preview.ok {
		a.preview.frame.Close()
	}
	a.preview.frame = frame.Mat.Clone()
	a.preview.points = points
	a.preview.at = frame.At
	a.preview.ok = true
}
