package animation

import (
	"context"
	"time"

	"github.com/korefront/repcoach/internal/overlay"
)

// DefaultFrameRate is the playback rate of a Player.
const DefaultFrameRate = 60

// PlayerConfig holds Player options.
type PlayerConfig struct {
	// FrameRate is the number of frames rendered per second.
	FrameRate int

	// Viewport is the drawing area frames are fitted into.
	Viewport overlay.Viewport

	// Now is the time source. Defaults to time.Now.
	Now func() time.Time
}

// DefaultPlayerConfig returns a PlayerConfig with sensible default values.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		FrameRate: DefaultFrameRate,
		Viewport:  overlay.Viewport{Width: 200, Height: 200},
		Now:       time.Now,
	}
}

// Player drives a compiled rig on its own ticker, independent of camera
// frame delivery.
type Player struct {
	rig    *Compiled
	config PlayerConfig
}

// NewPlayer creates a player for rig.
func NewPlayer(rig *Compiled, config PlayerConfig) *Player {
	if config.FrameRate <= 0 {
		config.FrameRate = DefaultFrameRate
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Player{rig: rig, config: config}
}

// Run renders a frame on every tick and hands it to fn until ctx is
// cancelled or fn returns an error. Cancellation is a clean stop and
// returns nil. fn is never called concurrently.
func (p *Player) Run(ctx context.Context, fn func(Frame) error) error {
	start := p.config.Now()

	ticker := time.NewTicker(time.Second / time.Duration(p.config.FrameRate))
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return nil
		}
		elapsed := p.config.Now().Sub(start).Seconds()
		if err := fn(p.rig.Render(elapsed, p.config.Viewport)); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
