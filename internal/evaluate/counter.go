package evaluate

import (
	"log"
	"sync"
	"time"

	"github.com/korefront/repcoach/internal/pose"
)

// DefaultInterval is the minimum spacing between accepted evaluations.
const DefaultInterval = 500 * time.Millisecond

// Stage is the position of the current repetition.
type Stage string

const (
	StageNone  Stage = ""
	StageStart Stage = "start"
	StageEnd   Stage = "end"
)

// Clock supplies the current time to a Counter.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is a Clock that only moves when told to. It is used by tests
// and by offline replay of recorded frames.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock returns a ManualClock set to t.
func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{now: t}
}

// Now returns the clock's current time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Config holds Counter options.
type Config struct {
	// Interval is the minimum time between accepted ticks.
	Interval time.Duration

	// Clock is the time source. Defaults to SystemClock.
	Clock Clock
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Interval: DefaultInterval,
		Clock:    SystemClock{},
	}
}

// Snapshot is the counter state after an accepted tick.
type Snapshot struct {
	Stage    Stage     `json:"stage"`
	RepCount int       `json:"rep_count"`
	Angle    float64   `json:"angle"`
	At       time.Time `json:"at"`
	// Changed is true when the tick moved the stage.
	Changed bool `json:"changed"`
	// Counted is true when the tick completed a repetition.
	Counted bool `json:"counted"`
}

// Counter is the repetition state machine for one exercise session.
// It is safe for concurrent use; each tick is applied atomically.
type Counter struct {
	spec     ClassificationSpec
	indices  [3]int
	resolved bool
	interval time.Duration
	clock    Clock

	mu       sync.Mutex
	stage    Stage
	reps     int
	angle    float64
	lastTick time.Time
}

// NewCounter creates a counter for spec. A spec whose landmarks cannot be
// resolved yields a counter that skips every frame.
func NewCounter(spec ClassificationSpec, config Config) *Counter {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	if config.Clock == nil {
		config.Clock = SystemClock{}
	}

	c := &Counter{
		spec:     spec,
		interval: config.Interval,
		clock:    config.Clock,
	}

	idx, err := spec.Resolve()
	if err != nil {
		log.Printf("evaluate: %v; frames will be skipped", err)
	} else {
		c.indices = idx
		c.resolved = true
	}
	return c
}

// Spec returns the classification the counter evaluates.
func (c *Counter) Spec() ClassificationSpec {
	return c.spec
}

// Evaluate computes the configured joint angle on frame and applies it.
// It returns false when the frame is skipped: unresolved configuration,
// non-finite landmarks, or throttling.
func (c *Counter) Evaluate(frame *pose.Frame) (Snapshot, bool) {
	if !c.resolved || frame == nil {
		return Snapshot{}, false
	}
	a, b, v := frame[c.indices[0]], frame[c.indices[1]], frame[c.indices[2]]
	if !a.Valid() || !b.Valid() || !v.Valid() {
		return Snapshot{}, false
	}
	return c.Tick(Angle(a, b, v))
}

// Tick applies one angle measurement. Ticks arriving less than the
// configured interval after the previous accepted tick are dropped and
// leave the state untouched.
func (c *Counter) Tick(angle float64) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if !c.lastTick.IsZero() && now.Sub(c.lastTick) < c.interval {
		return c.snapshotLocked(), false
	}
	c.lastTick = now
	c.angle = angle

	prev := c.stage
	next, counted := transition(c.spec.EvaluationType, c.spec.Thresholds, prev, angle)
	c.stage = next
	if counted {
		c.reps++
	}

	s := c.snapshotLocked()
	s.Changed = next != prev
	s.Counted = counted
	return s, true
}

// State returns the current state without ticking.
func (c *Counter) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Reset clears the stage, count and throttle for a new recording.
func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stage = StageNone
	c.reps = 0
	c.angle = 0
	c.lastTick = time.Time{}
}

func (c *Counter) snapshotLocked() Snapshot {
	return Snapshot{
		Stage:    c.stage,
		RepCount: c.reps,
		Angle:    c.angle,
		At:       c.lastTick,
	}
}

// transition applies the policy for typ. The first matching branch wins.
func transition(typ EvaluationType, th Thresholds, stage Stage, angle float64) (Stage, bool) {
	switch typ {
	case HighToLow:
		if angle > th.Up {
			return StageStart, false
		}
		if angle < th.Down && stage == StageStart {
			return StageEnd, true
		}
	case LowToHigh:
		if angle < th.Down {
			return StageStart, false
		}
		if angle > th.Up && stage == StageStart {
			return StageEnd, true
		}
	case Custom:
		// Up and Down swap roles here; catalog entries rely on it.
		if angle < th.Up {
			return StageStart, false
		}
		if angle > th.Down && stage == StageStart {
			return StageEnd, true
		}
	}
	return stage, false
}
