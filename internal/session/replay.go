package session

import (
	"time"

	"github.com/korefront/repcoach/internal/evaluate"
	"github.com/korefront/repcoach/internal/pose"
)

// RecordedFrame is a landmark frame captured during a session.
type RecordedFrame struct {
	At        time.Time       `json:"at"`
	Landmarks []pose.Landmark `json:"landmarks"`
}

// Sample is one accepted evaluation during a replay.
type Sample struct {
	At       time.Time      `json:"at"`
	Angle    float64        `json:"angle"`
	Stage    evaluate.Stage `json:"stage"`
	RepCount int            `json:"rep_count"`
}

// ReplayResult summarises an offline re-evaluation.
type ReplayResult struct {
	RepCount int            `json:"rep_count"`
	Stage    evaluate.Stage `json:"stage"`
	Samples  []Sample       `json:"samples"`
}

// Replay re-runs spec over recorded frames using their capture times as the
// throttle clock. A live session throttles on its own clock when frames
// arrive, so delivery jitter can make the accepted ticks differ from the
// live run. Frames must be in capture order.
func Replay(spec evaluate.ClassificationSpec, frames []RecordedFrame, interval time.Duration) ReplayResult {
	var start time.Time
	if len(frames) > 0 {
		start = frames[0].At
	}
	clock := evaluate.NewManualClock(start)
	counter := evaluate.NewCounter(spec, evaluate.Config{Interval: interval, Clock: clock})

	var res ReplayResult
	for _, f := range frames {
		frame, ok := pose.NewFrame(f.Landmarks)
		if !ok {
			continue
		}
		clock.Set(f.At)
		snap, ok := counter.Evaluate(&frame)
		if !ok {
			continue
		}
		res.Samples = append(res.Samples, Sample{
			At:       f.At,
			Angle:    snap.Angle,
			Stage:    snap.Stage,
			RepCount: snap.RepCount,
		})
	}

	final := counter.State()
	res.RepCount = final.RepCount
	res.Stage = final.Stage
	return res
}
