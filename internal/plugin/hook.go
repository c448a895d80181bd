package plugin

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/korefront/repcoach/internal/session"
)

// HookSink runs subscribed plugins for every session event. It implements
// session.Sink.
type HookSink struct {
	manager  *Manager
	executor *Executor
}

// NewHookSink creates a HookSink.
func NewHookSink(manager *Manager, executor *Executor) *HookSink {
	return &HookSink{manager: manager, executor: executor}
}

// Name implements session.Sink.
func (h *HookSink) Name() string { return "plugins" }

// Handle runs each subscriber in turn. A failing plugin does not stop the
// others; all failures are returned together.
func (h *HookSink) Handle(ctx context.Context, e session.Event) error {
	subscribers := h.manager.Subscribers(string(e.Kind))
	if len(subscribers) == 0 {
		return nil
	}

	req := &Request{
		Event:      string(e.Kind),
		SessionID:  e.SessionID,
		ExerciseID: e.ExerciseID,
		Stage:      string(e.Stage),
		RepCount:   e.RepCount,
		RepTarget:  e.RepTarget,
		At:         e.At,
	}

	var errs []error
	for _, p := range subscribers {
		resp, err := h.executor.Execute(ctx, p, req)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !resp.Success {
			errs = append(errs, fmt.Errorf("plugin %s: %s", p.Manifest.Name, resp.Error))
			continue
		}
		log.Printf("plugin: %s handled %s for session %s", p.Manifest.Name, e.Kind, e.SessionID)
	}
	return errors.Join(errs...)
}
