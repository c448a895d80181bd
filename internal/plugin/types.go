// Package plugin runs external executables in response to session events.
package plugin

import (
	"encoding/json"
	"slices"
	"time"
)

// Manifest describes a plugin's metadata and the events it handles.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Executable  string `json:"executable"`

	// Events lists session event kinds the plugin subscribes to, for
	// example "rep" or "completed". "*" subscribes to every kind.
	Events []string `json:"events"`

	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Request is written to the plugin's stdin as JSON.
type Request struct {
	Event      string          `json:"event"`
	SessionID  string          `json:"session_id"`
	ExerciseID string          `json:"exercise_id"`
	Stage      string          `json:"stage,omitempty"`
	RepCount   int             `json:"rep_count"`
	RepTarget  int             `json:"rep_target,omitempty"`
	At         time.Time       `json:"at"`
	Config     json.RawMessage `json:"config,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Handles reports whether the plugin subscribes to event.
func (p *Plugin) Handles(event string) bool {
	return slices.Contains(p.Manifest.Events, "*") || slices.Contains(p.Manifest.Events, event)
}
