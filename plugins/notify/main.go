// Package main provides a notification plugin for macOS. It announces
// finished sessions through Notification Center and can speak the rep
// count with say(1).
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Request represents the input from the plugin executor.
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

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the optional per-install plugin configuration.
type Config struct {
	Speak bool   `json:"speak"`
	Title string `json:"title"`
}

// command is one osascript or say invocation.
type command struct {
	name string
	args []string
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	cmds, err := plan(req)
	if err != nil {
		writeResponse(Response{Error: err.Error()})
		return
	}

	for _, c := range cmds {
		if out, err := exec.Command(c.name, c.args...).CombinedOutput(); err != nil {
			writeResponse(Response{Error: fmt.Sprintf("%s failed: %v: %s", c.name, err, out)})
			return
		}
	}
	writeResponse(Response{Success: true})
}

// plan decides what to run for req.
func plan(req Request) ([]command, error) {
	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}
	if cfg.Title == "" {
		cfg.Title = "RepCoach"
	}

	switch req.Event {
	case "completed":
		body := fmt.Sprintf("Session complete: %d of %d reps", req.RepCount, req.RepTarget)
		script := fmt.Sprintf("display notification %s with title %s", quote(body), quote(cfg.Title))
		cmds := []command{{name: "osascript", args: []string{"-e", script}}}
		if cfg.Speak {
			cmds = append(cmds, command{name: "say", args: []string{"Well done, session complete"}})
		}
		return cmds, nil
	case "rep":
		if !cfg.Speak {
			return nil, nil
		}
		return []command{{name: "say", args: []string{strconv.Itoa(req.RepCount)}}}, nil
	default:
		return nil, fmt.Errorf("unsupported event: %s", req.Event)
	}
}

// quote returns s as an AppleScript string literal.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func writeResponse(resp Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
