package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/korefront/repcoach/internal/evaluate"
	"github.com/korefront/repcoach/internal/overlay"
	"github.com/korefront/repcoach/internal/session"
	"github.com/korefront/repcoach/internal/store"
)

// CameraAttacher binds the local camera pipeline to a session.
type CameraAttacher interface {
	Attach(s *session.Session)
	Detach(sessionID string)
}

// SessionsConfig holds the dependencies of a SessionHandler.
type SessionsConfig struct {
	Store    *store.Store
	Manager  *session.Manager
	Camera   CameraAttacher        // may be nil
	Frames   session.FrameRecorder // may be nil
	Counter  evaluate.Config
	Viewport overlay.Viewport
	// Facing is used when a start request does not name one.
	Facing overlay.Facing
}

// SessionHandler handles HTTP requests for session resources.
type SessionHandler struct {
	config SessionsConfig
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(config SessionsConfig) *SessionHandler {
	if config.Viewport.Width <= 0 || config.Viewport.Height <= 0 {
		config.Viewport = overlay.Viewport{Width: 640, Height: 480}
	}
	return &SessionHandler{config: config}
}

// ServeHTTP routes /api/sessions and its sub-resources.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, sub := splitPath(r.URL.Path, "/api/sessions")

	if id == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.start(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		h.get(w, r, id)
	case sub == "" && r.Method == http.MethodDelete, sub == "stop" && r.Method == http.MethodPost:
		h.stop(w, r, id)
	case sub == "events" && r.Method == http.MethodGet:
		h.events(w, r, id)
	case sub == "frames" && r.Method == http.MethodGet:
		h.frames(w, r, id)
	case sub == "replay" && r.Method == http.MethodGet:
		h.replay(w, r, id)
	case sub == "chart" && r.Method == http.MethodGet:
		h.chart(w, r, id)
	case sub == "" || sub == "stop" || sub == "events" || sub == "frames" || sub == "replay" || sub == "chart":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type startSessionRequest struct {
	ExerciseID string           `json:"exercise_id"`
	Facing     string           `json:"facing"`
	RepTarget  int              `json:"rep_target"`
	Viewport   overlay.Viewport `json:"viewport"`
	// Camera binds the server's own camera pipeline to the session.
	Camera bool `json:"camera"`
}

type sessionResponse struct {
	ID         string         `json:"id"`
	ExerciseID string         `json:"exercise_id"`
	Facing     string         `json:"facing"`
	Status     string         `json:"status"`
	Active     bool           `json:"active"`
	RepCount   int            `json:"rep_count"`
	RepTarget  int            `json:"rep_target"`
	Stage      evaluate.Stage `json:"stage,omitempty"`
	StartedAt  string         `json:"started_at"`
	EndedAt    string         `json:"ended_at,omitempty"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

// toSessionResponse merges the stored record with live state when the
// session is still active.
func (h *SessionHandler) toSessionResponse(rec *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:         rec.ID,
		ExerciseID: rec.ExerciseID,
		Facing:     rec.Facing,
		Status:     string(rec.Status),
		RepCount:   rec.RepCount,
		RepTarget:  rec.RepTarget,
		StartedAt:  rec.StartedAt.Format(timeFormat),
	}
	if rec.EndedAt != nil {
		resp.EndedAt = rec.EndedAt.Format(timeFormat)
	}
	if live, err := h.config.Manager.Get(rec.ID); err == nil {
		snap := live.State()
		resp.Active = true
		resp.RepCount = snap.RepCount
		resp.Stage = snap.Stage
		if live.Completed() {
			resp.Status = string(store.SessionCompleted)
		}
	}
	return resp
}

// list handles GET /api/sessions?exercise_id=&limit=.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := h.config.Store.Sessions().List(r.URL.Query().Get("exercise_id"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(records))}
	for _, rec := range records {
		response.Sessions = append(response.Sessions, h.toSessionResponse(rec))
	}
	writeJSON(w, http.StatusOK, response)
}

// start handles POST /api/sessions.
func (h *SessionHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.ExerciseID == "" {
		writeError(w, http.StatusBadRequest, "exercise_id is required")
		return
	}
	if req.Facing != "" && req.Facing != string(overlay.Front) && req.Facing != string(overlay.Back) {
		writeError(w, http.StatusBadRequest, "facing must be front or back")
		return
	}
	if req.Camera && h.config.Camera == nil {
		writeError(w, http.StatusConflict, "Camera capture is not enabled")
		return
	}

	exercise, err := h.config.Store.Exercises().GetByID(req.ExerciseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Exercise not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get exercise")
		return
	}

	repTarget := req.RepTarget
	if repTarget <= 0 {
		repTarget = exercise.RepTarget
	}
	facing := overlay.ParseFacing(req.Facing)
	if req.Facing == "" && h.config.Facing != "" {
		facing = h.config.Facing
	}
	vp := req.Viewport
	if vp.Width <= 0 || vp.Height <= 0 {
		vp = h.config.Viewport
	}

	s, err := h.config.Manager.Start(session.Config{
		ExerciseID:     exercise.ID,
		Classification: exercise.Classification,
		RepTarget:      repTarget,
		Facing:         facing,
		Viewport:       vp,
		Counter:        h.config.Counter,
		Frames:         h.config.Frames,
	})
	if err != nil {
		log.Printf("api: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to start session")
		return
	}
	if req.Camera {
		h.config.Camera.Attach(s)
	}

	rec, err := h.config.Store.Sessions().GetByID(s.ID())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve session")
		return
	}
	writeJSON(w, http.StatusCreated, h.toSessionResponse(rec))
}

// get handles GET /api/sessions/{id}.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	rec, ok := h.lookup(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.toSessionResponse(rec))
}

// stop handles DELETE /api/sessions/{id} and POST /api/sessions/{id}/stop.
func (h *SessionHandler) stop(w http.ResponseWriter, r *http.Request, id string) {
	s, err := h.config.Manager.Stop(id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "Session is not active")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to stop session")
		return
	}
	if h.config.Camera != nil {
		h.config.Camera.Detach(id)
	}

	snap := s.State()
	status := store.SessionAborted
	if s.Completed() {
		status = store.SessionCompleted
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		ID:         s.ID(),
		ExerciseID: s.ExerciseID(),
		Facing:     string(s.Facing()),
		Status:     string(status),
		RepCount:   snap.RepCount,
		RepTarget:  s.RepTarget(),
		Stage:      snap.Stage,
		StartedAt:  s.StartedAt().Format(timeFormat),
		EndedAt:    time.Now().Format(timeFormat),
	})
}

// events handles GET /api/sessions/{id}/events.
func (h *SessionHandler) events(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := h.lookup(w, id); !ok {
		return
	}
	events, err := h.config.Store.Events().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	if events == nil {
		events = []session.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// frames handles GET /api/sessions/{id}/frames.
func (h *SessionHandler) frames(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := h.lookup(w, id); !ok {
		return
	}
	frames, err := h.config.Store.Frames().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list frames")
		return
	}
	if frames == nil {
		frames = []session.RecordedFrame{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"frames": frames})
}

// replay handles GET /api/sessions/{id}/replay?interval=.
func (h *SessionHandler) replay(w http.ResponseWriter, r *http.Request, id string) {
	result, _, ok := h.runReplay(w, r, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// runReplay re-evaluates the recorded frames of a session with the
// exercise's classification.
func (h *SessionHandler) runReplay(w http.ResponseWriter, r *http.Request, id string) (session.ReplayResult, *store.Exercise, bool) {
	rec, ok := h.lookup(w, id)
	if !ok {
		return session.ReplayResult{}, nil, false
	}

	interval := h.config.Counter.Interval
	if s := r.URL.Query().Get("interval"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d < 0 {
			writeError(w, http.StatusBadRequest, "Invalid interval")
			return session.ReplayResult{}, nil, false
		}
		interval = d
	}
	if interval == 0 {
		interval = evaluate.DefaultInterval
	}

	exercise, err := h.config.Store.Exercises().GetByID(rec.ExerciseID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get exercise")
		return session.ReplayResult{}, nil, false
	}
	frames, err := h.config.Store.Frames().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list frames")
		return session.ReplayResult{}, nil, false
	}

	return session.Replay(exercise.Classification, frames, interval), exercise, true
}

func (h *SessionHandler) lookup(w http.ResponseWriter, id string) (*store.Session, bool) {
	rec, err := h.config.Store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return nil, false
	}
	return rec, true
}
