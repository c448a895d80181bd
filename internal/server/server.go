// Package server provides the HTTP and WebSocket surface of the rehab
// coach: exercise and session resources, live pose evaluation and the
// camera stream.
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/korefront/repcoach/internal/evaluate"
	"github.com/korefront/repcoach/internal/overlay"
	"github.com/korefront/repcoach/internal/server/api"
	"github.com/korefront/repcoach/internal/session"
	"github.com/korefront/repcoach/internal/store"
)

// Camera is the local capture pipeline as seen by the server.
type Camera interface {
	api.CameraAttacher
	Previewer
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Manager   *session.Manager

	// Camera enables /api/stream and camera-backed sessions. May be nil.
	Camera Camera
	// Live, if set, is served at /api/live.
	Live *LiveHandler

	Frames          session.FrameRecorder
	Counter         evaluate.Config
	Viewport        overlay.Viewport
	Facing          overlay.Facing
	PlayerFrameRate int
}

// Server represents the HTTP server for the application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		exerciseHandler := api.NewExerciseHandler(s.config.Store)
		animationHandler := NewAnimationHandler(s.config.Store, s.config.PlayerFrameRate)

		exerciseRouter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/animation") {
				animationHandler.ServeHTTP(w, r)
				return
			}
			exerciseHandler.ServeHTTP(w, r)
		})
		s.mux.Handle("/api/exercises", exerciseRouter)
		s.mux.Handle("/api/exercises/", exerciseRouter)
	}

	if s.config.Store != nil && s.config.Manager != nil {
		sessions := api.SessionsConfig{
			Store:    s.config.Store,
			Manager:  s.config.Manager,
			Frames:   s.config.Frames,
			Counter:  s.config.Counter,
			Viewport: s.config.Viewport,
			Facing:   s.config.Facing,
		}
		if s.config.Camera != nil {
			sessions.Camera = s.config.Camera
		}
		sessionHandler := api.NewSessionHandler(sessions)
		poseHandler := NewPoseHandler(s.config.Manager)

		sessionRouter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/pose") {
				poseHandler.ServeHTTP(w, r)
				return
			}
			sessionHandler.ServeHTTP(w, r)
		})
		s.mux.Handle("/api/sessions", sessionRouter)
		s.mux.Handle("/api/sessions/", sessionRouter)
	}

	if s.config.Camera != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Camera))
	}

	if s.config.Live != nil {
		s.mux.Handle("/api/live", s.config.Live)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Manager != nil {
		response["active_sessions"] = len(s.config.Manager.List())
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return v
}
