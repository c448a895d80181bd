package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/korefront/repcoach/internal/animation"
	"github.com/korefront/repcoach/internal/evaluate"
	"github.com/korefront/repcoach/internal/overlay"
	"github.com/korefront/repcoach/internal/pose"
	"github.com/korefront/repcoach/internal/session"
	"github.com/korefront/repcoach/internal/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// writeWait bounds a single WebSocket write.
const writeWait = 2 * time.Second

// poseMessage is one client-side detector result.
type poseMessage struct {
	PoseLandmarks []pose.Landmark `json:"pose_landmarks"`
	// Timestamp is the capture time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// poseReply is sent back for every poseMessage.
type poseReply struct {
	RepCounts       int               `json:"rep_counts"`
	Stage           evaluate.Stage    `json:"stage"`
	Angle           float64           `json:"angle"`
	FeedbackMessage string            `json:"feedback_message"`
	Segments        []overlay.Segment `json:"segments"`
	Completed       bool              `json:"completed"`
	Error           string            `json:"error,omitempty"`
}

func newPoseReply(u session.Update) poseReply {
	segments := u.Segments
	if segments == nil {
		segments = []overlay.Segment{}
	}
	return poseReply{
		RepCounts:       u.Snapshot.RepCount,
		Stage:           u.Snapshot.Stage,
		Angle:           u.Snapshot.Angle,
		FeedbackMessage: u.Feedback,
		Segments:        segments,
		Completed:       u.Completed,
	}
}

// PoseHandler evaluates landmark frames streamed by a browser client
// against an active session.
type PoseHandler struct {
	manager *session.Manager
}

// NewPoseHandler creates a new PoseHandler.
func NewPoseHandler(m *session.Manager) *PoseHandler {
	return &PoseHandler{manager: m}
}

// ServeHTTP handles WS /api/sessions/{id}/pose.
func (h *PoseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/sessions/"), "/pose")
	s, err := h.manager.Get(id)
	if err != nil {
		http.Error(w, "Session is not active", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("pose socket %s: %v", id, err)
			}
			return
		}

		var msg poseMessage
		var reply poseReply
		if err := json.Unmarshal(data, &msg); err != nil {
			reply = newPoseReply(session.Update{Snapshot: s.State(), Completed: s.Completed()})
			reply.Error = "invalid message"
		} else {
			at := time.Now()
			if msg.Timestamp > 0 {
				at = time.UnixMilli(msg.Timestamp)
			}
			reply = newPoseReply(s.Process(msg.PoseLandmarks, at))
		}

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(reply); err != nil {
			return
		}
	}
}

// AnimationHandler streams the reference animation of an exercise.
type AnimationHandler struct {
	store     *store.Store
	frameRate int
}

// NewAnimationHandler creates a new AnimationHandler. frameRate <= 0 uses
// animation.DefaultFrameRate.
func NewAnimationHandler(s *store.Store, frameRate int) *AnimationHandler {
	return &AnimationHandler{store: s, frameRate: frameRate}
}

// ServeHTTP handles WS /api/exercises/{id}/animation?size=.
func (h *AnimationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/exercises/"), "/animation")
	e, err := h.store.Exercises().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Exercise not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to get exercise", http.StatusInternalServerError)
		return
	}
	if e.Animation == nil {
		http.Error(w, "Exercise has no animation", http.StatusNotFound)
		return
	}
	rig, err := animation.Compile(*e.Animation)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	config := animation.DefaultPlayerConfig()
	config.FrameRate = h.frameRate
	if size := queryInt(r, "size"); size >= 50 && size <= 2000 {
		config.Viewport = overlay.Viewport{Width: float64(size), Height: float64(size)}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The client never sends anything useful; reading detects the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err = animation.NewPlayer(rig, config).Run(ctx, func(f animation.Frame) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(f)
	})
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		log.Printf("animation socket %s: %v", id, err)
	}
}

// liveMessage is one camera-pipeline update.
type liveMessage struct {
	SessionID string `json:"session_id"`
	poseReply
}

// LiveHandler broadcasts the updates of the camera-attached session to
// every connected client.
type LiveHandler struct {
	clients map[*websocket.Conn]*sync.Mutex
	mu      sync.RWMutex
}

// NewLiveHandler creates a new LiveHandler.
func NewLiveHandler() *LiveHandler {
	return &LiveHandler{clients: make(map[*websocket.Conn]*sync.Mutex)}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Clients returns the number of connected clients.
func (h *LiveHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends u to all connected clients. Its signature matches
// app.UpdateFunc.
func (h *LiveHandler) Broadcast(s *session.Session, u session.Update) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return
	}

	msg, err := json.Marshal(liveMessage{SessionID: s.ID(), poseReply: newPoseReply(u)})
	if err != nil {
		return
	}
	for conn, wmu := range h.clients {
		wmu.Lock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.TextMessage, msg)
		wmu.Unlock()
	}
}
