package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/korefront/repcoach/internal/animation"
	"github.com/korefront/repcoach/internal/evaluate"
	"github.com/korefront/repcoach/internal/overlay"
	"github.com/korefront/repcoach/internal/session"
	"github.com/korefront/repcoach/internal/store"
)

// ExerciseHandler handles HTTP requests for exercise resources.
type ExerciseHandler struct {
	store *store.Store
}

// NewExerciseHandler creates a new ExerciseHandler with the given store.
func NewExerciseHandler(s *store.Store) *ExerciseHandler {
	return &ExerciseHandler{store: s}
}

// ServeHTTP routes /api/exercises, /api/exercises/{id} and
// /api/exercises/{id}/preview.png.
func (h *ExerciseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, sub := splitPath(r.URL.Path, "/api/exercises")

	if id == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch sub {
	case "":
	case "preview.png":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.preview(w, r, id)
		return
	default:
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type exerciseRequest struct {
	Name            string                      `json:"name"`
	Description     string                      `json:"description"`
	InstructionsURL string                      `json:"instructions_url"`
	RepTarget       int                         `json:"rep_target"`
	Classification  evaluate.ClassificationSpec `json:"classification"`
	Animation       *animation.Rig              `json:"animation,omitempty"`
}

type exerciseResponse struct {
	ID              string                      `json:"id"`
	Name            string                      `json:"name"`
	Description     string                      `json:"description"`
	InstructionsURL string                      `json:"instructions_url,omitempty"`
	RepTarget       int                         `json:"rep_target"`
	Classification  evaluate.ClassificationSpec `json:"classification"`
	Animation       *animation.Rig              `json:"animation,omitempty"`
	CreatedAt       string                      `json:"created_at"`
	UpdatedAt       string                      `json:"updated_at"`
}

type listExercisesResponse struct {
	Exercises []exerciseResponse `json:"exercises"`
}

func toExerciseResponse(e *store.Exercise) exerciseResponse {
	return exerciseResponse{
		ID:              e.ID,
		Name:            e.Name,
		Description:     e.Description,
		InstructionsURL: e.InstructionsURL,
		RepTarget:       e.RepTarget,
		Classification:  e.Classification,
		Animation:       e.Animation,
		CreatedAt:       e.CreatedAt.Format(timeFormat),
		UpdatedAt:       e.UpdatedAt.Format(timeFormat),
	}
}

// validate checks the request and reports the first problem as a message
// suitable for the client.
func (req *exerciseRequest) validate() error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return errors.New("Name is required")
	}
	if req.RepTarget < 0 {
		return errors.New("rep_target must not be negative")
	}
	if err := req.Classification.Validate(); err != nil {
		return fmt.Errorf("Invalid classification: %v", err)
	}
	if req.Animation != nil {
		if _, err := animation.Compile(*req.Animation); err != nil {
			return fmt.Errorf("Invalid animation: %v", err)
		}
	}
	return nil
}

func (req *exerciseRequest) apply(e *store.Exercise) {
	e.Name = req.Name
	e.Description = req.Description
	e.InstructionsURL = req.InstructionsURL
	e.Classification = req.Classification
	e.Animation = req.Animation
	e.RepTarget = req.RepTarget
	if e.RepTarget == 0 {
		e.RepTarget = session.DefaultRepTarget
	}
}

// list handles GET /api/exercises.
func (h *ExerciseHandler) list(w http.ResponseWriter, r *http.Request) {
	exercises, err := h.store.Exercises().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list exercises")
		return
	}

	response := listExercisesResponse{Exercises: make([]exerciseResponse, 0, len(exercises))}
	for _, e := range exercises {
		response.Exercises = append(response.Exercises, toExerciseResponse(e))
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/exercises/{id}.
func (h *ExerciseHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	e, ok := h.lookup(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toExerciseResponse(e))
}

// create handles POST /api/exercises.
func (h *ExerciseHandler) create(w http.ResponseWriter, r *http.Request) {
	var req exerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.store.Exercises().GetByName(req.Name); err == nil {
		writeError(w, http.StatusConflict, "An exercise with this name already exists")
		return
	}

	e := &store.Exercise{ID: uuid.New().String()}
	req.apply(e)

	if err := h.store.Exercises().Create(e); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create exercise")
		return
	}
	writeJSON(w, http.StatusCreated, toExerciseResponse(e))
}

// update handles PUT /api/exercises/{id}.
func (h *ExerciseHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	e, ok := h.lookup(w, id)
	if !ok {
		return
	}

	var req exerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.apply(e)
	if err := h.store.Exercises().Update(e); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update exercise")
		return
	}

	updated, err := h.store.Exercises().GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to retrieve updated exercise")
		return
	}
	writeJSON(w, http.StatusOK, toExerciseResponse(updated))
}

// delete handles DELETE /api/exercises/{id}.
func (h *ExerciseHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Exercises().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Exercise not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete exercise")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// preview handles GET /api/exercises/{id}/preview.png?progress=&elapsed=&size=
// and renders one animation frame.
func (h *ExerciseHandler) preview(w http.ResponseWriter, r *http.Request, id string) {
	e, ok := h.lookup(w, id)
	if !ok {
		return
	}
	if e.Animation == nil {
		writeError(w, http.StatusNotFound, "Exercise has no animation")
		return
	}

	rig, err := animation.Compile(*e.Animation)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	q := r.URL.Query()
	elapsed := queryFloat(q.Get("elapsed"), 0)
	progress := queryFloat(q.Get("progress"), rig.Progress(elapsed))
	size := queryFloat(q.Get("size"), 200)
	if elapsed < 0 || progress < 0 || progress > 1 || size < 50 || size > 2000 {
		writeError(w, http.StatusBadRequest, "elapsed must be >= 0, progress in [0,1] and size in [50,2000]")
		return
	}

	vp := overlay.Viewport{Width: size, Height: size}
	frame := rig.RenderAt(progress, elapsed, vp)

	png, err := renderPreview(e.Name, frame, vp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render preview")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

func (h *ExerciseHandler) lookup(w http.ResponseWriter, id string) (*store.Exercise, bool) {
	e, err := h.store.Exercises().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Exercise not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get exercise")
		return nil, false
	}
	return e, true
}

func queryFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return -1
	}
	return v
}
