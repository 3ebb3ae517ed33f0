// Package api provides JSON handlers for gesture templates and session
// history.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/store"
)

// TemplateHandler handles HTTP requests for gesture template resources.
type TemplateHandler struct {
	store *store.Store
}

// NewTemplateHandler creates a new TemplateHandler with the given store.
func NewTemplateHandler(s *store.Store) *TemplateHandler {
	return &TemplateHandler{store: s}
}

// ServeHTTP routes /api/templates and /api/templates/{id}.
func (h *TemplateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/templates")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
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

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type createTemplateRequest struct {
	Name      string  `json:"name"`
	Tolerance float64 `json:"tolerance"`
	Landmarks []point `json:"landmarks"`
}

type templateResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Tolerance float64 `json:"tolerance"`
	Builtin   bool    `json:"builtin"`
	Landmarks []point `json:"landmarks,omitempty"`
	CreatedAt string  `json:"created_at"`
}

type listTemplatesResponse struct {
	Templates []templateResponse `json:"templates"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toResponse(t *store.Template, withLandmarks bool) templateResponse {
	resp := templateResponse{
		ID:        t.ID,
		Name:      t.Name,
		Tolerance: t.Tolerance,
		Builtin:   t.Builtin,
		CreatedAt: t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if withLandmarks {
		resp.Landmarks = make([]point, len(t.Landmarks))
		for i, l := range t.Landmarks {
			resp.Landmarks[i] = point{X: l.X, Y: l.Y, Z: l.Z}
		}
	}
	return resp
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func (h *TemplateHandler) list(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.Templates().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list templates")
		return
	}

	response := listTemplatesResponse{
		Templates: make([]templateResponse, 0, len(templates)),
	}
	for _, t := range templates {
		response.Templates = append(response.Templates, toResponse(t, false))
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *TemplateHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	t, err := h.store.Templates().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get template")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(t, true))
}

// create stores a template from raw landmarks. The pose is normalized the
// same way live hands are before matching.
func (h *TemplateHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if len(req.Landmarks) != detector.NumLandmarks {
		writeError(w, http.StatusBadRequest, "Exactly 21 landmarks are required")
		return
	}

	tolerance := req.Tolerance
	if tolerance <= 0 {
		tolerance = 2.0
	}

	var hand detector.HandLandmarks
	for i, p := range req.Landmarks {
		hand.Points[i] = detector.Point3D{X: p.X, Y: p.Y, Z: p.Z}
	}
	normalized := hand.Normalize()

	t := &store.Template{
		Name:      req.Name,
		Tolerance: tolerance,
		Landmarks: make([]store.Landmark, detector.NumLandmarks),
	}
	for i, p := range normalized.Points {
		t.Landmarks[i] = store.Landmark{X: p.X, Y: p.Y, Z: p.Z}
	}

	if _, err := h.store.Templates().GetByName(req.Name); err == nil {
		writeError(w, http.StatusConflict, "Template name already exists")
		return
	}

	if err := h.store.Templates().Create(t); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create template")
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(t, true))
}

func (h *TemplateHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Templates().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Template not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete template")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
