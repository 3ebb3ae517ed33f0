package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func poseBody(t *testing.T, name string, hand detector.HandLandmarks) *bytes.Buffer {
	t.Helper()

	req := createTemplateRequest{Name: name}
	for _, p := range hand.Points {
		req.Landmarks = append(req.Landmarks, point{X: p.X, Y: p.Y, Z: p.Z})
	}
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(req); err != nil {
		t.Fatalf("encode request: %v", err)
	}
	return buf
}

func TestTemplateHandler_CreateGetDelete(t *testing.T) {
	s := newTestStore(t)
	handler := NewTemplateHandler(s)

	req := httptest.NewRequest(http.MethodPost, "/api/templates", poseBody(t, "palm", detector.OpenPalmPose()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var created templateResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.ID == "" || created.Tolerance != 2.0 {
		t.Errorf("created = %+v", created)
	}
	if len(created.Landmarks) != detector.NumLandmarks {
		t.Fatalf("created has %d landmarks", len(created.Landmarks))
	}
	if w := created.Landmarks[detector.Wrist]; w.X != 0 || w.Y != 0 || w.Z != 0 {
		t.Errorf("landmarks not normalized: wrist = %+v", w)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/templates/"+created.ID, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET status = %d, want %d", rec.Code, http.StatusOK)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/templates/"+created.ID, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("DELETE status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/templates/"+created.ID, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET after delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestTemplateHandler_List(t *testing.T) {
	s := newTestStore(t)
	if err := s.Templates().Create(&store.Template{Name: "fist", Tolerance: 1}); err != nil {
		t.Fatalf("failed to create template: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/templates", nil)
	rec := httptest.NewRecorder()
	NewTemplateHandler(s).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %s", ct)
	}

	var response listTemplatesResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Templates) != 1 || response.Templates[0].Name != "fist" {
		t.Errorf("templates = %+v", response.Templates)
	}
}

func TestTemplateHandler_CreateValidation(t *testing.T) {
	s := newTestStore(t)
	handler := NewTemplateHandler(s)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", "{", http.StatusBadRequest},
		{"missing name", `{"landmarks":[]}`, http.StatusBadRequest},
		{"wrong landmark count", `{"name":"x","landmarks":[{"x":0,"y":0,"z":0}]}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/templates", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestTemplateHandler_DuplicateName(t *testing.T) {
	s := newTestStore(t)
	handler := NewTemplateHandler(s)

	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		req := httptest.NewRequest(http.MethodPost, "/api/templates", poseBody(t, "thumbs", detector.ThumbsUpPose()))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("request %d status = %d, want %d", i, rec.Code, want)
		}
	}
}

func TestTemplateHandler_MethodNotAllowed(t *testing.T) {
	handler := NewTemplateHandler(newTestStore(t))

	for _, tc := range []struct{ method, path string }{
		{http.MethodPut, "/api/templates"},
		{http.MethodPatch, "/api/templates/abc"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s status = %d, want %d", tc.method, tc.path, rec.Code, http.StatusMethodNotAllowed)
		}
	}
}

func TestSessionsHandler(t *testing.T) {
	s := newTestStore(t)
	rec1 := &store.SessionRecord{Mode: "dual", Decimation: 1}
	if err := s.Sessions().Begin(rec1); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := s.Sessions().Finish(rec1.ID, time.Now(), store.SessionCounters{Ticks: 9, Publishes: 3}); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	handler := NewSessionsHandler(s)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions?limit=5", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var response listSessionsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(response.Sessions))
	}
	got := response.Sessions[0]
	if got.ID != rec1.ID || got.StoppedAt == "" || got.Counters.Publishes != 3 {
		t.Errorf("session = %+v", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/sessions?limit=many", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
