package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/texture"
)

// StreamHandler serves a layer as an MJPEG stream. A part is written each
// time the bridge publishes, so the stream runs at the composite rate.
type StreamHandler struct {
	bridge *texture.Bridge
}

// NewStreamHandler creates a new StreamHandler reading from bridge.
func NewStreamHandler(bridge *texture.Bridge) *StreamHandler {
	return &StreamHandler{bridge: bridge}
}

// ServeHTTP handles GET /api/stream/{layer}.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	layer, _, ok := parseLayerPath(strings.TrimPrefix(r.URL.Path, "/api/stream/"))
	if !ok {
		http.Error(w, "Unknown layer", http.StatusNotFound)
		return
	}
	tex := h.bridge.Texture(layer)

	updates, unsubscribe := h.bridge.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	// Send what is already there so a new client does not wait a tick.
	writePart(w, tex)

	for {
		select {
		case <-r.Context().Done():
			return
		case _, ok := <-updates:
			if !ok {
				return
			}
			if err := writePart(w, tex); err != nil {
				return
			}
		}
	}
}

// writePart writes one JPEG part. An empty texture writes nothing.
func writePart(w http.ResponseWriter, tex *texture.Texture) error {
	data, err := encodeTexture(tex, FormatJPEG)
	if err != nil {
		return nil
	}

	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(data)); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "\r\n"); err != nil {
		return err
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
