package server

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/texture"
)

// ErrNoTexture is returned when a layer holds no pixels yet.
var ErrNoTexture = errors.New("texture not available")

// Format is an image encoding for layer snapshots.
type Format string

const (
	FormatPNG  Format = ".png"
	FormatJPEG Format = ".jpg"
)

// contentType returns the MIME type for the format.
func (f Format) contentType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// encodeTexture encodes the texture's current pixels. PNG keeps the alpha
// channel; JPEG drops it.
func encodeTexture(t *texture.Texture, format Format) ([]byte, error) {
	var (
		out    []byte
		encErr error
	)
	ok := t.View(func(width, height int, pix []byte) {
		src, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC4, pix)
		if err != nil {
			encErr = err
			return
		}
		defer src.Close()

		code := gocv.ColorRGBAToBGRA
		if format == FormatJPEG {
			code = gocv.ColorRGBAToBGR
		}
		dst := gocv.NewMat()
		defer dst.Close()
		if err := gocv.CvtColor(src, &dst, code); err != nil {
			encErr = err
			return
		}

		buf, err := gocv.IMEncode(gocv.FileExt(format), dst)
		if err != nil {
			encErr = err
			return
		}
		defer buf.Close()

		out = append([]byte(nil), buf.GetBytes()...)
	})
	if !ok {
		return nil, ErrNoTexture
	}
	return out, encErr
}

// parseLayerPath splits "foreground.png" into a layer and format. The
// extension is optional and defaults to PNG.
func parseLayerPath(name string) (texture.Layer, Format, bool) {
	format := FormatPNG
	switch ext := path.Ext(name); ext {
	case "":
	case ".png":
		name = strings.TrimSuffix(name, ext)
	case ".jpg", ".jpeg":
		format = FormatJPEG
		name = strings.TrimSuffix(name, ext)
	default:
		return "", "", false
	}

	layer := texture.Layer(name)
	if layer != texture.Foreground && layer != texture.Background {
		return "", "", false
	}
	return layer, format, true
}

// TextureHandler serves the latest pixels of a layer as a still image.
type TextureHandler struct {
	bridge *texture.Bridge
}

// NewTextureHandler creates a new TextureHandler reading from bridge.
func NewTextureHandler(bridge *texture.Bridge) *TextureHandler {
	return &TextureHandler{bridge: bridge}
}

// ServeHTTP handles GET /api/textures/{layer}[.png|.jpg].
func (h *TextureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	layer, format, ok := parseLayerPath(strings.TrimPrefix(r.URL.Path, "/api/textures/"))
	if !ok {
		http.Error(w, "Unknown layer", http.StatusNotFound)
		return
	}

	data, err := encodeTexture(h.bridge.Texture(layer), format)
	if errors.Is(err, ErrNoTexture) {
		http.Error(w, "No texture yet", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to encode texture", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", format.contentType())
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}
