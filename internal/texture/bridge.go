// Package texture hands composited layers to a renderer.
//
// The bridge keeps one stable Texture per layer. Publishing swaps new pixels
// into those textures and raises markers that the renderer consumes; the
// renderer never has to re-bind a texture unless a resize was signalled.
package texture

import (
	"sync"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/composite"
)

// Layer names a texture.
type Layer string

const (
	Foreground Layer = "foreground"
	Background Layer = "background"
)

// Texture is a stable handle to one layer's pixels.
type Texture struct {
	layer  Layer
	mu     sync.RWMutex
	width  int
	height int
	pix    []byte
}

// Layer returns the texture's layer name.
func (t *Texture) Layer() Layer {
	return t.layer
}

// View calls fn with the current pixels and dimensions under a read lock.
// fn must not retain pix. Empty or invalidated textures report false and
// fn is not called.
func (t *Texture) View(fn func(width, height int, pix []byte)) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.valid() {
		return false
	}
	fn(t.width, t.height, t.pix)
	return true
}

// Size returns the current dimensions.
func (t *Texture) Size() (width, height int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.width, t.height
}

// set replaces the pixels. Callers hold t.mu.
func (t *Texture) set(width, height int, pix []byte) {
	t.width, t.height, t.pix = width, height, pix
}

func (t *Texture) valid() bool {
	return t.pix != nil && len(t.pix) == t.width*t.height*capture.BytesPerPixel
}

// Update describes what changed since the renderer last consumed.
type Update struct {
	Version uint64 `json:"version"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Resized bool   `json:"resized"`
}

// Bridge owns the two layer textures.
type Bridge struct {
	fg *Texture
	bg *Texture

	mu      sync.Mutex
	width   int
	height  int
	version uint64
	dirty   bool
	resized bool
	subs    map[chan Update]struct{}
}

// NewBridge returns a bridge with empty textures.
func NewBridge() *Bridge {
	return &Bridge{
		fg:   &Texture{layer: Foreground},
		bg:   &Texture{layer: Background},
		subs: make(map[chan Update]struct{}),
	}
}

// Texture returns the stable texture for a layer, or nil for an unknown
// layer name.
func (b *Bridge) Texture(layer Layer) *Texture {
	switch layer {
	case Foreground:
		return b.fg
	case Background:
		return b.bg
	}
	return nil
}

// Publish takes ownership of the cutout buffers and swaps them into the
// textures. A nil background (single mode) leaves the background texture
// untouched unless the dimensions changed, in which case it is invalidated.
func (b *Bridge) Publish(c composite.Cutouts) Update {
	b.mu.Lock()
	defer b.mu.Unlock()

	resized := b.version == 0 || c.Width != b.width || c.Height != b.height

	// Both layers change under both locks so ViewPair never sees a mix of
	// two publishes. Lock order is foreground then background.
	b.fg.mu.Lock()
	b.bg.mu.Lock()
	b.fg.set(c.Width, c.Height, c.Foreground)
	if c.Background != nil {
		b.bg.set(c.Width, c.Height, c.Background)
	} else if resized {
		b.bg.set(c.Width, c.Height, nil)
	}
	b.bg.mu.Unlock()
	b.fg.mu.Unlock()

	b.width, b.height = c.Width, c.Height
	b.version++
	b.dirty = true
	b.resized = b.resized || resized

	u := Update{Version: b.version, Width: c.Width, Height: c.Height, Resized: resized}
	for ch := range b.subs {
		select {
		case ch <- u:
		default:
		}
	}
	return u
}

// ViewPair calls fn with both layers from the same publish under read
// locks. bg is nil when the background is empty or invalidated (single
// mode). It reports false, without calling fn, until a foreground exists.
// fn must not retain either slice.
func (b *Bridge) ViewPair(fn func(width, height int, fg, bg []byte)) bool {
	b.fg.mu.RLock()
	defer b.fg.mu.RUnlock()
	b.bg.mu.RLock()
	defer b.bg.mu.RUnlock()

	if !b.fg.valid() {
		return false
	}
	var bg []byte
	if b.bg.valid() && b.bg.width == b.fg.width && b.bg.height == b.fg.height {
		bg = b.bg.pix
	}
	fn(b.fg.width, b.fg.height, b.fg.pix, bg)
	return true
}

// Consume reports the pending update and clears the dirty and resize
// markers. It reports false if nothing was published since the last call.
func (b *Bridge) Consume() (Update, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.dirty {
		return Update{}, false
	}
	u := Update{Version: b.version, Width: b.width, Height: b.height, Resized: b.resized}
	b.dirty = false
	b.resized = false
	return u, true
}

// Version returns the number of publishes so far.
func (b *Bridge) Version() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// Subscribe returns a channel receiving every publish. Slow subscribers
// miss updates rather than blocking the publisher. Call the returned
// function to unsubscribe.
func (b *Bridge) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 8)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}
