package texture

import (
	"sync"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/composite"
)

func cutouts(w, h int, fgFill, bgFill byte, withBackground bool) composite.Cutouts {
	c := composite.Cutouts{Width: w, Height: h, Foreground: make([]byte, w*h*4)}
	for i := range c.Foreground {
		c.Foreground[i] = fgFill
	}
	if withBackground {
		c.Background = make([]byte, w*h*4)
		for i := range c.Background {
			c.Background[i] = bgFill
		}
	}
	return c
}

func TestBridge_FirstPublishSignalsResize(t *testing.T) {
	b := NewBridge()

	if _, ok := b.Consume(); ok {
		t.Fatal("Consume() reported an update before any publish")
	}

	u := b.Publish(cutouts(4, 2, 1, 2, true))
	if !u.Resized || u.Version != 1 {
		t.Errorf("Publish() = %+v, want resized version 1", u)
	}

	got, ok := b.Consume()
	if !ok || !got.Resized || got.Width != 4 || got.Height != 2 {
		t.Errorf("Consume() = %+v, %v", got, ok)
	}
	if _, ok := b.Consume(); ok {
		t.Error("markers not cleared by Consume")
	}
}

func TestBridge_StableTextures(t *testing.T) {
	b := NewBridge()
	fg := b.Texture(Foreground)

	b.Publish(cutouts(2, 2, 7, 0, true))
	b.Publish(cutouts(2, 2, 9, 0, true))

	if b.Texture(Foreground) != fg {
		t.Error("foreground texture handle changed across publishes")
	}

	u, _ := b.Consume()
	if u.Resized {
		t.Error("same-size publish after consume reported resize")
	}

	var first byte
	fg.View(func(w, h int, pix []byte) { first = pix[0] })
	if first != 9 {
		t.Errorf("foreground pixel = %d, want latest value 9", first)
	}
}

func TestBridge_ResizeMarkerPersistsUntilConsumed(t *testing.T) {
	b := NewBridge()
	b.Publish(cutouts(2, 2, 1, 1, true))
	b.Consume()

	b.Publish(cutouts(3, 3, 1, 1, true))
	b.Publish(cutouts(3, 3, 2, 2, true))

	u, ok := b.Consume()
	if !ok || !u.Resized || u.Version != 3 {
		t.Errorf("Consume() = %+v, want resized at version 3", u)
	}
}

func TestBridge_SingleModeInvalidatesBackgroundOnResize(t *testing.T) {
	b := NewBridge()
	b.Publish(cutouts(2, 2, 1, 5, true))

	// Same size, no background: the old background stays.
	b.Publish(cutouts(2, 2, 1, 0, false))
	if !b.Texture(Background).View(func(int, int, []byte) {}) {
		t.Error("background invalidated without a resize")
	}

	b.Publish(cutouts(4, 4, 1, 0, false))
	if b.Texture(Background).View(func(int, int, []byte) {}) {
		t.Error("stale background still visible after resize")
	}
	if w, h := b.Texture(Background).Size(); w != 4 || h != 4 {
		t.Errorf("background size = %dx%d, want 4x4", w, h)
	}
}

func TestTexture_ViewRejectsMismatchedBuffer(t *testing.T) {
	b := NewBridge()

	if b.Texture(Foreground).View(func(int, int, []byte) {}) {
		t.Error("empty texture reported a view")
	}

	b.Publish(composite.Cutouts{Width: 2, Height: 2, Foreground: make([]byte, 3)})
	if b.Texture(Foreground).View(func(int, int, []byte) {}) {
		t.Error("View exposed a buffer whose length disagrees with its size")
	}
}

func TestBridge_UnknownLayer(t *testing.T) {
	if NewBridge().Texture("mask") != nil {
		t.Error("Texture() returned a handle for an unknown layer")
	}
}

func TestBridge_Subscribe(t *testing.T) {
	b := NewBridge()
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish(cutouts(1, 1, 0, 0, true))

	select {
	case u := <-ch:
		if u.Version != 1 {
			t.Errorf("update version = %d, want 1", u.Version)
		}
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel open after unsubscribe")
	}
	b.Publish(cutouts(1, 1, 0, 0, true))
}

func TestBridge_ViewPairNeverMixesPublishes(t *testing.T) {
	b := NewBridge()
	b.Publish(cutouts(8, 8, 1, 101, true))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for n := byte(1); ; n++ {
			select {
			case <-stop:
				return
			default:
			}
			// Publish n carries n in the foreground and n+100 in the background.
			b.Publish(cutouts(8, 8, n%100, n%100+100, true))
		}
	}()

	for i := 0; i < 2000; i++ {
		ok := b.ViewPair(func(w, h int, fg, bg []byte) {
			if bg == nil {
				t.Fatal("background missing in dual publish")
			}
			if bg[0] != fg[0]+100 || bg[len(bg)-1] != fg[len(fg)-1]+100 {
				t.Fatalf("mixed publishes: fg=%d bg=%d", fg[0], bg[0])
			}
		})
		if !ok {
			t.Fatal("ViewPair() = false after publish")
		}
	}
	close(stop)
	wg.Wait()
}

func TestBridge_ViewPairSingleMode(t *testing.T) {
	b := NewBridge()
	if b.ViewPair(func(int, int, []byte, []byte) {}) {
		t.Fatal("ViewPair() = true before any publish")
	}

	b.Publish(cutouts(2, 2, 7, 0, false))
	ok := b.ViewPair(func(w, h int, fg, bg []byte) {
		if w != 2 || h != 2 || fg[0] != 7 {
			t.Errorf("foreground = %dx%d %d", w, h, fg[0])
		}
		if bg != nil {
			t.Error("background present in single mode")
		}
	})
	if !ok {
		t.Error("ViewPair() = false with a foreground")
	}
}
