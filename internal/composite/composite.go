// Package composite splits a frame into foreground and background cutouts
// using a per-pixel category mask.
package composite

import (
	"errors"
	"fmt"

	"github.com/ayusman/mudra/internal/capture"
)

// ErrShapeMismatch is returned when a mask does not cover its frame exactly.
var ErrShapeMismatch = errors.New("mask does not match frame shape")

// Mask is a per-pixel classification signal, one value per frame pixel.
type Mask []float32

// Rule selects how a mask value is classified.
type Rule string

const (
	// RuleCategory treats a pixel as background iff its value equals
	// Policy.Background.
	RuleCategory Rule = "category"
	// RuleThreshold treats a pixel as background iff its value is below
	// Policy.Threshold.
	RuleThreshold Rule = "threshold"
)

// Mode selects which cutouts are produced.
type Mode string

const (
	// ModeDual produces both foreground and background cutouts.
	ModeDual Mode = "dual"
	// ModeSingle produces only the foreground cutout.
	ModeSingle Mode = "single"
)

// Policy configures classification and output.
type Policy struct {
	Rule       Rule
	Background float32 // background category for RuleCategory
	Threshold  float32 // confidence cut-off for RuleThreshold
	Mode       Mode
}

// DefaultPolicy returns dual-mode category equality with background id 0.
func DefaultPolicy() Policy {
	return Policy{
		Rule:       RuleCategory,
		Background: 0,
		Threshold:  0.052,
		Mode:       ModeDual,
	}
}

// Validate checks that the rule and mode are known.
func (p Policy) Validate() error {
	switch p.Rule {
	case RuleCategory, RuleThreshold:
	default:
		return fmt.Errorf("unknown mask rule %q", p.Rule)
	}
	switch p.Mode {
	case ModeDual, ModeSingle:
	default:
		return fmt.Errorf("unknown compositing mode %q", p.Mode)
	}
	return nil
}

// IsBackground classifies a single mask value.
func (p Policy) IsBackground(v float32) bool {
	if p.Rule == RuleThreshold {
		return v < p.Threshold
	}
	return v == p.Background
}

// Cutouts holds the derived RGBA buffers for one frame. Background is nil in
// single mode.
type Cutouts struct {
	Width      int
	Height     int
	Foreground []byte
	Background []byte
}

// Composite derives the cutouts for frame under policy. Foreground pixels are
// copied unchanged into Foreground and cleared in Background; background
// pixels the other way round. The result depends only on the arguments.
func Composite(frame capture.Frame, mask Mask, policy Policy) (Cutouts, error) {
	n := frame.Pixels()
	if frame.Width <= 0 || frame.Height <= 0 || len(mask) != n {
		return Cutouts{}, fmt.Errorf("%w: %dx%d frame, %d mask values", ErrShapeMismatch, frame.Width, frame.Height, len(mask))
	}
	if len(frame.Pix) != n*capture.BytesPerPixel {
		return Cutouts{}, fmt.Errorf("%w: %dx%d frame, %d pixel bytes", ErrShapeMismatch, frame.Width, frame.Height, len(frame.Pix))
	}

	out := Cutouts{
		Width:      frame.Width,
		Height:     frame.Height,
		Foreground: make([]byte, len(frame.Pix)),
	}
	if policy.Mode != ModeSingle {
		out.Background = make([]byte, len(frame.Pix))
	}

	for i, v := range mask {
		off := i * capture.BytesPerPixel
		px := frame.Pix[off : off+capture.BytesPerPixel]

		if policy.IsBackground(v) {
			if out.Background != nil {
				copy(out.Background[off:off+capture.BytesPerPixel], px)
			}
			continue
		}
		copy(out.Foreground[off:off+capture.BytesPerPixel], px)
	}

	return out, nil
}

// Coverage returns the fraction of pixels classified as foreground.
func Coverage(mask Mask, policy Policy) float64 {
	if len(mask) == 0 {
		return 0
	}
	fg := 0
	for _, v := range mask {
		if !policy.IsBackground(v) {
			fg++
		}
	}
	return float64(fg) / float64(len(mask))
}
