package composite

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/capture"
)

func alphas(buf []byte) []byte {
	out := make([]byte, 0, len(buf)/4)
	for i := 3; i < len(buf); i += 4 {
		out = append(out, buf[i])
	}
	return out
}

func TestComposite_ZeroIsBackground(t *testing.T) {
	frame := capture.SolidFrame(4, 1, 200, 100, 50, 255)
	mask := Mask{0, 0.1, 0, 0.2}

	got, err := Composite(frame, mask, Policy{Rule: RuleCategory, Background: 0, Mode: ModeDual})
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}

	if fg := alphas(got.Foreground); !bytes.Equal(fg, []byte{0, 255, 0, 255}) {
		t.Errorf("foreground alphas = %v, want [0 255 0 255]", fg)
	}
	if bg := alphas(got.Background); !bytes.Equal(bg, []byte{255, 0, 255, 0}) {
		t.Errorf("background alphas = %v, want [255 0 255 0]", bg)
	}

	// Kept pixels are copied unchanged.
	if !bytes.Equal(got.Foreground[4:8], []byte{200, 100, 50, 255}) {
		t.Errorf("foreground pixel 1 = %v, want [200 100 50 255]", got.Foreground[4:8])
	}
	// Excluded pixels are cleared entirely.
	if !bytes.Equal(got.Foreground[0:4], []byte{0, 0, 0, 0}) {
		t.Errorf("foreground pixel 0 = %v, want cleared", got.Foreground[0:4])
	}
}

func TestComposite_Sizes(t *testing.T) {
	tests := []struct {
		name string
		w, h int
	}{
		{name: "1x1", w: 1, h: 1},
		{name: "4x1", w: 4, h: 1},
		{name: "7x3", w: 7, h: 3},
		{name: "64x48", w: 64, h: 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := capture.SolidFrame(tt.w, tt.h, 1, 2, 3, 255)
			mask := make(Mask, tt.w*tt.h)

			got, err := Composite(frame, mask, DefaultPolicy())
			if err != nil {
				t.Fatalf("Composite() error = %v", err)
			}

			want := tt.w * tt.h * 4
			if len(got.Foreground) != want || len(got.Background) != want {
				t.Errorf("sizes = %d/%d, want %d", len(got.Foreground), len(got.Background), want)
			}
			if got.Width != tt.w || got.Height != tt.h {
				t.Errorf("dims = %dx%d, want %dx%d", got.Width, got.Height, tt.w, tt.h)
			}
		})
	}
}

func TestComposite_ComplementaryPartition(t *testing.T) {
	const w, h = 16, 9
	frame := capture.SolidFrame(w, h, 9, 9, 9, 255)
	mask := make(Mask, w*h)
	for i := range mask {
		mask[i] = float32(i % 4) // categories 0..3
	}

	got, err := Composite(frame, mask, DefaultPolicy())
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}

	fg, bg := alphas(got.Foreground), alphas(got.Background)
	for i := range mask {
		if (fg[i] > 0) == (bg[i] > 0) {
			t.Fatalf("pixel %d: fg alpha %d, bg alpha %d; want exactly one nonzero", i, fg[i], bg[i])
		}
	}
}

func TestComposite_Deterministic(t *testing.T) {
	frame := capture.Frame{Width: 3, Height: 2, Pix: []byte{
		1, 2, 3, 255, 4, 5, 6, 255, 7, 8, 9, 255,
		10, 11, 12, 255, 13, 14, 15, 255, 16, 17, 18, 255,
	}, Timestamp: time.Unix(1, 0)}
	mask := Mask{0, 1, 2, 0, 15, 0}
	policy := DefaultPolicy()

	a, err := Composite(frame, mask, policy)
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}
	b, err := Composite(frame, mask, policy)
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}

	if !bytes.Equal(a.Foreground, b.Foreground) || !bytes.Equal(a.Background, b.Background) {
		t.Error("identical inputs produced different outputs")
	}
	// The source frame is never written.
	if frame.Pix[0] != 1 || frame.Pix[3] != 255 {
		t.Error("Composite modified its input frame")
	}
}

func TestComposite_ShapeMismatch(t *testing.T) {
	frame := capture.SolidFrame(4, 1, 0, 0, 0, 255)

	tests := []struct {
		name  string
		frame capture.Frame
		mask  Mask
	}{
		{name: "short mask", frame: frame, mask: Mask{0, 0, 0}},
		{name: "long mask", frame: frame, mask: Mask{0, 0, 0, 0, 0}},
		{name: "empty mask", frame: frame, mask: nil},
		{name: "truncated pixels", frame: capture.Frame{Width: 4, Height: 1, Pix: make([]byte, 8)}, mask: Mask{0, 0, 0, 0}},
		{name: "zero frame", frame: capture.Frame{}, mask: Mask{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Composite(tt.frame, tt.mask, DefaultPolicy())
			if !errors.Is(err, ErrShapeMismatch) {
				t.Errorf("Composite() error = %v, want ErrShapeMismatch", err)
			}
		})
	}
}

func TestComposite_SingleMode(t *testing.T) {
	frame := capture.SolidFrame(4, 1, 5, 5, 5, 255)
	mask := Mask{0, 1, 1, 0}

	got, err := Composite(frame, mask, Policy{Rule: RuleCategory, Mode: ModeSingle})
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}

	if got.Background != nil {
		t.Error("single mode should not produce a background cutout")
	}
	if fg := alphas(got.Foreground); !bytes.Equal(fg, []byte{0, 255, 255, 0}) {
		t.Errorf("foreground alphas = %v, want [0 255 255 0]", fg)
	}
}

func TestComposite_ThresholdRule(t *testing.T) {
	frame := capture.SolidFrame(4, 1, 5, 5, 5, 255)
	mask := Mask{0.01, 0.052, 0.9, 0.05}

	got, err := Composite(frame, mask, Policy{Rule: RuleThreshold, Threshold: 0.052, Mode: ModeDual})
	if err != nil {
		t.Fatalf("Composite() error = %v", err)
	}

	if fg := alphas(got.Foreground); !bytes.Equal(fg, []byte{0, 255, 255, 0}) {
		t.Errorf("foreground alphas = %v, want [0 255 255 0]", fg)
	}
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{name: "default", policy: DefaultPolicy()},
		{name: "threshold single", policy: Policy{Rule: RuleThreshold, Mode: ModeSingle}},
		{name: "unknown rule", policy: Policy{Rule: "fuzzy", Mode: ModeDual}, wantErr: true},
		{name: "unknown mode", policy: Policy{Rule: RuleCategory, Mode: "triple"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.policy.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCoverage(t *testing.T) {
	if got := Coverage(Mask{0, 1, 0, 2}, DefaultPolicy()); got != 0.5 {
		t.Errorf("Coverage() = %f, want 0.5", got)
	}
	if got := Coverage(nil, DefaultPolicy()); got != 0 {
		t.Errorf("Coverage(nil) = %f, want 0", got)
	}
}
