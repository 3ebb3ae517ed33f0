package gesture

import (
	"context"
	"errors"
	"testing"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
)

func TestLandmarkEngine_Infer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.ThumbsUpPose(), detector.OpenPalmPose()})

	matcher := NewStaticMatcher()
	matcher.SetTemplates(DefaultTemplates())
	engine := NewLandmarkEngine(det, matcher)

	frame := capture.SolidFrame(32, 24, 0, 0, 0, 255)
	obs, err := engine.Infer(context.Background(), frame, frame.TimestampMicros())
	if err != nil {
		t.Fatalf("Infer() error = %v", err)
	}

	if len(obs) != 2 {
		t.Fatalf("got %d hands, want 2", len(obs))
	}
	if got := Resolve(obs); got.Primary != LabelThumbsUp || got.Secondary != LabelOpenPalm {
		t.Errorf("Resolve() = %+v", got)
	}
	for i, hand := range obs {
		for j := 1; j < len(hand); j++ {
			if hand[j].Confidence > hand[j-1].Confidence {
				t.Errorf("hand %d candidates not in descending confidence", i)
			}
		}
	}
}

func TestLandmarkEngine_DetectError(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	det := detector.NewMockDetector()
	det.SetError(errors.New("service crashed"))
	engine := NewLandmarkEngine(det, nil)

	frame := capture.SolidFrame(8, 8, 0, 0, 0, 255)
	if _, err := engine.Infer(context.Background(), frame, 0); err == nil {
		t.Error("expected error from failing detector")
	}
}

func TestLandmarkEngine_CancelledContext(t *testing.T) {
	det := detector.NewMockDetector()
	engine := NewLandmarkEngine(det, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.Infer(ctx, capture.Frame{}, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("Infer() error = %v, want context.Canceled", err)
	}
	if det.Calls() != 0 {
		t.Errorf("detector called %d times, want 0", det.Calls())
	}
}

func TestLandmarkEngine_CloseReleasesDetector(t *testing.T) {
	det := detector.NewMockDetector()
	engine := NewLandmarkEngine(det, nil)

	if err := engine.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if det.Closed() != 1 {
		t.Errorf("detector closed %d times, want 1", det.Closed())
	}
}

func TestMockEngine(t *testing.T) {
	var _ Engine = (*MockEngine)(nil)
	var _ Engine = (*LandmarkEngine)(nil)

	m := NewMockEngine(Observation{{{Label: "x", Confidence: 1}}})
	obs, err := m.Infer(context.Background(), capture.Frame{}, 0)
	if err != nil || len(obs) != 1 {
		t.Fatalf("Infer() = %v, %v", obs, err)
	}

	m.SetError(errors.New("boom"))
	if _, err := m.Infer(context.Background(), capture.Frame{}, 0); err == nil {
		t.Error("expected scripted error")
	}
	if m.Calls() != 2 {
		t.Errorf("Calls() = %d, want 2", m.Calls())
	}
}
