package gesture

import (
	"context"
	"fmt"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
)

// Engine recognises gestures in a frame.
type Engine interface {
	// Infer returns one candidate list per detected hand.
	Infer(ctx context.Context, frame capture.Frame, timestampMicros int64) (Observation, error)

	// Close releases the engine. The session calls it exactly once.
	Close() error
}

// LandmarkEngine detects hand landmarks and ranks each hand against the
// matcher's templates.
type LandmarkEngine struct {
	detector detector.Detector
	matcher  *StaticMatcher
}

// NewLandmarkEngine combines a detector with a matcher. The engine owns the
// detector and closes it on Close.
func NewLandmarkEngine(d detector.Detector, m *StaticMatcher) *LandmarkEngine {
	if m == nil {
		m = NewStaticMatcher()
	}
	return &LandmarkEngine{detector: d, matcher: m}
}

// Matcher returns the template matcher, for reloading templates.
func (e *LandmarkEngine) Matcher() *StaticMatcher {
	return e.matcher
}

// Infer runs landmark detection on frame and ranks every hand. A hand that
// matches no template gets an empty candidate list.
func (e *LandmarkEngine) Infer(ctx context.Context, frame capture.Frame, timestampMicros int64) (Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := frame.Mat()
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	hands, err := e.detector.Detect(&mat)
	if err != nil {
		return nil, fmt.Errorf("detect hands at %dus: %w", timestampMicros, err)
	}

	obs := make(Observation, len(hands))
	for i, hand := range hands {
		matches := e.matcher.Match(hand)
		candidates := make([]Candidate, len(matches))
		for j, m := range matches {
			candidates[j] = Candidate{Label: m.Template.Name, Confidence: m.Score}
		}
		obs[i] = candidates
	}

	return obs, nil
}

// Close releases the detector.
func (e *LandmarkEngine) Close() error {
	return e.detector.Close()
}
