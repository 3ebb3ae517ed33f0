package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/composite"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/pacer"
	"github.com/ayusman/mudra/internal/segment"
)

// tickResult is what one dispatched tick computed off the scheduling
// goroutine. mask and obs always come from the same frame. err fails the
// whole tick; gesErr only leaves the slots as they were.
type tickResult struct {
	frame  capture.Frame
	mask   composite.Mask
	obs    gesture.Observation
	err    error
	gesErr error
}

// newPacer builds the per-tick pipeline around the acquired engines.
//
// Each dispatched tick:
//  1. pulls a frame (an unavailable frame skips the tick)
//  2. runs segmentation and, if enabled, gesture inference on that frame
//     in the background
//  3. on a later tick, composites the cutouts, resolves the slots and
//     publishes to the texture bridge
func (s *Session) newPacer(seg segment.Engine, ges gesture.Engine) *pacer.Pacer[tickResult] {
	prepare := func(t pacer.Tick) (pacer.Job[tickResult], bool) {
		frame, err := s.config.Source.Next()
		if err != nil {
			if errors.Is(err, capture.ErrUnavailable) {
				s.log.WithField("tick", t.Seq).Debug("No frame available")
			} else {
				s.log.WithError(err).WithField("tick", t.Seq).Warn("Frame read failed")
			}
			return nil, false
		}
		return func() tickResult {
			return infer(seg, ges, frame)
		}, true
	}
	return pacer.New(s.opts.Decimation, prepare, s.apply)
}

// infer runs both engines on frame. In-flight calls are not cancelled by
// Stop; their results are discarded by the pacer instead.
func infer(seg segment.Engine, ges gesture.Engine, frame capture.Frame) tickResult {
	ctx := context.Background()
	ts := frame.TimestampMicros()
	r := tickResult{frame: frame}

	var gesErr error
	var wg sync.WaitGroup
	if ges != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.obs, gesErr = ges.Infer(ctx, frame, ts)
		}()
	}

	mask, segErr := seg.Infer(ctx, frame, ts)
	wg.Wait()

	if segErr != nil {
		r.err = fmt.Errorf("%w: segmentation: %w", ErrInference, segErr)
		return r
	}
	r.mask = mask
	if gesErr != nil {
		r.gesErr = fmt.Errorf("%w: gestures: %w", ErrInference, gesErr)
	}
	return r
}

// apply runs on the scheduling goroutine with a completed result.
func (s *Session) apply(t pacer.Tick, r tickResult) {
	if r.err != nil {
		s.fail(t, r.err, "Tick skipped")
		return
	}

	cutouts, err := composite.Composite(r.frame, r.mask, s.opts.compositePolicy())
	if err != nil {
		s.fail(t, fmt.Errorf("%w: %w", ErrInference, err), "Tick skipped")
		return
	}

	// A failed gesture call still publishes the cutouts.
	if r.gesErr != nil {
		s.fail(t, r.gesErr, "Gesture inference failed, slots kept")
	} else if s.opts.Gestures {
		slots := gesture.Resolve(r.obs)
		s.slotsMu.Lock()
		changed := slots != s.slots
		s.slots = slots
		s.slotsMu.Unlock()
		if changed {
			s.log.WithFields(logrus.Fields{
				"primary":   slots.Primary,
				"secondary": slots.Secondary,
			}).Debug("Gesture slots changed")
		}
	}

	u := s.bridge.Publish(cutouts)
	s.publishes.Add(1)
	if u.Resized {
		s.log.WithFields(logrus.Fields{"width": u.Width, "height": u.Height}).Info("Texture size changed")
	}
}

func (s *Session) fail(t pacer.Tick, err error, msg string) {
	n := s.failures.Add(1)

	s.slotsMu.Lock()
	s.lastErr = err.Error()
	s.slotsMu.Unlock()

	entry := s.log.WithError(err).WithField("tick", t.Seq)
	// The first failure and every hundredth after it are logged at warn.
	if n == 1 || n%100 == 0 {
		entry.WithField("failures", n).Warn(msg)
	} else {
		entry.Debug(msg)
	}
}
