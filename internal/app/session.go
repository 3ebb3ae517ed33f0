// Package app runs the capture, inference and compositing pipeline for one
// session and manages the lifetime of its inference engines.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/decor"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/pacer"
	"github.com/ayusman/mudra/internal/segment"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/texture"
)

var (
	// ErrEngineInit is returned when an inference engine cannot be acquired.
	// The session stays Idle and holds no engine.
	ErrEngineInit = errors.New("engine initialization failed")

	// ErrInference marks a per-tick inference failure. The tick is skipped
	// and the previous textures stay visible.
	ErrInference = errors.New("inference failed")

	// ErrInvalidState is returned when an operation is not allowed in the
	// session's current state.
	ErrInvalidState = errors.New("invalid session state")

	// ErrStopped is reported by Init when Stop ran before acquisition
	// finished.
	ErrStopped = errors.New("session stopped")
)

// State is a session lifecycle state.
type State int

const (
	Idle State = iota
	Ready
	Processing
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Ready:
		return "ready"
	case Processing:
		return "processing"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Config wires a session to its collaborators.
type Config struct {
	Options       Options
	Source        capture.Source
	OpenSegmenter SegmenterOpener
	OpenGestures  GestureOpener // required when Options.Gestures is set

	Bridge *texture.Bridge // created when nil
	Store  *store.Store    // optional run history
	Logger *logrus.Entry   // optional

	// Ticks overrides the refresh-rate ticker.
	Ticks <-chan time.Time
}

// Stats are the session's tick counters.
type Stats struct {
	pacer.Stats
	InferenceFailures uint64 `json:"inference_failures"`
	Publishes         uint64 `json:"publishes"`
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID        string           `json:"id"`
	State     string           `json:"state"`
	Options   Options          `json:"options"`
	Slots     gesture.Slots    `json:"slots"`
	Stats     Stats            `json:"stats"`
	Particles []decor.Particle `json:"particles,omitempty"`
	LastError string           `json:"last_error,omitempty"`
}

// Session owns the engines, the pacer and the current gesture slots. A
// session runs once: Stopped is terminal.
type Session struct {
	id     string
	config Config
	opts   Options
	log    *logrus.Entry
	bridge *texture.Bridge
	decor  *decor.Field

	mu           sync.Mutex
	state        State
	initializing bool
	initCancel   context.CancelFunc
	initDone     chan struct{}
	stopping     bool
	stopDone     chan struct{}
	seg          segment.Engine
	ges          gesture.Engine
	pacer        *pacer.Pacer[tickResult]
	cancel       context.CancelFunc
	loopDone     chan struct{}
	record       *store.SessionRecord

	slotsMu sync.RWMutex
	slots   gesture.Slots
	lastErr string

	failures  atomic.Uint64
	publishes atomic.Uint64
}

// New creates an Idle session.
func New(config Config) (*Session, error) {
	if err := config.Options.Validate(); err != nil {
		return nil, err
	}
	if config.Source == nil {
		return nil, errors.New("frame source is required")
	}
	if config.OpenSegmenter == nil {
		return nil, errors.New("segmentation engine is required")
	}
	if config.Options.Gestures && config.OpenGestures == nil {
		return nil, errors.New("gesture engine is required when gestures are enabled")
	}

	id := uuid.NewString()

	log := config.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("session", id)

	bridge := config.Bridge
	if bridge == nil {
		bridge = texture.NewBridge()
	}

	s := &Session{
		id:     id,
		config: config,
		opts:   config.Options,
		log:    log,
		bridge: bridge,
		state:  Idle,
		slots:  gesture.EmptySlots(),
	}
	if config.Options.Decor > 0 {
		s.decor = decor.NewField(config.Options.Decor, 0, uint64(time.Now().UnixNano()))
	}
	return s, nil
}

// ID returns the session's identifier.
func (s *Session) ID() string {
	return s.id
}

// Bridge returns the texture bridge the session publishes to.
func (s *Session) Bridge() *texture.Bridge {
	return s.bridge
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Init acquires the inference engines in the background. The returned
// channel yields nil once the session is Ready, or the failure. On failure
// every engine already acquired is released before the error is sent.
// Stop cancels the context passed to the openers.
func (s *Session) Init(ctx context.Context) <-chan error {
	ch := make(chan error, 1)

	s.mu.Lock()
	if s.state != Idle || s.initializing {
		state := s.state
		s.mu.Unlock()
		ch <- fmt.Errorf("%w: init while %s", ErrInvalidState, state)
		return ch
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.initializing = true
	s.initCancel = cancel
	s.initDone = done
	s.mu.Unlock()

	s.log.Info("Acquiring inference engines")

	go func() {
		defer close(done)
		defer cancel()

		seg, ges, err := s.acquire(ctx)

		s.mu.Lock()
		s.initializing = false
		if s.state == Stopped {
			s.mu.Unlock()
			s.release(seg, ges)
			s.log.Info("Session stopped during init, engines released")
			ch <- ErrStopped
			return
		}
		if err != nil {
			s.mu.Unlock()
			s.log.WithError(err).Error("Engine initialization failed")
			ch <- err
			return
		}
		s.seg, s.ges = seg, ges
		s.state = Ready
		s.mu.Unlock()

		s.log.Info("Session ready")
		ch <- nil
	}()

	return ch
}

func (s *Session) acquire(ctx context.Context) (segment.Engine, gesture.Engine, error) {
	seg, err := s.config.OpenSegmenter(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: segmentation: %w", ErrEngineInit, err)
	}

	if !s.opts.Gestures {
		return seg, nil, nil
	}

	ges, err := s.config.OpenGestures(ctx)
	if err != nil {
		if cerr := seg.Close(); cerr != nil {
			s.log.WithError(cerr).Warn("Error releasing segmentation engine")
		}
		return nil, nil, fmt.Errorf("%w: gestures: %w", ErrEngineInit, err)
	}
	return seg, ges, nil
}

func (s *Session) release(seg segment.Engine, ges gesture.Engine) error {
	var errs []error
	if seg != nil {
		if err := seg.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close segmentation engine: %w", err))
		}
	}
	if ges != nil {
		if err := ges.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close gesture engine: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Start opens the frame source and begins processing. A permission failure
// leaves the session Ready so Start can be retried. Starting a session that
// is already processing is a no-op.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Processing {
		return nil
	}
	if s.state != Ready {
		return fmt.Errorf("%w: start while %s", ErrInvalidState, s.state)
	}

	if err := s.config.Source.Open(); err != nil {
		s.log.WithError(err).Warn("Frame source unavailable")
		return fmt.Errorf("open frame source: %w", err)
	}

	s.pacer = s.newPacer(s.seg, s.ges)
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.loopDone = make(chan struct{})
	s.state = Processing
	s.beginRecord()

	go s.loop(ctx, s.pacer, s.loopDone)

	s.log.WithFields(logrus.Fields{
		"mode":       s.opts.Mode,
		"gestures":   s.opts.Gestures,
		"decimation": s.opts.Decimation,
	}).Info("Processing started")
	return nil
}

func (s *Session) loop(ctx context.Context, p *pacer.Pacer[tickResult], done chan struct{}) {
	defer close(done)

	ticks := s.config.Ticks
	if ticks == nil {
		ticker := time.NewTicker(time.Second / time.Duration(s.opts.RefreshRate))
		defer ticker.Stop()
		ticks = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case now, ok := <-ticks:
			if !ok {
				return
			}
			p.Tick(now)
			if s.decor != nil {
				s.decor.Step()
			}
		}
	}
}

// Stop ends the session. Ticking stops, any in-flight inference finishes and
// its result is discarded, and only then are the engines released, exactly
// once. Stop on a stopped session is a no-op; concurrent callers wait for
// the first to finish. Stop during Init marks the session Stopped, cancels
// the openers and returns once the Init goroutine has released what it
// acquired.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.stopping {
		done := s.stopDone
		s.mu.Unlock()
		<-done
		return nil
	}
	if s.state == Stopped || s.initializing {
		if s.initializing {
			s.log.Info("Stop requested during init")
			s.initCancel()
		}
		s.state = Stopped
		initDone := s.initDone
		s.mu.Unlock()
		if initDone != nil {
			<-initDone
		}
		return nil
	}

	prev := s.state
	s.state = Stopped

	s.stopping = true
	s.stopDone = make(chan struct{})
	seg, ges := s.seg, s.ges
	cancel, loopDone, p := s.cancel, s.loopDone, s.pacer
	s.mu.Unlock()

	var errs []error
	if prev == Processing {
		cancel()
		<-loopDone
		p.Drain()
	}

	if err := s.release(seg, ges); err != nil {
		errs = append(errs, err)
	}

	if prev == Processing {
		if err := s.config.Source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close frame source: %w", err))
		}
		s.finishRecord()
	}

	s.mu.Lock()
	s.seg, s.ges = nil, nil
	s.stopping = false
	close(s.stopDone)
	s.mu.Unlock()

	s.log.WithField("from", prev).Info("Session stopped")
	return errors.Join(errs...)
}

// Slots returns the current gesture slots.
func (s *Session) Slots() gesture.Slots {
	s.slotsMu.RLock()
	defer s.slotsMu.RUnlock()
	return s.slots
}

// Stats returns the current tick counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	p := s.pacer
	s.mu.Unlock()

	st := Stats{
		InferenceFailures: s.failures.Load(),
		Publishes:         s.publishes.Load(),
	}
	if p != nil {
		st.Stats = p.Stats()
	}
	return st
}

// Snapshot returns the session's state, slots, counters and particles.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:      s.id,
		State:   s.State().String(),
		Options: s.opts,
		Stats:   s.Stats(),
	}

	s.slotsMu.RLock()
	snap.Slots = s.slots
	snap.LastError = s.lastErr
	s.slotsMu.RUnlock()

	if s.decor != nil {
		snap.Particles = s.decor.Positions()
	}
	return snap
}

func (s *Session) beginRecord() {
	if s.config.Store == nil {
		return
	}
	rec := &store.SessionRecord{
		ID:         s.id,
		Mode:       string(s.opts.Mode),
		Gestures:   s.opts.Gestures,
		Decimation: s.opts.Decimation,
	}
	if err := s.config.Store.Sessions().Begin(rec); err != nil {
		s.log.WithError(err).Warn("Failed to record session start")
		return
	}
	s.record = rec
}

func (s *Session) finishRecord() {
	if s.config.Store == nil || s.record == nil {
		return
	}
	st := s.Stats()
	counters := store.SessionCounters{
		Ticks:              st.Ticks,
		Dispatched:         st.Dispatched,
		SkippedBusy:        st.SkippedBusy,
		SkippedUnavailable: st.SkippedUnavailable,
		InferenceFailures:  st.InferenceFailures,
		Publishes:          st.Publishes,
	}
	if err := s.config.Store.Sessions().Finish(s.record.ID, time.Now(), counters); err != nil {
		s.log.WithError(err).Warn("Failed to record session stop")
	}
}
