package segment

import (
	"context"
	"sync"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/composite"
)

// MockEngine produces masks from a function and can hold calls open so
// tests can observe in-flight behaviour.
type MockEngine struct {
	mu       sync.Mutex
	fn       func(capture.Frame) composite.Mask
	err      error
	gate     chan struct{}
	started  chan struct{}
	calls    int
	inFlight int
	closed   int
}

// NewMockEngine returns an engine whose masks come from fn. A nil fn marks
// every pixel as category 1 (foreground under the default policy).
func NewMockEngine(fn func(capture.Frame) composite.Mask) *MockEngine {
	if fn == nil {
		fn = func(f capture.Frame) composite.Mask {
			m := make(composite.Mask, f.Pixels())
			for i := range m {
				m[i] = 1
			}
			return m
		}
	}
	return &MockEngine{fn: fn, started: make(chan struct{}, 64)}
}

// SetError makes Infer fail with err until cleared.
func (m *MockEngine) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Hold makes subsequent Infer calls block until the returned release
// function is called.
func (m *MockEngine) Hold() (release func()) {
	gate := make(chan struct{})
	m.mu.Lock()
	m.gate = gate
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			if m.gate == gate {
				m.gate = nil
			}
			m.mu.Unlock()
			close(gate)
		})
	}
}

// Started receives one value per Infer call as it begins.
func (m *MockEngine) Started() <-chan struct{} {
	return m.started
}

func (m *MockEngine) Infer(ctx context.Context, frame capture.Frame, timestampMicros int64) (composite.Mask, error) {
	m.mu.Lock()
	m.calls++
	m.inFlight++
	gate, err, fn := m.gate, m.err, m.fn
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	select {
	case m.started <- struct{}{}:
	default:
	}

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return fn(frame), nil
}

func (m *MockEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

// Calls returns how many times Infer ran.
func (m *MockEngine) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// InFlight returns the number of Infer calls currently running.
func (m *MockEngine) InFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight
}

// Closed returns how many times Close ran.
func (m *MockEngine) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
