package gesture

import (
	"context"
	"sync"

	"github.com/ayusman/mudra/internal/capture"
)

// MockEngine returns scripted observations.
type MockEngine struct {
	mu     sync.Mutex
	obs    Observation
	err    error
	calls  int
	closed int
}

// NewMockEngine creates a MockEngine that reports obs.
func NewMockEngine(obs Observation) *MockEngine {
	return &MockEngine{obs: obs}
}

// SetObservation changes what Infer reports.
func (m *MockEngine) SetObservation(obs Observation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.obs = obs
}

// SetError makes Infer fail with err until cleared.
func (m *MockEngine) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockEngine) Infer(ctx context.Context, frame capture.Frame, timestampMicros int64) (Observation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.obs, nil
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

// Closed returns how many times Close ran.
func (m *MockEngine) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
