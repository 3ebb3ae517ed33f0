package app

import (
	"context"
	"sync"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/texture"
)

// Controller runs one session at a time. A stopped session cannot restart,
// so Start after Stop builds a fresh session from the factory. All sessions
// publish to the same bridge.
type Controller struct {
	factory func() (*Session, error)
	bridge  *texture.Bridge

	// startMu serialises Start; mu only guards current.
	startMu sync.Mutex
	mu      sync.Mutex
	current *Session
}

// NewController creates a controller. factory must build sessions that
// publish to bridge.
func NewController(bridge *texture.Bridge, factory func() (*Session, error)) *Controller {
	return &Controller{factory: factory, bridge: bridge}
}

// Start acquires engines and begins processing, creating a new session
// when there is none or the last one stopped. It blocks until the session
// is processing or fails. Concurrent Starts are serialised; Stop, Snapshot
// and Slots stay available while engines load.
func (c *Controller) Start(ctx context.Context) error {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	c.mu.Lock()
	s := c.current
	if s == nil || s.State() == Stopped {
		var err error
		if s, err = c.factory(); err != nil {
			c.mu.Unlock()
			return err
		}
		c.current = s
	}
	c.mu.Unlock()

	if s.State() == Idle {
		select {
		case err := <-s.Init(ctx):
			if err != nil {
				return err
			}
		case <-ctx.Done():
			s.Stop()
			return ctx.Err()
		}
	}
	return s.Start()
}

// Stop stops the current session, if any.
func (c *Controller) Stop() error {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()

	if s == nil {
		return nil
	}
	return s.Stop()
}

// Running reports whether a session is processing.
func (c *Controller) Running() bool {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()
	return s != nil && s.State() == Processing
}

// Snapshot describes the current session, or an idle placeholder.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()

	if s == nil {
		return Snapshot{State: Idle.String(), Slots: gesture.EmptySlots()}
	}
	return s.Snapshot()
}

// Slots returns the current session's gesture slots.
func (c *Controller) Slots() gesture.Slots {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()

	if s == nil {
		return gesture.EmptySlots()
	}
	return s.Slots()
}

// Bridge returns the shared texture bridge.
func (c *Controller) Bridge() *texture.Bridge {
	return c.bridge
}
