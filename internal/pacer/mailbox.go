package pacer

import "sync"

// Mailbox is a single-slot buffer. Put overwrites an unread value, so a
// reader always sees the most recent result.
type Mailbox[T any] struct {
	mu         sync.Mutex
	value      T
	full       bool
	closed     bool
	overwrites uint64
}

// NewMailbox returns an empty mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{}
}

// Put stores v, replacing any unread value. It reports false once the
// mailbox is closed.
func (m *Mailbox[T]) Put(v T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	if m.full {
		m.overwrites++
	}
	m.value = v
	m.full = true
	return true
}

// Take removes and returns the stored value without blocking.
func (m *Mailbox[T]) Take() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	if !m.full {
		return zero, false
	}
	v := m.value
	m.value = zero
	m.full = false
	return v, true
}

// Close discards any unread value and rejects further puts. It reports
// whether a value was discarded.
func (m *Mailbox[T]) Close() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	discarded := m.full
	m.value = zero
	m.full = false
	m.closed = true
	return discarded
}

// Overwrites returns how many unread values were replaced.
func (m *Mailbox[T]) Overwrites() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overwrites
}
