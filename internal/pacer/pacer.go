// Package pacer schedules background work against a display tick.
//
// Every tick is either dispatched or skipped. Ticks are decimated by a
// factor k (ticks 0, k, 2k, ... are eligible) and at most one job is in
// flight at a time; an eligible tick that finds a job outstanding is
// skipped, never queued. Completed results travel through a single-slot
// mailbox and are applied on the scheduling goroutine at the next tick.
package pacer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Tick identifies one scheduling step.
type Tick struct {
	Seq  uint64
	Time time.Time
}

// Job is the background half of a dispatched tick.
type Job[R any] func() R

// PrepareFunc runs on the scheduling goroutine for an eligible tick. It
// returns false when there is nothing to do, for example when no frame is
// available, and the tick counts as skipped.
type PrepareFunc[R any] func(t Tick) (Job[R], bool)

// ApplyFunc runs on the scheduling goroutine with a completed result and
// the tick that dispatched it.
type ApplyFunc[R any] func(t Tick, result R)

// Stats counts what the pacer did with its ticks.
type Stats struct {
	Ticks              uint64 `json:"ticks"`
	Dispatched         uint64 `json:"dispatched"`
	SkippedDecimated   uint64 `json:"skipped_decimated"`
	SkippedBusy        uint64 `json:"skipped_busy"`
	SkippedUnavailable uint64 `json:"skipped_unavailable"`
	Applied            uint64 `json:"applied"`
	Discarded          uint64 `json:"discarded"`
}

type result[R any] struct {
	tick  Tick
	value R
}

// Pacer owns the decimation counter and the busy flag for one pipeline.
type Pacer[R any] struct {
	decimation uint64
	prepare    PrepareFunc[R]
	apply      ApplyFunc[R]
	box        *Mailbox[result[R]]

	mu      sync.Mutex // serialises Tick against Drain
	seq     uint64
	busy    atomic.Bool
	stopped atomic.Bool
	wg      sync.WaitGroup

	ticks              atomic.Uint64
	dispatched         atomic.Uint64
	skippedDecimated   atomic.Uint64
	skippedBusy        atomic.Uint64
	skippedUnavailable atomic.Uint64
	applied            atomic.Uint64
	discarded          atomic.Uint64
}

// New creates a pacer that dispatches every decimation-th tick. A
// decimation below 1 is treated as 1.
func New[R any](decimation int, prepare PrepareFunc[R], apply ApplyFunc[R]) *Pacer[R] {
	if decimation < 1 {
		decimation = 1
	}
	return &Pacer[R]{
		decimation: uint64(decimation),
		prepare:    prepare,
		apply:      apply,
		box:        NewMailbox[result[R]](),
	}
}

// Tick advances the pacer by one step. It must be called from a single
// goroutine.
func (p *Pacer[R]) Tick(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped.Load() {
		return
	}

	if r, ok := p.box.Take(); ok {
		p.applied.Add(1)
		p.apply(r.tick, r.value)
	}

	t := Tick{Seq: p.seq, Time: now}
	p.seq++
	p.ticks.Add(1)

	if t.Seq%p.decimation != 0 {
		p.skippedDecimated.Add(1)
		return
	}
	if !p.busy.CompareAndSwap(false, true) {
		p.skippedBusy.Add(1)
		return
	}

	job, ok := p.prepare(t)
	if !ok {
		p.busy.Store(false)
		p.skippedUnavailable.Add(1)
		return
	}

	p.dispatched.Add(1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		v := job()
		if p.stopped.Load() || !p.box.Put(result[R]{tick: t, value: v}) {
			p.discarded.Add(1)
		}
		p.busy.Store(false)
	}()
}

// Run calls Tick for every value received from ticks until ctx is done or
// ticks is closed.
func (p *Pacer[R]) Run(ctx context.Context, ticks <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now, ok := <-ticks:
			if !ok {
				return nil
			}
			p.Tick(now)
		}
	}
}

// Drain stops scheduling, waits for the in-flight job to finish and
// discards its result. After Drain returns no job is running and none
// will start. Calling Drain again is a no-op.
func (p *Pacer[R]) Drain() {
	p.mu.Lock()
	p.stopped.Store(true)
	p.mu.Unlock()

	p.wg.Wait()
	if p.box.Close() {
		p.discarded.Add(1)
	}
}

// Busy reports whether a job is outstanding.
func (p *Pacer[R]) Busy() bool {
	return p.busy.Load()
}

// Stopped reports whether Drain has been called.
func (p *Pacer[R]) Stopped() bool {
	return p.stopped.Load()
}

// Stats returns a snapshot of the tick counters.
func (p *Pacer[R]) Stats() Stats {
	return Stats{
		Ticks:              p.ticks.Load(),
		Dispatched:         p.dispatched.Load(),
		SkippedDecimated:   p.skippedDecimated.Load(),
		SkippedBusy:        p.skippedBusy.Load(),
		SkippedUnavailable: p.skippedUnavailable.Load(),
		Applied:            p.applied.Load(),
		Discarded:          p.discarded.Load() + p.box.Overwrites(),
	}
}
