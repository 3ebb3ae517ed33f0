package app

import (
	"fmt"

	"github.com/ayusman/mudra/internal/composite"
)

// Pipeline defaults.
const (
	DefaultRefreshRate = 60
	DefaultDecimation  = 1
)

// Options selects the pipeline variant. Every combination of mode, gesture
// recognition, decimation and decorative motion runs through the same
// session.
type Options struct {
	Mode        composite.Mode   `json:"mode"`
	Policy      composite.Policy `json:"-"`
	Gestures    bool             `json:"gestures"`
	Decimation  int              `json:"decimation"`   // dispatch every k-th tick
	Decor       int              `json:"decor"`        // particle count, 0 disables
	RefreshRate int              `json:"refresh_rate"` // ticks per second
}

// DefaultOptions returns dual-mode compositing with gestures, no decimation
// and no decorative motion.
func DefaultOptions() Options {
	return Options{
		Mode:        composite.ModeDual,
		Policy:      composite.DefaultPolicy(),
		Gestures:    true,
		Decimation:  DefaultDecimation,
		RefreshRate: DefaultRefreshRate,
	}
}

// Validate checks that the options describe a runnable pipeline.
func (o Options) Validate() error {
	if o.Decimation < 1 {
		return fmt.Errorf("decimation must be at least 1, got %d", o.Decimation)
	}
	if o.RefreshRate <= 0 {
		return fmt.Errorf("refresh rate must be positive, got %d", o.RefreshRate)
	}
	if o.Decor < 0 {
		return fmt.Errorf("decor count must not be negative, got %d", o.Decor)
	}
	return o.compositePolicy().Validate()
}

// compositePolicy returns the policy with the session's mode applied.
func (o Options) compositePolicy() composite.Policy {
	p := o.Policy
	p.Mode = o.Mode
	return p
}
