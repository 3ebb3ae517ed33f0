// Package segment produces per-pixel category masks for frames.
package segment

import (
	"context"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/composite"
)

// Engine segments frames.
type Engine interface {
	// Infer returns a mask with one value per frame pixel.
	Infer(ctx context.Context, frame capture.Frame, timestampMicros int64) (composite.Mask, error)

	// Close releases the engine. The session calls it exactly once.
	Close() error
}

// Delegate selects where inference runs.
type Delegate string

const (
	DelegateCPU Delegate = "cpu"
	DelegateGPU Delegate = "gpu"
)
