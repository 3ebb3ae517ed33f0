package segment

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/composite"
)

// Default network input settings, matching DeepLab v3 exports.
const (
	DefaultInputSize = 513
	DefaultScale     = 1.0 / 127.5
	DefaultMean      = 127.5
)

// ErrModelNotFound is returned when the model file does not exist.
var ErrModelNotFound = errors.New("segmentation model not found")

// Config describes a DNN segmentation model.
type Config struct {
	ModelPath  string
	ConfigPath string // optional, for frameworks that split graph and weights
	Delegate   Delegate
	InputSize  int
	Scale      float64
	Mean       float64
}

func (c Config) withDefaults() Config {
	if c.InputSize <= 0 {
		c.InputSize = DefaultInputSize
	}
	if c.Scale == 0 {
		c.Scale = DefaultScale
	}
	if c.Mean == 0 {
		c.Mean = DefaultMean
	}
	if c.Delegate == "" {
		c.Delegate = DelegateCPU
	}
	return c
}

// DNNEngine runs a segmentation network through OpenCV's dnn module.
// Multi-channel outputs are reduced with argmax to category ids;
// single-channel outputs pass through as confidences.
type DNNEngine struct {
	config Config
	net    gocv.Net
	mu     sync.Mutex
	closed bool
}

type openResult struct {
	engine *DNNEngine
	err    error
}

// Open loads the model. Loading runs in the background so a cancelled ctx
// returns promptly; a net that finishes loading after cancellation is closed.
func Open(ctx context.Context, config Config) (*DNNEngine, error) {
	config = config.withDefaults()

	if _, err := os.Stat(config.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, config.ModelPath)
	}

	ch := make(chan openResult, 1)
	go func() {
		e, err := load(config)
		ch <- openResult{engine: e, err: err}
	}()

	select {
	case r := <-ch:
		return r.engine, r.err
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.engine != nil {
				r.engine.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

func load(config Config) (*DNNEngine, error) {
	net := gocv.ReadNet(config.ModelPath, config.ConfigPath)
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("read net %s: empty network", config.ModelPath)
	}

	backend, target := gocv.NetBackendDefault, gocv.NetTargetCPU
	if config.Delegate == DelegateGPU {
		backend, target = gocv.NetBackendCUDA, gocv.NetTargetCUDA
	}
	if err := net.SetPreferableBackend(backend); err != nil {
		net.Close()
		return nil, fmt.Errorf("set backend: %w", err)
	}
	if err := net.SetPreferableTarget(target); err != nil {
		net.Close()
		return nil, fmt.Errorf("set target: %w", err)
	}

	return &DNNEngine{config: config, net: net}, nil
}

// Infer segments one frame.
func (e *DNNEngine) Infer(ctx context.Context, frame capture.Frame, timestampMicros int64) (composite.Mask, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, errors.New("segmentation engine closed")
	}

	img, err := frame.Mat()
	if err != nil {
		return nil, err
	}
	defer img.Close()

	size := image.Pt(e.config.InputSize, e.config.InputSize)
	mean := gocv.NewScalar(e.config.Mean, e.config.Mean, e.config.Mean, 0)
	blob := gocv.BlobFromImage(img, e.config.Scale, size, mean, true, false)
	defer blob.Close()

	e.net.SetInput(blob, "")
	out := e.net.Forward("")
	defer out.Close()

	dims := out.Size()
	if len(dims) != 4 || dims[0] != 1 {
		return nil, fmt.Errorf("unexpected output shape %v at %dus", dims, timestampMicros)
	}

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	return reduce(data, dims[1], dims[2], dims[3], frame.Width, frame.Height)
}

// Close releases the network.
func (e *DNNEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	return e.net.Close()
}

// reduce turns a CxHxW network output into a mask of dstW x dstH using
// nearest-neighbour sampling. With more than one channel each pixel gets
// the index of its strongest channel; a single channel is copied as is.
func reduce(data []float32, channels, h, w, dstW, dstH int) (composite.Mask, error) {
	if channels <= 0 || h <= 0 || w <= 0 || len(data) < channels*h*w {
		return nil, fmt.Errorf("output of %d values does not hold %dx%dx%d", len(data), channels, h, w)
	}

	plane := h * w
	mask := make(composite.Mask, dstW*dstH)

	for y := 0; y < dstH; y++ {
		sy := y * h / dstH
		for x := 0; x < dstW; x++ {
			sx := x * w / dstW
			src := sy*w + sx

			if channels == 1 {
				mask[y*dstW+x] = data[src]
				continue
			}

			best, bestVal := 0, data[src]
			for c := 1; c < channels; c++ {
				if v := data[c*plane+src]; v > bestVal {
					best, bestVal = c, v
				}
			}
			mask[y*dstW+x] = float32(best)
		}
	}

	return mask, nil
}
