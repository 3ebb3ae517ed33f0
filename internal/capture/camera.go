// Package capture provides camera frame sources using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 30
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrUnavailable is returned when no frame can be produced right now.
	// The pacer treats it as a skipped tick.
	ErrUnavailable = errors.New("frame source unavailable")

	// ErrPermissionDenied is returned when the device cannot be opened.
	ErrPermissionDenied = errors.New("camera access denied")
)

// Source supplies frames to the processing pipeline.
type Source interface {
	Open() error
	Close() error
	Next() (Frame, error)
	IsOpen() bool
}

// Camera captures frames from a local video device.
type Camera struct {
	deviceID int
	width    int
	height   int
	fps      int
	capture  *gocv.VideoCapture
	mat      gocv.Mat
	mu       sync.Mutex
	running  bool
}

// NewCamera creates a Camera for the given device. Width, height and fps fall
// back to the package defaults when not positive.
func NewCamera(deviceID, width, height, fps int) *Camera {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Camera{
		deviceID: deviceID,
		width:    width,
		height:   height,
		fps:      fps,
	}
}

// Open opens the device. A device that cannot be opened is reported as
// ErrPermissionDenied so callers can offer a retry.
func (c *Camera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return fmt.Errorf("%w: device %d: %w", ErrPermissionDenied, c.deviceID, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("%w: device %d not opened", ErrPermissionDenied, c.deviceID)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.height))
	capture.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = capture
	c.mat = gocv.NewMat()
	c.running = true

	return nil
}

// Close closes the device and releases the read buffer.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.mat.Close()
	c.capture = nil
	c.running = false

	return err
}

// Next reads one frame and converts it to RGBA.
func (c *Camera) Next() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return Frame{}, ErrUnavailable
	}

	if ok := c.capture.Read(&c.mat); !ok || c.mat.Empty() {
		return Frame{}, fmt.Errorf("%w: read failed on device %d", ErrUnavailable, c.deviceID)
	}

	return FrameFromMat(&c.mat, time.Now())
}

// FPS returns the requested capture rate.
func (c *Camera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

// IsOpen returns true if the camera is currently open.
func (c *Camera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
