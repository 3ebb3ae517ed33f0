package capture

import (
	"sync"
	"time"
)

// MockSource plays back prepared frames for testing.
type MockSource struct {
	frames      []Frame
	index       int
	loop        bool
	openErr     error
	unavailable bool
	reads       int
	mu          sync.Mutex
	running     bool
}

// NewMockSource creates a MockSource over frames. With loop set, playback
// restarts at the first frame instead of reporting ErrUnavailable.
func NewMockSource(frames []Frame, loop bool) *MockSource {
	return &MockSource{
		frames: frames,
		loop:   loop,
	}
}

// SolidFrame builds a width x height frame filled with one RGBA colour.
func SolidFrame(width, height int, r, g, b, a byte) Frame {
	pix := make([]byte, width*height*BytesPerPixel)
	for i := 0; i < len(pix); i += BytesPerPixel {
		pix[i] = r
		pix[i+1] = g
		pix[i+2] = b
		pix[i+3] = a
	}
	return Frame{Width: width, Height: height, Pix: pix, Timestamp: time.Now()}
}

// SetOpenError makes the next Open calls fail with err.
func (s *MockSource) SetOpenError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openErr = err
}

// SetUnavailable makes Next report ErrUnavailable while set.
func (s *MockSource) SetUnavailable(unavailable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = unavailable
}

// SetFrames replaces the frame sequence and rewinds.
func (s *MockSource) SetFrames(frames []Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = frames
	s.index = 0
}

func (s *MockSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return s.openErr
	}
	s.running = true
	s.index = 0
	return nil
}

func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

func (s *MockSource) Next() (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.unavailable || len(s.frames) == 0 {
		return Frame{}, ErrUnavailable
	}

	if s.index >= len(s.frames) {
		if !s.loop {
			return Frame{}, ErrUnavailable
		}
		s.index = 0
	}

	f := s.frames[s.index]
	s.index++
	s.reads++
	f.Timestamp = time.Now()
	return f, nil
}

func (s *MockSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Reads returns how many frames have been delivered.
func (s *MockSource) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}
