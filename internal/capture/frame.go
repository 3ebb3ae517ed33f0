package capture

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"
)

// BytesPerPixel is the stride of one RGBA pixel.
const BytesPerPixel = 4

// Frame is a captured RGBA video frame. A Frame is never modified after it has
// been produced; consumers that need a different buffer allocate their own.
type Frame struct {
	Width     int
	Height    int
	Pix       []byte // RGBA, len = Width*Height*4
	Timestamp time.Time
}

// NewFrame wraps an RGBA pixel buffer, checking that its length matches the
// given dimensions.
func NewFrame(width, height int, pix []byte, ts time.Time) (Frame, error) {
	f := Frame{Width: width, Height: height, Pix: pix, Timestamp: ts}
	if !f.Valid() {
		return Frame{}, fmt.Errorf("invalid frame %dx%d with %d bytes", width, height, len(pix))
	}
	return f, nil
}

// Valid reports whether the pixel buffer length agrees with the dimensions.
func (f Frame) Valid() bool {
	return f.Width > 0 && f.Height > 0 && len(f.Pix) == f.Width*f.Height*BytesPerPixel
}

// Pixels returns the number of pixels in the frame.
func (f Frame) Pixels() int {
	return f.Width * f.Height
}

// TimestampMicros returns the capture time in microseconds, the unit the
// inference engines expect.
func (f Frame) TimestampMicros() int64 {
	return f.Timestamp.UnixMicro()
}

// Mat converts the frame to a 3-channel BGR Mat for OpenCV consumers.
// The caller is responsible for closing the returned Mat.
func (f Frame) Mat() (gocv.Mat, error) {
	if !f.Valid() {
		return gocv.NewMat(), fmt.Errorf("invalid frame %dx%d", f.Width, f.Height)
	}

	rgba, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC4, f.Pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("wrap frame: %w", err)
	}
	defer rgba.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR)
	return bgr, nil
}

// FrameFromMat converts a BGR (or BGRA) Mat into an RGBA Frame.
func FrameFromMat(mat *gocv.Mat, ts time.Time) (Frame, error) {
	if mat == nil || mat.Empty() {
		return Frame{}, fmt.Errorf("empty mat")
	}

	rgba := gocv.NewMat()
	defer rgba.Close()

	switch mat.Channels() {
	case 4:
		gocv.CvtColor(*mat, &rgba, gocv.ColorBGRAToRGBA)
	case 3:
		gocv.CvtColor(*mat, &rgba, gocv.ColorBGRToRGBA)
	case 1:
		gocv.CvtColor(*mat, &rgba, gocv.ColorGrayToBGRA)
	default:
		return Frame{}, fmt.Errorf("unsupported channel count %d", mat.Channels())
	}

	return NewFrame(rgba.Cols(), rgba.Rows(), rgba.ToBytes(), ts)
}
