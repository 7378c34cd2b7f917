package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"camguard/internal/model"

	"gocv.io/x/gocv"
)

// ErrEncode is returned when a frame cannot be turned into a JPEG.
var ErrEncode = errors.New("frame encode failed")

var (
	// AuthorizedColor frames recognised faces.
	AuthorizedColor = color.RGBA{0, 255, 0, 0}
	// AlertColor frames intruders.
	AlertColor = color.RGBA{255, 0, 0, 0}
)

// IntruderLabel is drawn above faces that match no authorized person.
const IntruderLabel = "Intruder"

// Annotator draws face boxes onto frames and encodes them as JPEG.
type Annotator struct {
	quality int
}

// NewAnnotator creates an Annotator encoding at the given JPEG quality.
func NewAnnotator(quality int) *Annotator {
	if quality < 1 || quality > 100 {
		quality = 90
	}
	return &Annotator{quality: quality}
}

// Annotate draws a rectangle and a label above it. The label is kept inside
// the frame when the box touches the top edge.
func (a *Annotator) Annotate(frame *gocv.Mat, box model.Box, label string, c color.RGBA) error {
	if frame.Empty() {
		return errors.New("cannot annotate an empty frame")
	}

	if err := gocv.Rectangle(frame, box.Rect(), c, 2); err != nil {
		return fmt.Errorf("failed to draw rectangle: %w", err)
	}

	y := box.Top - 10
	if y < 20 {
		y = box.Top + 20
	}
	pt := image.Pt(box.Left, y)
	if err := gocv.PutText(frame, label, pt, gocv.FontHersheySimplex, 0.8, c, 2); err != nil {
		return fmt.Errorf("failed to draw label: %w", err)
	}
	return nil
}

// Encode returns the JPEG bytes of frame.
func (a *Annotator) Encode(frame gocv.Mat) ([]byte, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("%w: empty frame", ErrEncode)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{int(gocv.IMWriteJpegQuality), a.quality})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	defer buf.Close()

	// Copy bytes before closing the buffer
	src := buf.GetBytes()
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}
