package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	xdraw "golang.org/x/image/draw"
)

// Standard processing resolution. Every frame is normalized to this size
// before it is handed to a detection backend.
const (
	StandardWidth  = 640
	StandardHeight = 480
)

// Frame is a single captured video frame as JPEG bytes.
// A frame is owned by exactly one pipeline stage at a time and is never
// mutated in place: annotation produces a new derived frame.
type Frame struct {
	Data      []byte    // JPEG frame data
	Seq       uint64    // Frame sequence number
	Timestamp time.Time // Capture timestamp
	Width     int       // Frame width in pixels
	Height    int       // Frame height in pixels
}

// Normalize returns a frame scaled to the standard 640x480 resolution.
// Frames already at the standard size are returned unchanged.
func Normalize(f *Frame) (*Frame, error) {
	if f == nil {
		return nil, fmt.Errorf("nil frame")
	}
	if f.Width == StandardWidth && f.Height == StandardHeight {
		return f, nil
	}

	img, err := jpeg.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame %d: %w", f.Seq, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() == StandardWidth && bounds.Dy() == StandardHeight {
		// Size metadata was stale, data is already standard
		return &Frame{
			Data:      f.Data,
			Seq:       f.Seq,
			Timestamp: f.Timestamp,
			Width:     StandardWidth,
			Height:    StandardHeight,
		}, nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, StandardWidth, StandardHeight))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode normalized frame %d: %w", f.Seq, err)
	}

	return &Frame{
		Data:      buf.Bytes(),
		Seq:       f.Seq,
		Timestamp: f.Timestamp,
		Width:     StandardWidth,
		Height:    StandardHeight,
	}, nil
}
