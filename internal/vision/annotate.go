package vision

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Label colors used for frame annotations
var (
	ColorInfo  = color.RGBA{255, 255, 0, 255} // Yellow - informational banners
	ColorAlarm = color.RGBA{255, 0, 0, 255}   // Red - drowsiness
	ColorWarn  = color.RGBA{255, 165, 0, 255} // Orange - yawning
	ColorOK    = color.RGBA{0, 255, 0, 255}   // Green - nominal
)

// Annotation is a single text label to draw onto a frame
type Annotation struct {
	Text  string
	X, Y  int
	Color color.RGBA
}

// Annotate draws labels onto a copy of the frame and returns the derived frame.
// The input frame is never modified. If the frame cannot be decoded the
// original frame is returned so downstream consumers always get something.
func Annotate(f *Frame, labels []Annotation) *Frame {
	if f == nil || len(labels) == 0 {
		return f
	}

	img, err := jpeg.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return f
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	for _, l := range labels {
		drawLabel(rgba, l.X, l.Y, l.Text, l.Color)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgba, &jpeg.Options{Quality: 85}); err != nil {
		return f
	}

	return &Frame{
		Data:      buf.Bytes(),
		Seq:       f.Seq,
		Timestamp: f.Timestamp,
		Width:     f.Width,
		Height:    f.Height,
	}
}

// DrawBox draws a rectangle outline on the image
func DrawBox(img *image.RGBA, x, y, w, h int, c color.RGBA, thickness int) {
	bounds := img.Bounds()

	for t := 0; t < thickness; t++ {
		// Top edge
		for i := x; i < x+w && i < bounds.Max.X; i++ {
			if y+t >= 0 && y+t < bounds.Max.Y && i >= 0 {
				img.Set(i, y+t, c)
			}
		}
		// Bottom edge
		for i := x; i < x+w && i < bounds.Max.X; i++ {
			if y+h-t >= 0 && y+h-t < bounds.Max.Y && i >= 0 {
				img.Set(i, y+h-t, c)
			}
		}
		// Left edge
		for j := y; j < y+h && j < bounds.Max.Y; j++ {
			if x+t >= 0 && x+t < bounds.Max.X && j >= 0 {
				img.Set(x+t, j, c)
			}
		}
		// Right edge
		for j := y; j < y+h && j < bounds.Max.Y; j++ {
			if x+w-t >= 0 && x+w-t < bounds.Max.X && j >= 0 {
				img.Set(x+w-t, j, c)
			}
		}
	}
}

// drawLabel draws text with a dark background rectangle
func drawLabel(img *image.RGBA, x, y int, label string, c color.RGBA) {
	if y < 10 {
		y = 10
	}
	if x < 0 {
		x = 0
	}

	bgColor := color.RGBA{0, 0, 0, 180}
	textWidth := len(label) * 7
	for dy := -2; dy < 12; dy++ {
		for dx := -2; dx < textWidth+2; dx++ {
			px, py := x+dx, y+dy
			if px >= 0 && px < img.Bounds().Max.X && py >= 0 && py < img.Bounds().Max.Y {
				img.Set(px, py, bgColor)
			}
		}
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y + 10)},
	}
	d.DrawString(label)
}

// Placeholder creates a black diagnostic frame with caption lines, used when a
// backend has no usable input or must report a failure visually.
func Placeholder(seq uint64, lines ...string) *Frame {
	img := image.NewRGBA(image.Rect(0, 0, StandardWidth, StandardHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{0, 0, 0, 255}), image.Point{}, draw.Src)

	y := StandardHeight/2 - len(lines)*15
	for _, line := range lines {
		x := (StandardWidth - len(line)*7) / 2
		drawLabel(img, x, y, line, ColorInfo)
		y += 30
	}

	var buf bytes.Buffer
	// Encoding an in-memory RGBA cannot realistically fail; fall back to empty data
	_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85})

	return &Frame{
		Data:   buf.Bytes(),
		Seq:    seq,
		Width:  StandardWidth,
		Height: StandardHeight,
	}
}
