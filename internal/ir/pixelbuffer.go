package ir

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// ErrInvalidDimensions is returned when a buffer is requested with a
// non-positive width or height.
var ErrInvalidDimensions = errors.New("invalid dimensions")

// RGB is a single 8-bit-per-channel pixel.
type RGB struct {
	R, G, B uint8
}

// PixelBuffer is the intermediate representation passed between the
// generator or decoder and the baseline JPEG encoder. Pixels are stored
// as interleaved R,G,B bytes (3 bytes per pixel, row-major, no padding).
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []byte // len = Width * Height * 3
}

// NewPixelBuffer allocates a black buffer of the given size.
func NewPixelBuffer(width, height int) (*PixelBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*3),
	}, nil
}

// Validate checks the size invariant.
func (b *PixelBuffer) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, b.Width, b.Height)
	}
	if want := b.Width * b.Height * 3; len(b.Pix) != want {
		return fmt.Errorf("expected %d RGB bytes for %dx%d, got %d", want, b.Width, b.Height, len(b.Pix))
	}
	return nil
}

// RGBAt returns the pixel at (x, y). Coordinates outside the buffer are
// clamped to the nearest edge, which is what block-based encoders want
// for padding partial blocks.
func (b *PixelBuffer) RGBAt(x, y int) RGB {
	x = clamp(x, 0, b.Width-1)
	y = clamp(y, 0, b.Height-1)
	i := (y*b.Width + x) * 3
	return RGB{b.Pix[i], b.Pix[i+1], b.Pix[i+2]}
}

// SetRGB writes the pixel at (x, y).
func (b *PixelBuffer) SetRGB(x, y int, c RGB) {
	i := (y*b.Width + x) * 3
	b.Pix[i] = c.R
	b.Pix[i+1] = c.G
	b.Pix[i+2] = c.B
}

// ColorModel, Bounds and At make a PixelBuffer usable as an image.Image.

func (b *PixelBuffer) ColorModel() color.Model { return color.RGBAModel }

func (b *PixelBuffer) Bounds() image.Rectangle { return image.Rect(0, 0, b.Width, b.Height) }

func (b *PixelBuffer) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return color.RGBA{}
	}
	c := b.RGBAt(x, y)
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
