// Package synth generates test images from declarative patterns when
// no source image exists.
package synth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jordanhubbard/assetprep/internal/ir"
)

// ErrInvalidDimensions is returned for non-positive image or tile sizes.
var ErrInvalidDimensions = ir.ErrInvalidDimensions

// ErrInvalidPattern is returned for patterns that cannot assign a color
// to every pixel.
var ErrInvalidPattern = errors.New("invalid pattern")

// DefaultTileSize is the tile edge used when a Tiles pattern leaves
// Size unset.
const DefaultTileSize = 40

// Pattern assigns a color to every pixel of a width x height plane.
type Pattern interface {
	Validate() error
	ColorAt(x, y, width, height int) ir.RGB
}

// Generate renders p into a new pixel buffer. Rendering is a pure
// function of its arguments.
func Generate(width, height int, p Pattern) (*ir.PixelBuffer, error) {
	buf, err := ir.NewPixelBuffer(width, height)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			buf.SetRGB(x, y, p.ColorAt(x, y, width, height))
		}
	}
	return buf, nil
}

// Direction is the axis a gradient runs along.
type Direction int

const (
	Horizontal Direction = iota
	Vertical
)

func (d Direction) String() string {
	if d == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// ParseDirection accepts "horizontal" and "vertical".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "horizontal", "h", "":
		return Horizontal, nil
	case "vertical", "v":
		return Vertical, nil
	default:
		return 0, fmt.Errorf("%w: unknown direction %q", ErrInvalidPattern, s)
	}
}

// Gradient interpolates linearly from From to To along one axis. The
// ratio for pixel (x, y) is x/width (or y/height), so the last column
// stops one step short of To.
type Gradient struct {
	From, To  ir.RGB
	Direction Direction
}

func (g Gradient) Validate() error { return nil }

func (g Gradient) ColorAt(x, y, width, height int) ir.RGB {
	ratio := float64(x) / float64(width)
	if g.Direction == Vertical {
		ratio = float64(y) / float64(height)
	}
	return ir.RGB{
		R: lerp(g.From.R, g.To.R, ratio),
		G: lerp(g.From.G, g.To.G, ratio),
		B: lerp(g.From.B, g.To.B, ratio),
	}
}

// lerp truncates toward zero, then clamps to a channel value.
func lerp(c1, c2 uint8, ratio float64) uint8 {
	v := int(float64(c1) + (float64(c2)-float64(c1))*ratio)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Tiles partitions the plane into Size x Size squares; tile (tx, ty)
// takes Colors[(tx+ty) mod len(Colors)].
type Tiles struct {
	Size   int
	Colors []ir.RGB
}

func (t Tiles) Validate() error {
	if t.Size <= 0 {
		return fmt.Errorf("%w: tile size %d", ErrInvalidDimensions, t.Size)
	}
	if len(t.Colors) == 0 {
		return fmt.Errorf("%w: tiled pattern has no colors", ErrInvalidPattern)
	}
	return nil
}

func (t Tiles) ColorAt(x, y, width, height int) ir.RGB {
	return t.Colors[(x/t.Size+y/t.Size)%len(t.Colors)]
}
