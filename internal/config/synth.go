package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jordanhubbard/assetprep/internal/ir"
	"github.com/jordanhubbard/assetprep/internal/pipeline"
	"github.com/jordanhubbard/assetprep/internal/synth"
)

// Synth describes a generated image: either a named preset or an
// explicit gradient or tiled pattern.
type Synth struct {
	Preset    string  `yaml:"preset" json:"preset"`
	Kind      string  `yaml:"kind" json:"kind"` // gradient or tiles
	Width     int     `yaml:"width" json:"width"`
	Height    int     `yaml:"height" json:"height"`
	From      Color   `yaml:"from" json:"from"`
	To        Color   `yaml:"to" json:"to"`
	Direction string  `yaml:"direction" json:"direction"`
	TileSize  int     `yaml:"tile_size" json:"tile_size"` // default synth.DefaultTileSize
	Colors    []Color `yaml:"colors" json:"colors"`
}

func (s *Synth) build() (*pipeline.Synth, error) {
	if s.Preset != "" {
		p, err := synth.LookupPreset(s.Preset)
		if err != nil {
			return nil, err
		}
		return &pipeline.Synth{Width: p.Width, Height: p.Height, Pattern: p.Pattern}, nil
	}

	var pattern synth.Pattern
	switch strings.ToLower(s.Kind) {
	case "gradient":
		dir, err := synth.ParseDirection(s.Direction)
		if err != nil {
			return nil, err
		}
		pattern = synth.Gradient{From: ir.RGB(s.From), To: ir.RGB(s.To), Direction: dir}
	case "tiles":
		size := s.TileSize
		if size == 0 {
			size = synth.DefaultTileSize
		}
		colors := make([]ir.RGB, len(s.Colors))
		for i, c := range s.Colors {
			colors[i] = ir.RGB(c)
		}
		pattern = synth.Tiles{Size: size, Colors: colors}
	default:
		return nil, fmt.Errorf("%w: synth kind %q (want gradient or tiles, or a preset)", synth.ErrInvalidPattern, s.Kind)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", synth.ErrInvalidDimensions, s.Width, s.Height)
	}
	if err := pattern.Validate(); err != nil {
		return nil, err
	}
	return &pipeline.Synth{Width: s.Width, Height: s.Height, Pattern: pattern}, nil
}

// Color is an RGB triple written as "#rrggbb" or "r,g,b".
type Color ir.RGB

// ParseColor parses "#rrggbb", "rrggbb" or "r,g,b".
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		if len(parts) != 3 {
			return Color{}, fmt.Errorf("color %q: want three components", s)
		}
		var v [3]uint8
		for i, p := range parts {
			n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
			if err != nil {
				return Color{}, fmt.Errorf("color %q: %w", s, err)
			}
			v[i] = uint8(n)
		}
		return Color{R: v[0], G: v[1], B: v[2]}, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return Color{}, fmt.Errorf("color %q: want #rrggbb or r,g,b", s)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("color %q: %w", s, err)
	}
	return Color{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n)}, nil
}

func (c Color) String() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
