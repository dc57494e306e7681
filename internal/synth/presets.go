package synth

import (
	"fmt"
	"sort"

	"github.com/jordanhubbard/assetprep/internal/ir"
	"github.com/jordanhubbard/assetprep/internal/jpeg"
)

// Presets are encoded without subsampling at this quality unless the
// caller overrides it.
const (
	PresetQuality = 80
	PresetChroma  = jpeg.Chroma444
)

// Preset is a named, fully specified synthetic image.
type Preset struct {
	Name    string
	Width   int
	Height  int
	Pattern Pattern
}

// Presets are the bootstrap images shipped with the kernel image
// viewer when no photographs are available.
var Presets = map[string]Preset{
	"landscape": {
		Name: "landscape", Width: 320, Height: 200,
		Pattern: Gradient{From: ir.RGB{135, 206, 235}, To: ir.RGB{25, 25, 112}, Direction: Vertical},
	},
	"portrait": {
		Name: "portrait", Width: 200, Height: 320,
		Pattern: Gradient{From: ir.RGB{255, 183, 77}, To: ir.RGB{128, 0, 128}, Direction: Vertical},
	},
	"square": {
		Name: "square", Width: 200, Height: 200,
		Pattern: Tiles{Size: DefaultTileSize, Colors: []ir.RGB{
			{70, 130, 180},
			{255, 165, 0},
			{50, 205, 50},
			{220, 20, 60},
		}},
	},
	"wallpaper": {
		Name: "wallpaper", Width: 400, Height: 300,
		Pattern: Gradient{From: ir.RGB{0, 119, 182}, To: ir.RGB{0, 45, 90}, Direction: Vertical},
	},
}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupPreset returns the named preset.
func LookupPreset(name string) (Preset, error) {
	p, ok := Presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: unknown preset %q (have %v)", ErrInvalidPattern, name, PresetNames())
	}
	return p, nil
}

// Render generates the preset's pixel buffer.
func (p Preset) Render() (*ir.PixelBuffer, error) {
	return Generate(p.Width, p.Height, p.Pattern)
}
