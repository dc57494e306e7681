package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jordanhubbard/assetprep/internal/config"
	"github.com/jordanhubbard/assetprep/internal/ir"
	"github.com/jordanhubbard/assetprep/internal/jpeg"
	"github.com/jordanhubbard/assetprep/internal/pipeline"
	"github.com/jordanhubbard/assetprep/internal/synth"
)

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Generate a gradient or tiled test image as a baseline JPEG",
	Long: `Generate a synthetic image and encode it to the conformance profile.

Either pick a preset (` + strings.Join(synth.PresetNames(), ", ") + `) or describe
a pattern with --kind gradient|tiles. Colors are #rrggbb or r,g,b.`,
	RunE: runSynth,
}

var synthProfile *jpeg.Profile

func init() {
	fs := synthCmd.Flags()
	fs.String("preset", "", "Preset image name")
	fs.Bool("list", false, "List presets and exit")
	fs.String("kind", "gradient", "Pattern: gradient or tiles")
	fs.Int("width", 320, "Image width")
	fs.Int("height", 200, "Image height")
	fs.String("from", "#000000", "Gradient start color")
	fs.String("to", "#ffffff", "Gradient end color")
	fs.String("direction", "horizontal", "Gradient direction: horizontal or vertical")
	fs.Int("tile-size", synth.DefaultTileSize, "Tile edge in pixels")
	fs.StringArray("color", nil, "Tile color; repeat once per color")
	fs.StringP("output", "o", "", "Output JPEG file (default: <preset>.jpg)")

	defaults := jpeg.DefaultProfile
	defaults.Quality = synth.PresetQuality
	defaults.Chroma = synth.PresetChroma
	profile, p := profileFlags(defaults)
	fs.AddFlagSet(profile)
	synthProfile = p
	rootCmd.AddCommand(synthCmd)
}

func runSynth(cmd *cobra.Command, args []string) error {
	if list, _ := cmd.Flags().GetBool("list"); list {
		for _, name := range synth.PresetNames() {
			p := synth.Presets[name]
			fmt.Printf("%-10s %dx%d %T\n", name, p.Width, p.Height, p.Pattern)
		}
		return nil
	}

	presetName, _ := cmd.Flags().GetString("preset")
	outputPath, _ := cmd.Flags().GetString("output")

	var (
		width, height int
		pattern       synth.Pattern
	)
	if presetName != "" {
		preset, err := synth.LookupPreset(presetName)
		if err != nil {
			return err
		}
		width, height, pattern = preset.Width, preset.Height, preset.Pattern
		if outputPath == "" {
			outputPath = presetName + ".jpg"
		}
	} else {
		var err error
		if width, height, pattern, err = patternFromFlags(cmd); err != nil {
			return err
		}
	}
	if outputPath == "" {
		return fmt.Errorf("--output is required without --preset")
	}

	buf, err := synth.Generate(width, height, pattern)
	if err != nil {
		return fmt.Errorf("generating: %w", err)
	}
	result, err := pipeline.NormalizePixels(buf, *synthProfile)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, result.Data, 0644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	fmt.Printf("Created %s (%dx%d, q%d, %s, %d bytes)\n", outputPath,
		result.Width, result.Height, synthProfile.Quality, synthProfile.Chroma, len(result.Data))
	return nil
}

func patternFromFlags(cmd *cobra.Command) (int, int, synth.Pattern, error) {
	kind, _ := cmd.Flags().GetString("kind")
	width, _ := cmd.Flags().GetInt("width")
	height, _ := cmd.Flags().GetInt("height")

	switch kind {
	case "gradient":
		fromStr, _ := cmd.Flags().GetString("from")
		toStr, _ := cmd.Flags().GetString("to")
		dirStr, _ := cmd.Flags().GetString("direction")
		from, err := config.ParseColor(fromStr)
		if err != nil {
			return 0, 0, nil, err
		}
		to, err := config.ParseColor(toStr)
		if err != nil {
			return 0, 0, nil, err
		}
		dir, err := synth.ParseDirection(dirStr)
		if err != nil {
			return 0, 0, nil, err
		}
		return width, height, synth.Gradient{From: ir.RGB(from), To: ir.RGB(to), Direction: dir}, nil

	case "tiles":
		size, _ := cmd.Flags().GetInt("tile-size")
		colorStrs, _ := cmd.Flags().GetStringArray("color")
		colors := make([]ir.RGB, 0, len(colorStrs))
		for _, s := range colorStrs {
			c, err := config.ParseColor(s)
			if err != nil {
				return 0, 0, nil, err
			}
			colors = append(colors, ir.RGB(c))
		}
		return width, height, synth.Tiles{Size: size, Colors: colors}, nil

	default:
		return 0, 0, nil, fmt.Errorf("%w: unknown kind %q (want gradient or tiles)", synth.ErrInvalidPattern, kind)
	}
}
