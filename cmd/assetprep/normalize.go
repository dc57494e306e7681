package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jordanhubbard/assetprep/internal/jpeg"
	"github.com/jordanhubbard/assetprep/internal/pipeline"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Re-encode an image as a baseline JPEG the kernel decoder accepts",
	RunE:  runNormalize,
}

var normalizeProfile *jpeg.Profile

func init() {
	fs := normalizeCmd.Flags()
	fs.StringP("input", "i", "", "Input image (JPEG, PNG, GIF, BMP, TIFF or WebP)")
	fs.StringP("output", "o", "", "Output JPEG file (default: overwrite input)")
	fs.Bool("lossless", false, "Only strip metadata when that alone makes the input conform")
	profile, p := profileFlags(jpeg.DefaultProfile)
	fs.AddFlagSet(profile)
	normalizeProfile = p
	normalizeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	inputPath, _ := cmd.Flags().GetString("input")
	outputPath, _ := cmd.Flags().GetString("output")
	lossless, _ := cmd.Flags().GetBool("lossless")
	if outputPath == "" {
		outputPath = inputPath
	}

	inputData, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	normalize := pipeline.Normalize
	if lossless {
		normalize = pipeline.NormalizeLossless
	}
	result, err := normalize(inputData, *normalizeProfile)
	if err != nil {
		return fmt.Errorf("normalizing %s: %w", inputPath, err)
	}

	if err := os.WriteFile(outputPath, result.Data, 0644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	action := "Re-encoded"
	if !result.Reencoded {
		action = "Stripped metadata from"
	}
	fmt.Printf("%s %dx%d %s → %dx%d baseline (q%d, %s)\n", action,
		result.SrcWidth, result.SrcHeight, result.Format, result.Width, result.Height,
		normalizeProfile.Quality, normalizeProfile.Chroma)
	fmt.Printf("Input:  %s (%d bytes)\n", inputPath, len(inputData))
	fmt.Printf("Output: %s (%d bytes)\n", outputPath, len(result.Data))
	return nil
}
