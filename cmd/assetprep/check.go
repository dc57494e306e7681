package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jordanhubbard/assetprep/internal/jpeg"
)

var checkCmd = &cobra.Command{
	Use:   "check [file...]",
	Short: "Inspect JPEG structure and verify it against the conformance profile",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

var checkProfile *jpeg.Profile

func init() {
	profile, p := profileFlags(jpeg.DefaultProfile)
	checkCmd.Flags().AddFlagSet(profile)
	checkProfile = p
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	if err := checkProfile.Validate(); err != nil {
		return err
	}
	failed := 0
	for i, path := range args {
		if i > 0 {
			fmt.Println()
		}
		if !checkFile(path) {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files do not conform", failed, len(args))
	}
	return nil
}

func checkFile(path string) bool {
	fmt.Printf("File:       %s\n", path)
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error:      %v\n", err)
		return false
	}

	info, err := jpeg.Inspect(data)
	if err != nil {
		fmt.Printf("Error:      %v\n", err)
		return false
	}

	fmt.Printf("Dimensions: %d x %d\n", info.Width, info.Height)
	fmt.Printf("Frame:      %s, %d-bit\n", jpeg.MarkerName(info.FrameMarker), info.Precision)
	fmt.Printf("Components: %d (%s, sampling %s)\n", len(info.Components), info.ColorSpace(), info.Sampling())
	fmt.Printf("Scans:      %d\n", info.Scans)
	if info.RestartMarker {
		fmt.Println("Restarts:   yes")
	}
	fmt.Printf("File size:  %d bytes (%.1f KB)\n", len(data), float64(len(data))/1024)

	fmt.Print("Segments:  ")
	for _, s := range info.Segments {
		fmt.Printf(" %s", jpeg.MarkerName(s.Marker))
	}
	fmt.Println()

	err = jpeg.Conform(info, *checkProfile)
	var cerr *jpeg.ConformanceError
	switch {
	case err == nil:
		fmt.Printf("Verdict:    conforms (baseline, %s)\n", checkProfile.Chroma)
		return true
	case errors.As(err, &cerr):
		fmt.Println("Verdict:    does not conform")
		for _, v := range cerr.Violations {
			fmt.Printf("  - %s\n", v)
		}
	default:
		fmt.Printf("Verdict:    %v\n", err)
	}
	return false
}
