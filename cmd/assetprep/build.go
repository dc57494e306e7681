package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jordanhubbard/assetprep/internal/config"
	"github.com/jordanhubbard/assetprep/internal/jpeg"
	"github.com/jordanhubbard/assetprep/internal/pipeline"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Normalize and embed every asset of a manifest or directory",
	Long: `Run each asset through generate → normalize → embed.

Assets come from a manifest (--manifest, or $` + config.EnvManifest + `) or,
with --src, from every file in a directory. A failing asset is reported
and the rest still run; the exit status is 1 if any asset failed.`,
	RunE: runBuild,
}

var buildProfile *jpeg.Profile

func init() {
	fs := buildCmd.Flags()
	fs.StringP("manifest", "m", "", "Manifest file (.yaml, .yml, .json, .jsonc)")
	fs.String("src", "", "Embed every file in this directory instead of reading a manifest")
	fs.String("dst", "", "Output directory (default: --src)")
	fs.String("prefix", "", "Variable name prefix for --src mode")
	fs.String("header", "", "Also write an aggregate extern header with this name")
	fs.Int("workers", 0, "Parallel workers (0 = one per CPU)")
	fs.Int("row-width", 0, "Byte literals per row (0 = 16)")
	fs.Bool("stamp", false, "Skip assets unchanged since the last successful build")
	fs.Bool("in-place", false, "Overwrite source images with their normalized form")
	profile, p := profileFlags(jpeg.DefaultProfile)
	fs.AddFlagSet(profile)
	buildProfile = p
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	srcDir, _ := cmd.Flags().GetString("src")

	var batch *pipeline.Batch
	if srcDir != "" {
		dstDir, _ := cmd.Flags().GetString("dst")
		prefix, _ := cmd.Flags().GetString("prefix")
		if dstDir == "" {
			dstDir = srcDir
		}
		entries, err := pipeline.Discover(srcDir, prefix)
		if err != nil {
			return err
		}
		batch = &pipeline.Batch{
			Entries:   entries,
			SourceDir: srcDir,
			OutputDir: dstDir,
			Profile:   *buildProfile,
		}
	} else {
		manifestPath, _ := cmd.Flags().GetString("manifest")
		m, err := config.Load(manifestPath)
		if err != nil {
			return err
		}
		applyChanged(cmd.Flags(), *buildProfile, &m.Profile)
		if err := m.Profile.Validate(); err != nil {
			return err
		}
		if batch, err = m.Batch(); err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("dst") && srcDir == "" {
		batch.OutputDir, _ = cmd.Flags().GetString("dst")
	}
	if cmd.Flags().Changed("header") {
		batch.Header, _ = cmd.Flags().GetString("header")
	}
	if cmd.Flags().Changed("workers") {
		batch.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("row-width") {
		batch.RowWidth, _ = cmd.Flags().GetInt("row-width")
	}
	if cmd.Flags().Changed("stamp") {
		batch.Stamp, _ = cmd.Flags().GetBool("stamp")
	}
	if cmd.Flags().Changed("in-place") {
		batch.InPlace, _ = cmd.Flags().GetBool("in-place")
	}

	report := batch.Run(logger)

	for _, r := range report.Results {
		switch {
		case r.Err != nil:
			fmt.Printf("%-9s %-32s %v\n", r.Status, r.Entry.Name, r.Err)
		case r.Image != nil:
			fmt.Printf("%-9s %-32s %s (%d bytes, %dx%d)\n", r.Status, r.Entry.Name, r.Output, r.Decl.Len, r.Image.Width, r.Image.Height)
		default:
			fmt.Printf("%-9s %-32s %s (%d bytes)\n", r.Status, r.Entry.Name, r.Output, r.Decl.Len)
		}
	}
	if report.Header != "" {
		fmt.Printf("Header: %s\n", report.Header)
	}
	fmt.Printf("%d built, %d unchanged, %d failed\n", report.Succeeded, report.Unchanged, report.Failed)

	return report.Err()
}
