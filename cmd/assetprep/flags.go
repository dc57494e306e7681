package main

import (
	"github.com/spf13/pflag"

	"github.com/jordanhubbard/assetprep/internal/jpeg"
)

// profileFlags returns a flag set bound to a copy of defaults. The
// fixed constraints (metadata stripped, baseline only) have no flags.
func profileFlags(defaults jpeg.Profile) (*pflag.FlagSet, *jpeg.Profile) {
	p := defaults
	fs := pflag.NewFlagSet("profile", pflag.ContinueOnError)
	fs.IntVarP(&p.Quality, "quality", "q", defaults.Quality, "JPEG quality (1-100)")
	fs.Var(&p.Chroma, "chroma", "Chroma subsampling: 4:4:4 or 4:2:0")
	fs.IntVar(&p.MaxWidth, "max-width", defaults.MaxWidth, "Downscale to at most this width (0 = unbounded)")
	fs.IntVar(&p.MaxHeight, "max-height", defaults.MaxHeight, "Downscale to at most this height (0 = unbounded)")
	return fs, &p
}

// applyChanged copies the profile flags the user set explicitly onto dst.
func applyChanged(fs *pflag.FlagSet, src jpeg.Profile, dst *jpeg.Profile) {
	if fs.Changed("quality") {
		dst.Quality = src.Quality
	}
	if fs.Changed("chroma") {
		dst.Chroma = src.Chroma
	}
	if fs.Changed("max-width") {
		dst.MaxWidth = src.MaxWidth
	}
	if fs.Changed("max-height") {
		dst.MaxHeight = src.MaxHeight
	}
}
