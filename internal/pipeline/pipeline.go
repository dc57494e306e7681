package pipeline

import (
	"fmt"

	"github.com/jordanhubbard/assetprep/internal/color"
	"github.com/jordanhubbard/assetprep/internal/ir"
	"github.com/jordanhubbard/assetprep/internal/jpeg"
)

// Result holds the output of a normalization run.
type Result struct {
	Data      []byte // encoded baseline JPEG
	Format    string // input format as reported by the decoder; "raw" for pixel buffers
	SrcWidth  int
	SrcHeight int
	Width     int // output dimensions, after any fit-box downscale
	Height    int
	Reencoded bool // false when the input was passed through with only metadata removed
}

// Normalize re-encodes an image of any supported format into a baseline
// JPEG satisfying p: decode → RGB → fit → encode → self-check.
func Normalize(data []byte, p jpeg.Profile) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	// 1. Decode and convert to RGB
	buf, format, err := color.DecodeRGB(data)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	res, err := NormalizePixels(buf, p)
	if err != nil {
		return nil, err
	}
	res.Format = format
	return res, nil
}

// NormalizePixels encodes a decoded pixel buffer to p.
func NormalizePixels(buf *ir.PixelBuffer, p jpeg.Profile) (*Result, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	// 2. Fit into the profile's bounding box
	fitted, err := color.Fit(buf, p.MaxWidth, p.MaxHeight)
	if err != nil {
		return nil, fmt.Errorf("resize: %w", err)
	}

	// 3. Encode baseline JPEG
	encoded, err := jpeg.Encode(fitted, p)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	// 4. Re-inspect the output; a non-conformant stream is never returned
	if _, err := jpeg.Check(encoded, p); err != nil {
		return nil, fmt.Errorf("self-check: %w", err)
	}

	return &Result{
		Data:      encoded,
		Format:    "raw",
		SrcWidth:  buf.Width,
		SrcHeight: buf.Height,
		Width:     fitted.Width,
		Height:    fitted.Height,
		Reencoded: true,
	}, nil
}

// NormalizeLossless returns data with only its metadata segments
// removed when that alone makes it conform to p, avoiding another lossy
// generation. Anything else goes through Normalize.
func NormalizeLossless(data []byte, p jpeg.Profile) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if stripped, err := jpeg.StripMetadata(data); err == nil {
		if info, err := jpeg.Check(stripped, p); err == nil {
			return &Result{
				Data:      stripped,
				Format:    "jpeg",
				SrcWidth:  info.Width,
				SrcHeight: info.Height,
				Width:     info.Width,
				Height:    info.Height,
			}, nil
		}
	}
	return Normalize(data, p)
}
