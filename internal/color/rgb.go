// Package color turns decoded images of any color model into the RGB
// pixel buffers the baseline encoder consumes.
package color

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	imgcolor "image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/jordanhubbard/assetprep/internal/ir"
)

// ErrUnsupportedInputFormat is returned when input cannot be
// interpreted as RGB pixel data.
var ErrUnsupportedInputFormat = errors.New("unsupported input format")

// DecodeRGB decodes an encoded image (JPEG, PNG, GIF, BMP, TIFF or
// WebP) and converts it to RGB. The returned string is the format name
// reported by the decoder.
func DecodeRGB(data []byte) (*ir.PixelBuffer, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedInputFormat, err)
	}
	buf, err := ToRGB(img)
	if err != nil {
		return nil, format, err
	}
	return buf, format, nil
}

// ToRGB converts img to an RGB pixel buffer. Alpha is dropped: the
// non-premultiplied color of each pixel is kept as is, so transparent
// regions keep whatever color they carry. Paletted images must resolve
// every index against their palette.
func ToRGB(img image.Image) (*ir.PixelBuffer, error) {
	b := img.Bounds()
	buf, err := ir.NewPixelBuffer(b.Dx(), b.Dy())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedInputFormat, err)
	}

	switch src := img.(type) {
	case *ir.PixelBuffer:
		copy(buf.Pix, src.Pix)

	case *image.Paletted:
		if len(src.Palette) == 0 {
			return nil, fmt.Errorf("%w: paletted image has no palette", ErrUnsupportedInputFormat)
		}
		lut := make([]ir.RGB, len(src.Palette))
		for i, c := range src.Palette {
			lut[i] = toRGB(c)
		}
		for y := 0; y < buf.Height; y++ {
			row := src.Pix[y*src.Stride:]
			for x := 0; x < buf.Width; x++ {
				idx := int(row[x])
				if idx >= len(lut) {
					return nil, fmt.Errorf("%w: palette index %d at (%d,%d) outside %d-entry palette",
						ErrUnsupportedInputFormat, idx, x, y, len(lut))
				}
				buf.SetRGB(x, y, lut[idx])
			}
		}

	case *image.NRGBA:
		for y := 0; y < buf.Height; y++ {
			row := src.Pix[y*src.Stride:]
			for x := 0; x < buf.Width; x++ {
				p := row[x*4:]
				buf.SetRGB(x, y, ir.RGB{R: p[0], G: p[1], B: p[2]})
			}
		}

	default:
		for y := 0; y < buf.Height; y++ {
			for x := 0; x < buf.Width; x++ {
				buf.SetRGB(x, y, toRGB(img.At(b.Min.X+x, b.Min.Y+y)))
			}
		}
	}
	return buf, nil
}

func toRGB(c imgcolor.Color) ir.RGB {
	n := imgcolor.NRGBAModel.Convert(c).(imgcolor.NRGBA)
	return ir.RGB{R: n.R, G: n.G, B: n.B}
}

// Fit downscales buf to fit inside maxWidth x maxHeight, preserving the
// aspect ratio. A zero bound is unbounded. Buffers that already fit are
// returned unchanged; Fit never upscales.
func Fit(buf *ir.PixelBuffer, maxWidth, maxHeight int) (*ir.PixelBuffer, error) {
	scale := 1.0
	if maxWidth > 0 && buf.Width > maxWidth {
		scale = float64(maxWidth) / float64(buf.Width)
	}
	if maxHeight > 0 && buf.Height > maxHeight {
		if s := float64(maxHeight) / float64(buf.Height); s < scale {
			scale = s
		}
	}
	if scale == 1.0 {
		return buf, nil
	}

	w := max(1, int(float64(buf.Width)*scale))
	h := max(1, int(float64(buf.Height)*scale))
	if maxWidth > 0 {
		w = min(w, maxWidth)
	}
	if maxHeight > 0 {
		h = min(h, maxHeight)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), buf, buf.Bounds(), draw.Src, nil)
	return ToRGB(dst)
}
