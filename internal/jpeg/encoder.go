package jpeg

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"github.com/jordanhubbard/assetprep/internal/ir"
)

// maxDimension is the largest width or height a SOF0 header can carry.
const maxDimension = 65535

// Encode encodes an RGB pixel buffer as a baseline JPEG satisfying p:
// SOF0 frame, one interleaved YCbCr scan, the Annex K Huffman tables,
// IJG-scaled Annex K quantization tables and no APPn or COM segments.
func Encode(buf *ir.PixelBuffer, p Profile) ([]byte, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if buf.Width > maxDimension || buf.Height > maxDimension {
		return nil, fmt.Errorf("%dx%d exceeds the %d pixel baseline limit", buf.Width, buf.Height, maxDimension)
	}

	lum, chrom := GenerateQuantTables(p.Quality)

	e := &encoder{}
	e.buf.Grow(buf.Width * buf.Height / 2)
	e.writeMarker(markerSOI)
	e.writeDQT(&lum, &chrom)
	e.writeSOF0(buf.Width, buf.Height, p.Chroma)
	e.writeDHT()
	e.writeSOS()
	e.writeScan(buf, p.Chroma, &lum, &chrom)
	e.writeMarker(markerEOI)
	return e.buf.Bytes(), nil
}

type encoder struct {
	buf bytes.Buffer
	// bits holds pending bits, MSB-aligned; nBits is how many are valid.
	bits, nBits uint32
}

func (e *encoder) writeMarker(m uint8) {
	e.buf.WriteByte(0xff)
	e.buf.WriteByte(m)
}

// writeSegmentHeader writes a marker and the big-endian length of a
// segment whose payload is n bytes.
func (e *encoder) writeSegmentHeader(m uint8, n int) {
	e.writeMarker(m)
	e.buf.WriteByte(uint8((n + 2) >> 8))
	e.buf.WriteByte(uint8(n + 2))
}

func (e *encoder) writeDQT(lum, chrom *[64]uint16) {
	e.writeSegmentHeader(markerDQT, 2*(1+64))
	for id, table := range []*[64]uint16{lum, chrom} {
		e.buf.WriteByte(uint8(id)) // Pq=0 (8-bit), Tq=id
		for zig := 0; zig < 64; zig++ {
			e.buf.WriteByte(uint8(table[unzig[zig]]))
		}
	}
}

func (e *encoder) writeSOF0(width, height int, mode ChromaMode) {
	h, v := mode.samplingFactors()
	e.writeSegmentHeader(markerSOF0, 6+3*3)
	e.buf.WriteByte(8) // sample precision
	e.buf.WriteByte(uint8(height >> 8))
	e.buf.WriteByte(uint8(height))
	e.buf.WriteByte(uint8(width >> 8))
	e.buf.WriteByte(uint8(width))
	e.buf.WriteByte(3)
	// Component id, sampling factors, quantization table.
	e.buf.Write([]byte{1, uint8(h<<4 | v), 0})
	e.buf.Write([]byte{2, 0x11, 1})
	e.buf.Write([]byte{3, 0x11, 1})
}

func (e *encoder) writeDHT() {
	n := 0
	for _, s := range stdHuffman {
		n += 1 + 16 + len(s.value)
	}
	e.writeSegmentHeader(markerDHT, n)
	classID := [nHuffIndex]uint8{0x00, 0x10, 0x01, 0x11}
	for i, s := range stdHuffman {
		e.buf.WriteByte(classID[i])
		e.buf.Write(s.count[:])
		e.buf.Write(s.value)
	}
}

func (e *encoder) writeSOS() {
	e.writeSegmentHeader(markerSOS, 1+3*2+3)
	e.buf.WriteByte(3)
	e.buf.Write([]byte{1, 0x00})  // Y: DC table 0, AC table 0
	e.buf.Write([]byte{2, 0x11})  // Cb: DC table 1, AC table 1
	e.buf.Write([]byte{3, 0x11})  // Cr
	e.buf.Write([]byte{0, 63, 0}) // Ss, Se, Ah/Al: full spectrum, no approximation
}

// emit writes the low n bits of bits, stuffing a zero byte after every
// 0xFF in the entropy-coded data.
func (e *encoder) emit(bits, n uint32) {
	n += e.nBits
	bits <<= 32 - n
	bits |= e.bits
	for n >= 8 {
		b := uint8(bits >> 24)
		e.buf.WriteByte(b)
		if b == 0xff {
			e.buf.WriteByte(0x00)
		}
		bits <<= 8
		n -= 8
	}
	e.bits, e.nBits = bits, n
}

func (e *encoder) emitHuff(h int, symbol uint8) {
	c := stdLUT[h][symbol]
	e.emit(c.code, c.size)
}

// emitHuffRLE emits a run-length/size symbol followed by the value's
// magnitude bits (T.81 F.1.2).
func (e *encoder) emitHuffRLE(h int, run, value int32) {
	a, b := value, value
	if a < 0 {
		a, b = -value, value-1
	}
	var size uint32
	for a > 0 {
		size++
		a >>= 1
	}
	e.emitHuff(h, uint8(run<<4)|uint8(size))
	if size > 0 {
		e.emit(uint32(b)&(1<<size-1), size)
	}
}

// writeBlock transforms, quantizes and entropy-codes one 8x8 block of
// level-shifted samples, returning the block's DC value.
func (e *encoder) writeBlock(samples *[64]float64, quant *[64]uint16, dcTable, acTable int, prevDC int32) int32 {
	var coef [64]float64
	fdct(samples, &coef)

	var q [64]int32
	for i := range coef {
		v := int32(math.Round(coef[i] / float64(quant[i])))
		if v > 1023 {
			v = 1023
		} else if v < -1023 {
			v = -1023
		}
		q[i] = v
	}

	e.emitHuffRLE(dcTable, 0, q[0]-prevDC)
	run := int32(0)
	for zig := 1; zig < 64; zig++ {
		ac := q[unzig[zig]]
		if ac == 0 {
			run++
			continue
		}
		for run > 15 {
			e.emitHuff(acTable, 0xf0) // ZRL
			run -= 16
		}
		e.emitHuffRLE(acTable, run, ac)
		run = 0
	}
	if run > 0 {
		e.emitHuff(acTable, 0x00) // EOB
	}
	return q[0]
}

// writeScan emits the single interleaved scan. An MCU is 8x8 pixels for
// 4:4:4 and 16x16 for 4:2:0; partial MCUs at the right and bottom edges
// replicate the last column and row.
func (e *encoder) writeScan(buf *ir.PixelBuffer, mode ChromaMode, lum, chrom *[64]uint16) {
	h, v := mode.samplingFactors()
	mcuW, mcuH := 8*h, 8*v

	var (
		prevDC     [3]int32
		yBlock     [64]float64
		cbBlock    [64]float64
		crBlock    [64]float64
		samplesPer = float64(h * v)
	)
	for my := 0; my < buf.Height; my += mcuH {
		for mx := 0; mx < buf.Width; mx += mcuW {
			for by := 0; by < v; by++ {
				for bx := 0; bx < h; bx++ {
					x0, y0 := mx+8*bx, my+8*by
					for i := 0; i < 64; i++ {
						c := buf.RGBAt(x0+i%8, y0+i/8)
						yy, _, _ := color.RGBToYCbCr(c.R, c.G, c.B)
						yBlock[i] = float64(yy) - 128
					}
					prevDC[0] = e.writeBlock(&yBlock, lum, huffLumDC, huffLumAC, prevDC[0])
				}
			}

			for i := 0; i < 64; i++ {
				var cbSum, crSum int
				for sy := 0; sy < v; sy++ {
					for sx := 0; sx < h; sx++ {
						c := buf.RGBAt(mx+(i%8)*h+sx, my+(i/8)*v+sy)
						_, cb, cr := color.RGBToYCbCr(c.R, c.G, c.B)
						cbSum += int(cb)
						crSum += int(cr)
					}
				}
				cbBlock[i] = float64(cbSum)/samplesPer - 128
				crBlock[i] = float64(crSum)/samplesPer - 128
			}
			prevDC[1] = e.writeBlock(&cbBlock, chrom, huffChromDC, huffChromAC, prevDC[1])
			prevDC[2] = e.writeBlock(&crBlock, chrom, huffChromDC, huffChromAC, prevDC[2])
		}
	}
	// Pad the final byte with 1 bits.
	e.emit(0x7f, 7)
}

// dctCos[u][x] = C(u)/2 * cos((2x+1)uπ/16), with C(0) = 1/√2.
var dctCos [8][8]float64

func init() {
	for u := 0; u < 8; u++ {
		cu := 1.0
		if u == 0 {
			cu = 1 / math.Sqrt2
		}
		for x := 0; x < 8; x++ {
			dctCos[u][x] = cu / 2 * math.Cos(float64(2*x+1)*float64(u)*math.Pi/16)
		}
	}
}

// fdct computes the separable 2-D forward DCT of an 8x8 block in
// natural order.
func fdct(in *[64]float64, out *[64]float64) {
	var tmp [64]float64
	for y := 0; y < 8; y++ {
		for u := 0; u < 8; u++ {
			var s float64
			for x := 0; x < 8; x++ {
				s += dctCos[u][x] * in[y*8+x]
			}
			tmp[y*8+u] = s
		}
	}
	for u := 0; u < 8; u++ {
		for v := 0; v < 8; v++ {
			var s float64
			for y := 0; y < 8; y++ {
				s += dctCos[v][y] * tmp[y*8+u]
			}
			out[v*8+u] = s
		}
	}
}
