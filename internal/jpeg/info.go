package jpeg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// ErrNonConformant is wrapped by every *ConformanceError.
var ErrNonConformant = errors.New("stream does not satisfy the conformance profile")

// Component is one frame component from the SOF header.
type Component struct {
	ID uint8
	H  uint8 // horizontal sampling factor
	V  uint8 // vertical sampling factor
	Tq uint8 // quantization table selector
}

// HuffmanTable is one table from a DHT segment.
type HuffmanTable struct {
	Class  uint8 // 0 = DC, 1 = AC
	ID     uint8
	Counts [16]byte
	Values []byte
}

// QuantTable is the header of one table from a DQT segment.
type QuantTable struct {
	Precision uint8 // Pq: 0 = 8-bit, 1 = 16-bit
	ID        uint8 // Tq
}

// Segment locates one marker in the stream.
type Segment struct {
	Marker uint8
	Offset int // offset of the 0xFF byte
	Length int // segment length field, 0 for standalone markers
}

// ImageInfo describes the structure of a JPEG stream.
type ImageInfo struct {
	Width         int
	Height        int
	Precision     int
	FrameMarker   uint8 // SOFn marker byte
	Components    []Component
	Segments      []Segment
	Quant         []QuantTable
	Huffman       []HuffmanTable
	Scans         int
	RestartMarker bool // a DRI segment or RSTn marker was present
	HasEOI        bool
}

// Inspect walks the marker structure of a JPEG stream without decoding
// the entropy-coded data.
func Inspect(data []byte) (*ImageInfo, error) {
	if len(data) < 4 || data[0] != 0xff || data[1] != markerSOI {
		return nil, fmt.Errorf("%w: missing SOI", errMalformed)
	}

	info := &ImageInfo{Segments: []Segment{{Marker: markerSOI}}}
	pos := 2
	for pos < len(data) {
		start := pos
		if data[pos] != 0xff {
			return nil, fmt.Errorf("%w: expected marker at offset %d", errMalformed, pos)
		}
		for pos < len(data) && data[pos] == 0xff {
			pos++
		}
		if pos >= len(data) {
			break
		}
		marker := data[pos]
		pos++

		if marker == markerEOI {
			info.Segments = append(info.Segments, Segment{Marker: marker, Offset: start})
			info.HasEOI = true
			return info, nil
		}
		if isStandalone(marker) {
			if marker >= markerRST0 && marker <= markerRST7 {
				info.RestartMarker = true
			}
			info.Segments = append(info.Segments, Segment{Marker: marker, Offset: start})
			continue
		}

		if pos+2 > len(data) {
			return nil, fmt.Errorf("%w: truncated %s segment", errMalformed, MarkerName(marker))
		}
		length := int(binary.BigEndian.Uint16(data[pos:]))
		if length < 2 || pos+length > len(data) {
			return nil, fmt.Errorf("%w: %s segment length %d overruns stream", errMalformed, MarkerName(marker), length)
		}
		payload := data[pos+2 : pos+length]
		info.Segments = append(info.Segments, Segment{Marker: marker, Offset: start, Length: length})
		pos += length

		switch {
		case isSOF(marker):
			if info.FrameMarker != 0 {
				return nil, fmt.Errorf("%w: second frame header at offset %d", errMalformed, start)
			}
			if err := info.parseSOF(marker, payload); err != nil {
				return nil, err
			}
		case marker == markerDQT:
			if err := info.parseDQT(payload); err != nil {
				return nil, err
			}
		case marker == markerDHT:
			if err := info.parseDHT(payload); err != nil {
				return nil, err
			}
		case marker == markerDRI:
			info.RestartMarker = true
		case marker == markerSOS:
			info.Scans++
			before := pos
			pos = skipEntropyData(data, pos)
			for i := before; i+1 < pos; i++ {
				if data[i] == 0xff && data[i+1] >= markerRST0 && data[i+1] <= markerRST7 {
					info.RestartMarker = true
					break
				}
			}
		}
	}
	return nil, fmt.Errorf("%w: missing EOI", errMalformed)
}

func (info *ImageInfo) parseSOF(marker uint8, p []byte) error {
	if len(p) < 6 {
		return fmt.Errorf("%w: short %s header", errMalformed, MarkerName(marker))
	}
	n := int(p[5])
	if len(p) < 6+3*n {
		return fmt.Errorf("%w: %s header lists %d components in %d bytes", errMalformed, MarkerName(marker), n, len(p))
	}
	info.FrameMarker = marker
	info.Precision = int(p[0])
	info.Height = int(binary.BigEndian.Uint16(p[1:3]))
	info.Width = int(binary.BigEndian.Uint16(p[3:5]))
	for i := 0; i < n; i++ {
		c := p[6+3*i:]
		info.Components = append(info.Components, Component{
			ID: c[0],
			H:  c[1] >> 4,
			V:  c[1] & 0x0f,
			Tq: c[2],
		})
	}
	return nil
}

func (info *ImageInfo) parseDQT(p []byte) error {
	for len(p) > 0 {
		t := QuantTable{Precision: p[0] >> 4, ID: p[0] & 0x0f}
		n := 1 + 64
		if t.Precision != 0 {
			n = 1 + 128
		}
		if len(p) < n {
			return fmt.Errorf("%w: short DQT table", errMalformed)
		}
		info.Quant = append(info.Quant, t)
		p = p[n:]
	}
	return nil
}

func (info *ImageInfo) parseDHT(p []byte) error {
	for len(p) > 0 {
		if len(p) < 17 {
			return fmt.Errorf("%w: short DHT table", errMalformed)
		}
		t := HuffmanTable{Class: p[0] >> 4, ID: p[0] & 0x0f}
		copy(t.Counts[:], p[1:17])
		total := 0
		for _, c := range t.Counts {
			total += int(c)
		}
		if len(p) < 17+total {
			return fmt.Errorf("%w: DHT table declares %d symbols, %d present", errMalformed, total, len(p)-17)
		}
		t.Values = append([]byte(nil), p[17:17+total]...)
		info.Huffman = append(info.Huffman, t)
		p = p[17+total:]
	}
	return nil
}

// Baseline reports whether the frame is SOF0.
func (info *ImageInfo) Baseline() bool { return info.FrameMarker == markerSOF0 }

// Progressive reports whether the frame uses progressive DCT coding.
func (info *ImageInfo) Progressive() bool { return isProgressiveSOF(info.FrameMarker) }

// MetadataSegments returns the APPn and COM segments in stream order.
func (info *ImageInfo) MetadataSegments() []Segment {
	var out []Segment
	for _, s := range info.Segments {
		if isMetadata(s.Marker) {
			out = append(out, s)
		}
	}
	return out
}

// Sampling renders the component sampling factors, e.g. "2x2,1x1,1x1".
func (info *ImageInfo) Sampling() string {
	parts := make([]string, len(info.Components))
	for i, c := range info.Components {
		parts[i] = fmt.Sprintf("%dx%d", c.H, c.V)
	}
	return strings.Join(parts, ",")
}

// Chroma maps the sampling factors of a three-component frame to a
// ChromaMode. ok is false for any other layout (4:2:2, 4:1:1, ...).
func (info *ImageInfo) Chroma() (mode ChromaMode, ok bool) {
	if len(info.Components) != 3 {
		return 0, false
	}
	cb, cr := info.Components[1], info.Components[2]
	if cb.H != 1 || cb.V != 1 || cr.H != 1 || cr.V != 1 {
		return 0, false
	}
	switch y := info.Components[0]; {
	case y.H == 1 && y.V == 1:
		return Chroma444, true
	case y.H == 2 && y.V == 2:
		return Chroma420, true
	}
	return 0, false
}

// ColorSpace names the component layout.
func (info *ImageInfo) ColorSpace() string {
	switch len(info.Components) {
	case 1:
		return "Grayscale"
	case 3:
		return "YCbCr"
	case 4:
		return "CMYK"
	default:
		return fmt.Sprintf("%d components", len(info.Components))
	}
}

// ConformanceError lists every way a stream violates a Profile.
type ConformanceError struct {
	Violations []string
}

func (e *ConformanceError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNonConformant, strings.Join(e.Violations, "; "))
}

func (e *ConformanceError) Unwrap() error { return ErrNonConformant }

// Conform checks an inspected stream against p and returns a
// *ConformanceError listing every violation, or nil.
func Conform(info *ImageInfo, p Profile) error {
	var v []string

	switch {
	case info.FrameMarker == 0:
		v = append(v, "no frame header")
	case info.Progressive():
		v = append(v, fmt.Sprintf("progressive frame %s", MarkerName(info.FrameMarker)))
	case !info.Baseline():
		v = append(v, fmt.Sprintf("frame is %s, want baseline SOF0", MarkerName(info.FrameMarker)))
	}
	if info.FrameMarker != 0 && info.Precision != 8 {
		v = append(v, fmt.Sprintf("sample precision %d, want 8", info.Precision))
	}
	for _, s := range info.MetadataSegments() {
		v = append(v, fmt.Sprintf("metadata segment %s at offset %d", MarkerName(s.Marker), s.Offset))
	}
	if len(info.Components) != 3 {
		v = append(v, fmt.Sprintf("%s, want 3-component YCbCr", info.ColorSpace()))
	} else if mode, ok := info.Chroma(); !ok || mode != p.Chroma {
		v = append(v, fmt.Sprintf("chroma sampling %s, want %s", info.Sampling(), p.Chroma))
	}
	// Baseline allows two tables of each kind, with 8-bit quantizers.
	for _, t := range info.Quant {
		if t.Precision != 0 {
			v = append(v, fmt.Sprintf("16-bit quantization table %d", t.ID))
		}
		if t.ID > 1 {
			v = append(v, fmt.Sprintf("quantization table id %d, baseline allows 0-1", t.ID))
		}
	}
	for _, c := range info.Components {
		if c.Tq > 1 {
			v = append(v, fmt.Sprintf("component %d uses quantization table %d, baseline allows 0-1", c.ID, c.Tq))
		}
	}
	for _, t := range info.Huffman {
		class := "DC"
		if t.Class == 1 {
			class = "AC"
		}
		if t.Class > 1 || t.ID > 1 {
			v = append(v, fmt.Sprintf("%s Huffman table id %d, baseline allows 0-1", class, t.ID))
		}
		if !isStandardTable(t.Class, t.Counts, t.Values) {
			v = append(v, fmt.Sprintf("non-standard %s Huffman table %d", class, t.ID))
		}
	}
	if info.Scans != 1 {
		v = append(v, fmt.Sprintf("%d scans, want a single interleaved scan", info.Scans))
	}
	if p.MaxWidth > 0 && info.Width > p.MaxWidth {
		v = append(v, fmt.Sprintf("width %d exceeds %d", info.Width, p.MaxWidth))
	}
	if p.MaxHeight > 0 && info.Height > p.MaxHeight {
		v = append(v, fmt.Sprintf("height %d exceeds %d", info.Height, p.MaxHeight))
	}
	if !info.HasEOI {
		v = append(v, "missing EOI")
	}

	if len(v) > 0 {
		return &ConformanceError{Violations: v}
	}
	return nil
}

// Check inspects data and conforms it against p in one step.
func Check(data []byte, p Profile) (*ImageInfo, error) {
	info, err := Inspect(data)
	if err != nil {
		return nil, err
	}
	return info, Conform(info, p)
}
