package jpeg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Marker bytes (the second byte of each 0xFF-prefixed marker).
const (
	markerSOF0 = 0xc0 // baseline DCT
	markerSOF1 = 0xc1 // extended sequential DCT
	markerSOF2 = 0xc2 // progressive DCT
	markerDHT  = 0xc4
	markerJPG  = 0xc8
	markerDAC  = 0xcc
	markerRST0 = 0xd0
	markerRST7 = 0xd7
	markerSOI  = 0xd8
	markerEOI  = 0xd9
	markerSOS  = 0xda
	markerDQT  = 0xdb
	markerDRI  = 0xdd
	markerAPP0 = 0xe0
	markerAPP1 = 0xe1 // EXIF, XMP
	markerAPP2 = 0xe2 // ICC_PROFILE
	markerAPPF = 0xef
	markerCOM  = 0xfe
	markerTEM  = 0x01
)

var errMalformed = errors.New("malformed JPEG stream")

func isSOF(m uint8) bool {
	return m >= 0xc0 && m <= 0xcf && m != markerDHT && m != markerJPG && m != markerDAC
}

func isProgressiveSOF(m uint8) bool {
	return m == 0xc2 || m == 0xc6 || m == 0xca || m == 0xce
}

// isMetadata reports whether a marker opens a segment that carries
// application data or comments rather than image data.
func isMetadata(m uint8) bool {
	return (m >= markerAPP0 && m <= markerAPPF) || m == markerCOM
}

func isStandalone(m uint8) bool {
	return (m >= markerRST0 && m <= markerRST7) || m == markerTEM || m == markerSOI || m == markerEOI
}

// MarkerName returns a short mnemonic for a marker byte.
func MarkerName(m uint8) string {
	switch {
	case m == markerSOF0:
		return "SOF0"
	case isSOF(m):
		return fmt.Sprintf("SOF%d", m-0xc0)
	case m == markerDHT:
		return "DHT"
	case m == markerDAC:
		return "DAC"
	case m >= markerRST0 && m <= markerRST7:
		return fmt.Sprintf("RST%d", m-markerRST0)
	case m == markerSOI:
		return "SOI"
	case m == markerEOI:
		return "EOI"
	case m == markerSOS:
		return "SOS"
	case m == markerDQT:
		return "DQT"
	case m == markerDRI:
		return "DRI"
	case m >= markerAPP0 && m <= markerAPPF:
		return fmt.Sprintf("APP%d", m-markerAPP0)
	case m == markerCOM:
		return "COM"
	default:
		return fmt.Sprintf("0x%02X", m)
	}
}

// skipEntropyData returns the offset of the first marker following the
// entropy-coded data that starts at pos. Stuffed bytes (FF 00) and
// restart markers belong to the entropy-coded data.
func skipEntropyData(data []byte, pos int) int {
	for pos+1 < len(data) {
		if data[pos] != 0xff {
			pos++
			continue
		}
		next := data[pos+1]
		switch {
		case next == 0x00, next >= markerRST0 && next <= markerRST7:
			pos += 2
		case next == 0xff:
			pos++
		default:
			return pos
		}
	}
	return len(data)
}

// StripMetadata removes every APPn and COM segment from a JPEG stream
// without touching the entropy-coded data. Everything else is copied
// byte for byte.
func StripMetadata(data []byte) ([]byte, error) {
	if len(data) < 4 || data[0] != 0xff || data[1] != markerSOI {
		return nil, fmt.Errorf("%w: missing SOI", errMalformed)
	}

	var out bytes.Buffer
	out.Grow(len(data))
	out.Write(data[:2])

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
			out.Write(data[start:pos])
			return out.Bytes(), nil
		}
		if isStandalone(marker) {
			out.Write(data[start:pos])
			continue
		}
		if pos+2 > len(data) {
			return nil, fmt.Errorf("%w: truncated %s segment", errMalformed, MarkerName(marker))
		}
		length := int(binary.BigEndian.Uint16(data[pos:]))
		if length < 2 || pos+length > len(data) {
			return nil, fmt.Errorf("%w: %s segment length %d overruns stream", errMalformed, MarkerName(marker), length)
		}
		end := pos + length
		if marker == markerSOS {
			end = skipEntropyData(data, end)
		}
		if !isMetadata(marker) {
			out.Write(data[start:end])
		}
		pos = end
	}
	return nil, fmt.Errorf("%w: missing EOI", errMalformed)
}
