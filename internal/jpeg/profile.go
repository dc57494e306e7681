package jpeg

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidProfile is returned when a Profile would relax one of the
// fixed constraints of the target decoder.
var ErrInvalidProfile = errors.New("invalid conformance profile")

// ChromaMode selects the chroma subsampling of the encoded stream.
type ChromaMode int

const (
	Chroma444 ChromaMode = iota + 1 // no subsampling
	Chroma420                       // Cb and Cr at half resolution in both axes
)

func (m ChromaMode) String() string {
	switch m {
	case Chroma444:
		return "4:4:4"
	case Chroma420:
		return "4:2:0"
	default:
		return fmt.Sprintf("ChromaMode(%d)", int(m))
	}
}

// ParseChromaMode accepts "4:4:4", "444", "4:2:0" and "420".
func ParseChromaMode(s string) (ChromaMode, error) {
	switch strings.TrimSpace(s) {
	case "4:4:4", "444":
		return Chroma444, nil
	case "4:2:0", "420":
		return Chroma420, nil
	default:
		return 0, fmt.Errorf("unknown chroma mode %q (want 4:4:4 or 4:2:0)", s)
	}
}

// Set implements pflag.Value.
func (m *ChromaMode) Set(s string) error {
	mode, err := ParseChromaMode(s)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// Type implements pflag.Value.
func (m *ChromaMode) Type() string { return "chroma" }

func (m ChromaMode) MarshalText() ([]byte, error) {
	if m != Chroma444 && m != Chroma420 {
		return nil, fmt.Errorf("cannot marshal %s", m)
	}
	return []byte(m.String()), nil
}

func (m *ChromaMode) UnmarshalText(text []byte) error {
	return m.Set(string(text))
}

// samplingFactors returns the luma horizontal and vertical sampling
// factors. Chroma components are always 1x1.
func (m ChromaMode) samplingFactors() (h, v int) {
	if m == Chroma420 {
		return 2, 2
	}
	return 1, 1
}

// Profile is the set of structural constraints an output stream must
// satisfy to be decodable by the target baseline decoder.
type Profile struct {
	Quality       int        `yaml:"quality" json:"quality"`               // 1-100
	Chroma        ChromaMode `yaml:"chroma" json:"chroma"`                 // 4:4:4 or 4:2:0
	StripMetadata bool       `yaml:"strip_metadata" json:"strip_metadata"` // always true
	Progressive   bool       `yaml:"progressive" json:"progressive"`       // always false
	MaxWidth      int        `yaml:"max_width" json:"max_width"`           // 0 = unbounded
	MaxHeight     int        `yaml:"max_height" json:"max_height"`         // 0 = unbounded
}

// DefaultProfile matches the settings the kernel image viewer was
// validated against.
var DefaultProfile = Profile{
	Quality:       85,
	Chroma:        Chroma420,
	StripMetadata: true,
	Progressive:   false,
}

// Validate rejects profiles the encoder cannot honor.
func (p Profile) Validate() error {
	if p.Quality < 1 || p.Quality > 100 {
		return fmt.Errorf("%w: quality %d outside 1-100", ErrInvalidProfile, p.Quality)
	}
	if p.Chroma != Chroma444 && p.Chroma != Chroma420 {
		return fmt.Errorf("%w: chroma mode %s", ErrInvalidProfile, p.Chroma)
	}
	if !p.StripMetadata {
		return fmt.Errorf("%w: metadata must be stripped", ErrInvalidProfile)
	}
	if p.Progressive {
		return fmt.Errorf("%w: progressive coding is not decodable by the target", ErrInvalidProfile)
	}
	if p.MaxWidth < 0 || p.MaxHeight < 0 {
		return fmt.Errorf("%w: negative fit box %dx%d", ErrInvalidProfile, p.MaxWidth, p.MaxHeight)
	}
	return nil
}
