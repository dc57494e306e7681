// Package stamp records content digests of built assets so a batch run
// can skip entries whose inputs have not changed. Skipping matters for
// images: normalizing an already-normalized JPEG is another lossy pass.
package stamp

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/jordanhubbard/assetprep/internal/jpeg"
)

// FileName is the stamp file written into the output directory.
const FileName = ".assetprep.stamp"

// formatVersion changes whenever the meaning of a Digest changes.
const formatVersion = 1

// Digest is a 32-byte BLAKE3 keyed hash.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// digestKey separates asset digests from any other BLAKE3 use of the
// same bytes. ASCII, zero-padded to 32 bytes.
var digestKey = [32]byte{
	'a', 's', 's', 'e', 't', 'p', 'r', 'e', 'p', '.', 's', 'o', 'u', 'r', 'c', 'e',
}

// Sum digests an entry's source bytes together with everything else
// that determines its output: the kind and normalization mode, the
// profile and the layout.
func Sum(source []byte, kind string, profile jpeg.Profile, rowWidth int) Digest {
	h, err := blake3.NewKeyed(digestKey[:])
	if err != nil {
		panic("stamp: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	fmt.Fprintf(h, "%s\x00q=%d c=%s w=%dx%d r=%d\x00",
		kind, profile.Quality, profile.Chroma, profile.MaxWidth, profile.MaxHeight, rowWidth)
	h.Write(source)
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("stamp: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("stamp: CBOR decoder initialization failed: " + err.Error())
	}
}

// Record is what the stamp remembers about one declaration.
type Record struct {
	Digest Digest `cbor:"1,keyasint"`
	Len    int    `cbor:"2,keyasint"`
}

// Stamp maps declaration names to the digest they were last built from.
type Stamp struct {
	Version int               `cbor:"1,keyasint"`
	Entries map[string]Record `cbor:"2,keyasint"`
}

// New returns an empty stamp.
func New() *Stamp {
	return &Stamp{Version: formatVersion, Entries: make(map[string]Record)}
}

// Load reads the stamp in dir. A missing file, or one written by a
// different format version, yields an empty stamp.
func Load(dir string) (*Stamp, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading stamp: %w", err)
	}
	var s Stamp
	if err := decMode.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding stamp %s: %w", filepath.Join(dir, FileName), err)
	}
	if s.Version != formatVersion {
		return New(), nil
	}
	if s.Entries == nil {
		s.Entries = make(map[string]Record)
	}
	return &s, nil
}

// Marshal encodes the stamp with CBOR core deterministic encoding, so
// equal stamps produce identical bytes.
func (s *Stamp) Marshal() ([]byte, error) {
	return encMode.Marshal(s)
}

// Save writes the stamp into dir.
func (s *Stamp) Save(dir string) error {
	data, err := s.Marshal()
	if err != nil {
		return fmt.Errorf("encoding stamp: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0o644); err != nil {
		return fmt.Errorf("writing stamp: %w", err)
	}
	return nil
}

// Fresh reports whether name was last built from digest d.
func (s *Stamp) Fresh(name string, d Digest) bool {
	r, ok := s.Entries[name]
	return ok && r.Digest == d
}

// Set records that name was built from digest d.
func (s *Stamp) Set(name string, d Digest, length int) {
	s.Entries[name] = Record{Digest: d, Len: length}
}

// Names returns the recorded names in sorted order.
func (s *Stamp) Names() []string {
	names := make([]string, 0, len(s.Entries))
	for name := range s.Entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
