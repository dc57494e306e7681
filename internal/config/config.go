// Package config loads batch manifests.
//
// A manifest lists the assets of one build together with the
// conformance profile they are normalized to. It is written in YAML
// (.yaml, .yml) or JSONC (.json, .jsonc: JSON plus comments and
// trailing commas):
//
//	source_dir: bootstrap_images
//	output_dir: .
//	header: seed_assets.h
//	prefix: bootstrap_
//	profile:
//	  quality: 85
//	  chroma: "4:2:0"
//	assets:
//	  - file: nature.jpg
//	    lossless: true
//	  - file: square.jpg
//	    synth: {preset: square}
//	  - file: seed.mp3
//	    name: vib_seed_mp3
//
// Relative paths resolve against the directory containing the
// manifest, never the process working directory.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/jordanhubbard/assetprep/internal/embed"
	"github.com/jordanhubbard/assetprep/internal/jpeg"
	"github.com/jordanhubbard/assetprep/internal/pipeline"
	"github.com/jordanhubbard/assetprep/internal/synth"
)

// EnvManifest names the environment variable consulted when no manifest
// path is given explicitly.
const EnvManifest = "ASSETPREP_MANIFEST"

// ErrInvalid is returned for manifests that cannot describe a batch.
var ErrInvalid = errors.New("invalid manifest")

// Manifest is the top-level manifest document.
type Manifest struct {
	SourceDir string       `yaml:"source_dir" json:"source_dir"`
	OutputDir string       `yaml:"output_dir" json:"output_dir"`
	Header    string       `yaml:"header" json:"header"`
	Prefix    string       `yaml:"prefix" json:"prefix"`
	Workers   int          `yaml:"workers" json:"workers"`
	RowWidth  int          `yaml:"row_width" json:"row_width"`
	InPlace   bool         `yaml:"in_place" json:"in_place"`
	Stamp     bool         `yaml:"stamp" json:"stamp"`
	Profile   jpeg.Profile `yaml:"profile" json:"profile"`
	Assets    []Asset      `yaml:"assets" json:"assets"`
}

// Asset is one manifest entry.
type Asset struct {
	File     string          `yaml:"file" json:"file"`
	Name     string          `yaml:"name" json:"name"`         // default: prefix + sanitized file name
	Kind     string          `yaml:"kind" json:"kind"`         // image or binary; default by extension
	Lossless bool            `yaml:"lossless" json:"lossless"` // only strip metadata when that suffices
	Quality  int             `yaml:"quality" json:"quality"`   // overrides profile.quality
	Chroma   jpeg.ChromaMode `yaml:"chroma" json:"chroma"`     // overrides profile.chroma
	Synth    *Synth          `yaml:"synth" json:"synth"`
}

// Load reads the manifest at path, or at $ASSETPREP_MANIFEST when path
// is empty. The format is chosen by file extension.
func Load(path string) (*Manifest, error) {
	if path == "" {
		path = os.Getenv(EnvManifest)
	}
	if path == "" {
		return nil, fmt.Errorf("%w: no manifest given and %s is not set", ErrInvalid, EnvManifest)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolving manifest directory: %w", err)
	}
	m.resolve(abs)
	return m, nil
}

// Parse decodes and validates a manifest. ext selects the format and
// includes the leading dot. Paths are left as written.
func Parse(data []byte, ext string) (*Manifest, error) {
	m := &Manifest{Profile: jpeg.DefaultProfile}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown manifest format %q (want .yaml, .yml, .json or .jsonc)", ErrInvalid, ext)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manifest) resolve(dir string) {
	m.SourceDir = resolvePath(dir, m.SourceDir)
	m.OutputDir = resolvePath(dir, m.OutputDir)
}

func resolvePath(base, path string) string {
	if path == "" {
		return base
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// Validate checks everything that can be checked without touching the
// filesystem. Declaration names are checked per asset when the batch
// runs, so one bad or duplicate name fails only its own asset.
func (m *Manifest) Validate() error {
	if err := m.Profile.Validate(); err != nil {
		return fmt.Errorf("%w: profile: %w", ErrInvalid, err)
	}
	if m.Workers < 0 {
		return fmt.Errorf("%w: workers %d", ErrInvalid, m.Workers)
	}
	if m.RowWidth < 0 {
		return fmt.Errorf("%w: row_width %d", ErrInvalid, m.RowWidth)
	}
	if len(m.Assets) == 0 {
		return fmt.Errorf("%w: no assets", ErrInvalid)
	}
	for i, a := range m.Assets {
		if a.File == "" && a.Synth == nil {
			return fmt.Errorf("%w: asset %d has neither file nor synth", ErrInvalid, i+1)
		}
		if a.file() == "" && a.Name == "" {
			return fmt.Errorf("%w: asset %d needs a file or a name", ErrInvalid, i+1)
		}
		switch pipeline.Kind(a.Kind) {
		case "", pipeline.KindImage, pipeline.KindBinary:
		default:
			return fmt.Errorf("%w: asset %d: unknown kind %q", ErrInvalid, i+1, a.Kind)
		}
		if a.Quality < 0 || a.Quality > 100 {
			return fmt.Errorf("%w: asset %d: quality %d outside 1-100", ErrInvalid, i+1, a.Quality)
		}
		if a.Synth != nil {
			if _, err := a.Synth.build(); err != nil {
				return fmt.Errorf("%w: asset %d: %w", ErrInvalid, i+1, err)
			}
		}
	}
	return nil
}

// file returns where an asset is read from or synthesized to.
func (a Asset) file() string {
	if a.File == "" && a.Synth != nil && a.Synth.Preset != "" {
		return a.Synth.Preset + ".jpg"
	}
	return a.File
}

func (m *Manifest) nameFor(a Asset) string {
	if a.Name != "" {
		return a.Name
	}
	return embed.NameFor(a.file(), m.Prefix)
}

// profileFor layers preset and per-asset overrides over the manifest
// profile. It returns nil when the manifest profile applies unchanged.
func (m *Manifest) profileFor(a Asset, preset bool) *jpeg.Profile {
	if !preset && a.Quality == 0 && a.Chroma == 0 {
		return nil
	}
	p := m.Profile
	if preset {
		p.Quality = synth.PresetQuality
		p.Chroma = synth.PresetChroma
	}
	if a.Quality != 0 {
		p.Quality = a.Quality
	}
	if a.Chroma != 0 {
		p.Chroma = a.Chroma
	}
	return &p
}

// Entries converts the manifest's assets into batch entries.
func (m *Manifest) Entries() ([]pipeline.Entry, error) {
	entries := make([]pipeline.Entry, 0, len(m.Assets))
	for i, a := range m.Assets {
		e := pipeline.Entry{
			Source:   a.file(),
			Name:     m.nameFor(a),
			Kind:     pipeline.Kind(a.Kind),
			Lossless: a.Lossless,
		}
		preset := false
		if a.Synth != nil {
			s, err := a.Synth.build()
			if err != nil {
				return nil, fmt.Errorf("%w: asset %d: %w", ErrInvalid, i+1, err)
			}
			e.Synth = s
			preset = a.Synth.Preset != ""
		}
		e.Profile = m.profileFor(a, preset)
		entries = append(entries, e)
	}
	return entries, nil
}

// Batch builds the batch the manifest describes.
func (m *Manifest) Batch() (*pipeline.Batch, error) {
	entries, err := m.Entries()
	if err != nil {
		return nil, err
	}
	return &pipeline.Batch{
		Entries:   entries,
		SourceDir: m.SourceDir,
		OutputDir: m.OutputDir,
		Profile:   m.Profile,
		Workers:   m.Workers,
		RowWidth:  m.RowWidth,
		Header:    m.Header,
		InPlace:   m.InPlace,
		Stamp:     m.Stamp,
	}, nil
}
