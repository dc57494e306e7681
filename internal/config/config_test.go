package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jordanhubbard/assetprep/internal/embed"
	"github.com/jordanhubbard/assetprep/internal/ir"
	"github.com/jordanhubbard/assetprep/internal/jpeg"
	"github.com/jordanhubbard/assetprep/internal/pipeline"
	"github.com/jordanhubbard/assetprep/internal/synth"
)

const yamlManifest = `
source_dir: images
output_dir: ../generated
header: seed_assets.h
prefix: bootstrap_
workers: 3
profile:
  quality: 90
  chroma: 4:4:4
assets:
  - file: nature.jpg
    lossless: true
  - synth: {preset: square}
  - file: sky.jpg
    chroma: "4:2:0"
    synth:
      kind: gradient
      width: 64
      height: 32
      from: "#87ceeb"
      to: "25,25,112"
      direction: vertical
  - file: seed.mp3
    name: vib_seed_mp3
    kind: binary
`

const jsoncManifest = `{
  // Same manifest as the YAML one.
  "source_dir": "images",
  "output_dir": "../generated",
  "header": "seed_assets.h",
  "prefix": "bootstrap_",
  "workers": 3,
  "profile": {"quality": 90, "chroma": "4:4:4"},
  "assets": [
    {"file": "nature.jpg", "lossless": true},
    {"synth": {"preset": "square"}},
    {
      "file": "sky.jpg",
      "chroma": "4:2:0",
      "synth": {
        "kind": "gradient", "width": 64, "height": 32,
        "from": "#87ceeb", "to": "25,25,112", "direction": "vertical",
      },
    },
    /* embedded verbatim */
    {"file": "seed.mp3", "name": "vib_seed_mp3", "kind": "binary"},
  ],
}`

func writeManifest(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestYAMLAndJSONCAgree(t *testing.T) {
	dir := t.TempDir()
	fromYAML, err := Load(writeManifest(t, dir, "assets.yaml", yamlManifest))
	if err != nil {
		t.Fatalf("Load yaml: %v", err)
	}
	fromJSONC, err := Load(writeManifest(t, dir, "assets.jsonc", jsoncManifest))
	if err != nil {
		t.Fatalf("Load jsonc: %v", err)
	}
	if diff := cmp.Diff(fromYAML, fromJSONC); diff != "" {
		t.Errorf("manifests differ (-yaml +jsonc):\n%s", diff)
	}
}

func TestLoadResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	m, err := Load(writeManifest(t, dir, "assets.yml", yamlManifest))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := filepath.Join(dir, "images"); m.SourceDir != want {
		t.Errorf("SourceDir = %q, want %q", m.SourceDir, want)
	}
	if want := filepath.Join(filepath.Dir(dir), "generated"); m.OutputDir != want {
		t.Errorf("OutputDir = %q, want %q", m.OutputDir, want)
	}

	bare, err := Load(writeManifest(t, dir, "bare.yaml", "assets: [{file: a.bin}]\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if bare.SourceDir != dir || bare.OutputDir != dir {
		t.Errorf("default dirs %q, %q; want manifest dir %q", bare.SourceDir, bare.OutputDir, dir)
	}
	if diff := cmp.Diff(jpeg.DefaultProfile, bare.Profile); diff != "" {
		t.Errorf("omitted profile should be the default (-want +got):\n%s", diff)
	}
}

func TestLoadPartialProfileKeepsDefaults(t *testing.T) {
	m, err := Parse([]byte("profile: {quality: 70}\nassets: [{file: a.jpg}]\n"), ".yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := jpeg.DefaultProfile
	want.Quality = 70
	if diff := cmp.Diff(want, m.Profile); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "env.yaml", "assets: [{file: a.bin}]\n")

	t.Setenv(EnvManifest, path)
	m, err := Load("")
	if err != nil {
		t.Fatalf("Load from env: %v", err)
	}
	if m.SourceDir != dir {
		t.Errorf("SourceDir = %q, want %q", m.SourceDir, dir)
	}

	t.Setenv(EnvManifest, "")
	if _, err := Load(""); !errors.Is(err, ErrInvalid) {
		t.Errorf("no manifest: err = %v, want ErrInvalid", err)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := map[string]string{
		"no assets":        "profile: {quality: 50}\n",
		"bad quality":      "profile: {quality: 0}\nassets: [{file: a.jpg}]\n",
		"progressive":      "profile: {progressive: true}\nassets: [{file: a.jpg}]\n",
		"keep metadata":    "profile: {strip_metadata: false}\nassets: [{file: a.jpg}]\n",
		"bad chroma":       "profile: {chroma: \"4:2:2\"}\nassets: [{file: a.jpg}]\n",
		"unknown kind":     "assets: [{file: a.jpg, kind: video}]\n",
		"empty asset":      "assets: [{name: x}]\n",
		"unknown preset":   "assets: [{synth: {preset: nature}}]\n",
		"no tile colors":   "assets: [{file: t.jpg, synth: {kind: tiles, width: 8, height: 8}}]\n",
		"zero synth width": "assets: [{file: g.jpg, synth: {kind: gradient, height: 8}}]\n",
		"bad color":        "assets: [{file: g.jpg, synth: {kind: gradient, width: 8, height: 8, from: \"#12\"}}]\n",
		"negative workers": "workers: -1\nassets: [{file: a.jpg}]\n",
	}
	for name, doc := range tests {
		if _, err := Parse([]byte(doc), ".yaml"); !errors.Is(err, ErrInvalid) {
			t.Errorf("[%s] err = %v, want ErrInvalid", name, err)
		}
	}
	if _, err := Parse([]byte(`{"assets": [}`), ".json"); !errors.Is(err, ErrInvalid) {
		t.Errorf("malformed json: err = %v, want ErrInvalid", err)
	}
	if _, err := Parse([]byte("assets = []"), ".toml"); !errors.Is(err, ErrInvalid) {
		t.Errorf("unknown format: err = %v, want ErrInvalid", err)
	}
}

func TestEntries(t *testing.T) {
	m, err := Parse([]byte(yamlManifest), ".yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	entries, err := m.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	want := []string{"bootstrap_nature_jpg", "bootstrap_square_jpg", "bootstrap_sky_jpg", "vib_seed_mp3"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	if nature := entries[0]; !nature.Lossless || nature.Profile != nil || nature.Synth != nil {
		t.Errorf("nature entry: %+v", nature)
	}

	square := entries[1]
	if square.Source != "square.jpg" || square.Synth == nil {
		t.Fatalf("preset entry: %+v", square)
	}
	if square.Profile == nil || square.Profile.Quality != synth.PresetQuality || square.Profile.Chroma != synth.PresetChroma {
		t.Errorf("preset profile = %+v, want q%d %s", square.Profile, synth.PresetQuality, synth.PresetChroma)
	}

	sky := entries[2]
	g, ok := sky.Synth.Pattern.(synth.Gradient)
	if !ok {
		t.Fatalf("sky pattern is %T, want synth.Gradient", sky.Synth.Pattern)
	}
	wantGradient := synth.Gradient{From: ir.RGB{135, 206, 235}, To: ir.RGB{25, 25, 112}, Direction: synth.Vertical}
	if diff := cmp.Diff(wantGradient, g); diff != "" {
		t.Errorf("gradient mismatch (-want +got):\n%s", diff)
	}
	if sky.Profile == nil || sky.Profile.Chroma != jpeg.Chroma420 || sky.Profile.Quality != 90 {
		t.Errorf("sky profile = %+v, want q90 4:2:0", sky.Profile)
	}

	if seed := entries[3]; seed.Kind != pipeline.KindBinary || seed.Source != "seed.mp3" {
		t.Errorf("seed entry: %+v", seed)
	}
}

func TestTilesDefaultSize(t *testing.T) {
	s := &Synth{Kind: "tiles", Width: 80, Height: 80, Colors: []Color{{R: 1}, {G: 2}}}
	built, err := s.build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	tiles := built.Pattern.(synth.Tiles)
	if tiles.Size != synth.DefaultTileSize {
		t.Errorf("tile size %d, want %d", tiles.Size, synth.DefaultTileSize)
	}
}

func TestParseColor(t *testing.T) {
	for in, want := range map[string]Color{
		"#87ceeb":     {135, 206, 235},
		"87CEEB":      {135, 206, 235},
		"25, 25, 112": {25, 25, 112},
	} {
		got, err := ParseColor(in)
		if err != nil {
			t.Errorf("ParseColor(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseColor(%q) = %v, want %v", in, got, want)
		}
	}
	for _, in := range []string{"", "#fff", "1,2", "1,2,300", "#gggggg"} {
		if _, err := ParseColor(in); err == nil {
			t.Errorf("ParseColor(%q) accepted", in)
		}
	}
}

func TestBatchFromManifest(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "blob.bin"), []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatal(err)
	}
	path := writeManifest(t, dir, "m.yaml", `
output_dir: out
header: assets.h
assets:
  - file: blob.bin
  - synth: {preset: landscape}
`)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b, err := m.Batch()
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	report := b.Run(nil)
	if report.Failed != 0 || report.Succeeded != 2 {
		for _, r := range report.Results {
			t.Logf("%s: %s %v", r.Entry.Name, r.Status, r.Err)
		}
		t.Fatalf("batch: %d ok, %d failed", report.Succeeded, report.Failed)
	}
	for _, f := range []string{"out/blob_bin.c", "out/landscape_jpg.c", "out/assets.h", "landscape.jpg"} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Errorf("%s: %v", f, err)
		}
	}
}

func TestNameErrorsFailOnlyTheirAsset(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.bin"), []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatal(err)
	}
	path := writeManifest(t, dir, "m.yaml", `
assets:
  - file: a.bin
  - file: a.bin
    name: a_bin
  - file: a.bin
    name: 9lives
`)
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b, err := m.Batch()
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	report := b.Run(nil)
	if report.Succeeded != 1 || report.Failed != 2 {
		t.Fatalf("counts: succeeded=%d failed=%d, want 1/2", report.Succeeded, report.Failed)
	}
	if err := report.Results[1].Err; !errors.Is(err, pipeline.ErrDuplicateName) {
		t.Errorf("duplicate name: err = %v, want ErrDuplicateName", err)
	}
	if err := report.Results[2].Err; !errors.Is(err, embed.ErrInvalidName) {
		t.Errorf("invalid name: err = %v, want ErrInvalidName", err)
	}
}
