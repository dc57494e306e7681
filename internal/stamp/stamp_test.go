package stamp

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jordanhubbard/assetprep/internal/jpeg"
)

func TestSum(t *testing.T) {
	src := []byte("source bytes")
	p := jpeg.DefaultProfile

	a := Sum(src, "image", p, 16)
	if a != Sum(src, "image", p, 16) {
		t.Fatal("Sum is not deterministic")
	}

	q := p
	q.Quality = 50
	c := p
	c.Chroma = jpeg.Chroma444
	variants := map[string]Digest{
		"source":    Sum([]byte("source bytez"), "image", p, 16),
		"kind":      Sum(src, "binary", p, 16),
		"quality":   Sum(src, "image", q, 16),
		"chroma":    Sum(src, "image", c, 16),
		"row width": Sum(src, "image", p, 8),
	}
	for what, d := range variants {
		if d == a {
			t.Errorf("changing the %s did not change the digest", what)
		}
	}
	if len(a.String()) != 64 {
		t.Errorf("hex digest %q has length %d", a, len(a.String()))
	}
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()

	s := New()
	s.Set("bootstrap_square_jpg", Sum([]byte("a"), "image", jpeg.DefaultProfile, 16), 1234)
	s.Set("seed_mp3", Sum([]byte("b"), "binary", jpeg.DefaultProfile, 16), 99)
	if err := s.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(s, loaded); diff != "" {
		t.Errorf("stamp mismatch (-saved +loaded):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"bootstrap_square_jpg", "seed_mp3"}, loaded.Names()); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	build := func(order []string) []byte {
		s := New()
		for _, name := range order {
			s.Set(name, Sum([]byte(name), "binary", jpeg.DefaultProfile, 16), len(name))
		}
		data, err := s.Marshal()
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		return data
	}
	a := build([]string{"x", "y", "z"})
	b := build([]string{"z", "x", "y"})
	if !bytes.Equal(a, b) {
		t.Error("equal stamps encoded to different bytes")
	}
}

func TestFresh(t *testing.T) {
	s := New()
	d := Sum([]byte("a"), "image", jpeg.DefaultProfile, 16)
	if s.Fresh("x", d) {
		t.Error("empty stamp reports fresh")
	}
	s.Set("x", d, 1)
	if !s.Fresh("x", d) {
		t.Error("recorded digest not fresh")
	}
	if s.Fresh("x", Sum([]byte("b"), "image", jpeg.DefaultProfile, 16)) {
		t.Error("changed digest reported fresh")
	}
}

func TestLoadMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load on empty dir: %v", err)
	}
	if len(s.Entries) != 0 {
		t.Errorf("fresh stamp has %d entries", len(s.Entries))
	}

	if err := os.WriteFile(filepath.Join(dir, FileName), []byte{0xff, 0x00, 0x13}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("corrupt stamp loaded without error")
	}
}
