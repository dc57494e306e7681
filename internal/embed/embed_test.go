package embed

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var (
	byteLiteral = regexp.MustCompile(`0x([0-9a-f]{2})`)
	lenConstant = regexp.MustCompile(`const unsigned int (\w+)_len = (\d+);`)
)

// parseDeclaration recovers the bytes and the length constant from
// rendered source.
func parseDeclaration(t *testing.T, src []byte) ([]byte, int) {
	t.Helper()
	text := string(src)
	open := strings.Index(text, "{")
	end := strings.Index(text, "};")
	if open < 0 || end < open {
		t.Fatalf("no array body in:\n%s", text)
	}
	var data []byte
	for _, m := range byteLiteral.FindAllStringSubmatch(text[open:end], -1) {
		v, err := strconv.ParseUint(m[1], 16, 8)
		if err != nil {
			t.Fatalf("bad literal %q: %v", m[0], err)
		}
		data = append(data, byte(v))
	}
	m := lenConstant.FindStringSubmatch(text)
	if m == nil {
		t.Fatalf("no length constant in:\n%s", text)
	}
	n, _ := strconv.Atoi(m[2])
	return data, n
}

func sampleBytes(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*7 + 3)
	}
	return data
}

func TestDeclareFormat(t *testing.T) {
	decl, err := Declare(Asset{Name: "seed_bin", Origin: "assets/seed.bin", Data: []byte{0x00, 0xff, 0x10}}, Options{})
	if err != nil {
		t.Fatalf("Declare: %v", err)
	}
	want := "/* Auto-generated from seed.bin */\n" +
		"const unsigned char seed_bin[] = {\n" +
		"    0x00, 0xff, 0x10,\n" +
		"};\n\n" +
		"const unsigned int seed_bin_len = 3;\n"
	if diff := cmp.Diff(want, string(decl.Source)); diff != "" {
		t.Errorf("source mismatch (-want +got):\n%s", diff)
	}
	if decl.Len != 3 || decl.LenName() != "seed_bin_len" {
		t.Errorf("Len=%d LenName=%q", decl.Len, decl.LenName())
	}
}

func TestDeclareRows(t *testing.T) {
	decl, err := Declare(Asset{Name: "a", Data: sampleBytes(40)}, Options{})
	if err != nil {
		t.Fatalf("Declare: %v", err)
	}
	lines := strings.Split(string(decl.Source), "\n")
	var rows []string
	for _, l := range lines {
		if strings.HasPrefix(l, "    0x") {
			rows = append(rows, l)
		}
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows for 40 bytes, want 3", len(rows))
	}
	for i, want := range []int{16, 16, 8} {
		if got := strings.Count(rows[i], "0x"); got != want {
			t.Errorf("row %d holds %d literals, want %d", i, got, want)
		}
	}
}

func TestDeclareRoundTrip(t *testing.T) {
	for _, n := range []int{1, 15, 16, 17, 1000} {
		data := sampleBytes(n)
		decl, err := Declare(Asset{Name: "blob", Data: data}, Options{})
		if err != nil {
			t.Fatalf("Declare(%d bytes): %v", n, err)
		}
		got, length := parseDeclaration(t, decl.Source)
		if length != n {
			t.Errorf("[%d] length constant %d", n, length)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("[%d] parsed bytes differ from input", n)
		}
	}
}

func TestDeclareEmpty(t *testing.T) {
	decl, err := Declare(Asset{Name: "empty", Origin: "empty.bin"}, Options{})
	if err != nil {
		t.Fatalf("Declare: %v", err)
	}
	want := "/* Auto-generated from empty.bin */\n" +
		"const unsigned char empty[] = {\n" +
		"    0x00,\n" +
		"};\n\n" +
		"const unsigned int empty_len = 0;\n"
	if diff := cmp.Diff(want, string(decl.Source)); diff != "" {
		t.Errorf("source mismatch (-want +got):\n%s", diff)
	}
	if decl.Len != 0 {
		t.Errorf("Len = %d, want 0", decl.Len)
	}
}

func TestRowWidthOnlyAffectsLayout(t *testing.T) {
	data := sampleBytes(100)
	var first []byte
	for _, width := range []int{1, 7, 16, 64, 200} {
		decl, err := Declare(Asset{Name: "blob", Data: data}, Options{RowWidth: width})
		if err != nil {
			t.Fatalf("Declare: %v", err)
		}
		got, length := parseDeclaration(t, decl.Source)
		if length != len(data) || !bytes.Equal(got, data) {
			t.Errorf("row width %d changed the declared content", width)
		}
		if first == nil {
			first = got
		} else if !bytes.Equal(first, got) {
			t.Errorf("row width %d yields different bytes", width)
		}
	}
}

func TestDeclareDeterministic(t *testing.T) {
	asset := Asset{Name: "blob", Origin: "x.jpg", Data: sampleBytes(333)}
	a, _ := Declare(asset, Options{})
	b, _ := Declare(asset, Options{})
	if !bytes.Equal(a.Source, b.Source) {
		t.Error("identical assets rendered differently")
	}
}

func TestInvalidName(t *testing.T) {
	for _, name := range []string{"", "1abc", "has-dash", "sp ace", "dot.c"} {
		if _, err := Declare(Asset{Name: name}, Options{}); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Declare(%q): err = %v, want ErrInvalidName", name, err)
		}
	}
	for _, name := range []string{"_x", "bootstrap_landscape_jpg", "A1"} {
		if err := ValidName(name); err != nil {
			t.Errorf("ValidName(%q) = %v", name, err)
		}
	}
}

func TestEmbedFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "landscape.jpg")
	data := sampleBytes(50)
	if err := os.WriteFile(src, data, 0o644); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "out")

	decl, err := EmbedFile(src, "bootstrap_landscape_jpg", dst, Options{})
	if err != nil {
		t.Fatalf("EmbedFile: %v", err)
	}
	written, err := os.ReadFile(filepath.Join(dst, "bootstrap_landscape_jpg.c"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !bytes.Equal(written, decl.Source) {
		t.Error("file content differs from returned declaration")
	}
	if !strings.HasPrefix(string(written), "/* Auto-generated from landscape.jpg */\n") {
		t.Errorf("unexpected header line: %q", strings.SplitN(string(written), "\n", 2)[0])
	}

	entries, _ := os.ReadDir(dst)
	if len(entries) != 1 {
		t.Errorf("output dir holds %d entries, want 1 (no temp files)", len(entries))
	}
}

func TestEmbedFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	_, err := EmbedFile(filepath.Join(dir, "nope.jpg"), "nope_jpg", dir, Options{})
	if !errors.Is(err, ErrSourceNotFound) {
		t.Fatalf("err = %v, want ErrSourceNotFound", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "nope_jpg.c")); !os.IsNotExist(err) {
		t.Error("declaration written for missing source")
	}
}

func TestHeader(t *testing.T) {
	a, _ := Declare(Asset{Name: "bootstrap_square_jpg", Origin: "square.jpg", Data: sampleBytes(10)}, Options{})
	b, _ := Declare(Asset{Name: "seed_mp3", Origin: "seed.mp3", Data: sampleBytes(4)}, Options{})

	got, err := Header(GuardFor("seed_assets.h"), []*Declaration{a, b})
	if err != nil {
		t.Fatalf("Header: %v", err)
	}
	want := "#ifndef SEED_ASSETS_H\n#define SEED_ASSETS_H\n" +
		"\n/* square.jpg, 10 bytes */\n" +
		"extern const unsigned char bootstrap_square_jpg[];\n" +
		"extern const unsigned int bootstrap_square_jpg_len;\n" +
		"\n/* seed.mp3, 4 bytes */\n" +
		"extern const unsigned char seed_mp3[];\n" +
		"extern const unsigned int seed_mp3_len;\n" +
		"\n#endif /* SEED_ASSETS_H */\n"
	if diff := cmp.Diff(want, string(got)); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
}

func TestGuardFor(t *testing.T) {
	tests := map[string]string{
		"seed_assets.h":      "SEED_ASSETS_H",
		"out/media-assets.h": "MEDIA_ASSETS_H",
		"3d.h":               "_3D_H",
	}
	for in, want := range tests {
		if got := GuardFor(in); got != want {
			t.Errorf("GuardFor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNameFor(t *testing.T) {
	tests := []struct {
		path, prefix, want string
	}{
		{"bootstrap_images/landscape.jpg", "bootstrap_", "bootstrap_landscape_jpg"},
		{"seed.mp3", "vib_", "vib_seed_mp3"},
		{"2024-logo.png", "", "_2024_logo_png"},
	}
	for _, tt := range tests {
		got := NameFor(tt.path, tt.prefix)
		if got != tt.want {
			t.Errorf("NameFor(%q, %q) = %q, want %q", tt.path, tt.prefix, got, tt.want)
		}
		if err := ValidName(got); err != nil {
			t.Errorf("NameFor produced invalid name: %v", err)
		}
	}
}
