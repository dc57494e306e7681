// Package embed serializes binary assets into C source declarations
// so they can be linked into a freestanding image with no filesystem.
package embed

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// ErrSourceNotFound is returned when the file to embed does not exist.
	ErrSourceNotFound = errors.New("source not found")
	// ErrInvalidName is returned for variable names that are not C identifiers.
	ErrInvalidName = errors.New("invalid variable name")
)

// DefaultRowWidth is the number of byte literals per array row.
const DefaultRowWidth = 16

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Asset is an immutable blob with the name it is declared under.
type Asset struct {
	Name   string // C variable name
	Origin string // file the bytes came from; only its base name is rendered
	Data   []byte
}

// Options controls layout only; the declared bytes and length never
// depend on it.
type Options struct {
	RowWidth int
}

func (o Options) rowWidth() int {
	if o.RowWidth <= 0 {
		return DefaultRowWidth
	}
	return o.RowWidth
}

// Declaration is the rendered source text for one asset.
type Declaration struct {
	Name   string
	Origin string
	Len    int
	Source []byte
}

// LenName is the identifier of the length constant.
func (d *Declaration) LenName() string { return d.Name + "_len" }

// WriteTo writes the rendered source to w.
func (d *Declaration) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(d.Source)
	return int64(n), err
}

// ValidName reports whether name can be used as a C identifier.
func ValidName(name string) error {
	if !identifier.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Declare renders asset as
//
//	/* Auto-generated from <origin> */
//	const unsigned char <name>[] = {
//	    0x.., 0x.., ...,
//	};
//
//	const unsigned int <name>_len = <N>;
func Declare(asset Asset, opts Options) (*Declaration, error) {
	if err := ValidName(asset.Name); err != nil {
		return nil, err
	}
	origin := filepath.Base(asset.Origin)
	if asset.Origin == "" {
		origin = asset.Name
	}

	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	fmt.Fprintf(w, "/* Auto-generated from %s */\n", origin)
	fmt.Fprintf(w, "const unsigned char %s[] = {\n", asset.Name)

	row := opts.rowWidth()
	for i := 0; i < len(asset.Data); i += row {
		chunk := asset.Data[i:min(i+row, len(asset.Data))]
		w.WriteString("    ")
		for j, b := range chunk {
			if j > 0 {
				w.WriteString(", ")
			}
			fmt.Fprintf(w, "0x%02x", b)
		}
		w.WriteString(",\n")
	}
	if len(asset.Data) == 0 {
		// C forbids an empty initializer list; _len stays 0.
		w.WriteString("    0x00,\n")
	}

	w.WriteString("};\n\n")
	fmt.Fprintf(w, "const unsigned int %s_len = %d;\n", asset.Name, len(asset.Data))
	if err := w.Flush(); err != nil {
		return nil, err
	}

	return &Declaration{
		Name:   asset.Name,
		Origin: origin,
		Len:    len(asset.Data),
		Source: buf.Bytes(),
	}, nil
}

// Path returns where EmbedFile writes the declaration for varName.
func Path(dstDir, varName string) string {
	return filepath.Join(dstDir, varName+".c")
}

// EmbedFile reads src and writes its declaration to <dstDir>/<varName>.c,
// replacing any existing file.
func EmbedFile(src, varName, dstDir string, opts Options) (*Declaration, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, src)
		}
		return nil, fmt.Errorf("reading %s: %w", src, err)
	}
	return EmbedBytes(Asset{Name: varName, Origin: src, Data: data}, dstDir, opts)
}

// EmbedBytes writes the declaration of an in-memory asset to
// <dstDir>/<asset.Name>.c.
func EmbedBytes(asset Asset, dstDir string, opts Options) (*Declaration, error) {
	decl, err := Declare(asset, opts)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dstDir, err)
	}
	if err := writeFileAtomic(Path(dstDir, decl.Name), decl.Source); err != nil {
		return nil, err
	}
	return decl, nil
}

// writeFileAtomic writes data to a temp file beside path and renames it
// into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Header renders an aggregate header declaring every asset extern,
// wrapped in an include guard.
func Header(guard string, decls []*Declaration) ([]byte, error) {
	if err := ValidName(guard); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "#ifndef %s\n#define %s\n", guard, guard)
	for _, d := range decls {
		fmt.Fprintf(&buf, "\n/* %s, %d bytes */\n", d.Origin, d.Len)
		fmt.Fprintf(&buf, "extern const unsigned char %s[];\n", d.Name)
		fmt.Fprintf(&buf, "extern const unsigned int %s;\n", d.LenName())
	}
	fmt.Fprintf(&buf, "\n#endif /* %s */\n", guard)
	return buf.Bytes(), nil
}

// WriteHeader renders Header and writes it to path.
func WriteHeader(path, guard string, decls []*Declaration) error {
	data, err := Header(guard, decls)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// GuardFor derives an include guard from a header file name, e.g.
// "seed_assets.h" becomes "SEED_ASSETS_H".
func GuardFor(path string) string {
	return sanitize(strings.ToUpper(filepath.Base(path)))
}

// NameFor derives a variable name from a file name: "landscape.jpg"
// with prefix "bootstrap_" becomes "bootstrap_landscape_jpg".
func NameFor(path, prefix string) string {
	return sanitize(prefix + filepath.Base(path))
}

// sanitize maps s onto a C identifier.
func sanitize(s string) string {
	b := []byte(s)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			b[i] = '_'
		}
	}
	if len(b) == 0 || (b[0] >= '0' && b[0] <= '9') {
		b = append([]byte{'_'}, b...)
	}
	return string(b)
}
