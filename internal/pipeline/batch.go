package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/jordanhubbard/assetprep/internal/embed"
	"github.com/jordanhubbard/assetprep/internal/jpeg"
	"github.com/jordanhubbard/assetprep/internal/stamp"
	"github.com/jordanhubbard/assetprep/internal/synth"
)

// ErrDuplicateName is returned for an entry whose declaration name is
// already claimed by an earlier entry of the same batch.
var ErrDuplicateName = errors.New("duplicate declaration name")

// Kind selects what a batch does with an entry's bytes before embedding.
type Kind string

const (
	KindImage  Kind = "image"  // normalize to the profile, then embed
	KindBinary Kind = "binary" // embed verbatim
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// KindFor guesses an entry's kind from its file extension.
func KindFor(path string) Kind {
	if imageExtensions[strings.ToLower(filepath.Ext(path))] {
		return KindImage
	}
	return KindBinary
}

// Synth describes an image to generate instead of reading one.
type Synth struct {
	Width, Height int
	Pattern       synth.Pattern
}

func (s *Synth) describe() string {
	return fmt.Sprintf("%dx%d %#v", s.Width, s.Height, s.Pattern)
}

// Entry is one asset of a batch.
type Entry struct {
	Source   string        // path, relative to Batch.SourceDir unless absolute; synthesized images are written here
	Name     string        // declaration name
	Kind     Kind          // empty means KindFor(Source), or KindImage for synthesized entries
	Synth    *Synth        // optional
	Profile  *jpeg.Profile // overrides Batch.Profile
	Lossless bool          // only strip metadata when that suffices
}

func (e Entry) kind() Kind {
	switch {
	case e.Kind != "":
		return e.Kind
	case e.Synth != nil:
		return KindImage
	default:
		return KindFor(e.Source)
	}
}

// Status is the outcome of one entry.
type Status int

const (
	StatusBuilt Status = iota
	StatusUnchanged
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusBuilt:
		return "ok"
	case StatusUnchanged:
		return "unchanged"
	default:
		return "FAILED"
	}
}

// EntryResult reports what happened to one entry.
type EntryResult struct {
	Entry  Entry
	Status Status
	Decl   *embed.Declaration // nil on failure; carries no Source when unchanged
	Output string             // path of the written declaration
	Image  *Result            // set for images that were (re)built
	Err    error

	digest stamp.Digest
}

// Report collects the per-entry results of a batch in entry order.
type Report struct {
	Results   []EntryResult
	Succeeded int
	Unchanged int
	Failed    int
	Header    string // path of the aggregate header, if one was written
}

// Err returns a summary error when any entry failed.
func (r *Report) Err() error {
	if r.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d assets failed", r.Failed, len(r.Results))
}

// Batch runs every entry through generate → normalize → embed. A failing
// entry is logged and counted; the rest of the batch still runs.
type Batch struct {
	Entries   []Entry
	SourceDir string
	OutputDir string
	Profile   jpeg.Profile
	Workers   int    // 0 means GOMAXPROCS
	RowWidth  int    // 0 means embed.DefaultRowWidth
	Header    string // optional aggregate header, relative to OutputDir unless absolute
	InPlace   bool   // write normalized images back over their sources
	Stamp     bool   // skip entries whose inputs match the last successful run
}

func (b *Batch) sourcePath(e Entry) string {
	if e.Source == "" || filepath.IsAbs(e.Source) {
		return e.Source
	}
	return filepath.Join(b.SourceDir, e.Source)
}

func (b *Batch) workers() int {
	n := b.Workers
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return max(1, min(n, len(b.Entries)))
}

// Run executes the batch. It never aborts early: every entry gets a
// result, and the report's counts always add up to len(Entries).
func (b *Batch) Run(logger *slog.Logger) *Report {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	report := &Report{Results: make([]EntryResult, len(b.Entries))}

	st := stamp.New()
	if b.Stamp {
		loaded, err := stamp.Load(b.OutputDir)
		if err != nil {
			logger.Warn("ignoring unreadable stamp", "dir", b.OutputDir, "error", err)
		} else {
			st = loaded
		}
	}

	claimed := make(map[string]int, len(b.Entries))
	var pending []int
	for i, e := range b.Entries {
		if first, dup := claimed[e.Name]; dup {
			report.Results[i] = EntryResult{Entry: e, Status: StatusFailed,
				Err: fmt.Errorf("%w: %q also used by entry %d", ErrDuplicateName, e.Name, first+1)}
			continue
		}
		claimed[e.Name] = i
		pending = append(pending, i)
	}

	// Workers only read the stamp; it is updated below after they finish.
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < b.workers(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				report.Results[i] = b.runEntry(b.Entries[i], st, logger)
			}
		}()
	}
	for _, i := range pending {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var decls []*embed.Declaration
	for i := range report.Results {
		r := &report.Results[i]
		switch r.Status {
		case StatusBuilt:
			report.Succeeded++
			st.Set(r.Entry.Name, r.digest, r.Decl.Len)
		case StatusUnchanged:
			report.Unchanged++
		default:
			report.Failed++
			logger.Error("asset failed", "name", r.Entry.Name, "source", r.Entry.Source, "error", r.Err)
			continue
		}
		decls = append(decls, r.Decl)
	}

	if b.Stamp {
		err := os.MkdirAll(b.OutputDir, 0o755)
		if err == nil {
			err = st.Save(b.OutputDir)
		}
		if err != nil {
			logger.Warn("could not save stamp", "dir", b.OutputDir, "error", err)
		}
	}

	if b.Header != "" {
		path := b.Header
		if !filepath.IsAbs(path) {
			path = filepath.Join(b.OutputDir, path)
		}
		if err := embed.WriteHeader(path, embed.GuardFor(path), decls); err != nil {
			logger.Error("writing header", "path", path, "error", err)
		} else {
			report.Header = path
			logger.Debug("wrote header", "path", path, "declarations", len(decls))
		}
	}

	logger.Info("batch finished",
		"succeeded", report.Succeeded, "unchanged", report.Unchanged, "failed", report.Failed)
	return report
}

func (b *Batch) runEntry(e Entry, st *stamp.Stamp, logger *slog.Logger) EntryResult {
	res := EntryResult{Entry: e, Status: StatusFailed}
	log := logger.With("name", e.Name)

	if err := embed.ValidName(e.Name); err != nil {
		res.Err = err
		return res
	}
	profile := b.Profile
	if e.Profile != nil {
		profile = *e.Profile
	}
	kind := e.kind()
	if kind != KindImage && kind != KindBinary {
		res.Err = fmt.Errorf("unknown kind %q", kind)
		return res
	}
	if kind == KindImage {
		if err := profile.Validate(); err != nil {
			res.Err = err
			return res
		}
	}
	src := b.sourcePath(e)
	out := embed.Path(b.OutputDir, e.Name)
	opts := embed.Options{RowWidth: b.RowWidth}
	variant := string(kind)
	if e.Lossless {
		variant += "+lossless"
	}

	// 1. Obtain the input bytes, generating them if asked to
	var data []byte
	if e.Synth != nil {
		res.digest = stamp.Sum([]byte(e.Synth.describe()), variant, profile, opts.RowWidth)
		generated := []string{out}
		if src != "" {
			generated = append(generated, src)
		}
		if b.fresh(st, e, res.digest, generated...) {
			return b.unchanged(res, st, src, out, log)
		}
		buf, err := synth.Generate(e.Synth.Width, e.Synth.Height, e.Synth.Pattern)
		if err != nil {
			res.Err = fmt.Errorf("generate: %w", err)
			return res
		}
		img, err := NormalizePixels(buf, profile)
		if err != nil {
			res.Err = err
			return res
		}
		if src != "" {
			if err := writeFile(src, img.Data); err != nil {
				res.Err = err
				return res
			}
			log.Debug("synthesized image", "path", src, "bytes", len(img.Data))
		}
		res.Image = img
		data = img.Data
	} else {
		raw, err := os.ReadFile(src)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				res.Err = fmt.Errorf("%w: %s", embed.ErrSourceNotFound, src)
			} else {
				res.Err = fmt.Errorf("reading %s: %w", src, err)
			}
			return res
		}
		res.digest = stamp.Sum(raw, variant, profile, opts.RowWidth)
		if b.fresh(st, e, res.digest, out) {
			return b.unchanged(res, st, src, out, log)
		}
		data = raw

		// 2. Normalize images to the profile
		if kind == KindImage {
			normalize := Normalize
			if e.Lossless {
				normalize = NormalizeLossless
			}
			img, err := normalize(raw, profile)
			if err != nil {
				res.Err = err
				return res
			}
			log.Debug("normalized", "format", img.Format,
				"src", fmt.Sprintf("%dx%d", img.SrcWidth, img.SrcHeight),
				"out", fmt.Sprintf("%dx%d", img.Width, img.Height),
				"reencoded", img.Reencoded)
			if b.InPlace {
				if err := writeFile(src, img.Data); err != nil {
					res.Err = err
					return res
				}
				res.digest = stamp.Sum(img.Data, variant, profile, opts.RowWidth)
			}
			res.Image = img
			data = img.Data
		}
	}

	// 3. Embed
	origin := src
	if origin == "" {
		origin = e.Name
	}
	decl, err := embed.EmbedBytes(embed.Asset{Name: e.Name, Origin: origin, Data: data}, b.OutputDir, opts)
	if err != nil {
		res.Err = fmt.Errorf("embed: %w", err)
		return res
	}
	log.Info("built asset", "output", out, "bytes", decl.Len)

	res.Status = StatusBuilt
	res.Decl = decl
	res.Output = out
	return res
}

// fresh reports whether e can be skipped: its digest matches the stamp
// and every file it produces is still on disk.
func (b *Batch) fresh(st *stamp.Stamp, e Entry, d stamp.Digest, outputs ...string) bool {
	if !b.Stamp || !st.Fresh(e.Name, d) {
		return false
	}
	for _, path := range outputs {
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}

func (b *Batch) unchanged(res EntryResult, st *stamp.Stamp, src, out string, log *slog.Logger) EntryResult {
	origin := filepath.Base(src)
	if src == "" {
		origin = res.Entry.Name
	}
	res.Status = StatusUnchanged
	res.Output = out
	res.Decl = &embed.Declaration{Name: res.Entry.Name, Origin: origin, Len: st.Entries[res.Entry.Name].Len}
	log.Debug("unchanged", "digest", res.digest)
	return res
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Discover lists the regular files directly inside dir as entries, in
// file name order, deriving each declaration name from the file name.
func Discover(dir, prefix string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	var entries []Entry
	for _, de := range dirEntries {
		if !de.Type().IsRegular() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		entries = append(entries, Entry{
			Source: de.Name(),
			Name:   embed.NameFor(de.Name(), prefix),
		})
	}
	return entries, nil
}
