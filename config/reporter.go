package config

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"stylec/misc"
)

type ReporterConfig struct {
	Destination string `yaml:"destination" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
}

// Prepare creates empty report backed by archive at configured destination
// (or in temporary directory if destination could not be created).
func (conf *ReporterConfig) Prepare() (*Report, error) {
	f, err := os.Create(conf.Destination)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+"-report.*.zip"); err != nil {
			return nil, fmt.Errorf("unable to create report: %w", err)
		}
	}
	return &Report{entries: make(map[string]entry), file: f}, nil
}

type entryKind int

const (
	kindPath entryKind = iota // file or directory referenced at Close time
	kindData                  // in-memory content
	kindCopy                  // snapshot taken at StoreCopy time
)

func (k entryKind) String() string {
	switch k {
	case kindData:
		return "data"
	case kindCopy:
		return "copy"
	}
	return "path"
}

type entry struct {
	kind     entryKind
	original string
	actual   string
	stamp    time.Time
	data     []byte
}

// Report collects compiler inputs, results and logs for troubleshooting
// and packs them into single zip archive on Close. Not safe for concurrent
// use. All methods are no-op on nil report, so callers do not need to check
// whether report was requested.
type Report struct {
	entries map[string]entry
	temps   []string
	file    *os.File
}

// Close writes the archive and removes temporary copies.
func (r *Report) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	defer r.file.Close()

	err := r.finalize()
	for _, dir := range r.temps {
		if e := os.RemoveAll(dir); e != nil && err == nil {
			err = e
		}
	}
	r.temps = nil
	return err
}

// Name returns absolute name of the archive.
func (r *Report) Name() string {
	if r == nil || r.file == nil {
		return ""
	}
	if n, err := filepath.Abs(r.file.Name()); err == nil {
		return n
	}
	return r.file.Name()
}

func (r *Report) add(name string, e entry) {
	if old, exists := r.entries[name]; exists && (e.kind != kindPath || old.original != e.original) {
		panic(fmt.Sprintf("report entry [%s] stored twice: %s then %s", name, old.original, e.original))
	}
	r.entries[name] = e
}

// Store references file or directory to be archived as it is at Close time.
func (r *Report) Store(name, path string) {
	if r == nil {
		return
	}
	e := entry{kind: kindPath, original: path, actual: path}
	if p, err := filepath.Abs(path); err == nil {
		e.actual = p
	}
	r.add(name, e)
}

// StoreData archives data under name.
func (r *Report) StoreData(name string, data []byte) {
	if r == nil {
		return
	}
	r.add(name, entry{kind: kindData, original: "<memory>", stamp: time.Now(), data: data})
}

// StoreCopy snapshots file or directory right away. Repeated names get
// timestamp suffix, so the same source may be captured before and after
// compilation.
func (r *Report) StoreCopy(name, src string) error {
	if r == nil {
		return nil
	}

	abs, err := filepath.Abs(src)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", misc.GetAppName()+"-r-")
	if err != nil {
		return err
	}
	r.temps = append(r.temps, dir)

	e := entry{kind: kindCopy, original: src, stamp: time.Now()}
	switch {
	case info.Mode().IsRegular():
		e.actual = filepath.Join(dir, filepath.Base(abs))
		if err := copyFile(e.actual, abs, info.ModTime()); err != nil {
			return err
		}
	case info.IsDir():
		e.actual = dir
		if err := copyTree(dir, abs); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unable to copy %s into report: not a regular file or directory", src)
	}

	if _, exists := r.entries[name]; exists {
		name = fmt.Sprintf("%s-%d", name, e.stamp.UnixNano())
	}
	r.entries[name] = e
	return nil
}

func copyFile(dst, src string, modTime time.Time) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, modTime, modTime)
}

// walkFiles calls fn for every regular file under root with slash separated
// relative name. Links and special files are ignored.
func walkFiles(root string, fn func(rel string, info fs.FileInfo) error) error {
	return fs.WalkDir(os.DirFS(root), ".", func(rel string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(rel, info)
	})
}

func copyTree(dst, src string) error {
	return walkFiles(src, func(rel string, info fs.FileInfo) error {
		return copyFile(filepath.Join(dst, filepath.FromSlash(rel)), filepath.Join(src, filepath.FromSlash(rel)), info.ModTime())
	})
}

func (r *Report) finalize() error {
	arc := zip.NewWriter(r.file)

	names := slices.Sorted(maps.Keys(r.entries))
	if err := addFile(arc, "MANIFEST", time.Now(), strings.NewReader(manifest(names, r.entries))); err != nil {
		arc.Close()
		return err
	}

	for _, name := range names {
		if err := r.archive(arc, name, r.entries[name]); err != nil {
			arc.Close()
			return err
		}
	}
	return arc.Close()
}

func (r *Report) archive(arc *zip.Writer, name string, e entry) error {
	if e.kind == kindData {
		return addFile(arc, name, e.stamp, strings.NewReader(string(e.data)))
	}

	info, err := os.Stat(e.actual)
	if err != nil {
		// file may be gone by now, this is not an error
		return nil
	}
	if info.IsDir() {
		return walkFiles(e.actual, func(rel string, info fs.FileInfo) error {
			return addFromDisk(arc, path.Join(name, rel), filepath.Join(e.actual, filepath.FromSlash(rel)), info.ModTime())
		})
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	return addFromDisk(arc, name, e.actual, info.ModTime())
}

func manifest(names []string, entries map[string]entry) string {
	var sb strings.Builder
	now := time.Now()
	for _, name := range names {
		e := entries[name]
		stamp := e.stamp
		if stamp.IsZero() {
			stamp = now
		}
		fmt.Fprintf(&sb, "%s\t%s\t%s\t%s", stamp.UTC().Format(time.RFC3339), e.kind, name, e.original)
		if e.actual != "" && e.actual != e.original {
			fmt.Fprintf(&sb, " -> %s", e.actual)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func addFromDisk(arc *zip.Writer, name, src string, t time.Time) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	return addFile(arc, name, t, f)
}

func addFile(arc *zip.Writer, name string, t time.Time, src io.Reader) error {
	w, err := arc.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: t})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
