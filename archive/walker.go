// Package archive builds Walk abstraction on top of "archive/zip".
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"
)

// WalkFunc is called for every file of the archive under requested prefix.
// If an error is returned, processing stops.
type WalkFunc func(archive string, file *zip.File) error

// Walk visits every file of the archive whose name starts with prefix, in
// archive directory order. Archives with entries escaping extraction
// directory (absolute names or ".." components) are rejected as a whole.
func Walk(archive, prefix string, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		if err := walkFn(archive, f); err != nil {
			return err
		}
	}
	return nil
}

// Entry is a file read out of an archive.
type Entry struct {
	Name    string
	NonUTF8 bool // name is not in UTF-8, see zip.FileHeader
	Data    []byte
}

// ReadAll reads every file under prefix accepted by match.
func ReadAll(archive, prefix string, match func(*zip.File) (bool, error)) ([]Entry, error) {
	var out []Entry
	err := Walk(archive, prefix, func(_ string, f *zip.File) error {
		ok, err := match(f)
		if err != nil {
			return fmt.Errorf("zip entry %q: %w", f.Name, err)
		}
		if !ok {
			return nil
		}
		r, err := f.Open()
		if err != nil {
			return fmt.Errorf("zip entry %q: %w", f.Name, err)
		}
		defer r.Close()

		data, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("zip entry %q: %w", f.Name, err)
		}
		out = append(out, Entry{Name: f.Name, NonUTF8: f.NonUTF8, Data: data})
		return nil
	})
	return out, err
}

func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	for part := range strings.SplitSeq(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
