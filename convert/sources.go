package convert

import (
	"archive/zip"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"stylec/archive"
	"stylec/css"
)

// sourceLoader collects style-sheet sources from files, directories and zip
// archives. Sources keep command line order, which is their cascade order;
// directories and archives contribute their files in lexical or archive
// order.
type sourceLoader struct {
	log *zap.Logger
	// names of files in archives which are not flagged UTF-8
	codePage encoding.Encoding
	// encoding of style-sheet contents, nil means UTF-8 or UTF-16/32 with
	// byte order mark
	charset encoding.Encoding

	sources []css.Source
}

func (l *sourceLoader) add(name string, data []byte) error {
	var (
		decoded []byte
		err     error
	)
	if l.charset != nil {
		decoded, err = l.charset.NewDecoder().Bytes(data)
	} else {
		decoded, err = decodeUTF(data)
	}
	if err != nil {
		return fmt.Errorf("unable to decode %s: %w", name, err)
	}
	data = decoded
	l.sources = append(l.sources, css.Source{Name: name, Data: data})
	l.log.Debug("Style-sheet source added", zap.String("name", name), zap.Int("bytes", len(data)))
	return nil
}

// load adds sources found at src: a style-sheet file, a directory, an
// archive, or a path inside an archive ("styles.zip/theme").
func (l *sourceLoader) load(ctx context.Context, src string) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exist, probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			return l.loadDir(ctx, head)
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		isArchive, err := isArchiveFile(head)
		if err != nil {
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if isArchive {
			pathIn := strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			return l.loadArchive(ctx, head, filepath.ToSlash(pathIn))
		}

		if len(tail) != 0 {
			return fmt.Errorf("input source was not found (%s)", src)
		}
		isStyle, err := isStyleFile(head)
		if err != nil {
			return fmt.Errorf("unable to check file type: %w", err)
		}
		if !isStyle {
			return fmt.Errorf("input was not recognized as style-sheet (%s)", head)
		}
		data, err := os.ReadFile(head)
		if err != nil {
			return err
		}
		return l.add(filepath.Base(head), data)
	}
	return fmt.Errorf("input source was not found (%s)", src)
}

// loadDir adds every style-sheet under dir, symbolic links are not followed.
func (l *sourceLoader) loadDir(ctx context.Context, dir string) error {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			l.log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		isStyle, err := isStyleFile(path)
		if err != nil {
			l.log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if !isStyle {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			l.log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		count++
		rel, _ := filepath.Rel(dir, path)
		return l.add(filepath.ToSlash(filepath.Join(filepath.Base(dir), rel)), data)
	})
	if err == nil && count == 0 {
		l.log.Debug("No style-sheets found", zap.String("dir", dir))
	}
	return err
}

// loadArchive adds every style-sheet in archive under pathIn.
func (l *sourceLoader) loadArchive(ctx context.Context, path, pathIn string) error {
	entries, err := archive.ReadAll(path, pathIn, func(f *zip.File) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		return isStyleInArchive(f)
	})
	if err != nil {
		return fmt.Errorf("unable to read archive %s: %w", path, err)
	}
	if len(entries) == 0 {
		l.log.Debug("No style-sheets found", zap.String("archive", path), zap.String("path", pathIn))
	}
	for _, e := range entries {
		name := e.Name
		if l.codePage != nil && e.NonUTF8 {
			// zip does not define file name encoding, forcing requested one
			if n, err := l.codePage.NewDecoder().String(name); err == nil {
				name = n
			} else {
				cp, _ := ianaindex.IANA.Name(l.codePage)
				l.log.Warn("Unable to convert archive name from specified encoding",
					zap.String("charset", cp), zap.String("path", name), zap.Error(err))
			}
		}
		if err := l.add(filepath.Base(path)+"/"+name, e.Data); err != nil {
			return err
		}
	}
	return nil
}
