package convert

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"

	"stylec/common"
)

type srcEncoding int

const (
	encUnknown srcEncoding = iota
	encUTF8
	encUTF16BigEndian
	encUTF16LittleEndian
	encUTF32BigEndian
	encUTF32LittleEndian
)

func isUTF32BigEndianBOM4(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == 0x00 && buf[1] == 0x00 && buf[2] == 0xFE && buf[3] == 0xFF
}

func isUTF32LittleEndianBOM4(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == 0xFF && buf[1] == 0xFE && buf[2] == 0x00 && buf[3] == 0x00
}

func isUTF8BOM3(buf []byte) bool {
	return len(buf) >= 3 && buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF
}

func isUTF16BigEndianBOM2(buf []byte) bool {
	return len(buf) >= 2 && buf[0] == 0xFE && buf[1] == 0xFF
}

func isUTF16LittleEndianBOM2(buf []byte) bool {
	return len(buf) >= 2 && buf[0] == 0xFF && buf[1] == 0xFE
}

// detectUTF looks at byte order mark, UTF-32 is checked first since its
// little endian mark starts with UTF-16 one.
func detectUTF(buf []byte) srcEncoding {
	switch {
	case isUTF32BigEndianBOM4(buf):
		return encUTF32BigEndian
	case isUTF32LittleEndianBOM4(buf):
		return encUTF32LittleEndian
	case isUTF8BOM3(buf):
		return encUTF8
	case isUTF16BigEndianBOM2(buf):
		return encUTF16BigEndian
	case isUTF16LittleEndianBOM2(buf):
		return encUTF16LittleEndian
	}
	return encUnknown
}

// selectReader returns reader producing UTF-8 without byte order mark.
func selectReader(r io.Reader, enc srcEncoding) io.Reader {
	switch enc {
	case encUnknown:
		return r
	case encUTF8:
		return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
	case encUTF16BigEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder())
	case encUTF16LittleEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder())
	case encUTF32BigEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.BigEndian, utf32.UseBOM).NewDecoder())
	case encUTF32LittleEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.LittleEndian, utf32.UseBOM).NewDecoder())
	default:
		// this should never happen
		panic("unsupported source encoding")
	}
}

// decodeUTF converts data with byte order mark to UTF-8, data without one is
// returned as is.
func decodeUTF(data []byte) ([]byte, error) {
	enc := detectUTF(data)
	if enc == encUnknown {
		return data, nil
	}
	return io.ReadAll(selectReader(bytes.NewReader(data), enc))
}

var cssType = filetype.AddType("css", "text/css")

func init() {
	filetype.AddMatcher(cssType, matchStyleSheet)
}

// matchStyleSheet recognizes textual style-sheet start: optional byte order
// mark and white space followed by a comment, an at-rule or a selector.
func matchStyleSheet(head []byte) bool {
	switch detectUTF(head) {
	case encUTF16BigEndian, encUTF16LittleEndian, encUTF32BigEndian, encUTF32LittleEndian:
		return true
	case encUTF8:
		head = head[3:]
	}
	head = bytes.TrimLeft(head, " \t\r\n\f")
	if len(head) == 0 || bytes.IndexByte(head, 0) >= 0 {
		return false
	}
	if bytes.HasPrefix(head, []byte("/*")) {
		return true
	}
	c := head[0]
	return strings.IndexByte("@.#:*[&", c) >= 0 || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// filetype needs that many bytes to recognize every supported signature
const headerSize = 262

func readHeader(r io.Reader) ([]byte, error) {
	head := make([]byte, headerSize)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return head[:n], nil
}

// isArchiveFile reports whether file is a zip archive. Only files with zip
// extension are looked at.
func isArchiveFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		return false, nil
	}
	head, err := readHeader(f)
	if err != nil {
		return false, err
	}
	return filetype.Is(head, "zip"), nil
}

// isStyleSheet reports whether name looks like a style-sheet source: css
// extension and no recognizable binary signature. Empty files are
// style-sheets too.
func isStyleSheet(name string, head []byte) bool {
	if !strings.EqualFold(filepath.Ext(name), ".css") {
		return false
	}
	if len(head) == 0 {
		return true
	}
	kind, err := filetype.Match(head)
	return err != nil || kind == filetype.Unknown || kind == cssType
}

func isStyleFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head, err := readHeader(f)
	if err != nil {
		return false, err
	}
	return isStyleSheet(path, head), nil
}

func isStyleInArchive(f *zip.File) (bool, error) {
	if !strings.EqualFold(filepath.Ext(f.Name), ".css") {
		return false, nil
	}
	r, err := f.Open()
	if err != nil {
		return false, err
	}
	defer r.Close()

	head, err := readHeader(r)
	if err != nil {
		return false, err
	}
	return isStyleSheet(f.Name, head), nil
}

// markupFormat guesses markup dialect by file extension, falling back to
// requested default.
func markupFormat(path string, def common.MarkupFmt) common.MarkupFmt {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		return common.MarkupFmtHtml
	case ".xml", ".hml", ".ux":
		return common.MarkupFmtXml
	}
	return def
}
