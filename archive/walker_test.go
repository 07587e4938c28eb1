package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type zipItem struct {
	name    string
	content string
}

func makeZip(t *testing.T, items []zipItem) string {
	t.Helper()

	zipPath := filepath.Join(t.TempDir(), "styles.zip")
	zf, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	defer zf.Close()

	w := zip.NewWriter(zf)
	for _, it := range items {
		fw, err := w.Create(it.name)
		if err != nil {
			t.Fatalf("Failed to create %s in zip: %v", it.name, err)
		}
		if _, err := fw.Write([]byte(it.content)); err != nil {
			t.Fatalf("Failed to write %s: %v", it.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to finalize zip: %v", err)
	}
	return zipPath
}

var bundle = []zipItem{
	{"theme/base.css", ".a { width: 1px }"},
	{"theme/dark.css", ":root { --bg: #000 }"},
	{"pages/index.css", ".b { height: 2px }"},
	{"README.md", "styles"},
	{"theme/", ""},
}

func TestWalk(t *testing.T) {
	zipPath := makeZip(t, bundle)

	tests := []struct {
		name   string
		prefix string
		want   []string
	}{
		{"theme prefix", "theme/", []string{"theme/base.css", "theme/dark.css"}},
		{"pages prefix", "pages", []string{"pages/index.css"}},
		{"empty prefix", "", []string{"theme/base.css", "theme/dark.css", "pages/index.css", "README.md"}},
		{"no match", "fonts/", nil},
		{"case sensitive", "Theme/", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var visited []string
			err := Walk(zipPath, tt.prefix, func(archive string, f *zip.File) error {
				if archive != zipPath {
					t.Errorf("archive = %q, want %q", archive, zipPath)
				}
				visited = append(visited, f.Name)
				return nil
			})
			if err != nil {
				t.Fatalf("Walk() error = %v", err)
			}
			if strings.Join(visited, ",") != strings.Join(tt.want, ",") {
				t.Errorf("visited %v, want %v", visited, tt.want)
			}
		})
	}
}

func TestWalk_StopsOnError(t *testing.T) {
	zipPath := makeZip(t, bundle)
	stop := errors.New("stop")

	count := 0
	err := Walk(zipPath, "", func(string, *zip.File) error {
		count++
		if count == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("Walk() error = %v, want %v", err, stop)
	}
	if count != 2 {
		t.Errorf("walkFn called %d times, want 2", count)
	}
}

func TestWalk_InvalidArchive(t *testing.T) {
	if err := Walk(filepath.Join(t.TempDir(), "missing.zip"), "", func(string, *zip.File) error { return nil }); err == nil {
		t.Error("expected error for missing archive")
	}

	bad := filepath.Join(t.TempDir(), "bad.zip")
	if err := os.WriteFile(bad, []byte(".a { width: 1px }"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Walk(bad, "", func(string, *zip.File) error { return nil }); err == nil {
		t.Error("expected error for file which is not a zip archive")
	}
}

func TestWalk_UnsafePath(t *testing.T) {
	zipPath := makeZip(t, []zipItem{
		{"ok.css", ".a {}"},
		{"../evil.css", ".b {}"},
	})
	err := Walk(zipPath, "", func(string, *zip.File) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "unsafe path") {
		t.Fatalf("Walk() error = %v, want unsafe path error", err)
	}
}

func TestReadAll(t *testing.T) {
	zipPath := makeZip(t, bundle)

	entries, err := ReadAll(zipPath, "", func(f *zip.File) (bool, error) {
		return strings.HasSuffix(f.Name, ".css"), nil
	})
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("ReadAll() returned %d entries, want 3", len(entries))
	}
	if entries[0].Name != "theme/base.css" || string(entries[0].Data) != ".a { width: 1px }" {
		t.Errorf("first entry = %q %q", entries[0].Name, entries[0].Data)
	}
	if entries[2].Name != "pages/index.css" {
		t.Errorf("last entry = %q, want pages/index.css", entries[2].Name)
	}

	matchErr := errors.New("cannot check")
	_, err = ReadAll(zipPath, "", func(*zip.File) (bool, error) { return false, matchErr })
	if !errors.Is(err, matchErr) {
		t.Errorf("ReadAll() error = %v, want %v", err, matchErr)
	}
}

func TestIsSafePath(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"theme/base.css", true},
		{"a..b.css", true},
		{"/etc/passwd", false},
		{`\windows\system.ini`, false},
		{"theme/../../x.css", false},
		{"..", false},
	}
	for _, tt := range tests {
		if got := isSafePath(tt.name); got != tt.want {
			t.Errorf("isSafePath(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
