package eagle_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kafky-yu/eagle-pics-server/internal/eagle"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadItemMetadata(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "metadata.json",
		`{"id":"AAA1","name":"pic","ext":"JPG","size":10,"modificationTime":123}`)

	item, err := eagle.ReadItemMetadata(path)
	if err != nil {
		t.Fatal(err)
	}
	if item.ID != "AAA1" || item.ModificationTime != 123 {
		t.Errorf("item = %+v", item)
	}
}

func TestReadItemMetadataTagsFailures(t *testing.T) {
	dir := t.TempDir()

	badJSON := writeFile(t, dir, "bad.json", `{"id":`)
	if _, err := eagle.ReadItemMetadata(badJSON); err == nil || !strings.Contains(err.Error(), "[json-error]") {
		t.Errorf("bad json err = %v, want [json-error] tag", err)
	}

	badExt := writeFile(t, dir, "ext.json", `{"id":"A","name":"n","ext":"exe"}`)
	if _, err := eagle.ReadItemMetadata(badExt); err == nil || !strings.Contains(err.Error(), "[unsupported-ext]") {
		t.Errorf("bad ext err = %v, want [unsupported-ext] tag", err)
	}

	partial := writeFile(t, dir, "partial.json", `{"name":"n"}`)
	var vErr *eagle.ValidationError
	if _, err := eagle.ReadItemMetadata(partial); !errors.As(err, &vErr) {
		t.Errorf("partial err = %v, want *ValidationError", err)
	}
}

func TestSupportedExtIsCaseInsensitive(t *testing.T) {
	for _, ext := range []string{"jpg", "JPG", "Png", "mp4", "mp3"} {
		if !eagle.SupportedExt(ext) {
			t.Errorf("SupportedExt(%q) = false", ext)
		}
	}
	for _, ext := range []string{"exe", "psd", ""} {
		if eagle.SupportedExt(ext) {
			t.Errorf("SupportedExt(%q) = true", ext)
		}
	}
}

func TestReadLibraryMetadata(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "metadata.json",
		`{"folders":[{"id":"R","name":"root","children":[{"id":"C","name":"child"}]}]}`)

	info, err := eagle.ReadLibraryMetadata(eagle.LibraryMetadataPath(dir))
	if err != nil {
		t.Fatal(err)
	}
	if len(info.Folders) != 1 || len(info.Folders[0].Children) != 1 {
		t.Errorf("folders = %+v", info.Folders)
	}

	if _, err := eagle.ReadLibraryMetadata(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestPaletteRGB(t *testing.T) {
	p := eagle.Palette{Color: [3]int{0x12, 0x34, 0x56}}
	if got := p.RGB(); got != 0x123456 {
		t.Errorf("RGB() = %#x, want 0x123456", got)
	}
}
