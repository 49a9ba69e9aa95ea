package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/kafky-yu/eagle-pics-server/internal/eagle"
)

// NewLibraryDir creates an empty <name>.library directory with an images
// subdirectory and returns its path.
func NewLibraryDir(t *testing.T, name string) string {
	t.Helper()
	libDir := filepath.Join(t.TempDir(), name+".library")
	if err := os.MkdirAll(filepath.Join(libDir, "images"), 0o755); err != nil {
		t.Fatalf("create library dir: %v", err)
	}
	return libDir
}

// WriteLibraryMetadata writes the folder tree file of a library.
func WriteLibraryMetadata(t *testing.T, libDir string, folders []eagle.FolderNode) {
	t.Helper()
	info := eagle.LibraryInfo{Folders: folders}
	writeJSONFile(t, eagle.LibraryMetadataPath(libDir), info)
}

// WriteItem writes one item's metadata.json under
// <lib>/images/<id>.info/ and returns its path.
func WriteItem(t *testing.T, libDir string, item eagle.Item) string {
	t.Helper()
	dir := filepath.Join(eagle.ImagesDir(libDir), item.ID+".info")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create item dir: %v", err)
	}
	path := filepath.Join(dir, "metadata.json")
	writeJSONFile(t, path, item)
	return path
}

// WriteRawItem writes arbitrary bytes as an item's metadata.json, for
// malformed-input cases.
func WriteRawItem(t *testing.T, libDir, id string, data []byte) string {
	t.Helper()
	dir := filepath.Join(eagle.ImagesDir(libDir), id+".info")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create item dir: %v", err)
	}
	path := filepath.Join(dir, "metadata.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write item metadata: %v", err)
	}
	return path
}

func writeJSONFile(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
