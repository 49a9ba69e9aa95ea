package eagle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Supported item extensions. Anything else fails the upsert with an
// [unsupported-ext] error so it lands in the failure log.
var supportedExts = map[string]struct{}{}

func init() {
	for _, ext := range []string{
		// video
		"mp4", "avi", "mov", "wmv", "flv", "webm", "mkv",
		// image
		"jpg", "png", "jpeg", "gif", "webp", "bmp", "ico", "svg",
		// audio
		"mp3", "wav", "ogg", "m4a", "aac",
	} {
		supportedExts[ext] = struct{}{}
	}
}

// SupportedExt reports whether the mirror handles items with this extension.
func SupportedExt(ext string) bool {
	_, ok := supportedExts[strings.ToLower(ext)]
	return ok
}

// LibraryMetadataPath returns the folder-tree source file of a library.
func LibraryMetadataPath(libraryPath string) string {
	return filepath.Join(libraryPath, "metadata.json")
}

// ImagesDir returns the directory holding per-item metadata.
func ImagesDir(libraryPath string) string {
	return filepath.Join(libraryPath, "images")
}

// ReadLibraryMetadata parses <library>/metadata.json.
func ReadLibraryMetadata(path string) (*LibraryInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read library metadata: %w", err)
	}

	var info LibraryInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse library metadata %s: %w", path, err)
	}
	return &info, nil
}

// ReadItemMetadata parses one item's metadata.json. Parse failures and
// unsupported extensions carry the bracketed tag the sync engine classifies
// failures by.
func ReadItemMetadata(path string) (*Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read item metadata: %w", err)
	}

	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("[json-error] parse %s: %w", path, err)
	}

	if item.ID == "" || item.Name == "" {
		return nil, &ValidationError{Path: path, Reason: "missing id or name"}
	}

	if !SupportedExt(item.Ext) {
		return nil, fmt.Errorf("[unsupported-ext] %s: ext %q", path, item.Ext)
	}

	return &item, nil
}

// ValidationError marks item metadata that parsed but fails schema checks.
// The sync engine treats it as expected and does not escalate it.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid item metadata %s: %s", e.Path, e.Reason)
}
