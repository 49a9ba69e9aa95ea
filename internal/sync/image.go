package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/kafky-yu/eagle-pics-server/internal/eagle"
	"github.com/kafky-yu/eagle-pics-server/internal/store"
)

// freshnessWindowMS: an item whose metadata modification time is within this
// window of the stored row is considered already synced.
const freshnessWindowMS = 3000

// ErrAlreadySynced reports that an item's stored state already matches its
// metadata. Expected, never escalated.
var ErrAlreadySynced = errors.New("item already synced")

// Engine materializes one image's relational representation from its
// metadata file: the row itself plus tag/color/folder associations.
type Engine struct {
	store  *store.Store
	logger *slog.Logger
}

// NewEngine creates an image upsert engine.
func NewEngine(st *store.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, logger: logger}
}

// NeedsSync is the freshness check: false when the stored row already
// reflects the metadata file. Unreadable metadata counts as needing sync so
// the failure is classified and logged by the sync pass, not lost here.
func (e *Engine) NeedsSync(path string) bool {
	item, err := eagle.ReadItemMetadata(path)
	if err != nil {
		return true
	}
	existing, err := e.store.GetImageByPath(path)
	if err != nil || existing == nil {
		return true
	}
	return !fresh(existing, item)
}

// Process applies one pending entry. The pending row is removed regardless
// of outcome so the queue drains and a poison-pill path cannot wedge a pass.
// The returned error has already been recorded; callers only report it.
func (e *Engine) Process(ctx context.Context, p store.Pending) error {
	defer func() {
		if err := e.store.DeletePending(p.Path); err != nil {
			e.logger.Warn("delete pending", "path", p.Path, "error", err)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	var err error
	switch p.Type {
	case store.PendingCreate, store.PendingUpdate:
		err = e.Upsert(ctx, p.Path)
	case store.PendingDelete:
		if delErr := e.store.SoftDeleteImage(p.Path); delErr != nil {
			// Deleting an item that never made it into the mirror is routine.
			e.logger.Warn("soft delete image", "path", p.Path, "error", delErr)
		}
		return nil
	default:
		err = fmt.Errorf("unknown pending type %q", p.Type)
	}

	if err == nil {
		return nil
	}
	return e.classify(p.Path, err)
}

// Upsert reads the item metadata at path and creates or refreshes the image
// row plus its associations. Updates apply only the association delta.
func (e *Engine) Upsert(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	item, err := eagle.ReadItemMetadata(path)
	if err != nil {
		return err
	}

	existing, err := e.store.GetImageByPath(path)
	if err != nil {
		return err
	}
	if existing != nil && fresh(existing, item) {
		return ErrAlreadySynced
	}

	img := store.Image{
		ID:        item.ID,
		Path:      path,
		Name:      item.Name,
		Ext:       item.Ext,
		Size:      item.Size,
		Width:     item.Width,
		Height:    item.Height,
		Mtime:     item.ModificationTime,
		IsDeleted: item.IsDeleted,
	}
	if err := e.store.UpsertImage(img); err != nil {
		return err
	}

	var oldTags, oldFolders []string
	var oldColors []int64
	if existing != nil {
		oldTags, oldColors, oldFolders = existing.Tags, existing.Colors, existing.Folders
	}

	addTags, removeTags := diffStrings(oldTags, item.Tags)
	for _, t := range addTags {
		if err := e.store.LinkTag(item.ID, t); err != nil {
			return err
		}
	}
	for _, t := range removeTags {
		if err := e.store.UnlinkTag(item.ID, t); err != nil {
			return err
		}
	}

	newColors := paletteColors(item.Palettes)
	addColors, removeColors := diffInts(oldColors, newColors)
	for _, c := range addColors {
		if err := e.store.LinkColor(item.ID, c); err != nil {
			return err
		}
	}
	for _, c := range removeColors {
		if err := e.store.UnlinkColor(item.ID, c); err != nil {
			return err
		}
	}

	addFolders, removeFolders := diffStrings(oldFolders, item.Folders)
	for _, f := range addFolders {
		if err := e.store.LinkFolder(item.ID, f); err != nil {
			return err
		}
	}
	for _, f := range removeFolders {
		if err := e.store.UnlinkFolder(item.ID, f); err != nil {
			return err
		}
	}

	return nil
}

var bracketTag = regexp.MustCompile(`\[([^\]]+)\]`)

// classify records a per-item failure. Benign causes (already synced,
// schema validation) are warning-logged only; everything else lands in the
// logs table, tagged when the error message carries a bracketed tag.
func (e *Engine) classify(path string, err error) error {
	if errors.Is(err, ErrAlreadySynced) {
		e.logger.Warn("sync skipped", "path", path, "reason", err)
		return nil
	}
	var vErr *eagle.ValidationError
	if errors.As(err, &vErr) {
		e.logger.Warn("invalid item metadata", "path", path, "error", vErr)
		return nil
	}

	typ := store.LogUnknown
	if m := bracketTag.FindStringSubmatch(err.Error()); m != nil {
		switch store.LogType(m[1]) {
		case store.LogJSONError:
			typ = store.LogJSONError
		case store.LogUnsupportedExt:
			typ = store.LogUnsupportedExt
		}
	}

	if logErr := e.store.UpsertLog(path, typ, err.Error()); logErr != nil {
		e.logger.Error("record sync failure", "path", path, "error", logErr)
	}
	e.logger.Error("sync image", "path", path, "type", string(typ), "error", err)
	return err
}

func fresh(existing *store.Image, item *eagle.Item) bool {
	delta := existing.Mtime - item.ModificationTime
	if delta < 0 {
		delta = -delta
	}
	return delta < freshnessWindowMS
}

func paletteColors(palettes []eagle.Palette) []int64 {
	seen := make(map[int64]struct{}, len(palettes))
	out := make([]int64, 0, len(palettes))
	for _, p := range palettes {
		c := p.RGB()
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// diffStrings returns want\have (to add) and have\want (to remove).
func diffStrings(have, want []string) (add, remove []string) {
	haveSet := make(map[string]struct{}, len(have))
	for _, v := range have {
		haveSet[v] = struct{}{}
	}
	wantSet := make(map[string]struct{}, len(want))
	for _, v := range want {
		wantSet[v] = struct{}{}
		if _, ok := haveSet[v]; !ok {
			add = append(add, v)
		}
	}
	for _, v := range have {
		if _, ok := wantSet[v]; !ok {
			remove = append(remove, v)
		}
	}
	return add, remove
}

func diffInts(have, want []int64) (add, remove []int64) {
	haveSet := make(map[int64]struct{}, len(have))
	for _, v := range have {
		haveSet[v] = struct{}{}
	}
	wantSet := make(map[int64]struct{}, len(want))
	for _, v := range want {
		wantSet[v] = struct{}{}
		if _, ok := haveSet[v]; !ok {
			add = append(add, v)
		}
	}
	for _, v := range have {
		if _, ok := wantSet[v]; !ok {
			remove = append(remove, v)
		}
	}
	return add, remove
}
