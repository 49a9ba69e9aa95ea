package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// UpsertImage writes the scalar columns of one image row.
// Associations are maintained separately so the engine can apply deltas.
func (s *Store) UpsertImage(img Image) error {
	_, err := s.db.Exec(
		`INSERT INTO images (id, path, name, ext, size, width, height, mtime, is_deleted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   id = excluded.id,
		   name = excluded.name,
		   ext = excluded.ext,
		   size = excluded.size,
		   width = excluded.width,
		   height = excluded.height,
		   mtime = excluded.mtime,
		   is_deleted = excluded.is_deleted`,
		img.ID, img.Path, img.Name, img.Ext, img.Size, img.Width, img.Height, img.Mtime, img.IsDeleted,
	)
	if err != nil {
		return fmt.Errorf("upsert image: %w", err)
	}
	return nil
}

// GetImageByPath returns one image with its association sets, or nil.
func (s *Store) GetImageByPath(path string) (*Image, error) {
	var img Image
	err := s.db.QueryRow(
		`SELECT id, path, name, ext, size, width, height, mtime, is_deleted
		 FROM images WHERE path = ?`, path,
	).Scan(&img.ID, &img.Path, &img.Name, &img.Ext, &img.Size, &img.Width, &img.Height, &img.Mtime, &img.IsDeleted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query image: %w", err)
	}

	if img.Tags, err = s.imageTags(img.ID); err != nil {
		return nil, err
	}
	if img.Colors, err = s.imageColors(img.ID); err != nil {
		return nil, err
	}
	if img.Folders, err = s.imageFolders(img.ID); err != nil {
		return nil, err
	}
	return &img, nil
}

// SoftDeleteImage marks the image at path deleted without purging it, so the
// trash view keeps working.
func (s *Store) SoftDeleteImage(path string) error {
	res, err := s.db.Exec(`UPDATE images SET is_deleted = 1 WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("soft delete image: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("image not found: %s", path)
	}
	return nil
}

// DeleteImagesByPrefix hard-deletes every image under a library path
// together with its association rows. Used only on library removal.
func (s *Store) DeleteImagesByPrefix(prefix string) error {
	for _, q := range []string{
		`DELETE FROM image_tags WHERE image_id IN (SELECT id FROM images WHERE path LIKE ?)`,
		`DELETE FROM image_colors WHERE image_id IN (SELECT id FROM images WHERE path LIKE ?)`,
		`DELETE FROM image_folders WHERE image_id IN (SELECT id FROM images WHERE path LIKE ?)`,
		`DELETE FROM images WHERE path LIKE ?`,
	} {
		if _, err := s.db.Exec(q, prefix+"%"); err != nil {
			return fmt.Errorf("delete images by prefix: %w", err)
		}
	}
	return nil
}

// EnsureTag creates a tag if absent.
func (s *Store) EnsureTag(name string) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO tags (name) VALUES (?)`, name)
	return err
}

// EnsureColor creates a color if absent.
func (s *Store) EnsureColor(value int64) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO colors (value) VALUES (?)`, value)
	return err
}

// LinkTag associates a tag with an image.
func (s *Store) LinkTag(imageID, tag string) error {
	if err := s.EnsureTag(tag); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT OR IGNORE INTO image_tags (image_id, tag_name) VALUES (?, ?)`, imageID, tag)
	return err
}

// UnlinkTag removes a tag association.
func (s *Store) UnlinkTag(imageID, tag string) error {
	_, err := s.db.Exec(`DELETE FROM image_tags WHERE image_id = ? AND tag_name = ?`, imageID, tag)
	return err
}

// LinkColor associates a color with an image.
func (s *Store) LinkColor(imageID string, value int64) error {
	if err := s.EnsureColor(value); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT OR IGNORE INTO image_colors (image_id, color_value) VALUES (?, ?)`, imageID, value)
	return err
}

// UnlinkColor removes a color association.
func (s *Store) UnlinkColor(imageID string, value int64) error {
	_, err := s.db.Exec(`DELETE FROM image_colors WHERE image_id = ? AND color_value = ?`, imageID, value)
	return err
}

// LinkFolder associates a folder with an image.
func (s *Store) LinkFolder(imageID, folderID string) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO image_folders (image_id, folder_id) VALUES (?, ?)`, imageID, folderID)
	return err
}

// UnlinkFolder removes a folder association.
func (s *Store) UnlinkFolder(imageID, folderID string) error {
	_, err := s.db.Exec(`DELETE FROM image_folders WHERE image_id = ? AND folder_id = ?`, imageID, folderID)
	return err
}

// GCOrphanTagsColors deletes tags and colors with no remaining image
// associations. Runs at the end of every sync pass.
func (s *Store) GCOrphanTagsColors() error {
	if _, err := s.db.Exec(
		`DELETE FROM tags WHERE name NOT IN (SELECT tag_name FROM image_tags)`,
	); err != nil {
		return fmt.Errorf("gc tags: %w", err)
	}
	if _, err := s.db.Exec(
		`DELETE FROM colors WHERE value NOT IN (SELECT color_value FROM image_colors)`,
	); err != nil {
		return fmt.Errorf("gc colors: %w", err)
	}
	return nil
}

// CountTags reports the number of tag rows.
func (s *Store) CountTags() (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM tags`).Scan(&n)
	return n, err
}

// CountColors reports the number of color rows.
func (s *Store) CountColors() (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM colors`).Scan(&n)
	return n, err
}

// DeleteAllTagsColors empties both tables and their links (library removal).
func (s *Store) DeleteAllTagsColors() error {
	for _, q := range []string{
		`DELETE FROM image_tags`, `DELETE FROM image_colors`,
		`DELETE FROM tags`, `DELETE FROM colors`,
	} {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) imageTags(imageID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT tag_name FROM image_tags WHERE image_id = ? ORDER BY tag_name`, imageID)
	if err != nil {
		return nil, fmt.Errorf("query image tags: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) imageColors(imageID string) ([]int64, error) {
	rows, err := s.db.Query(`SELECT color_value FROM image_colors WHERE image_id = ? ORDER BY color_value`, imageID)
	if err != nil {
		return nil, fmt.Errorf("query image colors: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var c int64
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) imageFolders(imageID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT folder_id FROM image_folders WHERE image_id = ? ORDER BY folder_id`, imageID)
	if err != nil {
		return nil, fmt.Errorf("query image folders: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
