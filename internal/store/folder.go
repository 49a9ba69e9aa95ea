package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// FolderUpsert is the writable subset of a folder row. Show is decided by
// the caller (password inheritance rule) before the write.
type FolderUpsert struct {
	ID           string
	PID          string
	Name         string
	Description  string
	Password     string
	PasswordTips string
	Show         bool
}

// UpsertFolder inserts or refreshes one folder and cascades its Show value
// to direct children, per the inheritance rule.
func (s *Store) UpsertFolder(f FolderUpsert) error {
	_, err := s.db.Exec(
		`INSERT INTO folders (id, pid, name, description, password, password_tips, show)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   pid = excluded.pid,
		   name = excluded.name,
		   description = excluded.description,
		   password = excluded.password,
		   password_tips = excluded.password_tips,
		   show = excluded.show`,
		f.ID, f.PID, f.Name, f.Description, f.Password, f.PasswordTips, f.Show,
	)
	if err != nil {
		return fmt.Errorf("upsert folder: %w", err)
	}

	// Children without their own password follow the parent.
	_, err = s.db.Exec(`UPDATE folders SET show = ? WHERE pid = ? AND password = ''`, f.Show, f.ID)
	if err != nil {
		return fmt.Errorf("cascade show: %w", err)
	}
	return nil
}

// GetFolder returns one folder row, or nil when absent.
func (s *Store) GetFolder(id string) (*Folder, error) {
	var f Folder
	err := s.db.QueryRow(
		`SELECT id, pid, name, description, password, password_tips, show, count
		 FROM folders WHERE id = ?`, id,
	).Scan(&f.ID, &f.PID, &f.Name, &f.Description, &f.Password, &f.PasswordTips, &f.Show, &f.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query folder: %w", err)
	}
	return &f, nil
}

// ListFolders returns all folder rows.
func (s *Store) ListFolders() ([]Folder, error) {
	return s.queryFolders(`SELECT id, pid, name, description, password, password_tips, show, count FROM folders`)
}

// VisibleFolders returns folders with show = 1, optionally restricted to one parent.
func (s *Store) VisibleFolders(pid string) ([]Folder, error) {
	if pid != "" {
		return s.queryFolders(
			`SELECT id, pid, name, description, password, password_tips, show, count
			 FROM folders WHERE show = 1 AND pid = ?`, pid)
	}
	return s.queryFolders(
		`SELECT id, pid, name, description, password, password_tips, show, count
		 FROM folders WHERE show = 1`)
}

// DeleteFoldersUnreferenced deletes the given folders, but only those with
// zero image links. A folder still referenced by any image survives even
// when the external tree momentarily omits it.
func (s *Store) DeleteFoldersUnreferenced(ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	res, err := s.db.Exec(
		`DELETE FROM folders WHERE id IN (`+placeholders+`)
		 AND id NOT IN (SELECT folder_id FROM image_folders)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("delete folders: %w", err)
	}
	return res.RowsAffected()
}

// SetFolderCount stores a computed bottom-up count.
func (s *Store) SetFolderCount(id string, count int64) error {
	_, err := s.db.Exec(`UPDATE folders SET count = ? WHERE id = ?`, count, id)
	return err
}

// DirectImageCount counts non-deleted images linked to a folder whose paths
// sit below libraryPath.
func (s *Store) DirectImageCount(folderID, libraryPath string) (int64, error) {
	var n int64
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM image_folders l
		 JOIN images i ON i.id = l.image_id
		 WHERE l.folder_id = ? AND i.is_deleted = 0 AND i.path LIKE ?`,
		folderID, libraryPath+"%",
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count folder images: %w", err)
	}
	return n, nil
}

// SetPwdFolderShow applies the global password-folder policy: every folder
// with a password, and the children of top-level password folders that have
// no password of their own, get show = visible.
func (s *Store) SetPwdFolderShow(visible bool) error {
	_, err := s.db.Exec(
		`UPDATE folders SET show = ?
		 WHERE password != ''
		    OR (password = '' AND pid IN (SELECT id FROM folders WHERE password != '' AND pid = ''))`,
		visible,
	)
	if err != nil {
		return fmt.Errorf("set pwd folder show: %w", err)
	}
	return nil
}

// DeleteAllFolders empties the folder table (library removal).
func (s *Store) DeleteAllFolders() error {
	_, err := s.db.Exec(`DELETE FROM folders`)
	return err
}

func (s *Store) queryFolders(query string, args ...any) ([]Folder, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query folders: %w", err)
	}
	defer rows.Close()

	var out []Folder
	for rows.Next() {
		var f Folder
		if err := rows.Scan(&f.ID, &f.PID, &f.Name, &f.Description, &f.Password, &f.PasswordTips, &f.Show, &f.Count); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
