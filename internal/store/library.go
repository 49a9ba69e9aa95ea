package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoActiveLibrary is returned when an operation needs an active library
// and none exists.
var ErrNoActiveLibrary = errors.New("no active library")

// CreateLibrary inserts a new library row.
func (s *Store) CreateLibrary(path, typ string, isActive bool) (*Library, error) {
	now := time.Now()
	_, err := s.db.Exec(
		`INSERT INTO libraries (path, type, is_active, created_time) VALUES (?, ?, ?, ?)`,
		path, typ, isActive, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert library: %w", err)
	}
	return &Library{Path: path, Type: typ, IsActive: isActive, CreatedTime: now}, nil
}

// GetLibrary returns the library at path, or nil when absent.
func (s *Store) GetLibrary(path string) (*Library, error) {
	return s.scanLibrary(s.db.QueryRow(
		`SELECT path, type, is_active, last_sync_time, created_time FROM libraries WHERE path = ?`,
		path,
	))
}

// ActiveLibrary returns the single active library. ErrNoActiveLibrary is
// returned when no library is active.
func (s *Store) ActiveLibrary() (*Library, error) {
	lib, err := s.scanLibrary(s.db.QueryRow(
		`SELECT path, type, is_active, last_sync_time, created_time FROM libraries WHERE is_active = 1`,
	))
	if err != nil {
		return nil, err
	}
	if lib == nil {
		return nil, ErrNoActiveLibrary
	}
	return lib, nil
}

// ListLibraries returns all libraries ordered by creation time.
func (s *Store) ListLibraries() ([]Library, error) {
	rows, err := s.db.Query(
		`SELECT path, type, is_active, last_sync_time, created_time FROM libraries ORDER BY created_time ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query libraries: %w", err)
	}
	defer rows.Close()

	var libs []Library
	for rows.Next() {
		var lib Library
		var lastSync sql.NullTime
		if err := rows.Scan(&lib.Path, &lib.Type, &lib.IsActive, &lastSync, &lib.CreatedTime); err != nil {
			return nil, fmt.Errorf("scan library: %w", err)
		}
		if lastSync.Valid {
			lib.LastSyncTime = lastSync.Time
		}
		libs = append(libs, lib)
	}
	return libs, rows.Err()
}

// DeactivateAll clears the is_active flag on every library.
func (s *Store) DeactivateAll() error {
	_, err := s.db.Exec(`UPDATE libraries SET is_active = 0`)
	return err
}

// ActivateLibrary flips the given library to active. Exactly one library is
// active afterwards.
func (s *Store) ActivateLibrary(path string) error {
	if _, err := s.db.Exec(`UPDATE libraries SET is_active = 0`); err != nil {
		return fmt.Errorf("deactivate libraries: %w", err)
	}
	res, err := s.db.Exec(`UPDATE libraries SET is_active = 1 WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("activate library: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("library not found: %s", path)
	}
	return nil
}

// StampLastSync records the completion time of a sync pass on the active library.
func (s *Store) StampLastSync(t time.Time) error {
	res, err := s.db.Exec(`UPDATE libraries SET last_sync_time = ? WHERE is_active = 1`, t)
	if err != nil {
		return fmt.Errorf("stamp last sync: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoActiveLibrary
	}
	return nil
}

// DeleteLibrary removes the library row itself. Scoped cleanup of dependent
// rows is the caller's job (see the lifecycle manager).
func (s *Store) DeleteLibrary(path string) error {
	_, err := s.db.Exec(`DELETE FROM libraries WHERE path = ?`, path)
	return err
}

// ActiveLibraryStatus returns the active library with its derived counters.
func (s *Store) ActiveLibraryStatus() (*LibraryStatus, error) {
	lib, err := s.ActiveLibrary()
	if err != nil {
		return nil, err
	}

	status := &LibraryStatus{Library: *lib}
	prefix := lib.Path + "%"

	if status.PendingCount, err = s.CountPendings(lib.Path); err != nil {
		return nil, err
	}

	counts := []struct {
		query string
		dst   *int64
	}{
		{`SELECT COUNT(*) FROM images WHERE path LIKE ?`, &status.SyncCount},
		{`SELECT COUNT(*) FROM images WHERE is_deleted = 1 AND path LIKE ?`, &status.TrashCount},
		{`SELECT COUNT(*) FROM logs WHERE path LIKE ?`, &status.UnSyncCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query, prefix).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
	}
	return status, nil
}

// PurgeOrphans deletes image and folder rows that no longer fall under any
// known library path. Folder rows survive only while they keep at least one
// image link.
func (s *Store) PurgeOrphans() error {
	libs, err := s.ListLibraries()
	if err != nil {
		return err
	}

	cond := ""
	args := make([]any, 0, len(libs))
	for _, lib := range libs {
		cond += " AND path NOT LIKE ?"
		args = append(args, lib.Path+"%")
	}

	if _, err := s.db.Exec(`DELETE FROM images WHERE 1=1`+cond, args...); err != nil {
		return fmt.Errorf("purge orphan images: %w", err)
	}
	if _, err := s.db.Exec(
		`DELETE FROM image_folders WHERE image_id NOT IN (SELECT id FROM images)`,
	); err != nil {
		return fmt.Errorf("purge orphan folder links: %w", err)
	}
	if _, err := s.db.Exec(
		`DELETE FROM folders WHERE id NOT IN (SELECT folder_id FROM image_folders)`,
	); err != nil {
		return fmt.Errorf("purge orphan folders: %w", err)
	}
	return nil
}

func (s *Store) scanLibrary(row *sql.Row) (*Library, error) {
	var lib Library
	var lastSync sql.NullTime
	err := row.Scan(&lib.Path, &lib.Type, &lib.IsActive, &lastSync, &lib.CreatedTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan library: %w", err)
	}
	if lastSync.Valid {
		lib.LastSyncTime = lastSync.Time
	}
	return &lib, nil
}
