package store

import (
	"database/sql"
	"errors"
	"fmt"
)

const settingsKey = "settings"

// Settings returns the singleton settings row, or nil before the first upsert.
func (s *Store) Settings() (*Settings, error) {
	var v Settings
	err := s.db.QueryRow(
		`SELECT ip, client_port, server_port, theme, color, auto_sync,
		        start_diff_library, pwd_folder, active_library_path, trash
		 FROM settings WHERE name = ?`, settingsKey,
	).Scan(&v.IP, &v.ClientPort, &v.ServerPort, &v.Theme, &v.Color, &v.AutoSync,
		&v.StartDiffLibrary, &v.PwdFolder, &v.ActiveLibraryPath, &v.Trash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	return &v, nil
}

// UpsertSettings writes the whole singleton row. Called at startup and
// whenever the network address or active library changes.
func (s *Store) UpsertSettings(v Settings) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (name, ip, client_port, server_port, theme, color,
		   auto_sync, start_diff_library, pwd_folder, active_library_path, trash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   ip = excluded.ip,
		   client_port = excluded.client_port,
		   server_port = excluded.server_port,
		   theme = excluded.theme,
		   color = excluded.color,
		   auto_sync = excluded.auto_sync,
		   start_diff_library = excluded.start_diff_library,
		   pwd_folder = excluded.pwd_folder,
		   active_library_path = excluded.active_library_path,
		   trash = excluded.trash`,
		settingsKey, v.IP, v.ClientPort, v.ServerPort, v.Theme, v.Color,
		v.AutoSync, v.StartDiffLibrary, v.PwdFolder, v.ActiveLibraryPath, v.Trash,
	)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

// SetActiveLibraryPath updates only the active-library pointer, creating
// the row with column defaults when it does not exist yet.
func (s *Store) SetActiveLibraryPath(path string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (name, active_library_path) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET active_library_path = excluded.active_library_path`,
		settingsKey, path,
	)
	return err
}
