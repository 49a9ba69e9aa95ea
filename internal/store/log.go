package store

import (
	"fmt"
	"time"
)

// UpsertLog records a per-item sync failure, replacing any previous record
// for the same path.
func (s *Store) UpsertLog(path string, typ LogType, message string) error {
	_, err := s.db.Exec(
		`INSERT INTO logs (path, type, message, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   type = excluded.type,
		   message = excluded.message,
		   created_at = excluded.created_at`,
		path, typ, message, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("upsert log: %w", err)
	}
	return nil
}

// Logs returns failure records, newest first. limit <= 0 means all.
func (s *Store) Logs(limit int) ([]LogEntry, error) {
	query := `SELECT path, type, message, created_at FROM logs ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.Path, &e.Type, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan log: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteLogsByPrefix clears failure records under a library path.
func (s *Store) DeleteLogsByPrefix(prefix string) error {
	_, err := s.db.Exec(`DELETE FROM logs WHERE path LIKE ?`, prefix+"%")
	return err
}

// DeleteAllLogs clears every failure record.
func (s *Store) DeleteAllLogs() error {
	_, err := s.db.Exec(`DELETE FROM logs`)
	return err
}
