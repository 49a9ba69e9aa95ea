package store

import (
	"fmt"
	"time"
)

// UpsertPending inserts or replaces the pending entry for a path.
// Last writer wins on type; the original creation time is kept so Pendings
// preserves insertion order across re-upserts.
func (s *Store) UpsertPending(path string, typ PendingType) error {
	_, err := s.db.Exec(
		`INSERT INTO pendings (path, type, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET type = excluded.type`,
		path, typ, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("upsert pending: %w", err)
	}
	return nil
}

// Pendings returns all outstanding entries in insertion order.
func (s *Store) Pendings() ([]Pending, error) {
	rows, err := s.db.Query(
		`SELECT path, type, created_at FROM pendings ORDER BY created_at ASC, path ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query pendings: %w", err)
	}
	defer rows.Close()

	var out []Pending
	for rows.Next() {
		var p Pending
		if err := rows.Scan(&p.Path, &p.Type, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CountPendings returns the number of outstanding entries under prefix, or
// of the whole queue when prefix is empty.
func (s *Store) CountPendings(prefix string) (int64, error) {
	var n int64
	var err error
	if prefix == "" {
		err = s.db.QueryRow(`SELECT COUNT(*) FROM pendings`).Scan(&n)
	} else {
		err = s.db.QueryRow(`SELECT COUNT(*) FROM pendings WHERE path LIKE ?`, prefix+"%").Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count pendings: %w", err)
	}
	return n, nil
}

// DeletePending removes the entry for path. Removing a missing path is not
// an error; the queue must always drain.
func (s *Store) DeletePending(path string) error {
	_, err := s.db.Exec(`DELETE FROM pendings WHERE path = ?`, path)
	return err
}

// DeletePendingsByPrefix removes every entry under a library path.
func (s *Store) DeletePendingsByPrefix(prefix string) error {
	_, err := s.db.Exec(`DELETE FROM pendings WHERE path LIKE ?`, prefix+"%")
	return err
}

// DeleteAllPendings empties the queue.
func (s *Store) DeleteAllPendings() error {
	_, err := s.db.Exec(`DELETE FROM pendings`)
	return err
}
