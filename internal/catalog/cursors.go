package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Cursor returns the persisted fetch cursor for a source, or "" when the
// source has never completed a fetch.
func (s *Store) Cursor(ctx context.Context, source string) (string, error) {
	var cursor string
	err := s.db.QueryRowContext(ctx, `SELECT cursor FROM source_cursors WHERE source = ?`, source).Scan(&cursor)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get cursor: %w", err)
	}
	return cursor, nil
}

// SetCursor records the fetch cursor for a source.
func (s *Store) SetCursor(ctx context.Context, source, cursor string) error {
	s.writerMu.Lock()
	defer s.writerMu.Unlock()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO source_cursors (source, cursor, updated_at) VALUES (?, ?, ?)
         ON CONFLICT (source) DO UPDATE SET cursor = excluded.cursor, updated_at = excluded.updated_at`,
		source, cursor, time.Now().UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("set cursor: %w", err)
	}
	return nil
}
