package catalog

import (
	"context"
	"fmt"
	"time"
)

// ChannelSent reports whether the given channel has already acknowledged
// delivery for the release. Used to avoid duplicate sends when one channel
// fails and the release is retried on a later cycle.
func (s *Store) ChannelSent(ctx context.Context, releaseID int64, channel string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM notify_log WHERE release_id = ? AND channel = ?`,
		releaseID, channel,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check channel sent: %w", err)
	}
	return count > 0, nil
}

// RecordChannelSent marks the channel as acknowledged for the release.
// Recording the same pair twice is a no-op.
func (s *Store) RecordChannelSent(ctx context.Context, releaseID int64, channel string) error {
	s.writerMu.Lock()
	defer s.writerMu.Unlock()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO notify_log (release_id, channel, sent_at) VALUES (?, ?, ?)`,
		releaseID, channel, time.Now().UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("record channel sent: %w", err)
	}
	return nil
}
