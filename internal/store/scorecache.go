package store

import (
	"context"
	"fmt"
	"time"
)

// GetCachedScore returns the cached payload for a URL hash and when it was
// stored.
func (s *Store) GetCachedScore(ctx context.Context, urlHash string) (string, time.Time, error) {
	var row struct {
		Payload   string `db:"payload"`
		CreatedAt int64  `db:"created_at"`
	}
	q := s.db.Rebind(`SELECT payload, created_at FROM score_cache WHERE url_hash = ?`)
	if err := s.db.GetContext(ctx, &row, q, urlHash); err != nil {
		return "", time.Time{}, notFound(err)
	}
	return row.Payload, fromUnix(row.CreatedAt), nil
}

func (s *Store) PutCachedScore(ctx context.Context, urlHash, url, payload string) error {
	q := s.db.Rebind(`INSERT INTO score_cache (url_hash, url, payload, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (url_hash) DO UPDATE SET url = excluded.url, payload = excluded.payload, created_at = excluded.created_at`)
	if _, err := s.db.ExecContext(ctx, q, urlHash, url, payload, time.Now().UnixNano()); err != nil {
		return fmt.Errorf("failed to save cached score: %w", err)
	}
	return nil
}

// PurgeCachedScores removes entries stored before cutoff.
func (s *Store) PurgeCachedScores(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM score_cache WHERE created_at < ?`), cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to purge score cache: %w", err)
	}
	return res.RowsAffected()
}
