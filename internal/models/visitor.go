package models

import (
	"context"
	"fmt"
	"time"
)

// InsertUniqueVisitor records ip as a visitor of the link and reports whether
// this was its first visit. The first insert for a (link, ip) pair wins; later
// ones are no-ops.
func InsertUniqueVisitor(ctx context.Context, db DBTX, linkID int64, ip string, at time.Time) (bool, error) {
	var inserted bool
	err := retryTransient(ctx, func() error {
		res, err := db.ExecContext(ctx,
			`INSERT INTO unique_visitors (link_id, ip_address, first_seen) VALUES (?, ?, ?)
			ON CONFLICT(link_id, ip_address) DO NOTHING`,
			linkID, ip, at,
		)
		if err != nil {
			return fmt.Errorf("insert unique visitor: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert unique visitor: %w", err)
		}
		inserted = n == 1
		return nil
	})
	return inserted, err
}

func UniqueVisitorCount(ctx context.Context, db DBTX, linkID int64) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM unique_visitors WHERE link_id = ?`, linkID).Scan(&count)
	return count, err
}
