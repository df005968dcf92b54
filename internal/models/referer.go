package models

import (
	"context"
	"fmt"
)

type Referer struct {
	Source      string `json:"source"`
	TotalClicks int64  `json:"total_clicks"`
}

// IncrementReferer creates the (link, source) row with one click or adds one
// to the existing row.
func IncrementReferer(ctx context.Context, db DBTX, linkID int64, source string) error {
	return retryTransient(ctx, func() error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO referers (link_id, source, total_clicks) VALUES (?, ?, 1)
			ON CONFLICT(link_id, source) DO UPDATE SET total_clicks = total_clicks + 1`,
			linkID, source,
		)
		if err != nil {
			return fmt.Errorf("upsert referer: %w", err)
		}
		return nil
	})
}

func ReferersForLink(ctx context.Context, db DBTX, linkID int64, limit int) ([]Referer, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT source, total_clicks FROM referers WHERE link_id = ? ORDER BY total_clicks DESC, source LIMIT ?`,
		linkID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("referers: %w", err)
	}
	defer rows.Close()

	var results []Referer
	for rows.Next() {
		var r Referer
		if err := rows.Scan(&r.Source, &r.TotalClicks); err != nil {
			return nil, fmt.Errorf("scan referer: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
