package models

import (
	"context"
	"fmt"
)

type LinkStats struct {
	TotalClicks    int64     `json:"total_clicks"`
	UniqueVisitors int64     `json:"unique_visitors"`
	Referers       []Referer `json:"referers"`
	Regions        []Region  `json:"regions"`
}

type Summary struct {
	TotalLinks  int64     `json:"total_links"`
	TotalClicks int64     `json:"total_clicks"`
	TopLinks    []Link    `json:"top_links"`
	TopReferers []Referer `json:"top_referers"`
}

// StatsForLink collects the aggregates of one link. limit bounds the referer
// and region breakdowns.
func StatsForLink(ctx context.Context, db DBTX, linkID int64, limit int) (*LinkStats, error) {
	s := &LinkStats{}
	if err := db.QueryRowContext(ctx, `SELECT total_clicks FROM links WHERE id = ?`, linkID).Scan(&s.TotalClicks); err != nil {
		return nil, err
	}

	var err error
	if s.UniqueVisitors, err = UniqueVisitorCount(ctx, db, linkID); err != nil {
		return nil, fmt.Errorf("unique visitors: %w", err)
	}
	if s.Referers, err = ReferersForLink(ctx, db, linkID, limit); err != nil {
		return nil, err
	}
	if s.Regions, err = RegionsForLink(ctx, db, linkID, limit); err != nil {
		return nil, err
	}
	return s, nil
}

// GlobalSummary aggregates across all links.
func GlobalSummary(ctx context.Context, db DBTX, limit int) (*Summary, error) {
	s := &Summary{}
	err := db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(total_clicks), 0) FROM links`).Scan(&s.TotalLinks, &s.TotalClicks)
	if err != nil {
		return nil, fmt.Errorf("link totals: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+linkColumns+` FROM links WHERE total_clicks > 0 ORDER BY total_clicks DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top links: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l Link
		if err := scanLink(rows, &l); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		s.TopLinks = append(s.TopLinks, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refRows, err := db.QueryContext(ctx,
		`SELECT source, SUM(total_clicks) AS cnt FROM referers GROUP BY source ORDER BY cnt DESC, source LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("global referers: %w", err)
	}
	defer refRows.Close()
	for refRows.Next() {
		var r Referer
		if err := refRows.Scan(&r.Source, &r.TotalClicks); err != nil {
			return nil, fmt.Errorf("scan referer: %w", err)
		}
		s.TopReferers = append(s.TopReferers, r)
	}
	return s, refRows.Err()
}
