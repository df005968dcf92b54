package models

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type Country struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type Region struct {
	CountryCode string    `json:"country_code"`
	CountryName string    `json:"country_name"`
	Region      string    `json:"region"`
	TotalClicks int64     `json:"total_clicks"`
	LastVisited time.Time `json:"last_visited"`
}

// UpsertCountry returns the id of the country with code, creating it when the
// code is unseen. A non-empty name replaces the stored one.
func UpsertCountry(ctx context.Context, db DBTX, code, name string) (int64, error) {
	var id int64
	err := retryTransient(ctx, func() error {
		err := db.QueryRowContext(ctx,
			`INSERT INTO countries (code, name) VALUES (?, ?)
			ON CONFLICT(code) DO UPDATE SET name = CASE WHEN excluded.name != '' THEN excluded.name ELSE countries.name END
			RETURNING id`,
			code, name,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("upsert country: %w", err)
		}
		return nil
	})
	return id, err
}

func GetCountryByCode(ctx context.Context, db DBTX, code string) (*Country, error) {
	c := &Country{}
	err := db.QueryRowContext(ctx, `SELECT id, code, name FROM countries WHERE code = ?`, code).Scan(&c.ID, &c.Code, &c.Name)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// IncrementRegion creates the (link, country, region) row with one click or
// adds one to the existing row. Either way last_visited becomes at.
func IncrementRegion(ctx context.Context, db DBTX, linkID, countryID int64, countryCode, region string, at time.Time) error {
	country := sql.NullInt64{Int64: countryID, Valid: countryID > 0}
	return retryTransient(ctx, func() error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO regions (link_id, country_id, country_code, region, total_clicks, last_visited) VALUES (?, ?, ?, ?, 1, ?)
			ON CONFLICT(link_id, country_code, region) DO UPDATE SET
				total_clicks = total_clicks + 1,
				last_visited = excluded.last_visited,
				country_id = COALESCE(excluded.country_id, regions.country_id)`,
			linkID, country, countryCode, region, at,
		)
		if err != nil {
			return fmt.Errorf("upsert region: %w", err)
		}
		return nil
	})
}

func RegionsForLink(ctx context.Context, db DBTX, linkID int64, limit int) ([]Region, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT r.country_code, COALESCE(c.name, ''), r.region, r.total_clicks, r.last_visited
		FROM regions r
		LEFT JOIN countries c ON c.id = r.country_id
		WHERE r.link_id = ?
		ORDER BY r.total_clicks DESC, r.country_code, r.region
		LIMIT ?`,
		linkID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("regions: %w", err)
	}
	defer rows.Close()

	var results []Region
	for rows.Next() {
		var r Region
		if err := rows.Scan(&r.CountryCode, &r.CountryName, &r.Region, &r.TotalClicks, &r.LastVisited); err != nil {
			return nil, fmt.Errorf("scan region: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
