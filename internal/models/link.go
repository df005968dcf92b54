package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type Link struct {
	ID          int64     `json:"id"`
	Key         string    `json:"key"`
	Destination string    `json:"destination"`
	Title       string    `json:"title"`
	OwnerID     *int64    `json:"owner_id,omitempty"`
	TotalClicks int64     `json:"total_clicks"`
	CreatedAt   time.Time `json:"created_at"`
	ModifiedAt  time.Time `json:"modified_at"`
}

const linkColumns = `id, key, destination, title, owner_id, total_clicks, created_at, modified_at`

// InsertLink stores l if no link holds l.Key yet and returns ErrDuplicateKey
// otherwise. The conflict check and the insert are one statement, so two
// racing inserts of the same key can never both succeed.
func InsertLink(ctx context.Context, db DBTX, l *Link) error {
	var owner sql.NullInt64
	if l.OwnerID != nil {
		owner = sql.NullInt64{Int64: *l.OwnerID, Valid: true}
	}

	err := db.QueryRowContext(ctx,
		`INSERT INTO links (key, destination, title, owner_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO NOTHING RETURNING id`,
		l.Key, l.Destination, l.Title, owner,
	).Scan(&l.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("insert link: %w", err)
	}

	// Re-read to get timestamps
	return GetLinkByID(ctx, db, l)
}

func GetLinkByID(ctx context.Context, db DBTX, l *Link) error {
	row := db.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM links WHERE id = ?`, l.ID)
	return scanLink(row, l)
}

func GetLinkByKey(ctx context.Context, db DBTX, key string) (*Link, error) {
	l := &Link{}
	row := db.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM links WHERE key = ?`, key)
	if err := scanLink(row, l); err != nil {
		return nil, err
	}
	return l, nil
}

// ListLinksByOwner returns an owner's links, newest first.
func ListLinksByOwner(ctx context.Context, db DBTX, ownerID int64, limit, offset int) ([]Link, int, error) {
	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM links WHERE owner_id = ?`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count links: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+linkColumns+` FROM links WHERE owner_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		if err := scanLink(rows, &l); err != nil {
			return nil, 0, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, l)
	}
	return links, total, rows.Err()
}

// UpdateLink rewrites the editable fields of l. The key is immutable.
func UpdateLink(ctx context.Context, db DBTX, l *Link) error {
	res, err := db.ExecContext(ctx,
		`UPDATE links SET destination = ?, title = ?, modified_at = CURRENT_TIMESTAMP WHERE id = ?`,
		l.Destination, l.Title, l.ID,
	)
	if err != nil {
		return fmt.Errorf("update link: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return GetLinkByID(ctx, db, l)
}

// IncrementTotalClicks adds one to the stored click total.
func IncrementTotalClicks(ctx context.Context, db DBTX, linkID int64) error {
	return retryTransient(ctx, func() error {
		res, err := db.ExecContext(ctx, `UPDATE links SET total_clicks = total_clicks + 1 WHERE id = ?`, linkID)
		if err != nil {
			return fmt.Errorf("increment total clicks: %w", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner, l *Link) error {
	var owner sql.NullInt64
	if err := row.Scan(&l.ID, &l.Key, &l.Destination, &l.Title, &owner, &l.TotalClicks, &l.CreatedAt, &l.ModifiedAt); err != nil {
		return err
	}
	l.OwnerID = nil
	if owner.Valid {
		id := owner.Int64
		l.OwnerID = &id
	}
	return nil
}
