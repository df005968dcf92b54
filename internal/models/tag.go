package models

import (
	"context"
	"fmt"
)

type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GetOrCreateTag returns the tag called name, inserting it first if needed.
func GetOrCreateTag(ctx context.Context, db DBTX, name string) (Tag, error) {
	t := Tag{Name: name}
	err := db.QueryRowContext(ctx,
		`INSERT INTO tags (name) VALUES (?) ON CONFLICT(name) DO UPDATE SET name = excluded.name RETURNING id`,
		name,
	).Scan(&t.ID)
	if err != nil {
		return Tag{}, fmt.Errorf("get or create tag: %w", err)
	}
	return t, nil
}

func TagsForLink(ctx context.Context, db DBTX, linkID int64) ([]Tag, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT t.id, t.name FROM tags t JOIN link_tags lt ON lt.tag_id = t.id WHERE lt.link_id = ? ORDER BY t.name`,
		linkID,
	)
	if err != nil {
		return nil, fmt.Errorf("tags for link: %w", err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func LinkTag(ctx context.Context, db DBTX, linkID, tagID int64) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO link_tags (link_id, tag_id) VALUES (?, ?) ON CONFLICT(link_id, tag_id) DO NOTHING`,
		linkID, tagID,
	)
	if err != nil {
		return fmt.Errorf("link tag: %w", err)
	}
	return nil
}

func UnlinkTag(ctx context.Context, db DBTX, linkID, tagID int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM link_tags WHERE link_id = ? AND tag_id = ?`, linkID, tagID)
	if err != nil {
		return fmt.Errorf("unlink tag: %w", err)
	}
	return nil
}

// DeleteTagIfOrphan removes the tag when no link references it and reports
// whether it was removed.
func DeleteTagIfOrphan(ctx context.Context, db DBTX, tagID int64) (bool, error) {
	res, err := db.ExecContext(ctx,
		`DELETE FROM tags WHERE id = ? AND NOT EXISTS (SELECT 1 FROM link_tags WHERE tag_id = ?)`,
		tagID, tagID,
	)
	if err != nil {
		return false, fmt.Errorf("delete orphan tag: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func TagExists(ctx context.Context, db DBTX, name string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tags WHERE name = ?`, name).Scan(&count)
	return count > 0, err
}
