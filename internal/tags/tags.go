// Package tags attaches normalized tag names to links and prunes tags that
// no longer label anything.
package tags

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sjbitcode/url-shortener/internal/models"
	"github.com/sjbitcode/url-shortener/internal/normalize"
)

const DefaultLimit = 8

var ErrTagLimitExceeded = errors.New("too many tags")

type Linker struct {
	db    *sql.DB
	limit int
}

func NewLinker(db *sql.DB, limit int) *Linker {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Linker{db: db, limit: limit}
}

// Split turns the comma-delimited form value into raw tag names.
func Split(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	return strings.Split(input, ",")
}

// Names normalizes raw, dropping invalid and empty entries and duplicates.
// First occurrence order is kept.
func Names(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	var names []string
	for _, r := range raw {
		name, ok := normalize.Text(r)
		if !ok || name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Validate normalizes raw and checks the result against the tag limit.
func (l *Linker) Validate(raw []string) ([]string, error) {
	names := Names(raw)
	if len(names) > l.limit {
		return nil, fmt.Errorf("%w: %d given, at most %d allowed", ErrTagLimitExceeded, len(names), l.limit)
	}
	return names, nil
}

// SetTags replaces the tag set of a link with raw. Tags dropped from the link
// are deleted once no other link uses them. The whole change is applied in
// one transaction.
func (l *Linker) SetTags(ctx context.Context, linkID int64, raw []string) ([]models.Tag, error) {
	names, err := l.Validate(raw)
	if err != nil {
		return nil, err
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tags tx: %w", err)
	}
	defer tx.Rollback()

	wanted, err := replace(ctx, tx, linkID, names)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tags tx: %w", err)
	}
	return wanted, nil
}

// SetTagsTx is SetTags inside a transaction owned by the caller.
func (l *Linker) SetTagsTx(ctx context.Context, tx models.DBTX, linkID int64, raw []string) ([]models.Tag, error) {
	names, err := l.Validate(raw)
	if err != nil {
		return nil, err
	}
	return replace(ctx, tx, linkID, names)
}

func replace(ctx context.Context, tx models.DBTX, linkID int64, names []string) ([]models.Tag, error) {
	current, err := models.TagsForLink(ctx, tx, linkID)
	if err != nil {
		return nil, err
	}

	wanted := make([]models.Tag, 0, len(names))
	keep := make(map[int64]bool, len(names))
	for _, name := range names {
		t, err := models.GetOrCreateTag(ctx, tx, name)
		if err != nil {
			return nil, err
		}
		wanted = append(wanted, t)
		keep[t.ID] = true
	}

	have := make(map[int64]bool, len(current))
	for _, t := range current {
		have[t.ID] = true
		if keep[t.ID] {
			continue
		}
		if err := models.UnlinkTag(ctx, tx, linkID, t.ID); err != nil {
			return nil, err
		}
		if _, err := models.DeleteTagIfOrphan(ctx, tx, t.ID); err != nil {
			return nil, err
		}
	}

	for _, t := range wanted {
		if have[t.ID] {
			continue
		}
		if err := models.LinkTag(ctx, tx, linkID, t.ID); err != nil {
			return nil, err
		}
	}
	return wanted, nil
}

// Tags lists the tags of a link ordered by name.
func (l *Linker) Tags(ctx context.Context, linkID int64) ([]models.Tag, error) {
	return models.TagsForLink(ctx, l.db, linkID)
}
