// Package links owns creation and lookup of short links.
package links

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sjbitcode/url-shortener/internal/cache"
	"github.com/sjbitcode/url-shortener/internal/models"
	"github.com/sjbitcode/url-shortener/internal/normalize"
	"github.com/sjbitcode/url-shortener/internal/slug"
)

const MaxKeyLength = 80

var (
	ErrInvalidKey   = errors.New("key can only contain alphanumeric characters and dashes")
	ErrDuplicateKey = models.ErrDuplicateKey
	ErrNotFound     = errors.New("link not found")
	ErrReservedKey  = errors.New("key is reserved")
)

// reservedKeys are paths served by the router ahead of redirects.
var reservedKeys = []string{"api", "healthz", "metrics"}

// IsReserved reports whether key would be shadowed by a fixed route.
func IsReserved(key string) bool {
	for _, k := range reservedKeys {
		if strings.EqualFold(key, k) {
			return true
		}
	}
	return false
}

type CreateParams struct {
	// Key is the user-chosen key; empty means generate one.
	Key         string
	Destination string
	Title       string
	OwnerID     *int64
	// Attach runs in the creating transaction once the link row exists. An
	// error rolls the link back.
	Attach func(ctx context.Context, tx models.DBTX, l *models.Link) error
}

type UpdateParams struct {
	Destination string
	Title       string
}

type Registry struct {
	db    *sql.DB
	keys  *slug.Generator
	cache *cache.LinkCache
	log   *zap.Logger
}

// NewRegistry wires a registry. linkCache may be nil.
func NewRegistry(db *sql.DB, keys *slug.Generator, linkCache *cache.LinkCache, log *zap.Logger) *Registry {
	if keys == nil {
		keys = slug.NewGenerator(slug.DefaultLength)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{db: db, keys: keys, cache: linkCache, log: log}
}

// Create stores a new link. A user-chosen key is normalized first and
// rejected with ErrInvalidKey or ErrReservedKey before anything is written;
// if it is already taken the result is ErrDuplicateKey. Without a key one is
// generated, and collisions are retried internally.
func (r *Registry) Create(ctx context.Context, p CreateParams) (*models.Link, error) {
	var key string
	if p.Key != "" {
		var ok bool
		key, ok = normalize.Key(p.Key)
		if !ok || len(key) > MaxKeyLength {
			return nil, ErrInvalidKey
		}
		if IsReserved(key) {
			return nil, ErrReservedKey
		}
	}

	if p.Attach == nil {
		return r.create(ctx, r.db, key, p)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create tx: %w", err)
	}
	defer tx.Rollback()

	l, err := r.create(ctx, tx, key, p)
	if err != nil {
		return nil, err
	}
	if err := p.Attach(ctx, tx, l); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create tx: %w", err)
	}
	return l, nil
}

func (r *Registry) create(ctx context.Context, db models.DBTX, key string, p CreateParams) (*models.Link, error) {
	l := &models.Link{
		Destination: p.Destination,
		Title:       p.Title,
		OwnerID:     p.OwnerID,
	}

	if key != "" {
		if err := insert(ctx, db, l, key); err != nil {
			if errors.Is(err, models.ErrDuplicateKey) {
				return nil, ErrDuplicateKey
			}
			return nil, fmt.Errorf("create link: %w", err)
		}
		return l, nil
	}

	_, err := r.keys.Reserve(ctx, func(ctx context.Context, candidate string) error {
		if IsReserved(candidate) {
			return models.ErrDuplicateKey
		}
		return insert(ctx, db, l, candidate)
	})
	if err != nil {
		if errors.Is(err, slug.ErrKeySpaceExhausted) {
			r.log.Error("key generation exhausted", zap.Int("key_length", r.keys.Length), zap.Error(err))
		}
		return nil, fmt.Errorf("create link: %w", err)
	}
	return l, nil
}

func insert(ctx context.Context, db models.DBTX, l *models.Link, key string) error {
	l.Key = key
	title := l.Title
	if title == "" {
		l.Title = "Link - " + key
	}
	err := models.InsertLink(ctx, db, l)
	if err != nil {
		l.Title = title
	}
	return err
}

// Lookup resolves key to its link, serving from the cache when possible.
func (r *Registry) Lookup(ctx context.Context, key string) (*models.Link, error) {
	if l, ok := r.cache.Get(key); ok {
		return l, nil
	}
	l, err := r.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, l)
	return l, nil
}

// Get loads the link at key from the store, bypassing the cache.
func (r *Registry) Get(ctx context.Context, key string) (*models.Link, error) {
	l, err := models.GetLinkByKey(ctx, r.db, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup link: %w", err)
	}
	return l, nil
}

// IncrementTotalClicks adds one click to the link in the store.
func (r *Registry) IncrementTotalClicks(ctx context.Context, linkID int64) error {
	err := models.IncrementTotalClicks(ctx, r.db, linkID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Update changes destination and title of the link at key. Empty fields keep
// their current value.
func (r *Registry) Update(ctx context.Context, key string, p UpdateParams) (*models.Link, error) {
	l, err := r.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if p.Destination != "" {
		l.Destination = p.Destination
	}
	if p.Title != "" {
		l.Title = p.Title
	}

	if err := models.UpdateLink(ctx, r.db, l); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r.cache.Invalidate(key)
	return l, nil
}

// ListByOwner returns an owner's links, newest first.
func (r *Registry) ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]models.Link, int, error) {
	return models.ListLinksByOwner(ctx, r.db, ownerID, limit, offset)
}

// Stats returns the visit aggregates of the link at key.
func (r *Registry) Stats(ctx context.Context, key string, limit int) (*models.LinkStats, error) {
	l, err := r.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return models.StatsForLink(ctx, r.db, l.ID, limit)
}

func (r *Registry) Summary(ctx context.Context, limit int) (*models.Summary, error) {
	return models.GlobalSummary(ctx, r.db, limit)
}
