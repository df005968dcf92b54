package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sjbitcode/url-shortener/internal/models"
)

// LinkCache keeps recently resolved links by key. Counters on cached links
// go stale; read them from the store.
type LinkCache struct {
	c *lru.Cache[string, *models.Link]
}

func New(size int) (*LinkCache, error) {
	c, err := lru.New[string, *models.Link](size)
	if err != nil {
		return nil, err
	}
	return &LinkCache{c: c}, nil
}

func (lc *LinkCache) Get(key string) (*models.Link, bool) {
	if lc == nil {
		return nil, false
	}
	return lc.c.Get(key)
}

func (lc *LinkCache) Set(key string, link *models.Link) {
	if lc == nil {
		return
	}
	lc.c.Add(key, link)
}

func (lc *LinkCache) Invalidate(key string) {
	if lc == nil {
		return
	}
	lc.c.Remove(key)
}
