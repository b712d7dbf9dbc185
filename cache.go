package vaultsync

import (
	"context"
	"sync"
	"time"
)

// PostCache is an in-memory cache of released posts with a TTL. A sync
// invalidates it so newly released or edited posts show up immediately.
type PostCache struct {
	mu      sync.RWMutex
	posts   []BlogPost
	byName  map[string]int
	fetched time.Time
	ttl     time.Duration
	store   *Store
}

// NewPostCache creates a PostCache backed by the given Store.
func NewPostCache(s *Store, ttl time.Duration) *PostCache {
	return &PostCache{store: s, ttl: ttl}
}

func (c *PostCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.byName = nil
	c.mu.Unlock()
}

func (c *PostCache) load(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	posts, err := c.store.ListReleasedPosts(ctx)
	if err != nil {
		return err
	}
	if posts == nil {
		posts = []BlogPost{}
	}
	byName := make(map[string]int, len(posts))
	for i, p := range posts {
		byName[p.Name] = i
	}
	c.posts = posts
	c.byName = byName
	c.fetched = time.Now()
	return nil
}

// ensureLoaded tries a read lock first and only takes the write lock if a
// reload is needed.
func (c *PostCache) ensureLoaded(ctx context.Context) ([]BlogPost, map[string]int, error) {
	c.mu.RLock()
	if c.valid() {
		posts, byName := c.posts, c.byName
		c.mu.RUnlock()
		return posts, byName, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return nil, nil, err
	}
	return c.posts, c.byName, nil
}

// ListPosts returns released posts, newest first.
func (c *PostCache) ListPosts(ctx context.Context) ([]BlogPost, error) {
	posts, _, err := c.ensureLoaded(ctx)
	return posts, err
}

// GetPost returns a single released post by name from the cache.
func (c *PostCache) GetPost(ctx context.Context, name string) (BlogPost, error) {
	posts, byName, err := c.ensureLoaded(ctx)
	if err != nil {
		return BlogPost{}, err
	}
	i, ok := byName[name]
	if !ok {
		return BlogPost{}, ErrNotFound
	}
	return posts[i], nil
}
