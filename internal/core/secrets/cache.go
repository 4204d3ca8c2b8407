// Package secrets resolves named configuration values from SSM Parameter Store or
// GCP Secret Manager. Values are read once and kept for the life of the process.
package secrets

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/markdave123-py/genai-chat/internal/core"
)

// CachedStore memoizes successful lookups of the wrapped store.
// Concurrent misses for the same name share one upstream call. Errors are not cached.
type CachedStore struct {
	inner core.SecretStore

	mu     sync.RWMutex
	values map[string]string
	group  singleflight.Group
}

func NewCachedStore(inner core.SecretStore) *CachedStore {
	return &CachedStore{inner: inner, values: make(map[string]string)}
}

func (c *CachedStore) Get(ctx context.Context, name string) (string, error) {
	c.mu.RLock()
	v, ok := c.values[name]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}

	res, err, _ := c.group.Do(name, func() (any, error) {
		val, err := c.inner.Get(ctx, name)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.values[name] = val
		c.mu.Unlock()
		return val, nil
	})
	if err != nil {
		return "", err
	}
	return res.(string), nil
}

var _ core.SecretStore = (*CachedStore)(nil)
