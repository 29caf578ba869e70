// Package auth caches the backend's view of who is signed in.
package auth

import (
	"context"
	"sync"
	"time"

	"quizgen-client/internal/quiz"
)

const DefaultTTL = 5 * time.Minute

type StatusFetcher interface {
	GetAuthStatus(ctx context.Context) (quiz.AuthStatus, error)
}

// Cache serves the last auth status until it is older than ttl or invalidated.
// Failed fetches are not cached.
type Cache struct {
	mu        sync.Mutex
	fetcher   StatusFetcher
	ttl       time.Duration
	now       func() time.Time
	value     quiz.AuthStatus
	fetchedAt time.Time
	valid     bool
}

func NewCache(fetcher StatusFetcher, ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{fetcher: fetcher, ttl: ttl, now: now}
}

func (c *Cache) Status(ctx context.Context) (quiz.AuthStatus, error) {
	c.mu.Lock()
	if c.valid && c.now().Sub(c.fetchedAt) < c.ttl {
		value := c.value
		c.mu.Unlock()
		return value, nil
	}
	c.mu.Unlock()

	status, err := c.fetcher.GetAuthStatus(ctx)
	if err != nil {
		return quiz.AuthStatus{}, err
	}

	c.mu.Lock()
	c.value = status
	c.fetchedAt = c.now()
	c.valid = true
	c.mu.Unlock()
	return status, nil
}

// Peek returns the cached status without fetching.
func (c *Cache) Peek() (quiz.AuthStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid || c.now().Sub(c.fetchedAt) >= c.ttl {
		return quiz.AuthStatus{}, false
	}
	return c.value, true
}

func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	c.value = quiz.AuthStatus{}
	c.fetchedAt = time.Time{}
}
