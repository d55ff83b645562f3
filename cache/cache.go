// Package cache memoizes final decisions by flow fingerprint.
package cache

import (
	"time"

	"github.com/patrickmn/go-cache"
)

type options struct {
	ttl time.Duration
}

type Option func(opts *options)

// TTLOption makes entries expire after ttl. Without it entries live as long as the cache.
func TTLOption(ttl time.Duration) Option {
	return func(opts *options) {
		opts.ttl = ttl
	}
}

// DecisionCache maps fingerprints to decisions. Lookups never mutate the cache
// and concurrent Put calls for the same key resolve as last write wins.
type DecisionCache[T any] struct {
	c *cache.Cache
}

func NewDecisionCache[T any](opts ...Option) *DecisionCache[T] {
	var options options
	for _, opt := range opts {
		opt(&options)
	}

	ttl := cache.NoExpiration
	var cleanup time.Duration
	if options.ttl > 0 {
		ttl = options.ttl
		cleanup = options.ttl
	}
	return &DecisionCache[T]{
		c: cache.New(ttl, cleanup),
	}
}

func (c *DecisionCache[T]) Lookup(fingerprint string) (v T, ok bool) {
	item, found := c.c.Get(fingerprint)
	if !found {
		return
	}
	v, ok = item.(T)
	return
}

func (c *DecisionCache[T]) Put(fingerprint string, v T) {
	c.c.Set(fingerprint, v, cache.DefaultExpiration)
}

func (c *DecisionCache[T]) Len() int {
	return c.c.ItemCount()
}

func (c *DecisionCache[T]) Flush() {
	c.c.Flush()
}

// Items returns a snapshot of the unexpired entries.
func (c *DecisionCache[T]) Items() map[string]T {
	m := make(map[string]T)
	for k, item := range c.c.Items() {
		if v, ok := item.Object.(T); ok {
			m[k] = v
		}
	}
	return m
}
