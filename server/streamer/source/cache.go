package source

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"renamer/server/records/domain"
)

var (
	handleCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "renamer_handle_cache_hits_total",
		Help: "Resolved media handles served from memory.",
	})
	handleCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "renamer_handle_cache_misses_total",
		Help: "Media handle lookups that went to the backend.",
	})
)

// HandleCache keeps recently resolved handles so repeated range requests for
// one file skip the backend round trip.
type HandleCache struct {
	lru *expirable.LRU[domain.Locator, *Handle]
}

func NewHandleCache(maxSize int, ttl time.Duration) *HandleCache {
	return &HandleCache{lru: expirable.NewLRU[domain.Locator, *Handle](maxSize, nil, ttl)}
}

func (c *HandleCache) Get(loc domain.Locator) (*Handle, bool) {
	h, ok := c.lru.Get(loc)
	if ok {
		handleCacheHits.Inc()
		return h, true
	}
	handleCacheMisses.Inc()
	return nil, false
}

func (c *HandleCache) Set(h *Handle) {
	c.lru.Add(h.Locator, h)
}

func (c *HandleCache) Delete(loc domain.Locator) {
	c.lru.Remove(loc)
}

// PurgeContainer drops every handle resolved from one container.
func (c *HandleCache) PurgeContainer(container int64) {
	for _, loc := range c.lru.Keys() {
		if loc.ContainerID == container {
			c.lru.Remove(loc)
		}
	}
}
