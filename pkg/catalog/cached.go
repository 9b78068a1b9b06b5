package catalog

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jeajar/scruffy/pkg/loans"
	"github.com/jeajar/scruffy/pkg/telemetry/metrics"
)

// Catalog is the collaborator set decorated by Cached.
type Catalog interface {
	loans.Catalog
	loans.Deleter
}

// Cached keeps resolved media in an expiring LRU so that the check and
// process jobs of the same window do not query Radarr and Sonarr twice.
// Requests are never cached: the listing always reflects Overseerr.
type Cached struct {
	next    Catalog
	cache   *expirable.LRU[string, loans.Media]
	metrics *metrics.Collector
}

// NewCached wraps next with a cache of size entries living ttl.
func NewCached(next Catalog, size int, ttl time.Duration, collector *metrics.Collector) *Cached {
	return &Cached{
		next:    next,
		cache:   expirable.NewLRU[string, loans.Media](size, nil, ttl),
		metrics: collector,
	}
}

// mediaKey identifies a lookup. Series keys include the requested seasons
// since availability depends on them.
func mediaKey(req loans.CatalogRequest) string {
	key := fmt.Sprintf("%s:%d", req.MediaType, req.ServiceID)
	if len(req.Seasons) == 0 {
		return key
	}
	seasons := slices.Clone(req.Seasons)
	slices.Sort(seasons)
	parts := make([]string, len(seasons))
	for i, s := range seasons {
		parts[i] = strconv.Itoa(s)
	}
	return key + ":" + strings.Join(parts, ",")
}

// ListRequests implements loans.Catalog.
func (c *Cached) ListRequests(ctx context.Context) ([]loans.CatalogRequest, error) {
	return c.next.ListRequests(ctx)
}

// ResolveMedia implements loans.Catalog.
func (c *Cached) ResolveMedia(ctx context.Context, req loans.CatalogRequest) (*loans.Media, error) {
	key := mediaKey(req)
	if media, ok := c.cache.Get(key); ok {
		c.metrics.RecordCacheHit()
		return cloneMedia(media), nil
	}
	c.metrics.RecordCacheMiss()

	media, err := c.next.ResolveMedia(ctx, req)
	if err != nil {
		return nil, err
	}
	// Unavailable media is not cached: its files may land any minute.
	if media.Available {
		c.cache.Add(key, *cloneMedia(*media))
		c.metrics.UpdateCacheSize(c.cache.Len())
	}
	return media, nil
}

// Delete implements loans.Deleter and drops every cached lookup of the
// deleted media.
func (c *Cached) Delete(ctx context.Context, req loans.CatalogRequest) error {
	err := c.next.Delete(ctx, req)

	prefix := fmt.Sprintf("%s:%d", req.MediaType, req.ServiceID)
	for _, key := range c.cache.Keys() {
		if key == prefix || strings.HasPrefix(key, prefix+":") {
			c.cache.Remove(key)
		}
	}
	c.metrics.UpdateCacheSize(c.cache.Len())
	return err
}

// Purge empties the cache.
func (c *Cached) Purge() {
	c.cache.Purge()
	c.metrics.UpdateCacheSize(0)
}

// Len returns the number of cached lookups.
func (c *Cached) Len() int {
	return c.cache.Len()
}

func cloneMedia(m loans.Media) *loans.Media {
	if m.AvailableSince != nil {
		t := *m.AvailableSince
		m.AvailableSince = &t
	}
	return &m
}
