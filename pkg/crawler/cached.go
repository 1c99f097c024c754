package crawler

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"stockresearch/pkg/cache"
	"stockresearch/pkg/logger"
)

// CachedScraper memoizes a scraper's results per ticker. Empty results are
// not stored so a transient outage does not stick for the whole TTL.
type CachedScraper struct {
	next   Scraper
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// Cached wraps s with c.
func Cached(s Scraper, c cache.Cache, ttl time.Duration, log *zap.Logger) *CachedScraper {
	return &CachedScraper{next: s, cache: c, ttl: ttl, logger: logger.OrNop(log)}
}

// CacheRegistry wraps every scraper in reg with c.
func CacheRegistry(reg *Registry, c cache.Cache, ttl time.Duration, log *zap.Logger) *Registry {
	wrapped := make([]Scraper, 0, len(reg.scrapers))
	for _, k := range reg.Keys() {
		wrapped = append(wrapped, Cached(reg.scrapers[k], c, ttl, log))
	}
	return NewRegistry(wrapped...)
}

func (c *CachedScraper) Key() SourceKey { return c.next.Key() }
func (c *CachedScraper) Name() string   { return c.next.Name() }

func (c *CachedScraper) Scrape(ctx context.Context, ticker string) Result {
	key := cache.Key("crawl", string(c.next.Key()), strings.ToUpper(ticker))

	var res Result
	hit, err := cache.GetJSON(ctx, c.cache, key, &res)
	if err != nil {
		c.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		res.info("%s: served from cache", c.Name())
		return res
	}

	res = c.next.Scrape(ctx, ticker)
	if len(res.Articles) > 0 {
		if err := cache.SetJSON(ctx, c.cache, key, res, c.ttl); err != nil {
			c.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return res
}
