package screener

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"stockresearch/pkg/cache"
	"stockresearch/pkg/logger"
)

// CachedProvider memoizes bar series per (ticker, window).
type CachedProvider struct {
	next   PriceProvider
	name   string
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProvider wraps p. name distinguishes providers sharing one cache.
func NewCachedProvider(p PriceProvider, name string, c cache.Cache, ttl time.Duration, log *zap.Logger) *CachedProvider {
	return &CachedProvider{next: p, name: name, cache: c, ttl: ttl, logger: logger.OrNop(log)}
}

func (p *CachedProvider) Bars(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error) {
	key := cache.Key("bars", p.name, strings.ToUpper(ticker), start.Format(time.DateOnly), end.Format(time.DateOnly))

	var bars []Bar
	hit, err := cache.GetJSON(ctx, p.cache, key, &bars)
	if err != nil {
		p.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit {
		return bars, nil
	}

	bars, err = p.next.Bars(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, p.cache, key, bars, p.ttl); err != nil {
		p.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
	return bars, nil
}

// CachedUniverse memoizes a universe's ticker list.
type CachedUniverse struct {
	next   Universe
	name   string
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedUniverse(u Universe, name string, c cache.Cache, ttl time.Duration, log *zap.Logger) *CachedUniverse {
	return &CachedUniverse{next: u, name: name, cache: c, ttl: ttl, logger: logger.OrNop(log)}
}

func (u *CachedUniverse) Tickers(ctx context.Context) ([]string, error) {
	key := cache.Key("universe", u.name)

	var tickers []string
	hit, err := cache.GetJSON(ctx, u.cache, key, &tickers)
	if err != nil {
		u.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}
	if hit && len(tickers) > 0 {
		return tickers, nil
	}

	tickers, err = u.next.Tickers(ctx)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(ctx, u.cache, key, tickers, u.ttl); err != nil {
		u.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
	return tickers, nil
}
