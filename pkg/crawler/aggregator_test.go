package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"stockresearch/pkg/config"
)

type fakeScraper struct {
	key      SourceKey
	name     string
	articles int
	delay    time.Duration
	panics   bool
	active   *int32
	peak     *int32
}

func (f *fakeScraper) Key() SourceKey { return f.key }
func (f *fakeScraper) Name() string   { return f.name }

func (f *fakeScraper) Scrape(ctx context.Context, ticker string) Result {
	if f.active != nil {
		n := atomic.AddInt32(f.active, 1)
		defer atomic.AddInt32(f.active, -1)
		for {
			p := atomic.LoadInt32(f.peak)
			if n <= p || atomic.CompareAndSwapInt32(f.peak, p, n) {
				break
			}
		}
	}

	if f.panics {
		panic("selector exploded")
	}

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return Result{}
		case <-time.After(f.delay):
		}
	}

	var res Result
	for i := 0; i < f.articles; i++ {
		res.add(fmt.Sprintf("[NEWS] %s story %d for %s", f.name, i, ticker), fmt.Sprintf("https://example.com/%s/%d", f.key, i))
	}
	res.ok("%s: %d results found", f.name, f.articles)
	return res
}

func aggregatorConfig(mode string) config.CrawlerConfig {
	return config.CrawlerConfig{
		Mode:          mode,
		NumReferences: 15,
		MaxWorkers:    3,
		MinArticles:   3,
		SourceTimeout: time.Second,
	}
}

func TestCrawl_NoWorkingScrapers(t *testing.T) {
	reg := NewRegistry(&fakeScraper{key: SourceGoogle, name: "Google News"})
	agg := NewAggregator(reg, aggregatorConfig(config.ModeParallel), nil)

	res := agg.Crawl(context.Background(), "AAPL", "2025-01-01", nil)

	if len(res.Articles) != 1 {
		t.Fatalf("Expected exactly one article, got %v", res.Articles)
	}
	if !strings.HasPrefix(res.Articles[0], TagFallback) {
		t.Errorf("Expected minimal fallback article, got %q", res.Articles[0])
	}
	if len(res.Links) != 1 || res.Links[0] != NoDataLink {
		t.Errorf("Expected sentinel link %q, got %v", NoDataLink, res.Links)
	}
}

func TestCrawl_FewArticlesAddsFallback(t *testing.T) {
	reg := NewRegistry(&fakeScraper{key: SourceGoogle, name: "Google News", articles: 2})
	agg := NewAggregator(reg, aggregatorConfig(config.ModeParallel), nil)

	res := agg.Crawl(context.Background(), "AAPL", "", []SourceKey{SourceGoogle})

	if len(res.Articles) != 2+len(fallbackTemplates) {
		t.Fatalf("Expected real plus fallback articles, got %d", len(res.Articles))
	}
	var fallback int
	for _, a := range res.Articles {
		if IsFallback(a) {
			fallback++
		}
	}
	if fallback == 0 {
		t.Error("Expected at least one fallback-tagged article")
	}
	if res.Links[len(res.Links)-1] != FallbackLink {
		t.Errorf("Expected fallback link, got %q", res.Links[len(res.Links)-1])
	}
}

func TestCrawl_SmallReferenceCountKeepsFallback(t *testing.T) {
	tests := []struct {
		name       string
		references int
		articles   int
	}{
		{"two slots two real", 2, 2},
		{"one slot one real", 1, 1},
		{"one slot two real", 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry(&fakeScraper{key: SourceGoogle, name: "Google News", articles: tt.articles})
			cfg := aggregatorConfig(config.ModeParallel)
			cfg.NumReferences = tt.references
			agg := NewAggregator(reg, cfg, nil)

			res := agg.Crawl(context.Background(), "AAPL", "", []SourceKey{SourceGoogle})

			if len(res.Articles) != tt.references {
				t.Fatalf("Expected %d articles, got %v", tt.references, res.Articles)
			}
			last := len(res.Articles) - 1
			if !IsFallback(res.Articles[last]) {
				t.Errorf("Expected fallback-tagged article in last slot, got %v", res.Articles)
			}
			if res.Links[last] != FallbackLink {
				t.Errorf("Expected fallback link in last slot, got %v", res.Links)
			}
			if s := Summarize(res); !s.FallbackUsed {
				t.Errorf("Expected summary to report fallback, got %+v", s)
			}
		})
	}
}

func TestCrawl_EnoughArticlesNoFallback(t *testing.T) {
	reg := NewRegistry(&fakeScraper{key: SourceGoogle, name: "Google News", articles: 3})
	agg := NewAggregator(reg, aggregatorConfig(config.ModeParallel), nil)

	res := agg.Crawl(context.Background(), "AAPL", "", nil)

	if CountReal(res.Articles) != 3 || len(res.Articles) != 3 {
		t.Errorf("Expected 3 real articles only, got %v", res.Articles)
	}
}

func TestCrawl_TruncatesToMaxReferences(t *testing.T) {
	reg := NewRegistry(
		&fakeScraper{key: SourceGoogle, name: "Google News", articles: 10},
		&fakeScraper{key: SourceYahoo, name: "Yahoo Finance", articles: 10},
	)
	cfg := aggregatorConfig(config.ModeParallel)
	cfg.NumReferences = 4
	agg := NewAggregator(reg, cfg, nil)

	res := agg.Crawl(context.Background(), "AAPL", "", []SourceKey{SourceGoogle, SourceYahoo})

	if len(res.Articles) > 4 || len(res.Links) > 4 {
		t.Errorf("Expected at most 4 articles and links, got %d/%d", len(res.Articles), len(res.Links))
	}
}

func TestCrawl_TimeoutDoesNotCancelSiblings(t *testing.T) {
	reg := NewRegistry(
		&fakeScraper{key: SourceGoogle, name: "Google News", articles: 3},
		&fakeScraper{key: SourceYahoo, name: "Yahoo Finance", articles: 3, delay: 5 * time.Second},
	)
	cfg := aggregatorConfig(config.ModeParallel)
	cfg.SourceTimeout = 50 * time.Millisecond
	agg := NewAggregator(reg, cfg, nil)

	start := time.Now()
	res := agg.Crawl(context.Background(), "AAPL", "", []SourceKey{SourceGoogle, SourceYahoo})

	if time.Since(start) > 2*time.Second {
		t.Errorf("Crawl should not wait for the slow source")
	}
	if CountReal(res.Articles) != 3 {
		t.Errorf("Expected the fast source's 3 articles, got %v", res.Articles)
	}
	if !debugContains(res.Debug, "Yahoo Finance failed") {
		t.Errorf("Expected timeout to be recorded, got %v", res.Debug)
	}
}

func TestCrawl_PanicRecovered(t *testing.T) {
	reg := NewRegistry(
		&fakeScraper{key: SourceGoogle, name: "Google News", articles: 4},
		&fakeScraper{key: SourceRSS, name: "RSS Feeds", panics: true},
	)

	for _, mode := range []string{config.ModeParallel, config.ModeSequential} {
		agg := NewAggregator(reg, aggregatorConfig(mode), nil)
		res := agg.Crawl(context.Background(), "AAPL", "", []SourceKey{SourceGoogle, SourceRSS})

		if CountReal(res.Articles) != 4 {
			t.Errorf("%s: expected 4 articles, got %v", mode, res.Articles)
		}
		if !debugContains(res.Debug, "RSS Feeds failed: panic") {
			t.Errorf("%s: expected panic in debug trail, got %v", mode, res.Debug)
		}
	}
}

func TestCrawl_SequentialKeepsRegistryOrder(t *testing.T) {
	reg := NewRegistry(
		&fakeScraper{key: SourceYahoo, name: "Yahoo Finance", articles: 2},
		&fakeScraper{key: SourceGoogle, name: "Google News", articles: 2},
	)
	agg := NewAggregator(reg, aggregatorConfig(config.ModeSequential), nil)

	res := agg.Crawl(context.Background(), "AAPL", "", []SourceKey{SourceYahoo, SourceGoogle})

	if !strings.Contains(res.Articles[0], "Google News") || !strings.Contains(res.Articles[2], "Yahoo Finance") {
		t.Errorf("Expected google before yahoo, got %v", res.Articles)
	}
}

func TestCrawl_ParallelPoolBounded(t *testing.T) {
	var active, peak int32
	var scrapers []Scraper
	for _, k := range AllSources {
		scrapers = append(scrapers, &fakeScraper{
			key: k, name: string(k), articles: 1,
			delay: 30 * time.Millisecond, active: &active, peak: &peak,
		})
	}
	cfg := aggregatorConfig(config.ModeParallel)
	cfg.MaxWorkers = 2
	agg := NewAggregator(NewRegistry(scrapers...), cfg, nil)

	res := agg.Crawl(context.Background(), "AAPL", "", AllSources)

	if peak > 2 {
		t.Errorf("Expected at most 2 concurrent scrapers, saw %d", peak)
	}
	if CountReal(res.Articles) != len(AllSources) {
		t.Errorf("Expected one article per source, got %d", CountReal(res.Articles))
	}
}

func TestRegistry_Select(t *testing.T) {
	reg := NewRegistry(
		&fakeScraper{key: SourceGoogle, name: "Google News"},
		&fakeScraper{key: SourceRSS, name: "RSS Feeds"},
	)

	if got := reg.Select(nil); len(got) != 1 || got[0].Key() != SourceGoogle {
		t.Errorf("Empty selection should fall back to google, got %v", got)
	}
	if got := reg.Select([]SourceKey{SourceMarketWatch}); len(got) != 1 || got[0].Key() != SourceGoogle {
		t.Errorf("Unregistered selection should fall back to google, got %v", got)
	}
	if got := reg.Select([]SourceKey{SourceRSS}); len(got) != 1 || got[0].Key() != SourceRSS {
		t.Errorf("Expected rss only, got %v", got)
	}
	if keys := reg.Keys(); len(keys) != 2 || keys[0] != SourceGoogle || keys[1] != SourceRSS {
		t.Errorf("Unexpected keys %v", keys)
	}
}

func TestParseSourceKeys(t *testing.T) {
	keys, err := ParseSourceKeys([]string{"Google", "rss", "google"})
	if err != nil {
		t.Fatalf("ParseSourceKeys failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != SourceGoogle || keys[1] != SourceRSS {
		t.Errorf("Unexpected keys %v", keys)
	}

	if _, err := ParseSourceKeys([]string{"google", "twitter"}); !errors.Is(err, config.ErrUnknownSource) {
		t.Errorf("Expected ErrUnknownSource, got %v", err)
	}
}

func TestSourceKeysMatchConfig(t *testing.T) {
	if len(config.SourceKeys) != len(AllSources) {
		t.Fatalf("config lists %d sources, registry %d", len(config.SourceKeys), len(AllSources))
	}
	for i, k := range AllSources {
		if config.SourceKeys[i] != string(k) {
			t.Errorf("Source %d: config %q, registry %q", i, config.SourceKeys[i], k)
		}
	}
}

func debugContains(entries []string, substr string) bool {
	for _, e := range entries {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}
