package crawler

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"stockresearch/pkg/config"
)

// SourceKey identifies a scraper in the registry.
type SourceKey string

const (
	SourceGoogle      SourceKey = "google"
	SourceYahoo       SourceKey = "yahoo"
	SourceMarketWatch SourceKey = "marketwatch"
	SourceRSS         SourceKey = "rss"
	SourceAlternative SourceKey = "alternative"
)

// AllSources lists every source in registry order.
var AllSources = []SourceKey{SourceGoogle, SourceYahoo, SourceMarketWatch, SourceRSS, SourceAlternative}

// DefaultSources is used when no source is selected.
var DefaultSources = []SourceKey{SourceGoogle}

// Fetcher is the subset of fetch.Fetcher the scrapers need.
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
	Document(ctx context.Context, url string) (*goquery.Document, error)
}

// Scraper turns one web source into tagged articles. Scrape never fails: every
// problem ends up in Result.Debug.
type Scraper interface {
	Key() SourceKey
	Name() string
	Scrape(ctx context.Context, ticker string) Result
}

// ParseSourceKeys normalises and validates source keys, dropping duplicates.
func ParseSourceKeys(keys []string) ([]SourceKey, error) {
	if err := config.ValidateSources(keys); err != nil {
		return nil, err
	}

	seen := make(map[SourceKey]bool, len(keys))
	out := make([]SourceKey, 0, len(keys))
	for _, k := range keys {
		key := SourceKey(strings.ToLower(strings.TrimSpace(k)))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out, nil
}

// Registry maps source keys to scraper implementations.
type Registry struct {
	scrapers map[SourceKey]Scraper
}

// NewRegistry builds a registry from the given scrapers. A later scraper with
// the same key replaces an earlier one.
func NewRegistry(scrapers ...Scraper) *Registry {
	r := &Registry{scrapers: make(map[SourceKey]Scraper, len(scrapers))}
	for _, s := range scrapers {
		r.scrapers[s.Key()] = s
	}
	return r
}

// DefaultRegistry wires the five built-in scrapers against live endpoints.
func DefaultRegistry(f Fetcher, cfg config.CrawlerConfig) *Registry {
	n := cfg.NumReferences
	return NewRegistry(
		NewGoogleNews(f, n),
		NewYahooFinance(f, n),
		NewMarketWatch(f, n),
		NewRSSFeeds(f, cfg.RSSFeeds, n),
		NewDuckDuckGo(f, n),
	)
}

// Get returns the scraper registered under key.
func (r *Registry) Get(key SourceKey) (Scraper, bool) {
	s, ok := r.scrapers[key]
	return s, ok
}

// Keys returns the registered keys in registry order.
func (r *Registry) Keys() []SourceKey {
	keys := make([]SourceKey, 0, len(r.scrapers))
	for _, k := range AllSources {
		if _, ok := r.scrapers[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// Select returns the registered scrapers for keys in registry order. An empty
// selection, or one that matches nothing registered, falls back to DefaultSources.
func (r *Registry) Select(keys []SourceKey) []Scraper {
	want := make(map[SourceKey]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}

	var out []Scraper
	for _, k := range AllSources {
		if s, ok := r.scrapers[k]; ok && want[k] {
			out = append(out, s)
		}
	}

	if len(out) == 0 {
		for _, k := range DefaultSources {
			if s, ok := r.scrapers[k]; ok {
				out = append(out, s)
			}
		}
	}

	return out
}

// perSourceLimit divides the reference budget between sources, never below one.
func perSourceLimit(total, divisor int) int {
	if n := total / divisor; n > 0 {
		return n
	}
	return 1
}

func sourceError(name string, err error) string {
	return fmt.Sprintf("%s error: %v", name, err)
}
