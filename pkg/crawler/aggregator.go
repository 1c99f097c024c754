package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"stockresearch/pkg/config"
	"stockresearch/pkg/fetch"
	"stockresearch/pkg/logger"
)

// ErrSourceTimeout is recorded when a scraper exceeds its time budget.
var ErrSourceTimeout = errors.New("source timed out")

// Aggregator runs the selected scrapers for a ticker and merges their output
// into one bounded result.
type Aggregator struct {
	registry      *Registry
	mode          string
	maxWorkers    int
	sourceTimeout time.Duration
	minArticles   int
	maxReferences int
	minDelay      time.Duration
	maxDelay      time.Duration
	logger        *zap.Logger
}

// NewAggregator creates an aggregator over reg using the crawler settings in cfg.
func NewAggregator(reg *Registry, cfg config.CrawlerConfig, log *zap.Logger) *Aggregator {
	workers := cfg.MaxWorkers
	if workers < 1 {
		workers = 1
	}

	return &Aggregator{
		registry:      reg,
		mode:          cfg.Mode,
		maxWorkers:    workers,
		sourceTimeout: cfg.SourceTimeout,
		minArticles:   cfg.MinArticles,
		maxReferences: cfg.NumReferences,
		minDelay:      cfg.MinDelay,
		maxDelay:      cfg.MaxDelay,
		logger:        logger.OrNop(log),
	}
}

// Registry returns the registry the aggregator selects scrapers from.
func (a *Aggregator) Registry() *Registry {
	return a.registry
}

type outcome struct {
	name string
	res  Result
	err  error
}

// Crawl collects articles about ticker from the sources named by keys. It
// always returns at least one article: when nothing could be scraped a
// placeholder is produced, and when fewer than the minimum real articles were
// found generic fallback content is appended.
func (a *Aggregator) Crawl(ctx context.Context, ticker, date string, keys []SourceKey) Result {
	scrapers := a.registry.Select(keys)

	var res Result
	res.info("Starting %s crawl for %s", a.mode, ticker)
	if date != "" {
		res.info("Target date: %s", date)
	}
	res.info("Enabled sources: %s", sourceNames(scrapers))

	var outcomes []outcome
	if a.mode == config.ModeSequential {
		outcomes = a.runSequential(ctx, ticker, scrapers)
	} else {
		outcomes = a.runParallel(ctx, ticker, scrapers)
	}

	for _, o := range outcomes {
		if o.err != nil {
			res.fail("%s failed: %v", o.name, o.err)
			a.logger.Warn("Source failed",
				zap.String("ticker", ticker),
				zap.String("source", o.name),
				zap.Error(o.err))
			continue
		}
		res.info("%s results: %d articles, %d links", o.name, len(o.res.Articles), len(o.res.Links))
		res.Merge(o.res)
	}

	res.info("Total articles before fallback: %d", len(res.Articles))

	var fallback Result
	switch scraped := CountReal(res.Articles); {
	case len(res.Articles) == 0:
		res.warn("No content found")
		fallback = MinimalFallback(ticker)
	case scraped < a.minArticles:
		res.warn("Limited content found, adding fallback analysis")
		fallback = GenerateFallback(ticker)
	}
	res.Merge(fallback)

	res.Truncate(a.maxReferences)
	if len(fallback.Articles) > 0 {
		res.keepFallback(fallback)
	}
	res.ok("Final results: %d articles, %d links", len(res.Articles), len(res.Links))

	a.logger.Info("Crawl finished",
		zap.String("ticker", ticker),
		zap.Int("sources", len(scrapers)),
		zap.Int("articles", len(res.Articles)),
		zap.Int("real", CountReal(res.Articles)))

	return res
}

// runSequential keeps submission order and pauses between sources.
func (a *Aggregator) runSequential(ctx context.Context, ticker string, scrapers []Scraper) []outcome {
	outcomes := make([]outcome, 0, len(scrapers))
	for i, s := range scrapers {
		if i > 0 {
			if err := fetch.Sleep(ctx, a.minDelay, a.maxDelay); err != nil {
				outcomes = append(outcomes, outcome{name: s.Name(), err: err})
				continue
			}
		}
		outcomes = append(outcomes, a.runOne(ctx, ticker, s))
	}
	return outcomes
}

// runParallel dispatches one task per source through a pool of
// min(len(scrapers), maxWorkers) slots and collects in completion order.
func (a *Aggregator) runParallel(ctx context.Context, ticker string, scrapers []Scraper) []outcome {
	workers := min(len(scrapers), a.maxWorkers)
	if workers < 1 {
		return nil
	}

	semaphore := make(chan struct{}, workers)
	results := make(chan outcome, len(scrapers))

	var wg sync.WaitGroup
	for _, s := range scrapers {
		wg.Add(1)
		go func(s Scraper) {
			defer wg.Done()

			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			results <- a.runOne(ctx, ticker, s)
		}(s)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	outcomes := make([]outcome, 0, len(scrapers))
	for o := range results {
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// runOne runs a single scraper under the per-source timeout. A panic or a
// timeout becomes the outcome's error; siblings are unaffected.
func (a *Aggregator) runOne(ctx context.Context, ticker string, s Scraper) outcome {
	name := s.Name()

	tctx := ctx
	var cancel context.CancelFunc = func() {}
	if a.sourceTimeout > 0 {
		tctx, cancel = context.WithTimeout(ctx, a.sourceTimeout)
	}
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{name: name, err: fmt.Errorf("panic: %v", r)}
			}
		}()
		done <- outcome{name: name, res: s.Scrape(tctx, ticker)}
	}()

	select {
	case o := <-done:
		return o
	case <-tctx.Done():
		if errors.Is(tctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return outcome{name: name, err: fmt.Errorf("%w after %s", ErrSourceTimeout, a.sourceTimeout)}
		}
		return outcome{name: name, err: tctx.Err()}
	}
}

func sourceNames(scrapers []Scraper) string {
	names := make([]string, len(scrapers))
	for i, s := range scrapers {
		names[i] = string(s.Key())
	}
	return "[" + strings.Join(names, ", ") + "]"
}
