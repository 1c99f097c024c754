// Package screener ranks a ticker universe by return over a date window.
package screener

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"stockresearch/pkg/logger"
)

// PriceProvider returns daily bars for ticker between start and end. An empty
// slice with a nil error means the provider has no data for the window.
type PriceProvider interface {
	Bars(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error)
}

// Universe lists the tickers to screen.
type Universe interface {
	Tickers(ctx context.Context) ([]string, error)
}

// Criteria selects which candidates survive a screen.
type Criteria struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	TargetReturn float64   `json:"target_return"`
	TopN         int       `json:"top_n"`
}

// Screener fetches bars for every ticker in a universe with a bounded worker
// pool and keeps the best performers.
type Screener struct {
	provider PriceProvider
	universe Universe
	workers  int
	logger   *zap.Logger
}

// New creates a screener.
func New(p PriceProvider, u Universe, workers int, log *zap.Logger) *Screener {
	if workers < 1 {
		workers = 1
	}
	return &Screener{provider: p, universe: u, workers: workers, logger: logger.OrNop(log)}
}

type scored struct {
	index int
	cand  Candidate
}

// Screen returns candidates whose return is at least c.TargetReturn, sorted by
// return descending and capped at c.TopN. Tickers that fail to load or have no
// bars are left out. Only a universe failure is returned as an error.
func (s *Screener) Screen(ctx context.Context, c Criteria) ([]Candidate, error) {
	if !c.End.After(c.Start) {
		return nil, fmt.Errorf("end date %s must be after start date %s", c.End.Format(time.DateOnly), c.Start.Format(time.DateOnly))
	}

	tickers, err := s.universe.Tickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ticker universe: %w", err)
	}

	s.logger.Info("Screening universe",
		zap.Int("tickers", len(tickers)),
		zap.String("start", c.Start.Format(time.DateOnly)),
		zap.String("end", c.End.Format(time.DateOnly)),
		zap.Float64("target_return", c.TargetReturn))

	jobs := make(chan int)
	results := make(chan scored, len(tickers))

	var wg sync.WaitGroup
	for w := 0; w < min(s.workers, max(len(tickers), 1)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if cand, ok := s.evaluate(ctx, tickers[i], c); ok {
					results <- scored{index: i, cand: cand}
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range tickers {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(results)

	var survivors []scored
	for r := range results {
		survivors = append(survivors, r)
	}

	sort.Slice(survivors, func(i, j int) bool {
		if survivors[i].cand.Return != survivors[j].cand.Return {
			return survivors[i].cand.Return > survivors[j].cand.Return
		}
		return survivors[i].index < survivors[j].index
	})

	if c.TopN > 0 && len(survivors) > c.TopN {
		survivors = survivors[:c.TopN]
	}

	out := make([]Candidate, len(survivors))
	for i, r := range survivors {
		out[i] = r.cand
	}

	s.logger.Info("Screening finished", zap.Int("candidates", len(out)))
	return out, ctx.Err()
}

func (s *Screener) evaluate(ctx context.Context, ticker string, c Criteria) (cand Candidate, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic while screening ticker", zap.String("ticker", ticker), zap.Any("panic", r))
			ok = false
		}
	}()

	bars, err := s.provider.Bars(ctx, ticker, c.Start, c.End)
	if err != nil {
		s.logger.Warn("Error fetching data", zap.String("ticker", ticker), zap.Error(err))
		return Candidate{}, false
	}

	cand, ok = Compute(ticker, bars)
	if !ok {
		s.logger.Debug("No bars for ticker", zap.String("ticker", ticker))
		return Candidate{}, false
	}

	return cand, cand.Return >= c.TargetReturn
}
