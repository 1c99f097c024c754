// Package research runs one on-demand screening and analysis pass: screen the
// universe, then crawl, enrich, and analyze every surviving ticker.
package research

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stockresearch/pkg/crawler"
	"stockresearch/pkg/extract"
	"stockresearch/pkg/llm"
	"stockresearch/pkg/logger"
	"stockresearch/pkg/screener"
)

var (
	ErrLLMUnavailable = errors.New("llm endpoint unavailable")
	ErrInvalidRequest = errors.New("invalid research request")
)

type Screener interface {
	Screen(ctx context.Context, c screener.Criteria) ([]screener.Candidate, error)
}

type Crawler interface {
	Crawl(ctx context.Context, ticker, date string, keys []crawler.SourceKey) crawler.Result
}

type Enhancer interface {
	Enhance(ctx context.Context, ticker string, links []string) ([]extract.EnhancedContent, []string)
}

type Analyzer interface {
	Health(ctx context.Context) error
	Analyze(ctx context.Context, in llm.PromptInput) llm.Analysis
}

// Request describes one research run.
type Request struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	TargetReturn float64   `json:"target_return"`
	TopN         int       `json:"top_n"`
	Sources      []string  `json:"sources,omitempty"`
	Language     string    `json:"language,omitempty"`
	SkipEnhance  bool      `json:"skip_enhance,omitempty"`
}

func (r Request) validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidRequest)
	}
	if !r.End.After(r.Start) {
		return fmt.Errorf("%w: end date must be after start date", ErrInvalidRequest)
	}
	if r.TopN < 0 {
		return fmt.Errorf("%w: top_n must not be negative", ErrInvalidRequest)
	}
	return nil
}

// TickerReport is everything gathered for one candidate.
type TickerReport struct {
	Candidate    screener.Candidate        `json:"candidate"`
	Profile      screener.Profile          `json:"profile"`
	Articles     []string                  `json:"articles"`
	Links        []string                  `json:"links"`
	Debug        []string                  `json:"debug"`
	Crawl        crawler.Summary           `json:"crawl_summary"`
	Enhanced     []extract.EnhancedContent `json:"enhanced_content,omitempty"`
	EnhanceDebug []string                  `json:"enhance_debug,omitempty"`
	Analysis     llm.Analysis              `json:"analysis"`
}

// Report is the result of a research run.
type Report struct {
	RunID      string               `json:"run_id"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	Request    Request              `json:"request"`
	Candidates []screener.Candidate `json:"candidates"`
	Tickers    []TickerReport       `json:"tickers"`
}

type Pipeline struct {
	Screener Screener
	Crawler  Crawler
	Enricher Enhancer
	LLM      Analyzer
	Sources  []string
	Language string
	Logger   *zap.Logger

	now func() time.Time
}

func NewPipeline(s Screener, c Crawler, e Enhancer, a Analyzer, sources []string, language string, log *zap.Logger) *Pipeline {
	return &Pipeline{
		Screener: s,
		Crawler:  c,
		Enricher: e,
		LLM:      a,
		Sources:  sources,
		Language: language,
		Logger:   logger.OrNop(log),
		now:      time.Now,
	}
}

// Run checks the LLM endpoint, screens the universe and researches every
// candidate. Per-ticker failures degrade that ticker's report and never abort
// the run.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Report, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	keys, err := p.sourceKeys(req.Sources)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.Language == "" {
		req.Language = p.Language
	}

	report := &Report{
		RunID:     uuid.New().String(),
		StartedAt: p.now(),
		Request:   req,
	}
	log := p.Logger.With(zap.String("run_id", report.RunID))

	if err := p.LLM.Health(ctx); err != nil {
		log.Error("LLM health check failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}

	candidates, err := p.Screener.Screen(ctx, screener.Criteria{
		Start:        req.Start,
		End:          req.End,
		TargetReturn: req.TargetReturn,
		TopN:         req.TopN,
	})
	if err != nil {
		return nil, fmt.Errorf("screening failed: %w", err)
	}
	report.Candidates = candidates

	log.Info("Researching candidates", zap.Int("candidates", len(candidates)))

	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		log.Info("Analyzing ticker",
			zap.String("ticker", c.Ticker),
			zap.Int("index", i+1),
			zap.Int("total", len(candidates)))

		report.Tickers = append(report.Tickers, p.researchTicker(ctx, req, keys, c))
	}

	report.FinishedAt = p.now()
	log.Info("Research run finished",
		zap.Int("tickers", len(report.Tickers)),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))

	return report, nil
}

func (p *Pipeline) sourceKeys(requested []string) ([]crawler.SourceKey, error) {
	if len(requested) == 0 {
		requested = p.Sources
	}
	return crawler.ParseSourceKeys(requested)
}

func (p *Pipeline) researchTicker(ctx context.Context, req Request, keys []crawler.SourceKey, c screener.Candidate) TickerReport {
	date := req.Start.Format(time.DateOnly)
	res := p.Crawler.Crawl(ctx, c.Ticker, date, keys)

	tr := TickerReport{
		Candidate: c,
		Profile:   screener.ProfileOf(c, req.Start, req.End),
		Articles:  res.Articles,
		Links:     res.Links,
		Debug:     res.Debug,
		Crawl:     crawler.Summarize(res),
	}

	if !req.SkipEnhance && p.Enricher != nil {
		tr.Enhanced, tr.EnhanceDebug = p.Enricher.Enhance(ctx, c.Ticker, res.Links)
	}

	tr.Analysis = p.LLM.Analyze(ctx, llm.PromptInput{
		Ticker:   c.Ticker,
		Date:     req.Start,
		Return:   c.Return,
		Articles: res.Articles,
		Language: req.Language,
	})

	return tr
}

// Crawl runs the crawler for a single ticker outside a full research run.
func (p *Pipeline) Crawl(ctx context.Context, ticker, date string, sources []string) (crawler.Result, crawler.Summary, error) {
	keys, err := p.sourceKeys(sources)
	if err != nil {
		return crawler.Result{}, crawler.Summary{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	res := p.Crawler.Crawl(ctx, ticker, date, keys)
	return res, crawler.Summarize(res), nil
}
