package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"stockresearch/pkg/config"
	"stockresearch/pkg/fetch"
	"stockresearch/pkg/logger"
)

const minContentChars = 50

// EnhancedContent is extracted page text for one reference link.
type EnhancedContent struct {
	URL     string `json:"url"`
	Content string `json:"content"`
	Score   int    `json:"relevance_score"`
}

// ContentSource returns page text for a URL.
type ContentSource interface {
	Extract(ctx context.Context, url string) string
}

// Enricher pulls full text for the most relevant reference links.
type Enricher struct {
	source   ContentSource
	maxLinks int
	minDelay time.Duration
	maxDelay time.Duration
	logger   *zap.Logger
}

// NewEnricher builds an enricher from the extract settings.
func NewEnricher(src ContentSource, cfg config.ExtractConfig, log *zap.Logger) *Enricher {
	return &Enricher{
		source:   src,
		maxLinks: cfg.MaxLinks,
		minDelay: cfg.MinDelay,
		maxDelay: cfg.MaxDelay,
		logger:   logger.OrNop(log),
	}
}

type scoredLink struct {
	url   string
	score int
}

// Rank keeps the http(s) links and orders them by Score, highest first. Equal
// scores keep their input order.
func Rank(links []string, ticker string) []EnhancedContent {
	var scored []scoredLink
	for _, l := range links {
		if !strings.HasPrefix(l, "http") {
			continue
		}
		scored = append(scored, scoredLink{url: l, score: Score(l, ticker)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	out := make([]EnhancedContent, len(scored))
	for i, s := range scored {
		out[i] = EnhancedContent{URL: s.url, Score: s.score}
	}
	return out
}

// Enhance extracts content from the top-ranked links, pausing briefly after
// each request. It returns the items with usable content and a debug trail.
func (e *Enricher) Enhance(ctx context.Context, ticker string, links []string) ([]EnhancedContent, []string) {
	var (
		items []EnhancedContent
		debug []string
	)

	ranked := Rank(links, ticker)
	if len(ranked) > e.maxLinks {
		ranked = ranked[:e.maxLinks]
	}

	debug = append(debug, fmt.Sprintf("· Enhancing %d of %d links", len(ranked), len(links)))

	for i, item := range ranked {
		if ctx.Err() != nil {
			debug = append(debug, fmt.Sprintf("✗ Enhancement aborted: %v", ctx.Err()))
			break
		}

		content := e.source.Extract(ctx, item.URL)

		switch {
		case IsError(content):
			debug = append(debug, fmt.Sprintf("✗ %s: %s", item.URL, strings.TrimPrefix(content, ErrorPrefix)))
			e.logger.Debug("Extraction failed", zap.String("url", item.URL), zap.String("error", content))
		case utf8.RuneCountInString(content) > minContentChars:
			item.Content = content
			items = append(items, item)
			debug = append(debug, fmt.Sprintf("✓ Extracted %d chars from %s (score %d)", utf8.RuneCountInString(content), item.URL, item.Score))
		default:
			debug = append(debug, fmt.Sprintf("! Too little content at %s", item.URL))
		}

		if i < len(ranked)-1 {
			if err := fetch.Sleep(ctx, e.minDelay, e.maxDelay); err != nil {
				debug = append(debug, fmt.Sprintf("✗ Enhancement aborted: %v", err))
				break
			}
		}
	}

	return items, debug
}
