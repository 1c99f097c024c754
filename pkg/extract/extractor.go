// Package extract recovers readable text from article pages and ranks links
// by how likely they are to be about a ticker.
package extract

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"stockresearch/pkg/fetch"
)

// ErrorPrefix starts every string Extract returns in place of content.
const ErrorPrefix = "Error extracting content: "

var (
	boilerplateSelector = "script, style, nav, header, footer, noscript"

	contentSelectors = []string{
		"article",
		"main",
		".content",
		".article-body",
		".post-content",
		".entry-content",
		"p",
	}
)

// DocumentFetcher loads and parses an HTML page.
type DocumentFetcher interface {
	Document(ctx context.Context, url string) (*goquery.Document, error)
}

// Extractor fetches pages and returns their main text.
type Extractor struct {
	fetcher  DocumentFetcher
	maxChars int
	timeout  time.Duration
}

// NewExtractor creates an extractor that returns at most maxChars characters
// per page and gives each fetch timeout to complete.
func NewExtractor(f DocumentFetcher, maxChars int, timeout time.Duration) *Extractor {
	return &Extractor{fetcher: f, maxChars: maxChars, timeout: timeout}
}

// Extract returns the cleaned main content of url. It never fails; problems
// are reported as a string starting with ErrorPrefix.
func (e *Extractor) Extract(ctx context.Context, url string) string {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	doc, err := e.fetcher.Document(ctx, url)
	if err != nil {
		return ErrorPrefix + err.Error()
	}

	return Clean(doc, e.maxChars)
}

// IsError reports whether content is an Extract failure message.
func IsError(content string) bool {
	return strings.HasPrefix(content, ErrorPrefix)
}

// Clean strips non-content elements from doc, picks the first matching content
// region (up to three elements of it) or the whole page, collapses whitespace and
// truncates to maxChars characters with a trailing "..." when cut.
func Clean(doc *goquery.Document, maxChars int) string {
	doc.Find(boilerplateSelector).Remove()

	var text string
	for _, sel := range contentSelectors {
		found := doc.Find(sel)
		if found.Length() == 0 {
			continue
		}

		parts := make([]string, 0, 3)
		found.Slice(0, min(3, found.Length())).Each(func(_ int, s *goquery.Selection) {
			parts = append(parts, strings.TrimSpace(s.Text()))
		})
		text = strings.Join(parts, " ")
		break
	}

	if strings.TrimSpace(text) == "" {
		text = doc.Text()
	}

	return Truncate(fetch.CleanText(text), maxChars)
}

// Truncate cuts s to n characters and appends "..." if anything was removed.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if n < 0 || len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
