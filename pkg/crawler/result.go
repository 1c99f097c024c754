// Package crawler collects short news snippets about a ticker from several web
// sources and RSS feeds, merging them into one bounded result set.
package crawler

import "fmt"

// Article tags. Every article begins with exactly one of these.
const (
	TagNews        = "[NEWS]"
	TagYahoo       = "[YAHOO]"
	TagMarketWatch = "[MARKETWATCH]"
	TagRSS         = "[RSS]"
	TagSearch      = "[SEARCH]"

	TagAnalysis   = "[ANALYSIS]"
	TagMarket     = "[MARKET]"
	TagInvestment = "[INVESTMENT]"
	TagRisk       = "[RISK]"
	TagStrategy   = "[STRATEGY]"
	TagFallback   = "[FALLBACK]"
)

// Debug entry markers.
const (
	markOK   = "✓"
	markFail = "✗"
	markWarn = "!"
	markInfo = "·"
)

// Result is what one scraper, or the aggregator, hands back: articles and links
// in parallel order plus a diagnostic trail. Articles and Links are not required
// to have equal length once truncated.
type Result struct {
	Articles []string `json:"articles"`
	Links    []string `json:"links"`
	Debug    []string `json:"debug"`
}

func (r *Result) add(article, link string) {
	r.Articles = append(r.Articles, article)
	r.Links = append(r.Links, link)
}

func (r *Result) ok(format string, args ...any) {
	r.Debug = append(r.Debug, markOK+" "+fmt.Sprintf(format, args...))
}

func (r *Result) fail(format string, args ...any) {
	r.Debug = append(r.Debug, markFail+" "+fmt.Sprintf(format, args...))
}

func (r *Result) warn(format string, args ...any) {
	r.Debug = append(r.Debug, markWarn+" "+fmt.Sprintf(format, args...))
}

func (r *Result) info(format string, args ...any) {
	r.Debug = append(r.Debug, markInfo+" "+fmt.Sprintf(format, args...))
}

// Merge appends other's articles, links and debug entries to r.
func (r *Result) Merge(other Result) {
	r.Articles = append(r.Articles, other.Articles...)
	r.Links = append(r.Links, other.Links...)
	r.Debug = append(r.Debug, other.Debug...)
}

// Truncate caps Articles and Links independently at n.
func (r *Result) Truncate(n int) {
	if len(r.Articles) > n {
		r.Articles = r.Articles[:n]
	}
	if len(r.Links) > n {
		r.Links = r.Links[:n]
	}
}

// keepFallback puts fallback's first entry in the last slot when truncation
// dropped every synthetic article.
func (r *Result) keepFallback(fallback Result) {
	if len(r.Articles) == 0 || CountReal(r.Articles) < len(r.Articles) {
		return
	}
	last := len(r.Articles) - 1
	r.Articles[last] = fallback.Articles[0]
	if last < len(r.Links) && len(fallback.Links) > 0 {
		r.Links[last] = fallback.Links[0]
	}
}

// preview shortens a title for debug output.
func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= 50 {
		return s
	}
	return string(runes[:50]) + "..."
}
