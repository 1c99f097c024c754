package crawler

import (
	"fmt"
	"strings"
)

// Placeholder links for synthetic content.
const (
	FallbackLink = "#fallback-analysis"
	NoDataLink   = "#no-data-available"
)

var fallbackTemplates = []string{
	TagAnalysis + " %s is a publicly traded company that requires fundamental and technical analysis",
	TagMarket + " %s stock performance should be evaluated based on company financials and market trends",
	TagInvestment + " Consider %s's sector performance, earnings reports, and competitive position",
	TagRisk + " Evaluate %s's volatility, market cap, and correlation with broader market indices",
	TagStrategy + " %s investment decisions should consider portfolio diversification and risk tolerance",
}

var fallbackTags = []string{TagAnalysis, TagMarket, TagInvestment, TagRisk, TagStrategy, TagFallback}

// GenerateFallback returns generic analysis prompts for ticker, used when the
// crawl found too little real content.
func GenerateFallback(ticker string) Result {
	res := Result{
		Articles: make([]string, 0, len(fallbackTemplates)),
		Links:    make([]string, 0, len(fallbackTemplates)),
	}
	for _, tmpl := range fallbackTemplates {
		res.add(fmt.Sprintf(tmpl, ticker), FallbackLink)
	}
	res.info("Generated fallback analysis content due to limited crawled data")
	return res
}

// MinimalFallback is the single placeholder used when nothing at all was collected.
func MinimalFallback(ticker string) Result {
	var res Result
	res.add(fmt.Sprintf("%s Analysis needed for %s stock performance and market position", TagFallback, ticker), NoDataLink)
	res.info("Using minimal fallback content")
	return res
}

// IsFallback reports whether article is synthetic rather than scraped.
func IsFallback(article string) bool {
	tag, _, _ := strings.Cut(strings.TrimSpace(article), " ")
	for _, t := range fallbackTags {
		if tag == t {
			return true
		}
	}
	return false
}

// CountReal returns the number of scraped, non-synthetic articles.
func CountReal(articles []string) int {
	n := 0
	for _, a := range articles {
		if !IsFallback(a) {
			n++
		}
	}
	return n
}
