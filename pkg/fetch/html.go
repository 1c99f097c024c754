package fetch

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SelectorChain returns the matches of the first selector that finds anything
// under sel. Sites change markup often, so scrapers list the current selector
// first and older ones after it.
func SelectorChain(sel *goquery.Selection, selectors ...string) *goquery.Selection {
	for _, s := range selectors {
		if found := sel.Find(s); found.Length() > 0 {
			return found
		}
	}
	return sel.Find(selectorNone)
}

// FirstText returns the trimmed text of the first selector with non-empty text.
func FirstText(sel *goquery.Selection, selectors ...string) string {
	for _, s := range selectors {
		if text := CleanText(sel.Find(s).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// never matches; gives callers an empty selection instead of nil
const selectorNone = "stockresearch-no-match"

// CleanText collapses runs of whitespace into single spaces and trims the result.
func CleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Resolve turns href into an absolute URL relative to base. Unparseable input
// is returned unchanged.
func Resolve(base, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return ref.String()
	}

	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}
