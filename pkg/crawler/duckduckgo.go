package crawler

import (
	"context"
	"fmt"
	"net/url"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"stockresearch/pkg/fetch"
)

// DuckDuckGo scrapes the HTML-only DuckDuckGo results page as an alternative
// search engine.
type DuckDuckGo struct {
	fetcher Fetcher
	BaseURL string
	Limit   int
}

func NewDuckDuckGo(f Fetcher, numReferences int) *DuckDuckGo {
	return &DuckDuckGo{
		fetcher: f,
		BaseURL: "https://duckduckgo.com",
		Limit:   perSourceLimit(numReferences, 3),
	}
}

func (d *DuckDuckGo) Key() SourceKey { return SourceAlternative }
func (d *DuckDuckGo) Name() string   { return "DuckDuckGo" }

func (d *DuckDuckGo) Scrape(ctx context.Context, ticker string) Result {
	var res Result

	searchURL := fmt.Sprintf("%s/html/?q=%s+stock+news+analysis", d.BaseURL, url.QueryEscape(ticker))

	doc, err := d.fetcher.Document(ctx, searchURL)
	if err != nil {
		res.fail("%s", sourceError(d.Name(), err))
		return res
	}

	results := fetch.SelectorChain(doc.Selection, "a.result__a", "h2.result__title a")
	res.ok("%s: %d results found", d.Name(), results.Length())

	results.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(res.Articles) >= d.Limit {
			return false
		}

		title := fetch.CleanText(s.Text())
		if utf8.RuneCountInString(title) <= 10 {
			return true
		}

		href, _ := s.Attr("href")

		res.add(fmt.Sprintf("%s %s", TagSearch, title), normalizeLink(d.BaseURL, href))
		res.ok("Added: %s", preview(title))
		return true
	})

	return res
}
