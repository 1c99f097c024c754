package crawler

import (
	"context"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"stockresearch/pkg/fetch"
)

// GoogleNews scrapes the news tab of Google search.
type GoogleNews struct {
	fetcher Fetcher
	BaseURL string
	Limit   int
}

func NewGoogleNews(f Fetcher, numReferences int) *GoogleNews {
	return &GoogleNews{
		fetcher: f,
		BaseURL: "https://www.google.com",
		Limit:   perSourceLimit(numReferences, 2),
	}
}

func (g *GoogleNews) Key() SourceKey { return SourceGoogle }
func (g *GoogleNews) Name() string   { return "Google News" }

func (g *GoogleNews) Scrape(ctx context.Context, ticker string) Result {
	var res Result

	searchURL := fmt.Sprintf("%s/search?q=%s+stock+news+finance&tbm=nws", g.BaseURL, url.QueryEscape(ticker))

	doc, err := g.fetcher.Document(ctx, searchURL)
	if err != nil {
		res.fail("%s", sourceError(g.Name(), err))
		return res
	}

	results := fetch.SelectorChain(doc.Selection, "div.SoaBEf", "div.xrnccd")
	res.ok("%s: %d results found", g.Name(), results.Length())

	results.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(res.Articles) >= g.Limit {
			return false
		}

		title := fetch.FirstText(s, "div.MBeuO", "h3")
		snippet := fetch.FirstText(s, "div.GI74Re", "span.st")
		if title == "" || snippet == "" {
			return true
		}

		href, _ := s.Find("a[href]").First().Attr("href")

		res.add(fmt.Sprintf("%s %s: %s", TagNews, title, snippet), normalizeLink(g.BaseURL, href))
		res.ok("Added: %s", preview(title))
		return true
	})

	return res
}
