package crawler

import (
	"context"
	"fmt"
	"net/url"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"stockresearch/pkg/fetch"
)

// YahooFinance scrapes headlines from a ticker's Yahoo Finance news page.
// Headlines carry no per-item link, so every article points at the news page.
type YahooFinance struct {
	fetcher Fetcher
	BaseURL string
	Limit   int
}

func NewYahooFinance(f Fetcher, numReferences int) *YahooFinance {
	return &YahooFinance{
		fetcher: f,
		BaseURL: "https://finance.yahoo.com",
		Limit:   perSourceLimit(numReferences, 3),
	}
}

func (y *YahooFinance) Key() SourceKey { return SourceYahoo }
func (y *YahooFinance) Name() string   { return "Yahoo Finance" }

func (y *YahooFinance) Scrape(ctx context.Context, ticker string) Result {
	var res Result

	newsURL := fmt.Sprintf("%s/quote/%s/news", y.BaseURL, url.PathEscape(ticker))

	doc, err := y.fetcher.Document(ctx, newsURL)
	if err != nil {
		res.fail("%s", sourceError(y.Name(), err))
		return res
	}

	items := fetch.SelectorChain(doc.Selection,
		`h3[class~="Mb(5px)"]`,
		`div[data-test-locator="StreamItem"] h3`,
		`div[data-module="Stream"]`,
	)
	res.ok("%s: %d results found", y.Name(), items.Length())

	items.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(res.Articles) >= y.Limit {
			return false
		}

		title := fetch.CleanText(s.Text())
		if utf8.RuneCountInString(title) <= 10 {
			return true
		}

		res.add(fmt.Sprintf("%s %s", TagYahoo, title), newsURL)
		res.ok("Added: %s", preview(title))
		return true
	})

	return res
}
