package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"stockresearch/pkg/fetch"
)

// MarketWatch scrapes stock-related headlines from a MarketWatch quote page.
type MarketWatch struct {
	fetcher Fetcher
	BaseURL string
	Limit   int
}

func NewMarketWatch(f Fetcher, numReferences int) *MarketWatch {
	return &MarketWatch{
		fetcher: f,
		BaseURL: "https://www.marketwatch.com",
		Limit:   perSourceLimit(numReferences, 4),
	}
}

func (m *MarketWatch) Key() SourceKey { return SourceMarketWatch }
func (m *MarketWatch) Name() string   { return "MarketWatch" }

func (m *MarketWatch) Scrape(ctx context.Context, ticker string) Result {
	var res Result

	pageURL := fmt.Sprintf("%s/investing/stock/%s", m.BaseURL, url.PathEscape(strings.ToLower(ticker)))

	doc, err := m.fetcher.Document(ctx, pageURL)
	if err != nil {
		res.fail("%s", sourceError(m.Name(), err))
		return res
	}

	headlines := fetch.SelectorChain(doc.Selection, "a.link", "h3.article__headline")
	res.ok("%s: %d results found", m.Name(), headlines.Length())

	headlines.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(res.Articles) >= m.Limit {
			return false
		}

		title := fetch.CleanText(s.Text())
		if utf8.RuneCountInString(title) <= 10 || !strings.Contains(strings.ToLower(title), "stock") {
			return true
		}

		href, ok := s.Attr("href")
		if !ok {
			href, _ = s.Find("a[href]").First().Attr("href")
		}

		res.add(fmt.Sprintf("%s %s", TagMarketWatch, title), normalizeLink(m.BaseURL, href))
		res.ok("Added: %s", preview(title))
		return true
	})

	return res
}
