package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/mrz1836/go-sanitize"

	"stockresearch/pkg/fetch"
)

const (
	rssScanEntries = 10
	rssPerFeed     = 3
	rssSummaryMax  = 200
)

// RSSFeeds scans a list of finance feeds for entries that mention the ticker.
// A feed URL may contain {ticker}, which is replaced per request. At most
// three entries are taken per feed and Limit across all feeds.
type RSSFeeds struct {
	fetcher Fetcher
	Feeds   []string
	Limit   int
}

func NewRSSFeeds(f Fetcher, feeds []string, numReferences int) *RSSFeeds {
	return &RSSFeeds{fetcher: f, Feeds: feeds, Limit: perSourceLimit(numReferences, 3)}
}

func (r *RSSFeeds) Key() SourceKey { return SourceRSS }
func (r *RSSFeeds) Name() string   { return "RSS Feeds" }

func (r *RSSFeeds) Scrape(ctx context.Context, ticker string) Result {
	var res Result

	symbol := strings.ToUpper(ticker)

	for _, tmpl := range r.Feeds {
		if len(res.Articles) >= r.Limit {
			res.info("RSS limit of %d reached", r.Limit)
			break
		}
		if ctx.Err() != nil {
			res.fail("RSS aborted: %v", ctx.Err())
			break
		}

		feedURL := strings.ReplaceAll(tmpl, "{ticker}", url.QueryEscape(ticker))
		res.info("Checking RSS: %s", feedURL)

		items, err := r.parse(ctx, feedURL)
		if err != nil {
			res.fail("RSS %s error: %v", feedURL, err)
			continue
		}

		var relevant []*gofeed.Item
		for i, item := range items {
			if i >= rssScanEntries {
				break
			}
			if strings.Contains(strings.ToUpper(item.Title), symbol) ||
				strings.Contains(strings.ToUpper(item.Description), symbol) {
				relevant = append(relevant, item)
			}
		}
		res.ok("RSS %s: %d relevant entries", feedURL, len(relevant))

		for i, item := range relevant {
			if i >= rssPerFeed || len(res.Articles) >= r.Limit {
				break
			}
			title := fetch.CleanText(item.Title)
			summary := fetch.CleanText(sanitize.HTML(item.Description))

			content := title
			if summary != "" {
				content = fmt.Sprintf("%s: %s...", title, truncateRunes(summary, rssSummaryMax))
			}

			res.add(fmt.Sprintf("%s %s", TagRSS, content), strings.TrimSpace(item.Link))
			res.ok("Added RSS: %s", preview(title))
		}
	}

	return res
}

func (r *RSSFeeds) parse(ctx context.Context, feedURL string) ([]*gofeed.Item, error) {
	body, err := r.fetcher.Get(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return feed.Items, nil
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
