package screener

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"stockresearch/pkg/fetch"
)

// ErrEmptyUniverse is returned when a universe source yields no tickers.
var ErrEmptyUniverse = errors.New("ticker universe is empty")

// StaticUniverse is a fixed ticker list.
type StaticUniverse []string

func (s StaticUniverse) Tickers(context.Context) ([]string, error) {
	if len(s) == 0 {
		return nil, ErrEmptyUniverse
	}
	out := make([]string, len(s))
	for i, t := range s {
		out[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	return out, nil
}

// CSVUniverse reads tickers from the first column of a CSV file with a header row.
type CSVUniverse struct {
	Path string
}

func (u CSVUniverse) Tickers(context.Context) ([]string, error) {
	file, err := os.Open(u.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	var symbols []string
	for i, record := range records {
		if i == 0 || len(record) == 0 {
			continue
		}
		if symbol := strings.TrimSpace(strings.ToUpper(record[0])); symbol != "" {
			symbols = append(symbols, symbol)
		}
	}

	if len(symbols) == 0 {
		return nil, ErrEmptyUniverse
	}
	return symbols, nil
}

// DocumentFetcher loads and parses an HTML page.
type DocumentFetcher interface {
	Document(ctx context.Context, url string) (*goquery.Document, error)
}

// WikipediaUniverse reads the S&P 500 constituents table from Wikipedia.
type WikipediaUniverse struct {
	fetcher DocumentFetcher
	URL     string
}

func NewWikipediaUniverse(f DocumentFetcher, url string) *WikipediaUniverse {
	return &WikipediaUniverse{fetcher: f, URL: url}
}

// Tickers returns the symbols in the first column of the constituents table.
// Class-share dots are turned into dashes (BRK.B becomes BRK-B) so the symbols
// work with the Yahoo chart endpoint.
func (w *WikipediaUniverse) Tickers(ctx context.Context) ([]string, error) {
	doc, err := w.fetcher.Document(ctx, w.URL)
	if err != nil {
		return nil, err
	}

	rows := fetch.SelectorChain(doc.Selection, "table#constituents tbody tr", "table.wikitable tbody tr")

	var tickers []string
	seen := make(map[string]bool)
	rows.Each(func(_ int, row *goquery.Selection) {
		cell := row.Find("td").First()
		if cell.Length() == 0 {
			return
		}
		symbol := strings.ReplaceAll(fetch.CleanText(cell.Text()), ".", "-")
		if symbol == "" || seen[symbol] {
			return
		}
		seen[symbol] = true
		tickers = append(tickers, symbol)
	})

	if len(tickers) == 0 {
		return nil, ErrEmptyUniverse
	}
	return tickers, nil
}
