package screener

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"stockresearch/pkg/config"
)

// BarsClient is the part of *marketdata.Client used for price history.
type BarsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// AssetsClient is the part of *alpaca.Client used to list tradable symbols.
type AssetsClient interface {
	GetAssets(req alpaca.GetAssetsRequest) ([]alpaca.Asset, error)
}

// AlpacaProvider loads daily bars from the Alpaca market data API.
type AlpacaProvider struct {
	client BarsClient
	feed   string
}

// NewAlpacaClients creates the trading and market data clients from cfg.
func NewAlpacaClients(cfg config.AlpacaConfig) (*alpaca.Client, *marketdata.Client) {
	tradeClient := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		BaseURL:   cfg.BaseURL,
	})

	mdClient := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	})

	return tradeClient, mdClient
}

// NewAlpacaProvider wraps a market data client. feed is "iex" or "sip".
func NewAlpacaProvider(client BarsClient, feed string) *AlpacaProvider {
	return &AlpacaProvider{client: client, feed: feed}
}

func (p *AlpacaProvider) Bars(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := p.client.GetBars(ticker, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
		Feed:      p.feed,
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca bars for %s: %w", ticker, err)
	}

	bars := make([]Bar, 0, len(raw))
	for _, b := range raw {
		bars = append(bars, Bar{
			Time:   b.Timestamp,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: float64(b.Volume),
		})
	}
	return bars, nil
}

// AlpacaUniverse lists active, tradable US equities.
type AlpacaUniverse struct {
	client AssetsClient
}

func NewAlpacaUniverse(client AssetsClient) *AlpacaUniverse {
	return &AlpacaUniverse{client: client}
}

func (u *AlpacaUniverse) Tickers(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	assets, err := u.client.GetAssets(alpaca.GetAssetsRequest{
		Status:     "active",
		AssetClass: "us_equity",
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca assets: %w", err)
	}

	var tickers []string
	for _, a := range assets {
		if a.Tradable && a.Symbol != "" && !strings.ContainsAny(a.Symbol, "/") {
			tickers = append(tickers, a.Symbol)
		}
	}
	sort.Strings(tickers)
	return tickers, nil
}
