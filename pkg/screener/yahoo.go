package screener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ErrNoChartData is returned when Yahoo answers without a usable series.
var ErrNoChartData = errors.New("no chart data")

// Getter fetches a URL body.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type yfChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamps []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// YahooProvider loads daily bars from the Yahoo Finance v8 chart endpoint.
// It needs no credentials.
type YahooProvider struct {
	getter  Getter
	BaseURL string
}

func NewYahooProvider(g Getter) *YahooProvider {
	return &YahooProvider{getter: g, BaseURL: "https://query1.finance.yahoo.com"}
}

func (p *YahooProvider) Bars(ctx context.Context, ticker string, start, end time.Time) ([]Bar, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d",
		p.BaseURL, url.PathEscape(ticker), start.Unix(), end.Unix())

	data, err := p.getter.Get(ctx, u)
	if err != nil {
		return nil, err
	}

	var resp yfChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode chart for %s: %w", ticker, err)
	}

	if e := resp.Chart.Error; e != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrNoChartData, e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}

	r := resp.Chart.Result[0]
	if len(r.Indicators.Quote) == 0 {
		return nil, nil
	}
	q := r.Indicators.Quote[0]

	bars := make([]Bar, 0, len(r.Timestamps))
	for i, ts := range r.Timestamps {
		open, okO := at(q.Open, i)
		closeP, okC := at(q.Close, i)
		if !okO || !okC {
			continue
		}
		high, _ := at(q.High, i)
		low, _ := at(q.Low, i)
		vol, _ := at(q.Volume, i)

		bars = append(bars, Bar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closeP,
			Volume: vol,
		})
	}
	return bars, nil
}

func at(values []*float64, i int) (float64, bool) {
	if i >= len(values) || values[i] == nil {
		return 0, false
	}
	return *values[i], true
}
