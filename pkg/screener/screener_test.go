package screener

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"stockresearch/pkg/cache"
)

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

type fakeProvider struct {
	mu    sync.Mutex
	bars  map[string][]Bar
	errs  map[string]error
	calls int
}

func (f *fakeProvider) Bars(_ context.Context, ticker string, _, _ time.Time) ([]Bar, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if err := f.errs[ticker]; err != nil {
		return nil, err
	}
	if ticker == "PANIC" {
		panic("provider bug")
	}
	return f.bars[ticker], nil
}

func series(open float64, closes ...float64) []Bar {
	bars := make([]Bar, len(closes))
	for i, c := range closes {
		bars[i] = Bar{Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	bars[0].Open = open
	return bars
}

func criteria(target float64, topN int) Criteria {
	return Criteria{Start: date("2022-01-01"), End: date("2022-06-01"), TargetReturn: target, TopN: topN}
}

func TestScreen_SingleBarExample(t *testing.T) {
	p := &fakeProvider{bars: map[string][]Bar{
		"AAPL": {{Open: 100, High: 121, Low: 99, Close: 120, Volume: 10}},
	}}
	s := New(p, StaticUniverse{"AAPL"}, 2, nil)

	got, err := s.Screen(context.Background(), criteria(10, 5))
	if err != nil {
		t.Fatalf("Screen failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected one candidate, got %v", got)
	}
	if got[0].Ticker != "AAPL" || math.Abs(got[0].Return-20.0) > 1e-9 {
		t.Errorf("Expected AAPL at 20%%, got %+v", got[0])
	}
	if got[0].Risk != 0 {
		t.Errorf("Single bar should have zero risk, got %v", got[0].Risk)
	}
}

func TestScreen_SkipsMissingAndFailingTickers(t *testing.T) {
	p := &fakeProvider{
		bars: map[string][]Bar{
			"AAPL": series(100, 110, 130),
			"MSFT": series(100, 105, 115),
		},
		errs: map[string]error{"BROKEN": errors.New("connection reset")},
	}
	s := New(p, StaticUniverse{"AAPL", "EMPTY", "BROKEN", "PANIC", "MSFT"}, 3, nil)

	got, err := s.Screen(context.Background(), criteria(10, 5))
	if err != nil {
		t.Fatalf("Screen failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 candidates, got %+v", got)
	}
	if got[0].Ticker != "AAPL" || got[1].Ticker != "MSFT" {
		t.Errorf("Expected AAPL then MSFT, got %s, %s", got[0].Ticker, got[1].Ticker)
	}
	if p.calls != 5 {
		t.Errorf("Expected every ticker to be tried, got %d calls", p.calls)
	}
}

func TestScreen_TargetSortAndTopN(t *testing.T) {
	p := &fakeProvider{bars: map[string][]Bar{
		"A": series(100, 105), // 5%
		"B": series(100, 150), // 50%
		"C": series(100, 130), // 30%
		"D": series(100, 130), // 30%, after C in the universe
		"E": series(100, 110), // 10%, exactly the target
	}}
	s := New(p, StaticUniverse{"A", "B", "C", "D", "E"}, 4, nil)

	got, err := s.Screen(context.Background(), criteria(10, 3))
	if err != nil {
		t.Fatalf("Screen failed: %v", err)
	}
	want := []string{"B", "C", "D"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d candidates, got %+v", len(want), got)
	}
	for i, w := range want {
		if got[i].Ticker != w {
			t.Errorf("Position %d: expected %s, got %s", i, w, got[i].Ticker)
		}
	}

	all, _ := s.Screen(context.Background(), criteria(10, 0))
	if len(all) != 4 {
		t.Errorf("Target is inclusive: expected 4 survivors, got %d", len(all))
	}
}

func TestScreen_UniverseError(t *testing.T) {
	s := New(&fakeProvider{}, StaticUniverse{}, 1, nil)
	if _, err := s.Screen(context.Background(), criteria(10, 5)); !errors.Is(err, ErrEmptyUniverse) {
		t.Errorf("Expected ErrEmptyUniverse, got %v", err)
	}
}

func TestScreen_InvalidWindow(t *testing.T) {
	s := New(&fakeProvider{}, StaticUniverse{"AAPL"}, 1, nil)
	c := criteria(10, 5)
	c.End = c.Start
	if _, err := s.Screen(context.Background(), c); err == nil {
		t.Error("Expected error for empty window")
	}
}

func TestCompute(t *testing.T) {
	bars := []Bar{
		{Open: 100, High: 102, Low: 98, Close: 100, Volume: 10},
		{Open: 100, High: 112, Low: 100, Close: 110, Volume: 10},
		{Open: 110, High: 112, Low: 98, Close: 99, Volume: 10},
	}

	c, ok := Compute("X", bars)
	if !ok {
		t.Fatal("Expected candidate")
	}
	if math.Abs(c.Return-(-1)) > 1e-9 {
		t.Errorf("Expected -1%% return, got %v", c.Return)
	}

	// changes: +10%, -10%; sample std = sqrt(((0.1)^2 + (0.1)^2)/1) = 0.1414...
	if math.Abs(c.Risk-14.142135623730951) > 1e-6 {
		t.Errorf("Unexpected risk %v", c.Risk)
	}
	if c.Bars != 3 {
		t.Errorf("Expected 3 bars, got %d", c.Bars)
	}

	if _, ok := Compute("X", nil); ok {
		t.Error("No bars should not produce a candidate")
	}
	if _, ok := Compute("X", []Bar{{Open: 0, Close: 10}}); ok {
		t.Error("Zero open should not produce a candidate")
	}
}

func TestProfileOf(t *testing.T) {
	p := ProfileOf(Candidate{Ticker: "NVDA", Return: 120, Risk: 12}, date("2025-01-01"), date("2025-06-01"))

	if p.PeriodDays != 151 {
		t.Errorf("Expected 151 days, got %d", p.PeriodDays)
	}
	if p.Volatility != HighVolatility || p.ReturnCategory != HighReturn {
		t.Errorf("Unexpected categories %+v", p)
	}
	if p.Strategy.Name != "High-return, high-risk" {
		t.Errorf("Unexpected strategy %q", p.Strategy.Name)
	}
	if p.PrimaryModel.Model == "" || p.SecondaryModel.Model == "" {
		t.Error("Expected model hints")
	}
}

func TestStrategyFor(t *testing.T) {
	tests := []struct {
		ret, risk float64
		want      string
	}{
		{150, 15, "High-return, high-risk"},
		{60, 2, "Long-term growth"},
		{10, 1, "Safe allocation"},
		{30, 4, "Balanced"},
	}
	for _, tt := range tests {
		if got := StrategyFor(tt.ret, tt.risk).Name; got != tt.want {
			t.Errorf("StrategyFor(%v, %v) = %q, want %q", tt.ret, tt.risk, got, tt.want)
		}
	}
}

func TestCachedProvider(t *testing.T) {
	inner := &fakeProvider{bars: map[string][]Bar{"AAPL": series(100, 120)}}
	p := NewCachedProvider(inner, "fake", cache.NewMemory(), time.Minute, nil)
	c := criteria(0, 0)

	for i := 0; i < 3; i++ {
		bars, err := p.Bars(context.Background(), "AAPL", c.Start, c.End)
		if err != nil || len(bars) != 1 {
			t.Fatalf("Bars: %v %v", bars, err)
		}
	}
	if inner.calls != 1 {
		t.Errorf("Expected one upstream call, got %d", inner.calls)
	}
}

type fakeUniverse struct {
	calls int
}

func (f *fakeUniverse) Tickers(context.Context) ([]string, error) {
	f.calls++
	return []string{"AAPL"}, nil
}

func TestCachedUniverse(t *testing.T) {
	inner := &fakeUniverse{}
	u := NewCachedUniverse(inner, "fake", cache.NewMemory(), time.Minute, nil)

	for i := 0; i < 2; i++ {
		if got, err := u.Tickers(context.Background()); err != nil || len(got) != 1 {
			t.Fatalf("Tickers: %v %v", got, err)
		}
	}
	if inner.calls != 1 {
		t.Errorf("Expected one upstream call, got %d", inner.calls)
	}
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection reset")
}

func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection reset")
}

func TestCachedUniverse_LogsCacheErrors(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	inner := &fakeUniverse{}
	u := NewCachedUniverse(inner, "fake", brokenCache{}, time.Minute, zap.New(core))

	got, err := u.Tickers(context.Background())
	if err != nil || len(got) != 1 {
		t.Fatalf("Expected upstream tickers despite cache failure, got %v %v", got, err)
	}

	if n := logs.FilterMessage("Cache read failed").Len(); n != 1 {
		t.Errorf("Expected one read warning, got %d", n)
	}
	if n := logs.FilterMessage("Cache write failed").Len(); n != 1 {
		t.Errorf("Expected one write warning, got %d", n)
	}
}

type fakeBarsClient struct {
	req marketdata.GetBarsRequest
}

func (f *fakeBarsClient) GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error) {
	f.req = req
	if symbol == "NONE" {
		return nil, nil
	}
	return []marketdata.Bar{
		{Timestamp: date("2022-01-03"), Open: 100, High: 101, Low: 99, Close: 100, Volume: 500},
		{Timestamp: date("2022-01-04"), Open: 100, High: 121, Low: 100, Close: 120, Volume: 700},
	}, nil
}

func TestAlpacaProvider(t *testing.T) {
	client := &fakeBarsClient{}
	p := NewAlpacaProvider(client, "iex")

	bars, err := p.Bars(context.Background(), "AAPL", date("2022-01-01"), date("2022-06-01"))
	if err != nil {
		t.Fatalf("Bars failed: %v", err)
	}
	if len(bars) != 2 || bars[1].Close != 120 || bars[1].Volume != 700 {
		t.Errorf("Unexpected bars %+v", bars)
	}
	if client.req.TimeFrame != marketdata.OneDay {
		t.Errorf("Expected daily timeframe, got %v", client.req.TimeFrame)
	}

	bars, err = p.Bars(context.Background(), "NONE", date("2022-01-01"), date("2022-06-01"))
	if err != nil || len(bars) != 0 {
		t.Errorf("Expected empty series, got %v %v", bars, err)
	}
}

type fakeAssetsClient struct{}

func (fakeAssetsClient) GetAssets(alpaca.GetAssetsRequest) ([]alpaca.Asset, error) {
	return []alpaca.Asset{
		{Symbol: "MSFT", Tradable: true},
		{Symbol: "AAPL", Tradable: true},
		{Symbol: "HALT", Tradable: false},
	}, nil
}

func TestAlpacaUniverse(t *testing.T) {
	got, err := NewAlpacaUniverse(fakeAssetsClient{}).Tickers(context.Background())
	if err != nil {
		t.Fatalf("Tickers failed: %v", err)
	}
	if len(got) != 2 || got[0] != "AAPL" || got[1] != "MSFT" {
		t.Errorf("Expected sorted tradable symbols, got %v", got)
	}
}
