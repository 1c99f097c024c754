package screener

import (
	"math"
	"time"
)

// Bar is one daily OHLCV candle.
type Bar struct {
	Time   time.Time `json:"t"`
	Open   float64   `json:"o"`
	High   float64   `json:"h"`
	Low    float64   `json:"l"`
	Close  float64   `json:"c"`
	Volume float64   `json:"v"`
}

// Candidate is a ticker's performance over the screening window. Return and
// Risk are percentages.
type Candidate struct {
	Ticker          string  `json:"ticker"`
	Return          float64 `json:"return_pct"`
	Risk            float64 `json:"risk_pct"`
	AvgDailyRange   float64 `json:"adr_pct"`
	AvgDollarVolume float64 `json:"avg_dollar_volume"`
	Bars            int     `json:"bars"`
}

// Compute derives a Candidate from bars in chronological order. It reports
// false when there are no bars or the first open is not positive.
func Compute(ticker string, bars []Bar) (Candidate, bool) {
	if len(bars) == 0 || bars[0].Open <= 0 {
		return Candidate{}, false
	}

	return Candidate{
		Ticker:          ticker,
		Return:          calculateReturn(bars),
		Risk:            calculateVolatility(bars) * 100,
		AvgDailyRange:   calculateADR(bars),
		AvgDollarVolume: calculateDollarVolume(bars),
		Bars:            len(bars),
	}, true
}

// calculateReturn is the move from the first open to the last close, in percent.
func calculateReturn(bars []Bar) float64 {
	first := bars[0].Open
	last := bars[len(bars)-1].Close
	return (last - first) / first * 100
}

// calculateVolatility computes the standard deviation of day-over-day close changes
func calculateVolatility(bars []Bar) float64 {
	if len(bars) < 2 {
		return 0
	}

	var returns []float64
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev == 0 {
			continue
		}
		returns = append(returns, (bars[i].Close-prev)/prev)
	}

	return standardDeviation(returns)
}

// calculateADR calculates Average Daily Range
func calculateADR(bars []Bar) float64 {
	var dailyRanges []float64
	for _, b := range bars {
		if b.Close == 0 {
			continue
		}
		dailyRanges = append(dailyRanges, (b.High-b.Low)/b.Close*100)
	}

	return average(dailyRanges)
}

// calculateDollarVolume calculates the average Dollar Volume
func calculateDollarVolume(bars []Bar) float64 {
	dolVols := make([]float64, 0, len(bars))
	for _, b := range bars {
		dolVols = append(dolVols, b.Close*b.Volume)
	}

	return average(dolVols)
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// standardDeviation is the sample standard deviation (n-1).
func standardDeviation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	avg := average(values)
	var sumSquaredDiff float64
	for _, v := range values {
		diff := v - avg
		sumSquaredDiff += diff * diff
	}

	variance := sumSquaredDiff / float64(len(values)-1)
	return math.Sqrt(variance)
}
