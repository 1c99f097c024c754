package screener

import "time"

// Profile categories.
const (
	HighVolatility = "high_volatility"
	LowVolatility  = "low_volatility"
	HighReturn     = "high_return"
	MediumReturn   = "medium_return"
)

// ModelHint suggests a forecasting model family for a category.
type ModelHint struct {
	Model  string `json:"model"`
	Reason string `json:"reason"`
}

// Strategy is a coarse holding suggestion derived from return and risk.
type Strategy struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	TargetPeriod   string `json:"target_period"`
	RiskManagement string `json:"risk_management"`
}

// Profile characterises a candidate over its screening window.
type Profile struct {
	Ticker         string    `json:"ticker"`
	PeriodDays     int       `json:"period_days"`
	Volatility     string    `json:"volatility_category"`
	ReturnCategory string    `json:"return_category"`
	PrimaryModel   ModelHint `json:"primary_model"`
	SecondaryModel ModelHint `json:"secondary_model"`
	Strategy       Strategy  `json:"strategy"`
}

var modelHints = map[string]ModelHint{
	HighVolatility: {"LSTM (Long Short-Term Memory)", "learns time-series patterns of highly volatile stocks"},
	LowVolatility:  {"GRU (Gated Recurrent Unit)", "effective for long-term trend prediction of stable stocks"},
	HighReturn:     {"Transformer with Attention", "specialised in sharp price moves and complex patterns"},
	MediumReturn:   {"CNN-LSTM Hybrid", "suited to multi-timeframe patterns at moderate returns"},
}

// ProfileOf categorises c for the window [start, end].
func ProfileOf(c Candidate, start, end time.Time) Profile {
	vol := LowVolatility
	if c.Risk > 5 {
		vol = HighVolatility
	}

	ret := MediumReturn
	if c.Return > 50 {
		ret = HighReturn
	}

	days := int(end.Sub(start).Hours() / 24)

	return Profile{
		Ticker:         c.Ticker,
		PeriodDays:     days,
		Volatility:     vol,
		ReturnCategory: ret,
		PrimaryModel:   modelHints[vol],
		SecondaryModel: modelHints[ret],
		Strategy:       StrategyFor(c.Return, c.Risk),
	}
}

// StrategyFor picks a strategy from return and risk percentages.
func StrategyFor(returnPct, riskPct float64) Strategy {
	switch {
	case returnPct > 100 && riskPct > 10:
		return Strategy{
			Name:           "High-return, high-risk",
			Description:    "Short, concentrated position with a mandatory stop-loss",
			TargetPeriod:   "3-6 months",
			RiskManagement: "Limit to 5-10% of the portfolio",
		}
	case returnPct > 50 && riskPct < 5:
		return Strategy{
			Name:           "Long-term growth",
			Description:    "Steady growth, long holding period recommended",
			TargetPeriod:   "1-3 years",
			RiskManagement: "Up to 15-25% of the portfolio",
		}
	case returnPct < 20 && riskPct < 3:
		return Strategy{
			Name:           "Safe allocation",
			Description:    "Adds stability to the portfolio",
			TargetPeriod:   "1 year or more",
			RiskManagement: "Up to 30-40% of the portfolio",
		}
	default:
		return Strategy{
			Name:           "Balanced",
			Description:    "Moderate return with moderate risk",
			TargetPeriod:   "6 months - 2 years",
			RiskManagement: "10-20% of the portfolio",
		}
	}
}
