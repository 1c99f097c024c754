package crawler

import "strings"

// Data quality grades.
const (
	QualityVeryHigh = "very high"
	QualityHigh     = "high"
	QualityModerate = "moderate"
	QualityLimited  = "limited (fallback used)"
	QualityLow      = "low"
)

// Summary describes how a crawl went.
type Summary struct {
	Total           int            `json:"total"`
	Real            int            `json:"real"`
	BySource        map[string]int `json:"by_source"`
	FallbackUsed    bool           `json:"fallback_used"`
	SuccessfulSteps int            `json:"successful_steps"`
	Quality         string         `json:"quality"`
}

var tagSources = []struct {
	tag    string
	source SourceKey
}{
	{TagNews, SourceGoogle},
	{TagYahoo, SourceYahoo},
	{TagMarketWatch, SourceMarketWatch},
	{TagRSS, SourceRSS},
	{TagSearch, SourceAlternative},
}

// Summarize counts articles per source and grades the crawl.
func Summarize(res Result) Summary {
	s := Summary{
		Total:    len(res.Articles),
		BySource: make(map[string]int, len(tagSources)),
	}

	for _, ts := range tagSources {
		s.BySource[string(ts.source)] = 0
	}

	for _, a := range res.Articles {
		if IsFallback(a) {
			s.FallbackUsed = true
			continue
		}
		s.Real++
		for _, ts := range tagSources {
			if strings.HasPrefix(a, ts.tag+" ") {
				s.BySource[string(ts.source)]++
				break
			}
		}
	}

	for _, d := range res.Debug {
		if !strings.HasPrefix(d, markOK) {
			continue
		}
		if strings.Contains(d, "results found") || strings.Contains(d, "Added") {
			s.SuccessfulSteps++
		}
	}

	switch {
	case s.Real >= 10 && s.SuccessfulSteps >= 8:
		s.Quality = QualityVeryHigh
	case s.Real >= 6 && s.SuccessfulSteps >= 5:
		s.Quality = QualityHigh
	case s.Real >= 3 && s.SuccessfulSteps >= 3:
		s.Quality = QualityModerate
	case s.FallbackUsed:
		s.Quality = QualityLimited
	default:
		s.Quality = QualityLow
	}

	return s
}
