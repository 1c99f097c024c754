package extract

import "strings"

const (
	domainBonus  = 10
	tickerBonus  = 15
	keywordBonus = 2
)

var trustedDomains = []string{
	"finance.yahoo.com",
	"marketwatch.com",
	"bloomberg.com",
	"reuters.com",
	"cnbc.com",
	"fool.com",
	"seekingalpha.com",
}

var financeKeywords = []string{"stock", "earnings", "revenue", "analysis", "news", "investment"}

// Score rates how relevant link is to ticker. Only the URL text is inspected.
func Score(link, ticker string) int {
	u := strings.ToLower(link)
	score := 0

	for _, d := range trustedDomains {
		if strings.Contains(u, d) {
			score += domainBonus
			break
		}
	}

	if t := strings.ToLower(strings.TrimSpace(ticker)); t != "" && strings.Contains(u, t) {
		score += tickerBonus
	}

	for _, k := range financeKeywords {
		if strings.Contains(u, k) {
			score += keywordBonus
		}
	}

	return score
}
