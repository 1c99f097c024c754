package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockresearch/pkg/crawler"
)

const (
	// MaxPromptArticles is how many articles are considered for the digest.
	MaxPromptArticles = 10

	// MinRealArticles is the scraped-article count below which the answer
	// carries a caveat.
	MinRealArticles = 3

	noArticles = "Limited market information available"
)

// PromptInput is everything needed to render an analysis prompt.
type PromptInput struct {
	Ticker   string    `json:"ticker"`
	Date     time.Time `json:"date"`
	Return   float64   `json:"return_pct"`
	Articles []string  `json:"articles"`
	Language string    `json:"language"`
}

// Prompt is a rendered prompt and the language it was rendered in.
type Prompt struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	// Caveat is set when the articles are synthetic or too few.
	Caveat bool `json:"caveat"`
	// Supported is false when the requested language fell back to the default.
	Supported bool `json:"supported"`
}

// NeedsCaveat reports whether articles contain fallback content or fewer than
// MinRealArticles scraped entries.
func NeedsCaveat(articles []string) bool {
	for _, a := range articles {
		if crawler.IsFallback(a) {
			return true
		}
	}
	return crawler.CountReal(articles) < MinRealArticles
}

// FormatReturn renders a return percentage with two decimals.
func FormatReturn(ret float64) string {
	return decimal.NewFromFloat(ret).StringFixed(2)
}

// Digest numbers the first MaxPromptArticles articles, skipping entries of
// five characters or fewer. Numbering follows the article position.
func Digest(articles []string) string {
	var lines []string
	for i, a := range articles {
		if i >= MaxPromptArticles {
			break
		}
		if len(strings.TrimSpace(a)) <= 5 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, a))
	}
	if len(lines) == 0 {
		return noArticles
	}
	return strings.Join(lines, "\n")
}

// BuildPrompt renders the prompt for in.
func BuildPrompt(in PromptInput) Prompt {
	lang, ok := LookupLanguage(in.Language)
	caveat := NeedsCaveat(in.Articles)

	caveatLine := ""
	if caveat {
		caveatLine = lang.Caveat
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(lang.Intro(in.Ticker, in.Date.Format(time.DateOnly), FormatReturn(in.Return)))
	b.WriteString("\n\n")
	b.WriteString(lang.Collected)
	b.WriteString("\n")
	b.WriteString(Digest(in.Articles))
	b.WriteString("\n\n")
	b.WriteString(caveatLine)
	b.WriteString("\n\n")
	b.WriteString(lang.Instructions)
	b.WriteString("\n")

	return Prompt{
		Text:      b.String(),
		Language:  lang.Name,
		Caveat:    caveat,
		Supported: ok,
	}
}
