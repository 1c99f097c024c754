package research

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/tidwall/pretty"

	"stockresearch/pkg/llm"
	"stockresearch/pkg/screener"
)

// RenderJSON encodes the report as indented JSON.
func RenderJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return pretty.Pretty(data), nil
}

// CandidateRows turns candidates into table rows with a header.
func CandidateRows(candidates []screener.Candidate) [][]string {
	rows := [][]string{{"#", "Ticker", "Return (%)", "Risk (%)", "ADR (%)", "Bars"}}
	for i, c := range candidates {
		rows = append(rows, []string{
			fmt.Sprint(i + 1),
			c.Ticker,
			llm.FormatReturn(c.Return),
			llm.FormatReturn(c.Risk),
			llm.FormatReturn(c.AvgDailyRange),
			fmt.Sprint(c.Bars),
		})
	}
	return rows
}

// Table lays rows out in aligned columns, measuring display width so that
// Korean, Japanese and Chinese text lines up.
func Table(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}

	colCount := 0
	for _, row := range rows {
		colCount = max(colCount, len(row))
	}

	colWidths := make([]int, colCount)
	for _, row := range rows {
		for i, cell := range row {
			colWidths[i] = max(colWidths[i], runewidth.StringWidth(cell))
		}
	}

	lines := make([]string, 0, len(rows)+1)
	for r, row := range rows {
		var sb strings.Builder
		for j := 0; j < colCount; j++ {
			content := ""
			if j < len(row) {
				content = row[j]
			}
			if j > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(runewidth.FillRight(content, colWidths[j]))
		}
		lines = append(lines, strings.TrimRight(sb.String(), " "))

		if r == 0 {
			var sep []string
			for _, w := range colWidths {
				sep = append(sep, strings.Repeat("-", w))
			}
			lines = append(lines, strings.Join(sep, "  "))
		}
	}
	return lines
}

// RenderText writes a human-readable report.
func RenderText(w io.Writer, r *Report) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Run %s\n", r.RunID)
	fmt.Fprintf(&sb, "Window %s to %s, target return %s%%\n\n",
		r.Request.Start.Format("2006-01-02"), r.Request.End.Format("2006-01-02"), llm.FormatReturn(r.Request.TargetReturn))

	if len(r.Candidates) == 0 {
		sb.WriteString("No tickers met the target return.\n")
		_, err := io.WriteString(w, sb.String())
		return err
	}

	for _, line := range Table(CandidateRows(r.Candidates)) {
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	for i, t := range r.Tickers {
		fmt.Fprintf(&sb, "\n#%d %s  %s%%\n", i+1, t.Candidate.Ticker, llm.FormatReturn(t.Candidate.Return))
		fmt.Fprintf(&sb, "Strategy: %s (%s)\n", t.Profile.Strategy.Name, t.Profile.Strategy.TargetPeriod)
		fmt.Fprintf(&sb, "Data quality: %s, %d articles (%d scraped)\n", t.Crawl.Quality, t.Crawl.Total, t.Crawl.Real)
		sb.WriteString("\n")
		sb.WriteString(t.Analysis.Summary)
		sb.WriteString("\n")
		if t.Analysis.Failed() {
			sb.WriteString(llm.Unavailable(t.Analysis.Language))
			sb.WriteString("\n")
		}

		if refs := references(t.Links); len(refs) > 0 {
			sb.WriteString("\nReferences:\n")
			for _, l := range refs {
				fmt.Fprintf(&sb, "  - %s\n", l)
			}
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// references drops placeholder links.
func references(links []string) []string {
	var out []string
	for _, l := range links {
		if strings.HasPrefix(l, "http") {
			out = append(out, l)
		}
	}
	return out
}
