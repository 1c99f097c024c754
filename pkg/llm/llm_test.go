package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"stockresearch/pkg/config"
	"stockresearch/pkg/crawler"
)

var testDate = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

func realArticles(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "[NEWS] Apple beats earnings expectations again"
	}
	return out
}

func TestBuildPrompt_EnglishEmptyArticles(t *testing.T) {
	p := BuildPrompt(PromptInput{Ticker: "AAPL", Date: testDate, Return: 20, Language: "English"})

	if !strings.Contains(p.Text, "Limited market information available") {
		t.Errorf("Expected placeholder digest, got:\n%s", p.Text)
	}
	if !strings.Contains(p.Text, "If you invested in AAPL on 2022-01-01, the return would be 20.00% until today.") {
		t.Errorf("Unexpected intro:\n%s", p.Text)
	}
	if !p.Caveat || !strings.Contains(p.Text, "⚠️ Note: Limited news data available") {
		t.Error("Expected caveat for empty article list")
	}
	if p.Language != English || !p.Supported {
		t.Errorf("Unexpected language %q supported=%v", p.Language, p.Supported)
	}
}

func TestBuildPrompt_NoCaveatWithEnoughRealArticles(t *testing.T) {
	p := BuildPrompt(PromptInput{Ticker: "AAPL", Date: testDate, Return: 12.345, Articles: realArticles(3), Language: "en"})

	if p.Caveat {
		t.Error("Three scraped articles should not need a caveat")
	}
	if strings.Contains(p.Text, "⚠️") {
		t.Error("Prompt should not carry the caveat line")
	}
	if !strings.Contains(p.Text, "12.35%") {
		t.Errorf("Expected two-decimal return, got:\n%s", p.Text)
	}
	if !strings.Contains(p.Text, "1. [NEWS]") || !strings.Contains(p.Text, "3. [NEWS]") {
		t.Errorf("Expected numbered digest, got:\n%s", p.Text)
	}
}

func TestBuildPrompt_FallbackTriggersCaveat(t *testing.T) {
	articles := append(realArticles(5), crawler.GenerateFallback("AAPL").Articles...)
	if p := BuildPrompt(PromptInput{Ticker: "AAPL", Date: testDate, Articles: articles, Language: English}); !p.Caveat {
		t.Error("Fallback content should trigger the caveat")
	}
}

func TestBuildPrompt_UnsupportedLanguageUsesDefault(t *testing.T) {
	p := BuildPrompt(PromptInput{Ticker: "AAPL", Date: testDate, Return: -3.5, Language: "Klingon"})

	if p.Supported {
		t.Error("Expected unsupported flag")
	}
	if p.Language != Korean {
		t.Errorf("Expected default language, got %q", p.Language)
	}
	if !strings.Contains(p.Text, "2022-01-01에 AAPL에 투자했다면 오늘까지 수익률은 -3.50%입니다.") {
		t.Errorf("Unexpected Korean intro:\n%s", p.Text)
	}
}

func TestDigest(t *testing.T) {
	articles := []string{"short", "[NEWS] first real headline"}
	for i := 0; i < 12; i++ {
		articles = append(articles, "[RSS] another headline here")
	}

	got := Digest(articles)
	lines := strings.Split(got, "\n")
	if len(lines) != 9 {
		t.Fatalf("Expected 9 lines (10 considered, 1 too short), got %d:\n%s", len(lines), got)
	}
	if !strings.HasPrefix(lines[0], "2. ") {
		t.Errorf("Numbering should follow position, got %q", lines[0])
	}
}

func TestLookupLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"한국어", Korean, true},
		{"English", English, true},
		{"ja", Japanese, true},
		{"ZH", Chinese, true},
		{" de ", German, true},
		{"fr", Korean, false},
		{"", Korean, false},
	}
	for _, tt := range tests {
		l, ok := LookupLanguage(tt.in)
		if l.Name != tt.want || ok != tt.ok {
			t.Errorf("LookupLanguage(%q) = %q, %v; want %q, %v", tt.in, l.Name, ok, tt.want, tt.ok)
		}
	}
	for _, name := range Languages() {
		if Disclaimer(name) == "" || Unavailable(name) == "" {
			t.Errorf("Missing texts for %s", name)
		}
	}
}

func testClient(url string) *Client {
	cfg := config.Default().LLM
	cfg.URL = url + "/v1/chat/completions"
	cfg.Language = English
	return NewClient(cfg, nil)
}

func TestAnalyze_Success(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" || r.Method != http.MethodPost {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Bad request body: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Strong iPhone sales.  "}}]}`))
	}))
	defer srv.Close()

	a := testClient(srv.URL).Analyze(context.Background(), PromptInput{
		Ticker: "AAPL", Date: testDate, Return: 20, Articles: realArticles(4),
	})

	if a.Failed() {
		t.Fatalf("Unexpected failure: %v", a.Err)
	}
	if a.Summary != "Strong iPhone sales." {
		t.Errorf("Unexpected summary %q", a.Summary)
	}
	if got.Model != "google/gemma-2b-it" || got.MaxTokens != 250 || got.Temperature != 0.7 {
		t.Errorf("Unexpected request %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" || got.Messages[0].Content != a.Prompt {
		t.Errorf("Expected single user message carrying the prompt")
	}
}

func TestAnalyze_AppendsDisclaimer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"General view."}}]}`))
	}))
	defer srv.Close()

	a := testClient(srv.URL).Analyze(context.Background(), PromptInput{Ticker: "AAPL", Date: testDate})

	if a.Summary != "General view.\n\n※ General analysis due to limited news data." {
		t.Errorf("Unexpected summary %q", a.Summary)
	}
	if !a.Caveat {
		t.Error("Expected caveat flag")
	}
}

func TestAnalyze_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("model crashed"))
	}))
	defer srv.Close()

	a := testClient(srv.URL).Analyze(context.Background(), PromptInput{Ticker: "AAPL", Date: testDate, Return: 20})

	if !strings.HasPrefix(a.Summary, "LLM Error 500") {
		t.Errorf("Expected error string, got %q", a.Summary)
	}
	if a.Summary != "LLM Error 500: model crashed" {
		t.Errorf("Unexpected error text %q", a.Summary)
	}
	if !strings.Contains(a.Prompt, "If you invested in AAPL") {
		t.Error("Expected the rendered prompt to be returned")
	}
	var se *StatusError
	if !errors.As(a.Err, &se) || se.StatusCode != 500 {
		t.Errorf("Expected StatusError, got %v", a.Err)
	}
}

func TestAnalyze_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	a := testClient(url).Analyze(context.Background(), PromptInput{Ticker: "AAPL", Date: testDate})

	if !strings.HasPrefix(a.Summary, "LLM request failed: ") {
		t.Errorf("Expected request failure text, got %q", a.Summary)
	}
	if a.Prompt == "" {
		t.Error("Expected prompt even on failure")
	}
}

func TestAnalyze_RepairsMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Repaired answer"}}]`))
	}))
	defer srv.Close()

	a := testClient(srv.URL).Analyze(context.Background(), PromptInput{Ticker: "AAPL", Date: testDate, Articles: realArticles(3)})
	if a.Failed() || a.Summary != "Repaired answer" {
		t.Errorf("Expected repaired answer, got %q (%v)", a.Summary, a.Err)
	}
}

func TestHealth(t *testing.T) {
	var unhealthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("Unexpected health path %q", r.URL.Path)
		}
		if unhealthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	if ok, msg := c.CheckHealth(context.Background()); !ok {
		t.Errorf("Expected healthy, got %q", msg)
	}

	unhealthy.Store(true)
	err := c.Health(context.Background())
	if !errors.Is(err, ErrUnavailable) || !strings.Contains(err.Error(), "503") {
		t.Errorf("Expected unavailable with status, got %v", err)
	}
}

func TestHealth_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if err := testClient(url).Health(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.MaxTokens != 10 || req.Temperature != 0.1 {
			t.Errorf("Unexpected probe settings %+v", req)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Test successful"}}]}`))
	}))
	defer srv.Close()

	ok, msg := testClient(srv.URL).Probe(context.Background())
	if !ok || msg != "Test successful: Test successful" {
		t.Errorf("Unexpected probe result %v %q", ok, msg)
	}
}
