package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"stockresearch/pkg/config"
)

func testFetcher(attempts int) *Fetcher {
	return New(config.FetchConfig{Attempts: attempts, Timeout: 2 * time.Second}, nil)
}

func TestGet_SetsBrowserHeaders(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := testFetcher(1).Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("Expected body 'ok', got %q", body)
	}
	if !strings.HasPrefix(gotUA, "Mozilla/5.0") {
		t.Errorf("Expected browser User-Agent, got %q", gotUA)
	}
}

func TestGet_RetriesRetryableStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	body, err := testFetcher(2).Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(body) != "recovered" {
		t.Errorf("Expected recovered body, got %q", body)
	}
	if calls != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
}

func TestGet_DoesNotRetryNotFound(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := testFetcher(3).Get(context.Background(), srv.URL)

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", httpErr.StatusCode)
	}
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Error("HTTPError should unwrap to ErrUnexpectedStatus")
	}
	if calls != 1 {
		t.Errorf("Expected a single call, got %d", calls)
	}
}

func TestGet_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := testFetcher(1).Get(ctx, "http://127.0.0.1:1"); err == nil {
		t.Error("Expected error for canceled context")
	}
}

func TestDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><h3 class="x">Hello   world</h3></body></html>`))
	}))
	defer srv.Close()

	doc, err := testFetcher(1).Document(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Document failed: %v", err)
	}
	if got := CleanText(doc.Find("h3.x").Text()); got != "Hello world" {
		t.Errorf("Unexpected text %q", got)
	}
}

func TestSelectorChain(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<div><span class="old">a</span><span class="old">b</span></div>`))
	if err != nil {
		t.Fatal(err)
	}

	if got := SelectorChain(doc.Selection, ".new", ".old").Length(); got != 2 {
		t.Errorf("Expected fallback selector to match 2, got %d", got)
	}
	if got := SelectorChain(doc.Selection, ".missing").Length(); got != 0 {
		t.Errorf("Expected empty selection, got %d", got)
	}
	if got := FirstText(doc.Selection, ".missing", "span.old"); got != "a" {
		t.Errorf("Expected first text 'a', got %q", got)
	}
}

func TestCleanText(t *testing.T) {
	if got := CleanText("  a\n\t b   c "); got != "a b c" {
		t.Errorf("CleanText = %q", got)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		base, href, want string
	}{
		{"https://www.marketwatch.com/investing/stock/aapl", "/story/x", "https://www.marketwatch.com/story/x"},
		{"https://www.marketwatch.com", "https://other.com/a", "https://other.com/a"},
	}
	for _, tt := range tests {
		if got := Resolve(tt.base, tt.href); got != tt.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tt.base, tt.href, got, tt.want)
		}
	}
}

func TestJitter(t *testing.T) {
	for i := 0; i < 50; i++ {
		d := Jitter(10*time.Millisecond, 20*time.Millisecond)
		if d < 10*time.Millisecond || d > 20*time.Millisecond {
			t.Fatalf("Jitter out of range: %v", d)
		}
	}
	if Jitter(0, 0) != 0 {
		t.Error("Expected zero jitter for empty range")
	}
}
