// Package fetch is the shared HTTP layer used by every scraper and the content
// extractor. Requests carry a browser User-Agent, a small random delay and a
// bounded number of attempts.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"stockresearch/pkg/config"
	"stockresearch/pkg/logger"
)

const maxBodyBytes = 4 << 20

// ErrUnexpectedStatus is wrapped by HTTPError so callers can match any non-200 response.
var ErrUnexpectedStatus = errors.New("unexpected status code")

// DefaultUserAgents is rotated across requests when none are configured.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
}

// HTTPError represents a non-200 response.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

func (e *HTTPError) Unwrap() error {
	return ErrUnexpectedStatus
}

// Fetcher performs GET requests for scrapers.
type Fetcher struct {
	client     *http.Client
	userAgents []string
	attempts   int
	minDelay   time.Duration
	maxDelay   time.Duration
	logger     *zap.Logger
}

// New creates a Fetcher from configuration.
func New(cfg config.FetchConfig, log *zap.Logger) *Fetcher {
	agents := cfg.UserAgents
	if len(agents) == 0 {
		agents = DefaultUserAgents
	}

	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		userAgents: agents,
		attempts:   attempts,
		minDelay:   cfg.MinDelay,
		maxDelay:   cfg.MaxDelay,
		logger:     logger.OrNop(log),
	}
}

// Client exposes the underlying HTTP client.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// UserAgent returns a random browser User-Agent.
func (f *Fetcher) UserAgent() string {
	return f.userAgents[rand.Intn(len(f.userAgents))]
}

// Get fetches url and returns the response body. Transport errors and
// retryable statuses are attempted again up to the configured count.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= f.attempts; attempt++ {
		if err := Sleep(ctx, f.minDelay, f.maxDelay); err != nil {
			return nil, err
		}

		body, err := f.do(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var httpErr *HTTPError
		if errors.As(err, &httpErr) && !isRetryableStatus(httpErr.StatusCode) {
			break
		}

		if ctx.Err() != nil {
			break
		}

		f.logger.Debug("fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", f.attempts),
			zap.Error(err))
	}

	return nil, lastErr
}

// Document fetches url and parses it as HTML.
func (f *Fetcher) Document(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := f.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", url, err)
	}

	return doc, nil
}

func (f *Fetcher) do(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.UserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        url,
			Body:       string(body),
		}
	}

	return body, nil
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Sleep waits for a random duration in [min, max] or until ctx is done.
func Sleep(ctx context.Context, min, max time.Duration) error {
	d := Jitter(min, max)
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Jitter returns a random duration in [min, max].
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}
