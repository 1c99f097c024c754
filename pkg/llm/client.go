// Package llm renders analysis prompts and sends them to an OpenAI-style
// chat-completion endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"

	"stockresearch/pkg/config"
	"stockresearch/pkg/logger"
)

const probeTimeout = 10 * time.Second

var (
	ErrUnavailable  = errors.New("llm server unavailable")
	ErrEmptyChoices = errors.New("response has no choices")
)

// StatusError is a non-200 answer from the endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("LLM Error %d: %s", e.StatusCode, e.Body)
}

// RequestError is a transport or decoding failure.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("LLM request failed: %v", e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// Analysis is the outcome of one analysis request. On failure Summary holds
// the error text and Err is set; Prompt is always the rendered prompt.
type Analysis struct {
	Summary  string `json:"summary"`
	Prompt   string `json:"prompt"`
	Language string `json:"language"`
	Caveat   bool   `json:"caveat"`
	Err      error  `json:"-"`
}

// Failed reports whether the request did not produce a model answer.
func (a Analysis) Failed() bool {
	return a.Err != nil
}

type Client struct {
	Config config.LLMConfig
	Client *http.Client
	Logger *zap.Logger
}

func NewClient(cfg config.LLMConfig, log *zap.Logger) *Client {
	return &Client{
		Config: cfg,
		Client: &http.Client{Timeout: cfg.Timeout},
		Logger: logger.OrNop(log),
	}
}

// Analyze renders the prompt for in and asks the model to explain the return.
// It makes one attempt and never returns an error; see Analysis.
func (c *Client) Analyze(ctx context.Context, in PromptInput) Analysis {
	if in.Language == "" {
		in.Language = c.Config.Language
	}

	p := BuildPrompt(in)
	if !p.Supported {
		c.Logger.Warn("Unsupported language, using default",
			zap.String("requested", in.Language),
			zap.String("language", p.Language))
	}

	out := Analysis{Prompt: p.Text, Language: p.Language, Caveat: p.Caveat}

	c.Logger.Info("Requesting analysis",
		zap.String("ticker", in.Ticker),
		zap.String("language", p.Language),
		zap.Int("articles", len(in.Articles)),
		zap.Bool("caveat", p.Caveat),
		zap.String("model", c.Config.Model))

	summary, err := c.complete(ctx, p.Text, c.Config.MaxTokens, c.Config.Temperature)
	if err != nil {
		c.Logger.Error("Analysis request failed", zap.String("ticker", in.Ticker), zap.Error(err))
		out.Summary = err.Error()
		out.Err = err
		return out
	}

	if p.Caveat {
		summary += Disclaimer(p.Language)
	}
	out.Summary = summary

	c.Logger.Debug("Analysis received", zap.String("ticker", in.Ticker), zap.Int("chars", len(summary)))
	return out
}

func (c *Client) complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	reqBody, err := json.Marshal(chatRequest{
		Model:       c.Config.Model,
		Messages:    []message{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", &RequestError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Config.URL, bytes.NewReader(reqBody))
	if err != nil {
		return "", &RequestError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.Config.APIKey)
	}

	res, err := c.Client.Do(req)
	if err != nil {
		return "", &RequestError{Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", &RequestError{Err: err}
	}

	if res.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: res.StatusCode, Body: string(body)}
	}

	var resp chatResponse
	if err := decode(body, &resp); err != nil {
		return "", &RequestError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &RequestError{Err: ErrEmptyChoices}
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// decode unmarshals body, repairing it first if it is not valid JSON.
func decode(body []byte, v any) error {
	err := json.Unmarshal(body, v)
	if err == nil {
		return nil
	}

	repaired, rerr := jsonrepair.JSONRepair(string(body))
	if rerr != nil {
		return fmt.Errorf("invalid response body: %w", err)
	}
	return json.Unmarshal([]byte(repaired), v)
}

// Health checks the server's liveness endpoint. The error wraps ErrUnavailable.
func (c *Client) Health(ctx context.Context) error {
	if c.Config.HealthTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Config.HealthTimeout)
		defer cancel()
	}

	url := c.Config.HealthEndpoint()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	res, err := c.Client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return fmt.Errorf("%w: health check timed out", ErrUnavailable)
		}
		return fmt.Errorf("%w: cannot connect to %s: %v", ErrUnavailable, url, err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health endpoint returned %d", ErrUnavailable, res.StatusCode)
	}
	return nil
}

// CheckHealth is Health as a status flag and a human-readable message.
func (c *Client) CheckHealth(ctx context.Context) (bool, string) {
	if err := c.Health(ctx); err != nil {
		return false, err.Error()
	}
	return true, "LLM server reachable"
}

// Probe sends a tiny completion request to confirm the model answers.
func (c *Client) Probe(ctx context.Context) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	content, err := c.complete(ctx, "Hello, respond with 'Test successful'", 10, 0.1)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return false, fmt.Sprintf("Test failed: %d - %s", se.StatusCode, se.Body)
		}
		return false, fmt.Sprintf("Test error: %v", err)
	}
	return true, "Test successful: " + content
}
