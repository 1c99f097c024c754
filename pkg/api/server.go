// Package api exposes crawling and research runs over JSON HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stockresearch/pkg/crawler"
	"stockresearch/pkg/logger"
	"stockresearch/pkg/research"
)

type Researcher interface {
	Run(ctx context.Context, req research.Request) (*research.Report, error)
	Crawl(ctx context.Context, ticker, date string, sources []string) (crawler.Result, crawler.Summary, error)
}

type HealthChecker interface {
	Health(ctx context.Context) error
}

// Defaults fill in fields a research request leaves out.
type Defaults struct {
	TargetReturn float64
	TopN         int
	Sources      []string
}

type Server struct {
	researcher Researcher
	llm        HealthChecker
	available  []crawler.SourceKey
	defaults   Defaults
	logger     *zap.Logger
	router     *gin.Engine
}

// New builds the server and its routes. available lists the registered
// source keys.
func New(r Researcher, h HealthChecker, available []crawler.SourceKey, d Defaults, log *zap.Logger) *Server {
	s := &Server{
		researcher: r,
		llm:        h,
		available:  available,
		defaults:   d,
		logger:     logger.OrNop(log),
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/healthz", s.healthz)

	v1 := router.Group("/v1")
	v1.GET("/llm/health", s.llmHealth)
	v1.GET("/sources", s.sources)
	v1.GET("/crawl/:ticker", s.crawl)
	v1.POST("/research", s.research)

	s.router = router
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) llmHealth(c *gin.Context) {
	if err := s.llm.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) sources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"available": s.available,
		"enabled":   s.defaults.Sources,
	})
}

// crawl handles GET /v1/crawl/:ticker?date=YYYY-MM-DD&sources=google,rss
func (s *Server) crawl(c *gin.Context) {
	ticker := strings.ToUpper(strings.TrimSpace(c.Param("ticker")))
	date := c.Query("date")
	if date != "" {
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
	}

	var sources []string
	if q := c.Query("sources"); q != "" {
		sources = strings.Split(q, ",")
	}

	res, summary, err := s.researcher.Crawl(c.Request.Context(), ticker, date, sources)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ticker":   ticker,
		"articles": res.Articles,
		"links":    res.Links,
		"debug":    res.Debug,
		"summary":  summary,
	})
}

type researchBody struct {
	Start        string   `json:"start" binding:"required"`
	End          string   `json:"end" binding:"required"`
	TargetReturn *float64 `json:"target_return"`
	TopN         *int     `json:"top_n"`
	Sources      []string `json:"sources"`
	Language     string   `json:"language"`
	SkipEnhance  bool     `json:"skip_enhance"`
}

func (s *Server) research(c *gin.Context) {
	var body researchBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, err := time.Parse(time.DateOnly, body.Start)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be YYYY-MM-DD"})
		return
	}
	end, err := time.Parse(time.DateOnly, body.End)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be YYYY-MM-DD"})
		return
	}

	req := research.Request{
		Start:        start,
		End:          end,
		TargetReturn: s.defaults.TargetReturn,
		TopN:         s.defaults.TopN,
		Sources:      body.Sources,
		Language:     body.Language,
		SkipEnhance:  body.SkipEnhance,
	}
	if body.TargetReturn != nil {
		req.TargetReturn = *body.TargetReturn
	}
	if body.TopN != nil {
		req.TopN = *body.TopN
	}

	report, err := s.researcher.Run(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, research.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, research.ErrLLMUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
