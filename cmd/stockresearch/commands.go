package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stockresearch/pkg/api"
	"stockresearch/pkg/config"
	"stockresearch/pkg/crawler"
	"stockresearch/pkg/logger"
	"stockresearch/pkg/research"
	"stockresearch/pkg/screener"
)

type globalFlags struct {
	configPath string
	logLevel   string
	json       bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "stockresearch",
		Short:         "Screen stocks by return and explain the movers from recent news",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "path to config.yaml")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&g.json, "json", false, "print JSON instead of text")

	root.AddCommand(
		newRunCmd(g),
		newScreenCmd(g),
		newCrawlCmd(g),
		newCheckCmd(g),
		newServeCmd(g),
	)
	return root
}

// setup loads configuration and wires the application for cmd.
func (g *globalFlags) setup(cmd *cobra.Command) (*App, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}

	log, err := logger.New(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	log.Debug("Loaded configuration", zap.String("config", cfg.String()))

	return newApp(cmd.Context(), cfg, log)
}

type windowFlags struct {
	start    string
	end      string
	target   float64
	topN     int
	sources  []string
	language string
}

func (w *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&w.start, "start", "", "start date YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&w.end, "end", "", "end date YYYY-MM-DD (default today)")
	cmd.Flags().Float64Var(&w.target, "target", -1, "minimum return in percent (default from config)")
	cmd.Flags().IntVar(&w.topN, "top", -1, "number of candidates to keep (default from config)")
	_ = cmd.MarkFlagRequired("start")
}

func (w *windowFlags) request(cfg *config.Config, now time.Time) (research.Request, error) {
	start, err := parseDate(w.start)
	if err != nil {
		return research.Request{}, fmt.Errorf("--start: %w", err)
	}

	end := now.UTC().Truncate(24 * time.Hour)
	if w.end != "" {
		if end, err = parseDate(w.end); err != nil {
			return research.Request{}, fmt.Errorf("--end: %w", err)
		}
	}

	req := research.Request{
		Start:        start,
		End:          end,
		TargetReturn: cfg.Screener.TargetReturn,
		TopN:         cfg.Screener.TopN,
		Sources:      w.sources,
		Language:     w.language,
	}
	if w.target >= 0 {
		req.TargetReturn = w.target
	}
	if w.topN >= 0 {
		req.TopN = w.topN
	}
	return req, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

func newRunCmd(g *globalFlags) *cobra.Command {
	w := &windowFlags{}
	var skipEnhance bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Screen, crawl news and ask the LLM why each candidate moved",
		Example: `  stockresearch run --start 2024-01-01 --target 20 --top 3
  stockresearch run --start 2024-01-01 --sources google,rss,yahoo --language English --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer app.Close()
			defer app.Logger.Sync()

			req, err := w.request(app.Config, time.Now())
			if err != nil {
				return err
			}
			req.SkipEnhance = skipEnhance

			report, err := app.Pipeline.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			return output(cmd.OutOrStdout(), g.json, report, func(out io.Writer) error {
				return research.RenderText(out, report)
			})
		},
	}

	w.register(cmd)
	cmd.Flags().StringSliceVar(&w.sources, "sources", nil, "news sources: "+strings.Join(config.SourceKeys, ", "))
	cmd.Flags().StringVar(&w.language, "language", "", "answer language (한국어, English, 日本語, 中文, Deutsch)")
	cmd.Flags().BoolVar(&skipEnhance, "skip-enhance", false, "do not extract content from reference links")
	return cmd
}

func newScreenCmd(g *globalFlags) *cobra.Command {
	w := &windowFlags{}

	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Rank the ticker universe by return over a window",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer app.Close()
			defer app.Logger.Sync()

			req, err := w.request(app.Config, time.Now())
			if err != nil {
				return err
			}

			candidates, err := app.Screener.Screen(cmd.Context(), screener.Criteria{
				Start:        req.Start,
				End:          req.End,
				TargetReturn: req.TargetReturn,
				TopN:         req.TopN,
			})
			if err != nil {
				return err
			}

			return output(cmd.OutOrStdout(), g.json, candidates, func(out io.Writer) error {
				if len(candidates) == 0 {
					_, err := fmt.Fprintln(out, "No tickers met the target return.")
					return err
				}
				for _, line := range research.Table(research.CandidateRows(candidates)) {
					if _, err := fmt.Fprintln(out, line); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	w.register(cmd)
	return cmd
}

func newCrawlCmd(g *globalFlags) *cobra.Command {
	var (
		date    string
		sources []string
		enhance bool
	)

	cmd := &cobra.Command{
		Use:     "crawl <ticker>",
		Short:   "Collect news snippets for one ticker",
		Example: `  stockresearch crawl NVDA --sources google,yahoo,rss`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if date != "" {
				d, err := parseDate(date)
				if err != nil {
					return err
				}
				date = d.Format(time.DateOnly)
			}

			app, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer app.Close()
			defer app.Logger.Sync()

			ticker := strings.ToUpper(args[0])
			res, summary, err := app.Pipeline.Crawl(cmd.Context(), ticker, date, sources)
			if err != nil {
				return err
			}

			type crawlOutput struct {
				Ticker  string          `json:"ticker"`
				Result  crawler.Result  `json:"result"`
				Summary crawler.Summary `json:"summary"`
				Enhance any             `json:"enhanced_content,omitempty"`
			}
			out := crawlOutput{Ticker: ticker, Result: res, Summary: summary}
			if enhance {
				items, _ := app.Enricher.Enhance(cmd.Context(), ticker, res.Links)
				out.Enhance = items
			}

			return output(cmd.OutOrStdout(), g.json, out, func(w io.Writer) error {
				fmt.Fprintf(w, "%s: %d articles (%d scraped), quality %s\n\n", ticker, summary.Total, summary.Real, summary.Quality)
				for i, a := range res.Articles {
					link := ""
					if i < len(res.Links) {
						link = res.Links[i]
					}
					fmt.Fprintf(w, "%2d. %s\n    %s\n", i+1, a, link)
				}
				fmt.Fprintln(w, "\nDebug:")
				for _, d := range res.Debug {
					fmt.Fprintf(w, "  %s\n", d)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "reference date YYYY-MM-DD")
	cmd.Flags().StringSliceVar(&sources, "sources", nil, "news sources: "+strings.Join(config.SourceKeys, ", "))
	cmd.Flags().BoolVar(&enhance, "enhance", false, "also extract content from the most relevant links")
	return cmd
}

func newCheckCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the LLM endpoint is reachable and answering",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer app.Close()
			defer app.Logger.Sync()

			healthy, healthMsg := app.LLM.CheckHealth(cmd.Context())
			answered, probeMsg := app.LLM.Probe(cmd.Context())

			result := map[string]any{
				"url":           app.Config.LLM.URL,
				"model":         app.Config.LLM.Model,
				"healthy":       healthy,
				"health_detail": healthMsg,
				"probe":         answered,
				"probe_detail":  probeMsg,
			}
			if err := output(cmd.OutOrStdout(), g.json, result, func(w io.Writer) error {
				fmt.Fprintf(w, "Endpoint: %s (model %s)\n", app.Config.LLM.URL, app.Config.LLM.Model)
				fmt.Fprintf(w, "%s health: %s\n", mark(healthy), healthMsg)
				fmt.Fprintf(w, "%s probe:  %s\n", mark(answered), probeMsg)
				return nil
			}); err != nil {
				return err
			}

			if !healthy || !answered {
				return fmt.Errorf("LLM endpoint check failed")
			}
			return nil
		},
	}
}

func newServeCmd(g *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer app.Close()
			defer app.Logger.Sync()

			if addr == "" {
				addr = app.Config.Server.Addr
			}

			srv := api.New(app.Pipeline, app.LLM, app.Registry.Keys(), api.Defaults{
				TargetReturn: app.Config.Screener.TargetReturn,
				TopN:         app.Config.Screener.TopN,
				Sources:      app.Config.Crawler.Sources,
			}, app.Logger)
			return srv.Run(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func output(w io.Writer, asJSON bool, v any, text func(io.Writer) error) error {
	if !asJSON {
		return text(w)
	}
	data, err := research.RenderJSON(v)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func mark(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}
