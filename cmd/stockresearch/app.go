package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"stockresearch/pkg/cache"
	"stockresearch/pkg/config"
	"stockresearch/pkg/crawler"
	"stockresearch/pkg/extract"
	"stockresearch/pkg/fetch"
	"stockresearch/pkg/llm"
	"stockresearch/pkg/research"
	"stockresearch/pkg/screener"
)

// App is the wired set of components behind every command.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Cache      cache.Cache
	Fetcher    *fetch.Fetcher
	Registry   *crawler.Registry
	Aggregator *crawler.Aggregator
	Screener   *screener.Screener
	Enricher   *extract.Enricher
	LLM        *llm.Client
	Pipeline   *research.Pipeline
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	c, err := cache.New(ctx, cfg.Cache, log)
	if err != nil {
		return nil, err
	}

	f := fetch.New(cfg.Fetch, log)

	reg := crawler.DefaultRegistry(f, cfg.Crawler)
	if cfg.Crawler.CacheTTL > 0 {
		reg = crawler.CacheRegistry(reg, c, cfg.Crawler.CacheTTL, log)
	}
	agg := crawler.NewAggregator(reg, cfg.Crawler, log)

	provider, universe, err := newMarketData(cfg, f, c, log)
	if err != nil {
		return nil, err
	}
	scr := screener.New(provider, universe, cfg.Screener.Workers, log)

	enricher := extract.NewEnricher(
		extract.NewExtractor(f, cfg.Extract.MaxChars, cfg.Extract.Timeout),
		cfg.Extract, log)

	client := llm.NewClient(cfg.LLM, log)

	return &App{
		Config:     cfg,
		Logger:     log,
		Cache:      c,
		Fetcher:    f,
		Registry:   reg,
		Aggregator: agg,
		Screener:   scr,
		Enricher:   enricher,
		LLM:        client,
		Pipeline:   research.NewPipeline(scr, agg, enricher, client, cfg.Crawler.Sources, cfg.LLM.Language, log),
	}, nil
}

// newMarketData picks the price provider and ticker universe from config and
// puts both behind the cache.
func newMarketData(cfg *config.Config, f *fetch.Fetcher, c cache.Cache, log *zap.Logger) (screener.PriceProvider, screener.Universe, error) {
	needAlpaca := cfg.Screener.Provider == "alpaca" || cfg.Screener.Universe == "alpaca"

	var (
		provider screener.PriceProvider
		universe screener.Universe
	)

	if needAlpaca {
		tradeClient, mdClient := screener.NewAlpacaClients(cfg.Alpaca)
		if cfg.Screener.Provider == "alpaca" {
			provider = screener.NewAlpacaProvider(mdClient, cfg.Alpaca.Feed)
		}
		if cfg.Screener.Universe == "alpaca" {
			universe = screener.NewAlpacaUniverse(tradeClient)
		}
	}

	switch cfg.Screener.Provider {
	case "alpaca":
	case "yahoo":
		provider = screener.NewYahooProvider(f)
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrInvalidProvider, cfg.Screener.Provider)
	}

	switch cfg.Screener.Universe {
	case "alpaca":
	case "static":
		universe = screener.StaticUniverse(cfg.Screener.Tickers)
	case "csv":
		universe = screener.CSVUniverse{Path: cfg.Screener.TickersFile}
	case "wikipedia":
		universe = screener.NewWikipediaUniverse(f, cfg.Screener.WikipediaURL)
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrInvalidUniverse, cfg.Screener.Universe)
	}

	if ttl := cfg.Screener.CacheTTL; ttl > 0 {
		provider = screener.NewCachedProvider(provider, cfg.Screener.Provider, c, ttl, log)
		if cfg.Screener.Universe == "wikipedia" || cfg.Screener.Universe == "alpaca" {
			universe = screener.NewCachedUniverse(universe, cfg.Screener.Universe, c, ttl, log)
		}
	}

	return provider, universe, nil
}

func (a *App) Close() error {
	if closer, ok := a.Cache.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
