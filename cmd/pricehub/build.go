package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/everstacklabs/pricehub/internal/adapter"
	"github.com/everstacklabs/pricehub/internal/adapter/providers/aihubmix"
	"github.com/everstacklabs/pricehub/internal/adapter/providers/anthropic"
	"github.com/everstacklabs/pricehub/internal/adapter/providers/deepseek"
	"github.com/everstacklabs/pricehub/internal/adapter/providers/dmx"
	"github.com/everstacklabs/pricehub/internal/adapter/providers/openrouter"
	"github.com/everstacklabs/pricehub/internal/adapter/providers/static"
	"github.com/everstacklabs/pricehub/internal/adapter/providers/wolfai"
	"github.com/everstacklabs/pricehub/internal/cache"
	"github.com/everstacklabs/pricehub/internal/catalog"
	"github.com/everstacklabs/pricehub/internal/config"
	"github.com/everstacklabs/pricehub/internal/httpclient"
	"github.com/everstacklabs/pricehub/internal/merge"
	"github.com/everstacklabs/pricehub/internal/metrics"
)

// app is everything a command needs, built from one config.
type app struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	service *catalog.Service
	close   func()
}

func newApp(ctx context.Context, cfg *config.Config, threshold float64) (*app, error) {
	m := metrics.New()

	store, closeStore, err := buildCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []httpclient.Option{
		httpclient.WithRateLimit(cfg.RateLimit),
		httpclient.WithTimeout(cfg.SourceTimeout),
		httpclient.WithMetrics(m),
	}
	if store != nil {
		opts = append(opts, httpclient.WithCache(store))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, httpclient.WithUserAgent(cfg.UserAgent))
	}
	client := httpclient.New(opts...)

	reg, err := buildRegistry(cfg, client)
	if err != nil {
		closeStore()
		return nil, err
	}

	engine, err := merge.New(threshold, merge.WithStrategy(merge.Strategy(cfg.MergeStrategy)))
	if err != nil {
		closeStore()
		return nil, err
	}

	svc := catalog.New(reg, engine,
		catalog.WithTimeout(cfg.SourceTimeout),
		catalog.WithTTL(cfg.RefreshTTL),
		catalog.WithRecorder(m),
	)
	return &app{cfg: cfg, metrics: m, service: svc, close: closeStore}, nil
}

// buildCache returns the configured response cache, or nil when caching is
// off or the backend is unusable.
func buildCache(ctx context.Context, cfg *config.Config) (cache.Store, func(), error) {
	noop := func() {}
	switch cfg.Cache.Backend {
	case "none":
		return nil, noop, nil
	case "redis":
		rc, err := cache.NewRedis(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL)
		if err != nil {
			return nil, noop, err
		}
		return rc, func() { _ = rc.Close() }, nil
	default:
		fc, err := cache.NewFile(cfg.Cache.Dir, cfg.Cache.TTL)
		if err != nil {
			slog.Warn("failed to create cache, continuing without", "error", err)
			return nil, noop, nil
		}
		return fc, noop, nil
	}
}

// buildRegistry registers the configured sources in order. Static sources
// from config that the source list does not name are appended after it.
func buildRegistry(cfg *config.Config, client *httpclient.Client) (*adapter.Registry, error) {
	statics := make(map[string]static.Source, len(cfg.StaticSources))
	for _, s := range cfg.StaticSources {
		statics[s.ID] = s
	}

	ids := append([]string(nil), cfg.Sources...)
	for _, s := range cfg.StaticSources {
		if !slices.Contains(ids, s.ID) {
			ids = append(ids, s.ID)
		}
	}

	reg := adapter.NewRegistry()
	for _, id := range ids {
		a, err := newAdapter(id, cfg.SourceURL(id), client, statics)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(a); err != nil {
			return nil, err
		}
		if !cfg.Enabled(id) {
			if err := reg.SetEnabled(id, false); err != nil {
				return nil, err
			}
		}
	}
	return reg, nil
}

func newAdapter(id, baseURL string, client *httpclient.Client, statics map[string]static.Source) (adapter.Adapter, error) {
	if src, ok := statics[id]; ok {
		return static.New(src), nil
	}
	switch id {
	case "wolfai":
		return wolfai.New(baseURL, client), nil
	case "dmx":
		return dmx.New(baseURL, client), nil
	case "aihubmix":
		return aihubmix.New(baseURL, client), nil
	case "openrouter":
		return openrouter.New(baseURL, client), nil
	case "anthropic":
		return anthropic.New(baseURL, client), nil
	case "deepseek":
		return deepseek.New(), nil
	}
	return nil, fmt.Errorf("unknown source %q (known: wolfai, dmx, aihubmix, openrouter, anthropic, deepseek, or a static_sources id)", id)
}

func setupLogging(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}
