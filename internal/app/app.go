// Package app assembles the fact-check pipeline from configuration for both binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/agenthands/truthseeker/internal/cache"
	"github.com/agenthands/truthseeker/internal/config"
	"github.com/agenthands/truthseeker/internal/core/factcheck"
	"github.com/agenthands/truthseeker/internal/llm"
	"github.com/agenthands/truthseeker/internal/metrics"
	"github.com/agenthands/truthseeker/internal/search"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type App struct {
	Config  *config.Config
	Log     logrus.FieldLogger
	Metrics *metrics.Metrics
	Cache   *cache.EvidenceCache
	Search  *search.BraveClient
	Model   llm.ChatModel
	Service *factcheck.Service

	closers []func(context.Context) error
}

// New wires every component. On error, whatever was already opened is closed again.
func New(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	a := &App{Config: cfg, Log: log, Metrics: metrics.New()}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}

	a.Cache = cache.New(ctx, cache.Options{
		TTL:      cfg.CacheTTL(),
		Store:    store,
		Debounce: cfg.CacheDebounce(),
		Logger:   log,
	})
	a.onClose(a.Cache.Close)

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout()}

	a.Search = search.NewBraveClient(search.Options{
		APIKey:     cfg.Search.APIKey,
		Endpoint:   cfg.Search.Endpoint,
		HTTPClient: httpClient,
		Cache:      a.Cache,
		Retry: search.RetryPolicy{
			MaxAttempts:     cfg.Search.Retry.MaxAttempts,
			InitialInterval: time.Duration(cfg.Search.Retry.InitialIntervalMS) * time.Millisecond,
			MaxInterval:     time.Duration(cfg.Search.Retry.MaxIntervalMS) * time.Millisecond,
		},
		RateLimit: cfg.Search.RatePerSecond,
		Logger:    log,
		Metrics:   a.Metrics,
	})
	if cfg.Search.APIKey == "" {
		log.Warn("BRAVE_API_KEY is not set, web search returns placeholder results")
	}

	a.Model, err = llm.NewChatModel(ctx, cfg.LLM, httpClient, log)
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	if closer, ok := a.Model.(interface{ Close() error }); ok {
		a.onClose(func(context.Context) error { return closer.Close() })
	}

	a.Service = factcheck.NewService(a.Search, a.Model, factcheck.Options{
		MaxIterations: cfg.LLM.MaxIterations,
		Lang:          cfg.Search.Lang,
		Logger:        log,
		Metrics:       a.Metrics,
	})

	log.WithFields(logrus.Fields{
		"provider": cfg.LLM.Provider,
		"model":    cfg.LLM.Model,
	}).Info("Fact-check pipeline ready")

	return a, nil
}

// openStore picks Redis when an address is configured, then the JSON file, then nothing.
func (a *App) openStore(ctx context.Context) (cache.Store, error) {
	switch {
	case a.Config.Cache.RedisAddr != "":
		client := redis.NewClient(&redis.Options{Addr: a.Config.Cache.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", a.Config.Cache.RedisAddr, err)
		}
		a.onClose(func(context.Context) error { return client.Close() })
		return cache.NewRedisStore(client, a.Config.Cache.RedisKey, a.Config.CacheTTL()), nil

	case a.Config.Cache.File != "":
		return cache.NewFileStore(a.Config.Cache.File), nil

	default:
		return nil, nil
	}
}

func (a *App) onClose(fn func(context.Context) error) {
	a.closers = append(a.closers, fn)
}

// Close flushes the cache and releases connections in reverse order of opening.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
