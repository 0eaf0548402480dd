// Package server assembles the festivals service and manages its lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/panchang-io/festivals-api/internal/api"
	"github.com/panchang-io/festivals-api/internal/cache"
	"github.com/panchang-io/festivals-api/internal/clock/system"
	"github.com/panchang-io/festivals-api/internal/config"
	collyfetcher "github.com/panchang-io/festivals-api/internal/fetcher/colly"
	"github.com/panchang-io/festivals-api/internal/id/uuid"
	"github.com/panchang-io/festivals-api/internal/logging"
	"github.com/panchang-io/festivals-api/internal/metrics"
	"github.com/panchang-io/festivals-api/internal/ratelimit"
	"github.com/panchang-io/festivals-api/internal/service"
)

// shutdownTimeout bounds how long in-flight requests may take to drain
// once a termination signal arrives.
const shutdownTimeout = 10 * time.Second

// limiterIdleAfter is how long a client may sit idle before the sweeper
// drops its rate limit bucket.
const limiterIdleAfter = time.Hour

// App holds the wired application dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	apiServer *api.Server
	store     *cache.Store
	limiter   *ratelimit.Limiter
}

// Build constructs the application from configuration: logger, cache,
// calendar fetcher, scrape service, rate limiter, and HTTP API.
func Build(cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)

	metrics.Init()

	logger.Info("building application",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("api_prefix", cfg.API.Prefix),
	)

	clock := system.New()
	store := cache.New(cfg.CacheTTL(), clock)

	fetcher := collyfetcher.New(collyfetcher.Config{
		BaseURL:   cfg.Scraper.BaseURL,
		UserAgent: cfg.Scraper.UserAgent,
		Timeout:   cfg.ScrapeTimeout(),
	})
	logger.Info("calendar fetcher ready",
		zap.String("base_url", cfg.Scraper.BaseURL),
		zap.Duration("timeout", cfg.ScrapeTimeout()),
	)

	svc := service.New(store, fetcher, cfg.CacheTTL(), logger.Named("service"))

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(ratelimit.Config{
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimitWindow(),
		})
		logger.Info("rate limiter enabled",
			zap.Int("requests", cfg.RateLimit.Requests),
			zap.Duration("window", cfg.RateLimitWindow()),
		)
	}

	apiServer := api.NewServer(svc, limiter, uuid.New(), clock, cfg, logger.Named("api"))

	return &App{
		cfg:       cfg,
		logger:    logger,
		apiServer: apiServer,
		store:     store,
		limiter:   limiter,
	}, nil
}

// Run starts the HTTP server and the cache sweeper, then blocks until the
// context is canceled or a termination signal arrives. Shutdown drains
// in-flight requests before returning.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go a.runSweeper(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	return a.Close()
}

// Close flushes buffered log entries.
func (a *App) Close() error {
	if err := a.logger.Sync(); err != nil {
		// Syncing stderr fails on some platforms; nothing to act on.
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	return nil
}

// runSweeper periodically evicts expired cache entries and drops idle
// rate limiter clients so neither map grows without bound.
func (a *App) runSweeper(ctx context.Context) {
	log := a.logger.Named("sweeper")

	interval := a.cfg.CacheSweepInterval()
	if interval <= 0 {
		log.Info("cache sweeper disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("cache sweeper started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, pruned := a.sweepOnce()
			if removed > 0 {
				log.Debug("cache swept",
					zap.Int("removed", removed),
					zap.Int("remaining", a.store.Len()),
				)
			}
			if pruned > 0 {
				log.Debug("rate limiter pruned", zap.Int("removed", pruned))
			}
		}
	}
}

func (a *App) sweepOnce() (removed, pruned int) {
	removed = a.store.Sweep()
	metrics.AddCacheEvictions(removed)
	metrics.SetCacheEntries(a.store.Len())
	if a.limiter != nil {
		pruned = a.limiter.Prune(limiterIdleAfter)
	}
	return removed, pruned
}
