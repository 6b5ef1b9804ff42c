package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/time/rate"

	httpapi "github.com/i474232898/hurricane-hunter/internal/api/http"
	"github.com/i474232898/hurricane-hunter/internal/balloon"
	"github.com/i474232898/hurricane-hunter/internal/config"
	"github.com/i474232898/hurricane-hunter/internal/observability"
	"github.com/i474232898/hurricane-hunter/internal/scheduler"
	"github.com/i474232898/hurricane-hunter/internal/store"
	"github.com/i474232898/hurricane-hunter/internal/storm"
	"github.com/i474232898/hurricane-hunter/internal/upstream"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// Shared client and rate limit for all outbound calls; per-request
	// timeouts are applied by each fetcher.
	httpClient := &http.Client{}
	limiter := rate.NewLimiter(rate.Limit(cfg.UpstreamRPS), cfg.UpstreamBurst)

	balloonFetcher := upstream.NewFetcher(upstream.FetcherConfig{
		Source:  "windborne",
		Client:  httpClient,
		Timeout: cfg.BalloonTimeout,
		Limiter: limiter,
		Logger:  logger,
		Metrics: metrics,
	})
	alertFetcher := upstream.NewFetcher(upstream.FetcherConfig{
		Source:  "nws",
		Client:  httpClient,
		Timeout: cfg.AlertTimeout,
		Headers: upstream.NWSHeaders(cfg.AlertUserAgent),
		Limiter: limiter,
		Logger:  logger,
		Metrics: metrics,
	})

	// Balloon trajectories, cached for HISTORY_CACHE_TTL.
	balloonService := balloon.NewService(
		upstream.NewWindBorne(balloonFetcher, cfg.BalloonBaseURL, logger, metrics),
		store.NewTTL[balloon.History](cfg.HistoryCacheTTL, nil),
		balloon.Options{
			Hours:   cfg.BalloonHours,
			Logger:  logger,
			Metrics: metrics,
		},
	)

	// Storm alerts, cached for STORMS_CACHE_TTL.
	collector := storm.NewCollector(
		upstream.NewNWS(alertFetcher, cfg.AlertBaseURL),
		cfg.AlertRegions,
		cfg.AlertKeywords,
		logger,
	)
	stormService := storm.NewService(collector, store.NewTTL[[]storm.Alert](cfg.StormsCacheTTL, nil), logger, metrics)

	// Optional background warmer.
	sched := scheduler.New([]scheduler.Job{
		{Name: "history", Run: func(ctx context.Context) error {
			_, err := balloonService.Refresh(ctx)
			return err
		}},
		{Name: "storms", Run: func(ctx context.Context) error {
			stormService.Refresh(ctx)
			return nil
		}},
	}, cfg.WarmInterval, cfg.AlertTimeout+cfg.BalloonTimeout, logger)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := httpapi.NewApp(balloonService, stormService, httpapi.Options{
		CORSOrigins: cfg.CORSOrigins,
		AccessLog:   os.Stdout,
		Logger:      logger,
	})

	// Start server with graceful shutdown
	go func() {
		logger.Info("hurricane-hunter listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
}
