// Package main provides the entry point for the publication aggregation service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/emrah1982/yayinpinari/internal/config"
	"github.com/emrah1982/yayinpinari/internal/dispatch"
	"github.com/emrah1982/yayinpinari/internal/enrich"
	"github.com/emrah1982/yayinpinari/internal/history"
	"github.com/emrah1982/yayinpinari/internal/observability"
	"github.com/emrah1982/yayinpinari/internal/providers"
	"github.com/emrah1982/yayinpinari/internal/providers/crossref"
	"github.com/emrah1982/yayinpinari/internal/providers/loc"
	"github.com/emrah1982/yayinpinari/internal/providers/openalex"
	"github.com/emrah1982/yayinpinari/internal/providers/pubchem"
	"github.com/emrah1982/yayinpinari/internal/scoring"
	"github.com/emrah1982/yayinpinari/internal/server"
)

// historyCapacity bounds the in-memory search history.
const historyCapacity = 1000

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("yayinpinari server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("yayinpinari")
	}

	// Register provider adapters.
	registry := buildRegistry(cfg, logger)
	if len(registry.Enabled()) == 0 {
		return errors.New("no provider adapters enabled")
	}

	dispatcher := dispatch.New(registry, dispatch.Config{
		ProviderTimeout: cfg.Dispatch.ProviderTimeout,
		OverallDeadline: cfg.Dispatch.OverallDeadline,
		EventBuffer:     cfg.Dispatch.EventBuffer,
	}, logger, metrics)

	var correlator *enrich.Correlator
	if cfg.Enrichment.Enabled {
		citationClient := enrich.NewClient(enrich.ClientConfig{
			BaseURL:   cfg.Enrichment.BaseURL,
			APIKey:    cfg.Enrichment.APIKey,
			Timeout:   cfg.Enrichment.Timeout,
			RateLimit: cfg.Enrichment.RateLimit,
		}, nil)
		correlator = enrich.NewCorrelator(citationClient, enrich.Config{
			MaxBatchSize: cfg.Enrichment.MaxBatchSize,
		}, logger, metrics)
	}

	scorer := scoring.New(scoring.Config{
		DefaultMinScore: cfg.Scoring.DefaultMinScore,
		MaxCandidates:   cfg.Scoring.MaxCandidates,
	}, logger, metrics)

	historyStore := history.NewMemoryStore(historyCapacity)

	httpSrv := server.NewServer(server.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, dispatcher, correlator, scorer, registry, historyStore, logger)

	// Prometheus metrics on a separate port.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: 30 * time.Second,
		}
	}

	errCh := make(chan error, 2)

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().
		Str("http_address", cfg.Server.HTTPAddress()).
		Strs("providers", registry.IDs())
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("yayinpinari is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("yayinpinari shutdown complete")
	return nil
}

// buildRegistry registers every enabled provider adapter.
func buildRegistry(cfg *config.Config, logger zerolog.Logger) *providers.Registry {
	registry := providers.NewRegistry()

	if cfg.Providers.Crossref.Enabled {
		registry.Register(crossref.NewClient(crossref.Config{
			BaseURL:    cfg.Providers.Crossref.BaseURL,
			APIKey:     cfg.Providers.Crossref.APIKey,
			Timeout:    cfg.Providers.Crossref.Timeout,
			RateLimit:  cfg.Providers.Crossref.RateLimit,
			MaxResults: cfg.Providers.Crossref.MaxResults,
			Enabled:    true,
		}, nil))
	}
	if cfg.Providers.OpenAlex.Enabled {
		registry.Register(openalex.NewClient(openalex.Config{
			BaseURL:    cfg.Providers.OpenAlex.BaseURL,
			APIKey:     cfg.Providers.OpenAlex.APIKey,
			Timeout:    cfg.Providers.OpenAlex.Timeout,
			RateLimit:  cfg.Providers.OpenAlex.RateLimit,
			MaxResults: cfg.Providers.OpenAlex.MaxResults,
			Enabled:    true,
		}, nil))
	}
	if cfg.Providers.PubChem.Enabled {
		registry.Register(pubchem.NewClient(pubchem.Config{
			BaseURL:    cfg.Providers.PubChem.BaseURL,
			Timeout:    cfg.Providers.PubChem.Timeout,
			RateLimit:  cfg.Providers.PubChem.RateLimit,
			MaxResults: cfg.Providers.PubChem.MaxResults,
			Enabled:    true,
		}, nil))
	}
	if cfg.Providers.LOC.Enabled {
		registry.Register(loc.NewClient(loc.Config{
			BaseURL:    cfg.Providers.LOC.BaseURL,
			Timeout:    cfg.Providers.LOC.Timeout,
			RateLimit:  cfg.Providers.LOC.RateLimit,
			MaxResults: cfg.Providers.LOC.MaxResults,
			Enabled:    true,
		}, nil))
	}

	for _, p := range registry.Enabled() {
		logger.Info().Str("provider", p.ID()).Str("name", p.Name()).Msg("provider registered")
	}
	return registry
}
