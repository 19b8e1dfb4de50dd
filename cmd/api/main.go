package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"playreviews/internal/adapters/gplay"
	server "playreviews/internal/adapters/http_server"
	"playreviews/internal/adapters/observability"
	"playreviews/internal/app"
	"playreviews/internal/shared"
	"playreviews/internal/storage"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("API failed")
	}
	log.Info().Msg("API stopped")
}

func run(cfg shared.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	store, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("snapshot store init: %w", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn().Err(err).Msg("snapshot store close failed")
		}
	}()

	// deps
	src, err := gplay.New(gplay.Options{
		BaseURL:  cfg.GPlayBase,
		Lang:     cfg.GPlayLang,
		Country:  cfg.GPlayCountry,
		PageSize: cfg.GPlayPageSize,
		Location: cfg.ReviewTZ,
	})
	if err != nil {
		return fmt.Errorf("review source init: %w", err)
	}
	agg := app.NewAggregator(src, app.ParsePartialPolicy(cfg.PartialResults))
	fetches := app.NewFetchService(agg, store, cfg.FetchTimeout, cfg.SnapshotTTL)

	// http
	srv := server.New(cfg.FetchTimeout + 15*time.Second)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		F:          fetches,
		MaxReviews: cfg.MaxReviews,
		Throttle:   server.NewThrottle(cfg.FetchRPS, cfg.FetchBurst),
	})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(sctx)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Str("snapshots", cfg.SnapshotBackend).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
