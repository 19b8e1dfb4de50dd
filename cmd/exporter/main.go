package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"playreviews/internal/adapters/gplay"
	"playreviews/internal/adapters/observability"
	"playreviews/internal/app"
	"playreviews/internal/domain"
	"playreviews/internal/shared"
)

func main() {
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	apps := flag.String("apps", strings.Join(cfg.ExportAppIDs, ","), "comma separated app IDs")
	count := flag.Int("count", 5000, "reviews per app")
	sortFlag := flag.String("sort", "NEWEST", "NEWEST, RATING or HELPFUL")
	layoutFlag := flag.String("layout", "basic", "csv layout: basic or detailed")
	out := flag.String("out", ".", "output directory")
	workers := flag.Int("workers", cfg.ExportWorkers, "apps fetched concurrently")
	flag.Parse()

	sort, err := domain.ParseSortOrder(*sortFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("bad -sort")
	}
	layout, err := app.ParseCSVLayout(*layoutFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("bad -layout")
	}
	var ids []string
	for _, p := range strings.Split(*apps, ",") {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	if len(ids) == 0 {
		log.Fatal().Msg("no app IDs given (use -apps or EXPORT_APP_IDS)")
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", *out).Msg("cannot create output directory")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := gplay.New(gplay.Options{
		BaseURL:  cfg.GPlayBase,
		Lang:     cfg.GPlayLang,
		Country:  cfg.GPlayCountry,
		PageSize: cfg.GPlayPageSize,
		Location: cfg.ReviewTZ,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize review source")
	}
	exp := app.NewExporter(app.NewAggregator(src, app.ParsePartialPolicy(cfg.PartialResults)))

	log.Info().
		Int("apps", len(ids)).
		Int("workers", *workers).
		Int("count", *count).
		Msg("exporter starting")

	failed := 0
	for _, r := range exp.ExportAll(ctx, ids, app.BatchOptions{
		Count: *count, Sort: sort, Layout: layout, OutDir: *out, Workers: *workers,
	}) {
		if r.Partial {
			failed++
			log.Warn().Str("app_id", r.AppID).Str("file", r.File).Int("count", r.Count).Err(r.Err).Msg("export incomplete")
			continue
		}
		if r.Err != nil {
			failed++
			log.Warn().Str("app_id", r.AppID).Err(r.Err).Msg("export failed")
			continue
		}
		log.Info().Str("app_id", r.AppID).Str("file", r.File).Int("count", r.Count).Msg("export ok")
	}

	log.Info().Int("failed", failed).Msg("export completed")
	if failed > 0 {
		stop()
		os.Exit(1)
	}
}
