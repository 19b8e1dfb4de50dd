package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	GPlayBase     string
	GPlayLang     string
	GPlayCountry  string
	GPlayPageSize int
	ReviewTZ      *time.Location

	FetchTimeout   time.Duration
	MaxReviews     int
	PartialResults string
	FetchRPS       float64
	FetchBurst     int

	SnapshotBackend    string // memory|redis|mysql
	SnapshotTTL        time.Duration
	SnapshotMaxEntries int
	RedisAddr          string
	RedisDB            int
	RedisPass          string
	MySQLDSN           string

	ExportWorkers int
	ExportAppIDs  []string
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("invalid integer, using default")
		}
		return def
	}
	atof := func(k string, def float64) float64 {
		if v := os.Getenv(k); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
			log.Warn().Str("key", k).Str("value", v).Msg("invalid number, using default")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":3000"),
		MetricsAddr: env("METRICS_ADDR", ""),

		GPlayBase:     env("GPLAY_BASE_URL", "https://play.google.com"),
		GPlayLang:     env("GPLAY_LANG", "en"),
		GPlayCountry:  env("GPLAY_COUNTRY", "us"),
		GPlayPageSize: atoi("GPLAY_PAGE_SIZE", 150),
		ReviewTZ:      location(env("REVIEW_TZ", "Local")),

		FetchTimeout:   time.Duration(atoi("FETCH_TIMEOUT_SECONDS", 120)) * time.Second,
		MaxReviews:     atoi("MAX_REVIEWS", 5000),
		PartialResults: env("PARTIAL_RESULTS", "discard"),
		FetchRPS:       atof("FETCH_RPS", 1),
		FetchBurst:     atoi("FETCH_BURST", 5),

		SnapshotBackend:    strings.ToLower(env("SNAPSHOT_BACKEND", "memory")),
		SnapshotTTL:        time.Duration(atoi("SNAPSHOT_TTL_SECONDS", 3600)) * time.Second,
		SnapshotMaxEntries: atoi("SNAPSHOT_MAX_ENTRIES", 1024),
		RedisAddr:          env("REDIS_ADDR", "localhost:6379"),
		RedisPass:          env("REDIS_PASSWORD", ""),
		RedisDB:            atoi("REDIS_DB", 0),
		MySQLDSN:           env("MYSQL_DSN", "root:root@tcp(localhost:3306)/playreviews?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),

		ExportWorkers: atoi("EXPORT_WORKERS", 4),
		ExportAppIDs:  splitList(os.Getenv("EXPORT_APP_IDS")),
	}
	if c.MaxReviews <= 0 {
		c.MaxReviews = 5000
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func location(name string) *time.Location {
	if name == "" || name == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warn().Err(err).Str("tz", name).Msg("unknown REVIEW_TZ, using local time")
		return time.Local
	}
	return loc
}

// splitList splits a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
