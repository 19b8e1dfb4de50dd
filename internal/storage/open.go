package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	redisad "playreviews/internal/adapters/redis"
	"playreviews/internal/domain"
	"playreviews/internal/shared"
	"playreviews/internal/storage/memory"
	mysqlrepo "playreviews/internal/storage/mysql"
)

// Open returns the snapshot store selected by cfg.SnapshotBackend and a
// function releasing its resources.
func Open(ctx context.Context, cfg shared.Config) (domain.SnapshotStore, func() error, error) {
	noop := func() error { return nil }
	switch cfg.SnapshotBackend {
	case "", "memory":
		log.Info().Int("max_entries", cfg.SnapshotMaxEntries).Msg("snapshot store: memory")
		return memory.New(cfg.SnapshotMaxEntries, cfg.SnapshotTTL), noop, nil

	case "redis":
		st := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := st.Ping(pctx); err != nil {
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("snapshot store: redis")
		return st, noop, nil

	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("sql.Open: %w", err)
		}
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("db.Ping: %w", err)
		}
		log.Info().Msg("snapshot store: mysql")
		return mysqlrepo.New(db), db.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown SNAPSHOT_BACKEND %q", cfg.SnapshotBackend)
}
