package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"playreviews/internal/adapters/observability"
	"playreviews/internal/domain"
)

func valTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// Repo is a SnapshotStore backed by the fetch_snapshots table.
type Repo struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Repo { return &Repo{db: db, now: time.Now} }

func (r *Repo) Put(ctx context.Context, s domain.Snapshot, ttl time.Duration) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	now := r.now()
	var expires time.Time
	if ttl > 0 {
		expires = now.Add(ttl)
	}

	if res, err := r.db.ExecContext(ctx, purgeExpiredSQL, now.UTC()); err != nil {
		log.Warn().Err(err).Msg("purge expired snapshots failed")
	} else if n, _ := res.RowsAffected(); n > 0 {
		log.Debug().Int64("rows", n).Msg("purged expired snapshots")
	}

	_, err = r.db.ExecContext(ctx, upsertSnapshotSQL,
		s.ID,
		s.AppID,
		string(s.Sort),
		s.Requested,
		len(s.Reviews),
		s.Partial,
		valTime(s.FetchedAt),
		valTime(expires),
		string(payload),
	)
	if err == nil {
		observability.ObserveCache("mysql", "set")
	}
	return err
}

func (r *Repo) Get(ctx context.Context, id string) (domain.Snapshot, error) {
	var payload []byte
	if err := r.db.QueryRowContext(ctx, getSnapshotSQL, id, r.now().UTC()).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			observability.ObserveCache("mysql", "miss")
			return domain.Snapshot{}, domain.ErrNotFound
		}
		return domain.Snapshot{}, err
	}
	observability.ObserveCache("mysql", "hit")
	var s domain.Snapshot
	return s, json.Unmarshal(payload, &s)
}
