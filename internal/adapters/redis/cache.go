package redisad

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"playreviews/internal/adapters/observability"
	"playreviews/internal/domain"
)

const keyPrefix = "snapshot:"

// Store keeps snapshots as JSON values with a Redis TTL.
type Store struct{ c *redis.Client }

func New(addr, pass string, db int) *Store {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}))
}

func NewWithClient(c *redis.Client) *Store { return &Store{c: c} }

func (r *Store) Put(ctx context.Context, s domain.Snapshot, ttl time.Duration) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	observability.ObserveCache("redis", "set")
	return r.c.Set(ctx, keyPrefix+s.ID, b, ttl).Err()
}

func (r *Store) Get(ctx context.Context, id string) (domain.Snapshot, error) {
	v, err := r.c.Get(ctx, keyPrefix+id).Bytes()
	if err == redis.Nil {
		observability.ObserveCache("redis", "miss")
		return domain.Snapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Snapshot{}, err
	}
	observability.ObserveCache("redis", "hit")
	var s domain.Snapshot
	return s, json.Unmarshal(v, &s)
}

func (r *Store) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }
