package memory

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"playreviews/internal/adapters/observability"
	"playreviews/internal/domain"
)

// DefaultMaxEntries caps the store when no size is configured.
const DefaultMaxEntries = 1024

type entry struct {
	snap    domain.Snapshot
	expires time.Time
}

// Store is an in-process SnapshotStore on a bounded expirable LRU. The LRU
// TTL is the upper bound; a shorter ttl passed to Put is honoured per entry.
type Store struct {
	lru *expirable.LRU[string, entry]
	now func() time.Time
}

func New(size int, ttl time.Duration) *Store {
	if size <= 0 {
		size = DefaultMaxEntries
	}
	return &Store{
		lru: expirable.NewLRU[string, entry](size, nil, ttl),
		now: time.Now,
	}
}

func (s *Store) Put(ctx context.Context, snap domain.Snapshot, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	s.lru.Add(snap.ID, entry{snap: snap, expires: exp})
	observability.ObserveCache("memory", "set")
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (domain.Snapshot, error) {
	e, ok := s.lru.Get(id)
	if ok && !e.expires.IsZero() && s.now().After(e.expires) {
		s.lru.Remove(id)
		ok = false
	}
	if !ok {
		observability.ObserveCache("memory", "miss")
		return domain.Snapshot{}, domain.ErrNotFound
	}
	observability.ObserveCache("memory", "hit")
	return e.snap, nil
}

// Len reports the number of entries held, expired ones included until the
// LRU sweeps them.
func (s *Store) Len() int { return s.lru.Len() }
