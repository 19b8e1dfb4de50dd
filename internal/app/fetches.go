package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"playreviews/internal/domain"
)

type FetchRequest struct {
	AppID string
	Count int
	Sort  domain.SortOrder
}

func (r FetchRequest) key() string {
	return fmt.Sprintf("%s|%s|%d", r.AppID, r.Sort, r.Count)
}

// FetchResult carries the stored snapshot. Err is the SourceError behind a
// partial snapshot, nil otherwise.
type FetchResult struct {
	Snapshot domain.Snapshot
	Err      error
}

type FetchService struct {
	agg     *Aggregator
	store   domain.SnapshotStore
	timeout time.Duration
	ttl     time.Duration
	group   singleflight.Group
	now     func() time.Time
}

func NewFetchService(agg *Aggregator, store domain.SnapshotStore, timeout, ttl time.Duration) *FetchService {
	return &FetchService{agg: agg, store: store, timeout: timeout, ttl: ttl, now: time.Now}
}

// Fetch aggregates reviews for req and stores them under a new snapshot ID.
// Concurrent calls for the same target share one aggregation and one
// snapshot.
func (s *FetchService) Fetch(ctx context.Context, req FetchRequest) (FetchResult, error) {
	ch := s.group.DoChan(req.key(), func() (any, error) {
		// the flight outlives any single caller that gives up
		fctx := context.WithoutCancel(ctx)
		if s.timeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, s.timeout)
			defer cancel()
		}
		return s.fetch(fctx, req)
	})

	select {
	case <-ctx.Done():
		return FetchResult{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return FetchResult{}, res.Err
		}
		if res.Shared {
			log.Debug().Str("app_id", req.AppID).Msg("joined in-flight fetch")
		}
		return res.Val.(FetchResult), nil
	}
}

func (s *FetchService) fetch(ctx context.Context, req FetchRequest) (FetchResult, error) {
	items, err := s.agg.FetchAggregated(ctx, req.AppID, req.Count, req.Sort)
	var partialErr error
	if err != nil {
		var se *domain.SourceError
		if items == nil || !errors.As(err, &se) {
			return FetchResult{}, err
		}
		partialErr = err
	}
	if items == nil {
		items = []domain.AggregatedReview{}
	}

	snap := domain.Snapshot{
		ID:        uuid.NewString(),
		AppID:     req.AppID,
		Sort:      req.Sort,
		Requested: req.Count,
		Partial:   partialErr != nil,
		FetchedAt: s.now().UTC(),
		Reviews:   items,
	}
	if err := s.store.Put(ctx, snap, s.ttl); err != nil {
		return FetchResult{}, fmt.Errorf("store snapshot: %w", err)
	}
	log.Info().
		Str("app_id", req.AppID).
		Str("snapshot", snap.ID).
		Int("count", len(items)).
		Bool("partial", snap.Partial).
		Msg("fetch stored")
	return FetchResult{Snapshot: snap, Err: partialErr}, nil
}

func (s *FetchService) Snapshot(ctx context.Context, id string) (domain.Snapshot, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Snapshot{}, domain.ErrNotFound
	}
	return s.store.Get(ctx, id)
}
