package domain

import (
	"context"
	"time"
)

// ReviewSource is the external paged review provider.
type ReviewSource interface {
	GetPage(ctx context.Context, appID string, sort SortOrder, token PageToken) (Page, error)
}

// SnapshotStore keeps fetch results for a limited time.
type SnapshotStore interface {
	Put(ctx context.Context, s Snapshot, ttl time.Duration) error
	// Get returns ErrNotFound for unknown or expired IDs.
	Get(ctx context.Context, id string) (Snapshot, error)
}
