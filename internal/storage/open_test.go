package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	redisad "playreviews/internal/adapters/redis"
	"playreviews/internal/domain"
	"playreviews/internal/shared"
	"playreviews/internal/storage/memory"
)

func TestOpen_Memory(t *testing.T) {
	st, closeFn, err := Open(context.Background(), shared.Config{SnapshotBackend: "memory", SnapshotMaxEntries: 3, SnapshotTTL: time.Hour})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer closeFn()
	ms, ok := st.(*memory.Store)
	if !ok {
		t.Fatalf("expected memory store, got %T", st)
	}
	for i := 0; i < 5; i++ {
		_ = ms.Put(context.Background(), domain.Snapshot{ID: fmt.Sprint(i)}, time.Minute)
	}
	if ms.Len() != 3 {
		t.Fatalf("expected the store bounded to 3 entries, got %d", ms.Len())
	}
}

func TestOpen_Redis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	st, closeFn, err := Open(context.Background(), shared.Config{SnapshotBackend: "redis", RedisAddr: mr.Addr()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer closeFn()
	if _, ok := st.(*redisad.Store); !ok {
		t.Fatalf("expected redis store, got %T", st)
	}
}

func TestOpen_Unknown(t *testing.T) {
	if _, _, err := Open(context.Background(), shared.Config{SnapshotBackend: "s3"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
