package redisx

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/casechat-backend/internal/platform/blob"
	"github.com/yungbote/casechat-backend/internal/platform/logger"
)

func TestEscapeGlob(t *testing.T) {
	if got := escapeGlob("cases/a*b?[1]/"); got != `cases/a\*b\?\[1\]/` {
		t.Fatalf("escapeGlob: got=%q", got)
	}
}

func TestNewClientRequiresAddr(t *testing.T) {
	if _, err := NewClient(context.Background(), Config{}); err == nil {
		t.Fatalf("want error for empty addr")
	}
}

func testPrefix() string { return "casechat_test:" + uuid.NewString() + ":" }

func TestBlobStoreIntegration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := NewClient(ctx, Config{Addr: addr})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer rdb.Close()

	s, err := NewBlobStore(logger.Nop(), rdb, testPrefix())
	if err != nil {
		t.Fatalf("NewBlobStore: %v", err)
	}
	if _, err := s.Get(ctx, "sessions/missing.json"); !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("missing: want ErrNotFound got=%v", err)
	}
	if err := s.Put(ctx, "sessions/a.json", []byte(`[]`), "application/json"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, "sessions/a.json")
	if err != nil || string(got) != `[]` {
		t.Fatalf("Get: got=%q err=%v", got, err)
	}
	keys, err := s.List(ctx, "sessions/")
	if err != nil || len(keys) != 1 || keys[0] != "sessions/a.json" {
		t.Fatalf("List: got=%v err=%v", keys, err)
	}
}

func TestSessionLockerIntegration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := NewClient(ctx, Config{Addr: addr})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer rdb.Close()

	l, err := NewSessionLocker(logger.Nop(), rdb, testPrefix(), time.Minute, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("NewSessionLocker: %v", err)
	}
	unlock, err := l.Lock(ctx, "s1")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if _, err := l.Lock(ctx, "s1"); !errors.Is(err, ErrLockBusy) {
		t.Fatalf("second Lock: want ErrLockBusy got=%v", err)
	}
	unlock()
	unlock2, err := l.Lock(ctx, "s1")
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	unlock2()
}
