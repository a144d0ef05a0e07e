package redisx

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/casechat-backend/internal/platform/blob"
	"github.com/yungbote/casechat-backend/internal/platform/logger"
)

// BlobStore keeps objects as plain Redis strings. It suits session records in
// deployments without a bucket; content types are not stored.
type BlobStore struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
}

var _ blob.Store = (*BlobStore)(nil)

func NewBlobStore(log *logger.Logger, rdb goredis.UniversalClient, keyPrefix string) (*BlobStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &BlobStore{
		log:    log.With("service", "RedisBlobStore"),
		rdb:    rdb,
		prefix: keyPrefix,
	}, nil
}

func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("redis key %q: %w", key, blob.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}
	return b, nil
}

func (s *BlobStore) Put(ctx context.Context, key string, data []byte, _ string) error {
	if err := s.rdb.Set(ctx, s.prefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

func (s *BlobStore) List(ctx context.Context, prefix string) ([]string, error) {
	out := []string{}
	iter := s.rdb.Scan(ctx, 0, s.prefix+escapeGlob(prefix)+"*", 200).Iterator()
	for iter.Next(ctx) {
		out = append(out, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %q: %w", prefix, err)
	}
	sort.Strings(out)
	return out, nil
}

func escapeGlob(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}
