package app

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/casechat-backend/internal/platform/blob"
	"github.com/yungbote/casechat-backend/internal/platform/gcp"
	"github.com/yungbote/casechat-backend/internal/platform/logger"
	"github.com/yungbote/casechat-backend/internal/platform/redisx"
)

var newBucketStore = func(ctx context.Context, log *logger.Logger, cfg gcp.BucketConfig) (blob.Store, func() error, error) {
	bs, err := gcp.NewBucketStore(ctx, log, cfg)
	if err != nil {
		return nil, nil, err
	}
	return bs, bs.Close, nil
}

type StorageProviderBootstrapErrorCode string

const (
	StorageProviderBootstrapErrorInvalidMode         StorageProviderBootstrapErrorCode = "invalid_mode"
	StorageProviderBootstrapErrorMissingEmulatorHost StorageProviderBootstrapErrorCode = "missing_emulator_host"
	StorageProviderBootstrapErrorInvalidEmulatorHost StorageProviderBootstrapErrorCode = "invalid_emulator_host"
	StorageProviderBootstrapErrorMissingRedis        StorageProviderBootstrapErrorCode = "missing_redis"
	StorageProviderBootstrapErrorConnectFailed       StorageProviderBootstrapErrorCode = "connect_failed"
)

type StorageProviderBootstrapError struct {
	Code     StorageProviderBootstrapErrorCode
	Provider string
	Mode     string
	Cause    error
}

func (e *StorageProviderBootstrapError) Error() string {
	if e == nil {
		return "blob storage bootstrap failed"
	}
	return fmt.Sprintf(
		"blob storage bootstrap failed (code=%s provider=%q mode=%q): %v",
		e.Code,
		e.Provider,
		e.Mode,
		e.Cause,
	)
}

func (e *StorageProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveBlobStore picks the store that holds session records, case sources
// and chunks. rdb is only consulted for the redis provider.
func resolveBlobStore(ctx context.Context, log *logger.Logger, cfg Config, rdb goredis.UniversalClient) (blob.Store, func() error, error) {
	noClose := func() error { return nil }
	provider := string(cfg.Storage.Provider)

	switch cfg.Storage.Provider {
	case BlobProviderGCS:
		storageCfg := cfg.Storage.Object
		log.Info(
			"Selecting blob storage provider",
			"provider", provider,
			"mode", storageCfg.Mode,
			"mode_source", storageCfg.ModeSource(),
			"emulator_host", storageCfg.EmulatorHost,
			"bucket", cfg.Storage.Bucket,
		)
		store, closeFn, err := newBucketStore(ctx, log, gcp.BucketConfig{Name: cfg.Storage.Bucket, Storage: storageCfg})
		if err != nil {
			classified := classifyStorageProviderBootstrapError(provider, storageCfg, err)
			log.Error(
				"Blob storage provider bootstrap failed",
				"provider", provider,
				"mode", storageCfg.Mode,
				"error_code", storageProviderBootstrapErrorCode(classified),
				"error", classified,
			)
			return nil, nil, classified
		}
		return store, closeFn, nil

	case BlobProviderRedis:
		log.Info("Selecting blob storage provider", "provider", provider, "key_prefix", cfg.Redis.KeyPrefix)
		if rdb == nil {
			return nil, nil, &StorageProviderBootstrapError{
				Code:     StorageProviderBootstrapErrorMissingRedis,
				Provider: provider,
				Cause:    errors.New("redis client not configured"),
			}
		}
		store, err := redisx.NewBlobStore(log, rdb, cfg.Redis.KeyPrefix)
		if err != nil {
			return nil, nil, &StorageProviderBootstrapError{Code: StorageProviderBootstrapErrorConnectFailed, Provider: provider, Cause: err}
		}
		return store, noClose, nil

	case BlobProviderMemory:
		log.Warn("Using in-memory blob storage; sessions and chunks are lost on restart")
		return blob.NewMemoryStore(), noClose, nil

	default:
		return nil, nil, &StorageProviderBootstrapError{
			Code:     StorageProviderBootstrapErrorInvalidMode,
			Provider: provider,
			Cause:    fmt.Errorf("unsupported blob provider %q", provider),
		}
	}
}

func classifyStorageProviderBootstrapError(provider string, storageCfg gcp.ObjectStorageConfig, err error) error {
	out := &StorageProviderBootstrapError{
		Code:     StorageProviderBootstrapErrorConnectFailed,
		Provider: provider,
		Mode:     string(storageCfg.Mode),
		Cause:    err,
	}
	var cfgErr *gcp.ObjectStorageConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case gcp.ObjectStorageConfigErrorInvalidMode:
			out.Code = StorageProviderBootstrapErrorInvalidMode
		case gcp.ObjectStorageConfigErrorMissingEmulatorHost:
			out.Code = StorageProviderBootstrapErrorMissingEmulatorHost
		case gcp.ObjectStorageConfigErrorInvalidEmulatorHost:
			out.Code = StorageProviderBootstrapErrorInvalidEmulatorHost
		}
	}
	return out
}

func storageProviderBootstrapErrorCode(err error) StorageProviderBootstrapErrorCode {
	var bootstrapErr *StorageProviderBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return StorageProviderBootstrapErrorConnectFailed
}
