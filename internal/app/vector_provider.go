package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yungbote/casechat-backend/internal/platform/logger"
	"github.com/yungbote/casechat-backend/internal/platform/qdrant"
)

var newQdrantStore = func(log *logger.Logger, cfg qdrant.Config) (vectorStore, func() error, error) {
	s, err := qdrant.NewStore(log, cfg)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}

type VectorProviderBootstrapErrorCode string

const (
	VectorProviderBootstrapErrorMissingHost       VectorProviderBootstrapErrorCode = "missing_qdrant_host"
	VectorProviderBootstrapErrorInvalidPort       VectorProviderBootstrapErrorCode = "invalid_qdrant_port"
	VectorProviderBootstrapErrorMissingCollection VectorProviderBootstrapErrorCode = "missing_qdrant_collection"
	VectorProviderBootstrapErrorInvalidVectorDim  VectorProviderBootstrapErrorCode = "invalid_qdrant_vector_dim"
	VectorProviderBootstrapErrorConnectFailed     VectorProviderBootstrapErrorCode = "connect_failed"
	VectorProviderBootstrapErrorCollectionFailed  VectorProviderBootstrapErrorCode = "collection_failed"
)

type VectorProviderBootstrapError struct {
	Code       VectorProviderBootstrapErrorCode
	Collection string
	Cause      error
}

func (e *VectorProviderBootstrapError) Error() string {
	if e == nil {
		return "vector store bootstrap failed"
	}
	return fmt.Sprintf("vector store bootstrap failed (code=%s collection=%q): %v", e.Code, e.Collection, e.Cause)
}

func (e *VectorProviderBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveVectorStore connects to Qdrant and makes sure the chunk collection
// exists. The returned store is wrapped with tracing spans.
func resolveVectorStore(ctx context.Context, log *logger.Logger, cfg qdrant.Config) (vectorStore, func() error, error) {
	log.Info(
		"Selecting vector store",
		"provider", "qdrant",
		"host", cfg.Host,
		"port", cfg.Port,
		"collection", cfg.Collection,
		"vector_dim", cfg.VectorDim,
	)
	vs, closeFn, err := newQdrantStore(log, cfg)
	if err != nil {
		classified := classifyVectorProviderBootstrapError(cfg.Collection, err)
		log.Error("Vector store bootstrap failed", "error_code", vectorProviderBootstrapErrorCode(classified), "error", classified)
		return nil, nil, classified
	}

	ensureCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := vs.EnsureCollection(ensureCtx); err != nil {
		_ = closeFn()
		classified := &VectorProviderBootstrapError{
			Code:       VectorProviderBootstrapErrorCollectionFailed,
			Collection: cfg.Collection,
			Cause:      err,
		}
		var opErr *qdrant.OperationError
		if errors.As(err, &opErr) && (opErr.Code == qdrant.OperationErrorTransportFailed || opErr.Code == qdrant.OperationErrorTimeout) {
			classified.Code = VectorProviderBootstrapErrorConnectFailed
		}
		log.Error("Vector store bootstrap failed", "error_code", classified.Code, "error", classified)
		return nil, nil, classified
	}
	return instrumentVectorStore("qdrant", vs), closeFn, nil
}

func classifyVectorProviderBootstrapError(collection string, err error) error {
	out := &VectorProviderBootstrapError{
		Code:       VectorProviderBootstrapErrorConnectFailed,
		Collection: collection,
		Cause:      err,
	}
	var cfgErr *qdrant.ConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Code {
		case qdrant.ConfigErrorMissingHost:
			out.Code = VectorProviderBootstrapErrorMissingHost
		case qdrant.ConfigErrorInvalidPort:
			out.Code = VectorProviderBootstrapErrorInvalidPort
		case qdrant.ConfigErrorMissingCollection:
			out.Code = VectorProviderBootstrapErrorMissingCollection
		case qdrant.ConfigErrorInvalidVectorDim:
			out.Code = VectorProviderBootstrapErrorInvalidVectorDim
		}
	}
	return out
}

func vectorProviderBootstrapErrorCode(err error) VectorProviderBootstrapErrorCode {
	var bootstrapErr *VectorProviderBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return VectorProviderBootstrapErrorConnectFailed
}
