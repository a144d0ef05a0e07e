package app

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/casechat-backend/internal/observability"
	"github.com/yungbote/casechat-backend/internal/platform/qdrant"
)

// vectorStore is what the indexing worker and the chat retriever need from
// the vector database.
type vectorStore interface {
	EnsureCollection(ctx context.Context) error
	Upsert(ctx context.Context, chunks []qdrant.ChunkVector) error
	Search(ctx context.Context, vector []float32, limit int) ([]qdrant.Hit, error)
}

type instrumentedVectorStore struct {
	provider string
	inner    vectorStore
	tracer   trace.Tracer
}

func instrumentVectorStore(provider string, inner vectorStore) vectorStore {
	if inner == nil {
		return nil
	}
	return &instrumentedVectorStore{
		provider: provider,
		inner:    inner,
		tracer:   observability.Tracer(),
	}
}

func (s *instrumentedVectorStore) EnsureCollection(ctx context.Context) error {
	ctx, span := s.start(ctx, "ensure_collection")
	err := s.inner.EnsureCollection(ctx)
	s.end(span, err)
	return err
}

func (s *instrumentedVectorStore) Upsert(ctx context.Context, chunks []qdrant.ChunkVector) error {
	ctx, span := s.start(ctx, "upsert", attribute.Int("vector.points", len(chunks)))
	err := s.inner.Upsert(ctx, chunks)
	s.end(span, err)
	return err
}

func (s *instrumentedVectorStore) Search(ctx context.Context, vector []float32, limit int) ([]qdrant.Hit, error) {
	ctx, span := s.start(ctx, "search", attribute.Int("vector.limit", limit))
	hits, err := s.inner.Search(ctx, vector, limit)
	span.SetAttributes(attribute.Int("vector.hits", len(hits)))
	s.end(span, err)
	return hits, err
}

func (s *instrumentedVectorStore) start(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("vector.provider", s.provider),
		attribute.String("vector.operation", operation),
	)
	return s.tracer.Start(ctx, "vector."+operation, trace.WithAttributes(attrs...))
}

func (s *instrumentedVectorStore) end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
