package app

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/casechat-backend/internal/platform/logger"
	"github.com/yungbote/casechat-backend/internal/platform/qdrant"
)

type fakeVectorStore struct {
	ensureErr   error
	upsertCalls int
	searchCalls int
	searchErr   error
	hits        []qdrant.Hit
}

func (f *fakeVectorStore) EnsureCollection(context.Context) error { return f.ensureErr }

func (f *fakeVectorStore) Upsert(context.Context, []qdrant.ChunkVector) error {
	f.upsertCalls++
	return nil
}

func (f *fakeVectorStore) Search(context.Context, []float32, int) ([]qdrant.Hit, error) {
	f.searchCalls++
	return f.hits, f.searchErr
}

func TestClassifyVectorProviderBootstrapError(t *testing.T) {
	cases := []struct {
		err  error
		want VectorProviderBootstrapErrorCode
	}{
		{&qdrant.ConfigError{Code: qdrant.ConfigErrorMissingHost}, VectorProviderBootstrapErrorMissingHost},
		{&qdrant.ConfigError{Code: qdrant.ConfigErrorInvalidPort}, VectorProviderBootstrapErrorInvalidPort},
		{&qdrant.ConfigError{Code: qdrant.ConfigErrorMissingCollection}, VectorProviderBootstrapErrorMissingCollection},
		{&qdrant.ConfigError{Code: qdrant.ConfigErrorInvalidVectorDim}, VectorProviderBootstrapErrorInvalidVectorDim},
		{errors.New("boom"), VectorProviderBootstrapErrorConnectFailed},
	}
	for _, tc := range cases {
		got := vectorProviderBootstrapErrorCode(classifyVectorProviderBootstrapError("case_chunks", tc.err))
		if got != tc.want {
			t.Fatalf("%v: want=%q got=%q", tc.err, tc.want, got)
		}
	}
}

func TestResolveVectorStoreEnsuresCollection(t *testing.T) {
	orig := newQdrantStore
	t.Cleanup(func() { newQdrantStore = orig })

	inner := &fakeVectorStore{}
	newQdrantStore = func(*logger.Logger, qdrant.Config) (vectorStore, func() error, error) {
		return inner, func() error { return nil }, nil
	}
	vs, _, err := resolveVectorStore(context.Background(), logger.Nop(), qdrant.Config{Collection: "case_chunks"})
	if err != nil {
		t.Fatalf("resolveVectorStore: %v", err)
	}
	if _, ok := vs.(*instrumentedVectorStore); !ok {
		t.Fatalf("want instrumented store, got=%T", vs)
	}
}

func TestResolveVectorStoreCollectionFailure(t *testing.T) {
	orig := newQdrantStore
	t.Cleanup(func() { newQdrantStore = orig })

	closed := false
	transport := &qdrant.OperationError{Code: qdrant.OperationErrorTransportFailed, Operation: "ensure_collection"}
	newQdrantStore = func(*logger.Logger, qdrant.Config) (vectorStore, func() error, error) {
		return &fakeVectorStore{ensureErr: transport}, func() error { closed = true; return nil }, nil
	}
	_, _, err := resolveVectorStore(context.Background(), logger.Nop(), qdrant.Config{Collection: "case_chunks"})
	if code := vectorProviderBootstrapErrorCode(err); code != VectorProviderBootstrapErrorConnectFailed {
		t.Fatalf("code: want=%q got=%q", VectorProviderBootstrapErrorConnectFailed, code)
	}
	if !closed {
		t.Fatalf("client should be closed after a failed bootstrap")
	}
}
