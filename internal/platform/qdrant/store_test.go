package qdrant

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"

	qc "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/casechat-backend/internal/platform/logger"
)

type fakePoints struct {
	exists   bool
	created  *qc.CreateCollection
	upserted *qc.UpsertPoints
	query    *qc.QueryPoints
	hits     []*qc.ScoredPoint
	err      error
}

func (f *fakePoints) CollectionExists(context.Context, string) (bool, error) { return f.exists, f.err }
func (f *fakePoints) CreateCollection(_ context.Context, r *qc.CreateCollection) error {
	f.created = r
	return f.err
}
func (f *fakePoints) Upsert(_ context.Context, r *qc.UpsertPoints) (*qc.UpdateResult, error) {
	f.upserted = r
	return &qc.UpdateResult{}, f.err
}
func (f *fakePoints) Query(_ context.Context, r *qc.QueryPoints) ([]*qc.ScoredPoint, error) {
	f.query = r
	return f.hits, f.err
}

func newFakeStore(f *fakePoints) *Store {
	return &Store{
		log: logger.Nop(),
		api: f,
		cfg: Config{Host: "localhost", Port: 6334, Collection: "case_chunks", VectorDim: 3},
	}
}

func TestPointIDStable(t *testing.T) {
	a := PointID("cases/1/chunks/brief_chunk_1.txt")
	b := PointID("cases/1/chunks/brief_chunk_1.txt")
	c := PointID("cases/1/chunks/brief_chunk_2.txt")
	if a != b {
		t.Fatalf("ids differ for same key: %s vs %s", a, b)
	}
	if a == c {
		t.Fatalf("ids collide for different keys")
	}
}

func TestEnsureCollectionCreatesWhenMissing(t *testing.T) {
	f := &fakePoints{}
	if err := newFakeStore(f).EnsureCollection(context.Background()); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	if f.created == nil || f.created.GetCollectionName() != "case_chunks" {
		t.Fatalf("collection not created: %+v", f.created)
	}

	f = &fakePoints{exists: true}
	if err := newFakeStore(f).EnsureCollection(context.Background()); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	if f.created != nil {
		t.Fatalf("existing collection should not be recreated")
	}
}

func TestUpsertRejectsWrongDimension(t *testing.T) {
	f := &fakePoints{}
	err := newFakeStore(f).Upsert(context.Background(), []ChunkVector{{ObjectKey: "k", Vector: []float32{1, 2}}})
	var opE *OperationError
	if !errors.As(err, &opE) || opE.Code != OperationErrorValidation {
		t.Fatalf("want validation error got=%v", err)
	}
	if f.upserted != nil {
		t.Fatalf("nothing should be sent")
	}
}

func TestUpsertBuildsPayload(t *testing.T) {
	f := &fakePoints{}
	err := newFakeStore(f).Upsert(context.Background(), []ChunkVector{{
		CaseNumber: "2023-CV-001",
		ObjectKey:  "cases/2023-CV-001/chunks/brief_chunk_1.txt",
		Text:       "The plaintiff alleges",
		Vector:     []float32{0.1, 0.2, 0.3},
	}})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if got := len(f.upserted.GetPoints()); got != 1 {
		t.Fatalf("points: want=1 got=%d", got)
	}
	p := f.upserted.GetPoints()[0]
	if p.GetId().GetUuid() != PointID("cases/2023-CV-001/chunks/brief_chunk_1.txt") {
		t.Fatalf("id: got=%v", p.GetId())
	}
	if p.GetPayload()[payloadText].GetStringValue() != "The plaintiff alleges" {
		t.Fatalf("payload text: got=%v", p.GetPayload())
	}
}

func TestSearchMapsHitsInOrder(t *testing.T) {
	f := &fakePoints{hits: []*qc.ScoredPoint{
		{Score: 0.9, Payload: qc.NewValueMap(map[string]any{payloadText: "first", payloadObjectKey: "a"})},
		{Score: 0.8, Payload: qc.NewValueMap(map[string]any{payloadText: ""})},
		{Score: 0.7, Payload: qc.NewValueMap(map[string]any{payloadText: "second", payloadObjectKey: "b"})},
	}}
	hits, err := newFakeStore(f).Search(context.Background(), []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 || hits[0].Text != "first" || hits[1].Text != "second" {
		t.Fatalf("hits: got=%+v", hits)
	}
	if f.query.GetLimit() != 5 {
		t.Fatalf("limit: want=5 got=%d", f.query.GetLimit())
	}
}

func TestSearchClassifiesUnavailable(t *testing.T) {
	f := &fakePoints{err: status.Error(codes.Unavailable, "connection refused")}
	_, err := newFakeStore(f).Search(context.Background(), []float32{1, 0, 0}, 5)
	var opE *OperationError
	if !errors.As(err, &opE) || opE.Code != OperationErrorTransportFailed {
		t.Fatalf("want transport error got=%v", err)
	}
}

func TestStoreIntegration(t *testing.T) {
	addr := os.Getenv("TEST_QDRANT_ADDR")
	if addr == "" {
		t.Skip("TEST_QDRANT_ADDR not set")
	}
	port, _ := strconv.Atoi(os.Getenv("TEST_QDRANT_PORT"))
	if port == 0 {
		port = 6334
	}
	s, err := NewStore(logger.Nop(), Config{Host: addr, Port: port, Collection: "casechat_it", VectorDim: 3})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()
	ctx := context.Background()
	if err := s.EnsureCollection(ctx); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	if err := s.Upsert(ctx, []ChunkVector{{CaseNumber: "it", ObjectKey: "it/1", Text: "hello", Vector: []float32{1, 0, 0}}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	hits, err := s.Search(ctx, []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ObjectKey != "it/1" {
		t.Fatalf("hits: got=%+v", hits)
	}
}
