package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/casechat-backend/internal/platform/openai"
	"github.com/yungbote/casechat-backend/internal/platform/qdrant"
)

type stubEmbedder struct {
	vecs [][]float32
	err  error
}

func (s stubEmbedder) Embed(context.Context, []string) ([][]float32, error) { return s.vecs, s.err }

type stubSearcher struct {
	hits     []qdrant.Hit
	gotLimit int
}

func (s *stubSearcher) Search(_ context.Context, _ []float32, limit int) ([]qdrant.Hit, error) {
	s.gotLimit = limit
	return s.hits, nil
}

func TestVectorRetrieverKeepsOrder(t *testing.T) {
	s := &stubSearcher{hits: []qdrant.Hit{{Text: "b", ObjectKey: "k2"}, {Text: "a", ObjectKey: "k1"}}}
	r := VectorRetriever{Embedder: stubEmbedder{vecs: [][]float32{{1}}}, Searcher: s}
	got, err := r.Retrieve(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 2 || got[0].Text != "b" || got[1].Source != "k1" {
		t.Fatalf("fragments: got=%+v", got)
	}
	if s.gotLimit != 5 {
		t.Fatalf("limit: want=5 got=%d", s.gotLimit)
	}
}

func TestVectorRetrieverEmbedError(t *testing.T) {
	r := VectorRetriever{Embedder: stubEmbedder{err: errors.New("quota")}, Searcher: &stubSearcher{}}
	if _, err := r.Retrieve(context.Background(), "q", 5); err == nil {
		t.Fatalf("want error")
	}
}

type stubModel struct{ got []openai.Message }

func (s *stubModel) Complete(_ context.Context, msgs []openai.Message) (string, error) {
	s.got = msgs
	return "answer", nil
}

func TestModelCompleterMapsRoles(t *testing.T) {
	m := &stubModel{}
	out, err := ModelCompleter{Client: m}.Complete(context.Background(), []Message{
		{Role: RoleSystem, Text: "sys"},
		{Role: RoleUser, Text: "q"},
		{Role: RoleAssistant, Text: "a"},
	})
	if err != nil || out != "answer" {
		t.Fatalf("Complete: out=%q err=%v", out, err)
	}
	want := []string{"system", "user", "assistant"}
	for i, msg := range m.got {
		if msg.Role != want[i] {
			t.Fatalf("role %d: want=%q got=%q", i, want[i], msg.Role)
		}
	}
}
