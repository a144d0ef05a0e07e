package chat

import (
	"context"
	"fmt"

	"github.com/yungbote/casechat-backend/internal/platform/openai"
	"github.com/yungbote/casechat-backend/internal/platform/qdrant"
)

type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, limit int) ([]qdrant.Hit, error)
}

// VectorRetriever embeds the query and returns the nearest stored chunks.
type VectorRetriever struct {
	Embedder Embedder
	Searcher VectorSearcher
}

func (r VectorRetriever) Retrieve(ctx context.Context, query string, k int) ([]Fragment, error) {
	vecs, err := r.Embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed query: want 1 vector got %d", len(vecs))
	}
	hits, err := r.Searcher.Search(ctx, vecs[0], k)
	if err != nil {
		return nil, err
	}
	out := make([]Fragment, 0, len(hits))
	for _, h := range hits {
		out = append(out, Fragment{Text: h.Text, Source: h.ObjectKey})
	}
	return out, nil
}

type ChatCompleter interface {
	Complete(ctx context.Context, messages []openai.Message) (string, error)
}

// ModelCompleter maps chat messages onto the model client's roles.
type ModelCompleter struct {
	Client ChatCompleter
}

func (c ModelCompleter) Complete(ctx context.Context, prompt []Message) (string, error) {
	msgs := make([]openai.Message, 0, len(prompt))
	for _, m := range prompt {
		msgs = append(msgs, openai.Message{Role: string(m.Role), Content: m.Text})
	}
	return c.Client.Complete(ctx, msgs)
}
