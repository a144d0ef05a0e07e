package qdrant

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	qc "github.com/qdrant/go-client/qdrant"

	"github.com/yungbote/casechat-backend/internal/platform/logger"
)

const (
	payloadCaseNumber = "case_number"
	payloadObjectKey  = "object_key"
	payloadText       = "text"
)

// ChunkVector is one stored chunk with its embedding.
type ChunkVector struct {
	CaseNumber string
	ObjectKey  string
	Text       string
	Vector     []float32
}

type Hit struct {
	CaseNumber string
	ObjectKey  string
	Text       string
	Score      float32
}

// pointsAPI is the subset of *qdrant.Client the store calls.
type pointsAPI interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qc.CreateCollection) error
	Upsert(ctx context.Context, request *qc.UpsertPoints) (*qc.UpdateResult, error)
	Query(ctx context.Context, request *qc.QueryPoints) ([]*qc.ScoredPoint, error)
}

type Store struct {
	log    *logger.Logger
	client *qc.Client
	api    pointsAPI
	cfg    Config
}

func NewStore(log *logger.Logger, cfg Config) (*Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := qc.NewClient(&qc.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}
	slog := log.With("service", "qdrant.Store")
	slog.Info("Qdrant client initialized", "host", cfg.Host, "port", cfg.Port, "collection", cfg.Collection)
	return &Store{log: slog, client: client, api: client, cfg: cfg}, nil
}

func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// EnsureCollection creates the chunk collection (cosine distance) when absent.
func (s *Store) EnsureCollection(ctx context.Context) error {
	const op = "ensure_collection"
	exists, err := s.api.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return classifyCallError(op, err)
	}
	if exists {
		return nil
	}
	err = s.api.CreateCollection(ctx, &qc.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qc.NewVectorsConfig(&qc.VectorParams{
			Size:     uint64(s.cfg.VectorDim),
			Distance: qc.Distance_Cosine,
		}),
	})
	if err != nil {
		return classifyCallError(op, err)
	}
	s.log.Info("Created qdrant collection", "collection", s.cfg.Collection, "vector_dim", s.cfg.VectorDim)
	return nil
}

// PointID is stable per object key so re-indexing a case overwrites its points.
func PointID(objectKey string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(strings.TrimSpace(objectKey))).String()
}

func (s *Store) Upsert(ctx context.Context, chunks []ChunkVector) error {
	const op = "upsert"
	if len(chunks) == 0 {
		return nil
	}
	points := make([]*qc.PointStruct, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Vector) != s.cfg.VectorDim {
			return opErr(op, OperationErrorValidation,
				fmt.Sprintf("vector for %q has dim %d, collection expects %d", c.ObjectKey, len(c.Vector), s.cfg.VectorDim), nil)
		}
		points = append(points, &qc.PointStruct{
			Id:      qc.NewID(PointID(c.ObjectKey)),
			Vectors: qc.NewVectors(c.Vector...),
			Payload: qc.NewValueMap(map[string]any{
				payloadCaseNumber: c.CaseNumber,
				payloadObjectKey:  c.ObjectKey,
				payloadText:       c.Text,
			}),
		})
	}
	wait := true
	if _, err := s.api.Upsert(ctx, &qc.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return classifyCallError(op, err)
	}
	return nil
}

// Search returns up to limit hits ordered by similarity.
func (s *Store) Search(ctx context.Context, vector []float32, limit int) ([]Hit, error) {
	const op = "search"
	if len(vector) == 0 {
		return nil, opErr(op, OperationErrorValidation, "query vector is empty", nil)
	}
	if limit <= 0 {
		return []Hit{}, nil
	}
	lim := uint64(limit)
	points, err := s.api.Query(ctx, &qc.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qc.NewQuery(vector...),
		Limit:          &lim,
		WithPayload:    qc.NewWithPayload(true),
	})
	if err != nil {
		return nil, classifyCallError(op, err)
	}
	out := make([]Hit, 0, len(points))
	for _, p := range points {
		if p == nil {
			continue
		}
		payload := p.GetPayload()
		text := payload[payloadText].GetStringValue()
		if strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, Hit{
			CaseNumber: payload[payloadCaseNumber].GetStringValue(),
			ObjectKey:  payload[payloadObjectKey].GetStringValue(),
			Text:       text,
			Score:      p.GetScore(),
		})
	}
	return out, nil
}
