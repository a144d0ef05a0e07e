package indexing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/casechat-backend/internal/modules/ingestion/keys"
	"github.com/yungbote/casechat-backend/internal/platform/blob"
	"github.com/yungbote/casechat-backend/internal/platform/db"
	"github.com/yungbote/casechat-backend/internal/platform/logger"
	"github.com/yungbote/casechat-backend/internal/platform/qdrant"
)

type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type VectorIndex interface {
	Upsert(ctx context.Context, chunks []qdrant.ChunkVector) error
}

type WorkerConfig struct {
	Concurrency  int           `yaml:"concurrency"`
	PollEvery    time.Duration `yaml:"poll_every"`
	StaleRunning time.Duration `yaml:"stale_running"`
	BatchSize    int           `yaml:"batch_size"`
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.PollEvery <= 0 {
		c.PollEvery = time.Second
	}
	if c.StaleRunning <= 0 {
		c.StaleRunning = 30 * time.Minute
	}
	if c.BatchSize < 1 {
		c.BatchSize = 32
	}
	return c
}

// Worker claims queued index jobs, embeds the case's stored chunks and
// upserts them into the vector index.
type Worker struct {
	log      *logger.Logger
	repo     JobRepo
	blobs    blob.Store
	embedder Embedder
	index    VectorIndex
	cfg      WorkerConfig
}

func NewWorker(baseLog *logger.Logger, repo JobRepo, blobs blob.Store, embedder Embedder, index VectorIndex, cfg WorkerConfig) (*Worker, error) {
	if baseLog == nil {
		return nil, fmt.Errorf("logger required")
	}
	if repo == nil || blobs == nil || embedder == nil || index == nil {
		return nil, fmt.Errorf("index worker: repo, blob store, embedder and vector index are required")
	}
	return &Worker{
		log:      baseLog.With("component", "IndexWorker"),
		repo:     repo,
		blobs:    blobs,
		embedder: embedder,
		index:    index,
		cfg:      cfg.withDefaults(),
	}, nil
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting index worker pool", "concurrency", w.cfg.Concurrency)
	for i := 0; i < w.cfg.Concurrency; i++ {
		go w.runLoop(ctx, i+1)
	}
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.log.Warn("Index worker iteration failed", "worker_id", workerID, "error", err)
			}
		}
	}
}

// RunOnce claims and processes at most one job. It reports whether a job ran.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.repo.ClaimNextRunnable(db.Ctx(ctx), w.cfg.StaleRunning)
	if err != nil {
		return false, fmt.Errorf("claim index job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("Index job panic", "job_id", job.ID, "panic", r)
				w.finish(ctx, job.ID, StateTransientFailure, progress{}, "panic: unexpected error")
			}
		}()
		w.process(ctx, job)
	}()
	return true, nil
}

type progress struct {
	processed  int
	failed     int
	failedKeys []string
}

func (w *Worker) process(ctx context.Context, job *IndexJob) {
	log := w.log.With("job_id", job.ID, "case_number", job.CaseNumber)
	objectKeys, err := w.blobs.List(ctx, keys.ChunksPrefix(job.CaseNumber))
	if err != nil {
		log.Warn("List chunks failed", "error", err)
		w.finish(ctx, job.ID, StateTransientFailure, progress{}, fmt.Sprintf("list chunks: %v", err))
		return
	}

	var p progress
	for start := 0; start < len(objectKeys); start += w.cfg.BatchSize {
		if ctx.Err() != nil {
			return
		}
		end := start + w.cfg.BatchSize
		if end > len(objectKeys) {
			end = len(objectKeys)
		}
		if err := w.repo.Heartbeat(db.Ctx(ctx), job.ID); err != nil {
			log.Warn("Index heartbeat failed", "error", err)
		}
		w.indexBatch(ctx, job.CaseNumber, objectKeys[start:end], &p)

		// A reset during the run stops it; the reset status is kept.
		stillRunning, err := w.repo.UpdateFieldsUnlessStatus(db.Ctx(ctx), job.ID, []string{string(StateReset)}, map[string]interface{}{
			"items_processed": p.processed,
			"items_failed":    p.failed,
		})
		if err != nil {
			log.Warn("Index progress update failed", "error", err)
		} else if !stillRunning {
			log.Info("Index job reset while running; stopping")
			return
		}
	}

	state := StateSucceeded
	msg := ""
	if p.failed > 0 {
		msg = fmt.Sprintf("%d of %d chunks failed to index", p.failed, len(objectKeys))
		if p.processed == 0 {
			state = StateTransientFailure
		}
	}
	w.finish(ctx, job.ID, state, p, msg)
	log.Info("Index job done", "state", state, "items_processed", p.processed, "items_failed", p.failed)
}

func (w *Worker) indexBatch(ctx context.Context, caseNumber string, batch []string, p *progress) {
	fail := func(ks ...string) {
		p.failed += len(ks)
		p.failedKeys = append(p.failedKeys, ks...)
	}

	texts := make([]string, 0, len(batch))
	loaded := make([]string, 0, len(batch))
	for _, key := range batch {
		b, err := w.blobs.Get(ctx, key)
		if err != nil {
			w.log.Warn("Read chunk failed", "key", key, "error", err)
			fail(key)
			continue
		}
		texts = append(texts, string(b))
		loaded = append(loaded, key)
	}
	if len(loaded) == 0 {
		return
	}

	vecs, err := w.embedder.Embed(ctx, texts)
	if err != nil || len(vecs) != len(texts) {
		w.log.Warn("Embed batch failed", "batch", len(texts), "error", err)
		fail(loaded...)
		return
	}
	points := make([]qdrant.ChunkVector, len(loaded))
	for i := range loaded {
		points[i] = qdrant.ChunkVector{
			CaseNumber: caseNumber,
			ObjectKey:  loaded[i],
			Text:       texts[i],
			Vector:     vecs[i],
		}
	}
	if err := w.index.Upsert(ctx, points); err != nil {
		w.log.Warn("Vector upsert failed", "batch", len(points), "error", err)
		fail(loaded...)
		return
	}
	p.processed += len(points)
}

func (w *Worker) finish(ctx context.Context, jobID string, state State, p progress, msg string) {
	updates := map[string]interface{}{
		"status":          string(state),
		"items_processed": p.processed,
		"items_failed":    p.failed,
		"error":           msg,
		"finished_at":     time.Now(),
	}
	if len(p.failedKeys) > 0 {
		if raw, err := json.Marshal(p.failedKeys); err == nil {
			updates["failed_keys"] = datatypes.JSON(raw)
		}
	}
	// Finishing must land even if the worker is shutting down.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if _, err := w.repo.UpdateFieldsUnlessStatus(db.Ctx(fctx), jobID, []string{string(StateReset)}, updates); err != nil {
		w.log.Error("Finish index job failed", "job_id", jobID, "error", err)
	}
}
