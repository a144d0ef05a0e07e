package ingestion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/casechat-backend/internal/modules/indexing"
	"github.com/yungbote/casechat-backend/internal/modules/ingestion/chunker"
	"github.com/yungbote/casechat-backend/internal/modules/ingestion/keys"
	"github.com/yungbote/casechat-backend/internal/platform/apierr"
	"github.com/yungbote/casechat-backend/internal/platform/blob"
	"github.com/yungbote/casechat-backend/internal/platform/logger"
)

type TextExtractor interface {
	ExtractText(ctx context.Context, filename string, data []byte) (string, error)
}

type IndexTrigger interface {
	Trigger(ctx context.Context, caseNumber string) indexing.TriggerOutcome
}

// UploadedFile is one PDF to ingest. Open is called once.
type UploadedFile struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

func FileFromBytes(name string, data []byte) UploadedFile {
	return UploadedFile{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

type FileResult struct {
	Name      string `json:"name"`
	SourceKey string `json:"sourceKey"`
	Chunks    int    `json:"chunks"`
}

type Result struct {
	CaseNumber string                  `json:"caseNumber"`
	Files      []FileResult            `json:"files"`
	Index      indexing.TriggerOutcome `json:"-"`
}

type Config struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	Concurrency  int `yaml:"concurrency"`
}

// ChunkObjectKey names the stored object for chunk index of filename.
func ChunkObjectKey(filename string, index int) string {
	return keys.ChunkObjectName(filename, index)
}

// ValidateUpload checks files before the case number, each file non-empty
// with a .pdf extension. Errors are 400s naming the file or field.
func ValidateUpload(caseNumber string, files []UploadedFile) error {
	if len(files) == 0 {
		return apierr.BadRequest("missing_files", errors.New("at least one file is required in field \"files\""))
	}
	for _, f := range files {
		name := keys.BaseName(f.Name)
		if strings.TrimSpace(f.Name) == "" || f.Size <= 0 {
			return apierr.BadRequest("empty_file", fmt.Errorf("file %q is empty", f.Name))
		}
		if !strings.EqualFold(path.Ext(name), ".pdf") {
			return apierr.BadRequest("invalid_file_type", fmt.Errorf("file %q is not a .pdf", f.Name))
		}
	}
	if strings.TrimSpace(caseNumber) == "" {
		return apierr.BadRequest("missing_case_number", errors.New("field \"caseNumber\" is required"))
	}
	if !keys.ValidCaseNumber(caseNumber) {
		return apierr.BadRequest("invalid_case_number", errors.New("field \"caseNumber\" contains a path separator"))
	}
	return nil
}

// Service stores uploaded case PDFs, extracts and chunks their text, stores
// the chunks and asks for an index run.
type Service struct {
	log       *logger.Logger
	blobs     blob.Store
	extractor TextExtractor
	trigger   IndexTrigger
	cfg       Config
}

func NewService(log *logger.Logger, blobs blob.Store, extractor TextExtractor, trigger IndexTrigger, cfg Config) (*Service, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if blobs == nil || extractor == nil || trigger == nil {
		return nil, fmt.Errorf("ingestion: blob store, extractor and trigger are required")
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 4
	}
	if _, err := chunker.Split("", cfg.ChunkSize, cfg.ChunkOverlap); err != nil {
		return nil, err
	}
	return &Service{
		log:       log.With("service", "IngestionService"),
		blobs:     blobs,
		extractor: extractor,
		trigger:   trigger,
		cfg:       cfg,
	}, nil
}

func (s *Service) Ingest(ctx context.Context, caseNumber string, files []UploadedFile) (Result, error) {
	caseNumber = strings.TrimSpace(caseNumber)
	if err := ValidateUpload(caseNumber, files); err != nil {
		return Result{}, err
	}

	results := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, f := range files {
		g.Go(func() error {
			fr, err := s.ingestFile(gctx, caseNumber, f)
			if err != nil {
				return err
			}
			results[i] = fr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	out := s.trigger.Trigger(ctx, caseNumber)
	switch out.Result {
	case indexing.TriggerTriggered:
		s.log.Info("Index run triggered", "case_number", caseNumber, "job_id", out.JobID)
	case indexing.TriggerAlreadyRunning, indexing.TriggerRateLimited:
		s.log.Info("Index trigger skipped", "case_number", caseNumber, "result", out.Result, "job_id", out.JobID)
	default:
		s.log.Warn("Index trigger failed", "case_number", caseNumber, "error", out.Err)
	}
	return Result{CaseNumber: caseNumber, Files: results, Index: out}, nil
}

func (s *Service) ingestFile(ctx context.Context, caseNumber string, f UploadedFile) (FileResult, error) {
	rc, err := f.Open()
	if err != nil {
		return FileResult{}, fmt.Errorf("open %s: %w", f.Name, err)
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return FileResult{}, fmt.Errorf("read %s: %w", f.Name, err)
	}

	sourceKey := keys.SourceKey(caseNumber, f.Name)
	if err := s.blobs.Put(ctx, sourceKey, data, "application/pdf"); err != nil {
		return FileResult{}, fmt.Errorf("store %s: %w", f.Name, err)
	}

	text, err := s.extractor.ExtractText(ctx, keys.BaseName(f.Name), data)
	if err != nil {
		return FileResult{}, fmt.Errorf("extract %s: %w", f.Name, err)
	}
	chunks, err := chunker.Split(text, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if err != nil {
		return FileResult{}, err
	}
	for _, c := range chunks {
		key := keys.ChunkKey(caseNumber, f.Name, c.Index)
		if err := s.blobs.Put(ctx, key, []byte(c.Text), "text/plain; charset=utf-8"); err != nil {
			return FileResult{}, fmt.Errorf("store chunk %s: %w", key, err)
		}
	}
	s.log.Info("Stored case document", "case_number", caseNumber, "file", keys.BaseName(f.Name), "chunks", len(chunks))
	return FileResult{Name: keys.BaseName(f.Name), SourceKey: sourceKey, Chunks: len(chunks)}, nil
}
