package indexing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yungbote/casechat-backend/internal/platform/db"
	"github.com/yungbote/casechat-backend/internal/platform/logger"
)

type TriggerResult string

const (
	TriggerTriggered      TriggerResult = "triggered"
	TriggerAlreadyRunning TriggerResult = "already_running"
	TriggerRateLimited    TriggerResult = "rate_limited"
	TriggerFailed         TriggerResult = "failed"
)

// TriggerOutcome is the best-effort result of asking for a new index run.
// Only TriggerFailed carries Err.
type TriggerOutcome struct {
	Result TriggerResult
	JobID  string
	Err    error
}

type TriggerConfig struct {
	// Sustained trigger rate and burst for the token bucket.
	PerMinute float64 `yaml:"per_minute"`
	Burst     int     `yaml:"burst"`
}

// Indexer queues index jobs and answers status queries from the job table.
type Indexer struct {
	log     *logger.Logger
	repo    JobRepo
	limiter *rate.Limiter
}

var _ JobStatusSource = (*Indexer)(nil)

func NewIndexer(log *logger.Logger, repo JobRepo, cfg TriggerConfig) (*Indexer, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if repo == nil {
		return nil, fmt.Errorf("job repo required")
	}
	limit := rate.Inf
	if cfg.PerMinute > 0 {
		limit = rate.Limit(cfg.PerMinute / 60.0)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &Indexer{
		log:     log.With("service", "Indexer"),
		repo:    repo,
		limiter: rate.NewLimiter(limit, burst),
	}, nil
}

// Trigger queues an index run for caseNumber unless a queued run for the
// case already exists or the trigger rate is exhausted. A running job has
// already listed the case's chunks, so it does not absorb a new trigger; a
// fresh pending job is queued behind it. Trigger never returns a Go error;
// callers decide what to do with the outcome.
func (x *Indexer) Trigger(ctx context.Context, caseNumber string) TriggerOutcome {
	caseNumber = strings.TrimSpace(caseNumber)
	if caseNumber == "" {
		return TriggerOutcome{Result: TriggerFailed, Err: fmt.Errorf("case number required")}
	}
	dbc := db.Ctx(ctx)

	queued, err := x.repo.PendingForCase(dbc, caseNumber)
	if err != nil {
		return TriggerOutcome{Result: TriggerFailed, Err: fmt.Errorf("lookup pending index job: %w", err)}
	}
	if queued != nil {
		return TriggerOutcome{Result: TriggerAlreadyRunning, JobID: queued.ID}
	}
	if !x.limiter.Allow() {
		return TriggerOutcome{Result: TriggerRateLimited}
	}

	job, err := x.repo.Create(dbc, &IndexJob{CaseNumber: caseNumber, Status: string(StatePending)})
	if err != nil {
		return TriggerOutcome{Result: TriggerFailed, Err: fmt.Errorf("create index job: %w", err)}
	}
	x.log.Info("Index job queued", "job_id", job.ID, "case_number", caseNumber)
	return TriggerOutcome{Result: TriggerTriggered, JobID: job.ID}
}

// JobStatus reads the job row; an empty jobID selects the latest job.
func (x *Indexer) JobStatus(ctx context.Context, jobID string) (Status, error) {
	dbc := db.Ctx(ctx)
	var (
		job *IndexJob
		err error
	)
	if strings.TrimSpace(jobID) == "" {
		job, err = x.repo.Latest(dbc)
	} else {
		job, err = x.repo.Get(dbc, strings.TrimSpace(jobID))
	}
	if err != nil {
		return Status{}, err
	}
	return job.Snapshot(), nil
}

// Reset marks a job reset so pollers stop and a later trigger can queue a
// fresh run. Resetting an already reset job is a no-op.
func (x *Indexer) Reset(ctx context.Context, jobID string) (Status, error) {
	dbc := db.Ctx(ctx)
	job, err := x.repo.Get(dbc, strings.TrimSpace(jobID))
	if err != nil {
		return Status{}, err
	}
	now := time.Now()
	changed, err := x.repo.UpdateFieldsUnlessStatus(dbc, job.ID, []string{string(StateReset)}, map[string]interface{}{
		"status":      string(StateReset),
		"finished_at": now,
	})
	if err != nil {
		return Status{}, fmt.Errorf("reset index job: %w", err)
	}
	if changed {
		x.log.Info("Index job reset", "job_id", job.ID, "previous_status", job.Status)
	}
	job, err = x.repo.Get(dbc, job.ID)
	if err != nil {
		return Status{}, fmt.Errorf("reload index job: %w", err)
	}
	return job.Snapshot(), nil
}
