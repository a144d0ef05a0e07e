package indexing

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/casechat-backend/internal/platform/db"
	"github.com/yungbote/casechat-backend/internal/platform/logger"
)

type JobRepo interface {
	Create(dbc db.Context, job *IndexJob) (*IndexJob, error)
	Get(dbc db.Context, id string) (*IndexJob, error)
	Latest(dbc db.Context) (*IndexJob, error)
	PendingForCase(dbc db.Context, caseNumber string) (*IndexJob, error)
	ClaimNextRunnable(dbc db.Context, staleRunning time.Duration) (*IndexJob, error)
	UpdateFieldsUnlessStatus(dbc db.Context, id string, disallowedStatuses []string, updates map[string]interface{}) (bool, error)
	Heartbeat(dbc db.Context, id string) error
}

type jobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRepo(gdb *gorm.DB, baseLog *logger.Logger) JobRepo {
	return &jobRepo{
		db:  gdb,
		log: baseLog.With("repo", "IndexJobRepo"),
	}
}

func (r *jobRepo) Create(dbc db.Context, job *IndexJob) (*IndexJob, error) {
	if err := dbc.Conn(r.db).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

// Get returns ErrJobNotFound when no row has id.
func (r *jobRepo) Get(dbc db.Context, id string) (*IndexJob, error) {
	var job IndexJob
	err := dbc.Conn(r.db).Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepo) Latest(dbc db.Context) (*IndexJob, error) {
	var job IndexJob
	err := dbc.Conn(r.db).Order("created_at DESC").First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// PendingForCase returns the queued, not yet claimed job for caseNumber, or nil.
func (r *jobRepo) PendingForCase(dbc db.Context, caseNumber string) (*IndexJob, error) {
	var jobs []IndexJob
	err := dbc.Conn(r.db).
		Where("case_number = ? AND status = ?", caseNumber, string(StatePending)).
		Order("created_at DESC").
		Limit(1).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return &jobs[0], nil
}

// ClaimNextRunnable moves the oldest pending job, or a running job whose
// heartbeat is older than staleRunning, to running and returns it.
func (r *jobRepo) ClaimNextRunnable(dbc db.Context, staleRunning time.Duration) (*IndexJob, error) {
	now := time.Now()
	staleCutoff := now.Add(-staleRunning)
	var claimed *IndexJob
	err := dbc.Conn(r.db).Transaction(func(txx *gorm.DB) error {
		q := txx
		if txx.Dialector.Name() == db.DriverPostgres {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		var jobs []IndexJob
		qErr := q.Where(`
        (
          status = ?
          OR (
            status = ?
            AND heartbeat_at IS NOT NULL
            AND heartbeat_at < ?
          )
        )
      `, string(StatePending), string(StateRunning), staleCutoff).
			Order("created_at ASC").
			Limit(1).
			Find(&jobs).Error
		if qErr != nil {
			return qErr
		}
		if len(jobs) == 0 {
			return nil
		}
		job := jobs[0]
		res := txx.Model(&IndexJob{}).
			Where("id = ? AND status = ?", job.ID, job.Status).
			Updates(map[string]interface{}{
				"status":       string(StateRunning),
				"attempts":     gorm.Expr("attempts + 1"),
				"started_at":   now,
				"heartbeat_at": now,
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		job.Status = string(StateRunning)
		job.Attempts++
		job.StartedAt = &now
		job.HeartbeatAt = &now
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// UpdateFieldsUnlessStatus applies updates only while the job is not in one
// of disallowedStatuses and reports whether a row changed.
func (r *jobRepo) UpdateFieldsUnlessStatus(dbc db.Context, id string, disallowedStatuses []string, updates map[string]interface{}) (bool, error) {
	if id == "" {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}

	q := dbc.Conn(r.db).
		Model(&IndexJob{}).
		Where("id = ?", id)
	if len(disallowedStatuses) == 1 {
		q = q.Where("status <> ?", disallowedStatuses[0])
	} else if len(disallowedStatuses) > 1 {
		q = q.Where("status NOT IN ?", disallowedStatuses)
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Heartbeat refreshes heartbeat_at while the job is still running, which
// keeps ClaimNextRunnable from treating it as stale.
func (r *jobRepo) Heartbeat(dbc db.Context, id string) error {
	if id == "" {
		return nil
	}
	now := time.Now()
	return dbc.Conn(r.db).
		Model(&IndexJob{}).
		Where("id = ? AND status = ?", id, string(StateRunning)).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}
