package indexing

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// IndexJob is one indexing run over a case's stored chunks.
type IndexJob struct {
	ID             string         `gorm:"column:id;size:36;primaryKey" json:"id"`
	CaseNumber     string         `gorm:"column:case_number;not null;index" json:"case_number"`
	Status         string         `gorm:"column:status;not null;index" json:"status"`
	Attempts       int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	ItemsProcessed int            `gorm:"column:items_processed;not null;default:0" json:"items_processed"`
	ItemsFailed    int            `gorm:"column:items_failed;not null;default:0" json:"items_failed"`
	Error          string         `gorm:"column:error" json:"error,omitempty"`
	FailedKeys     datatypes.JSON `gorm:"column:failed_keys" json:"failed_keys,omitempty"`
	StartedAt      *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	HeartbeatAt    *time.Time     `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	FinishedAt     *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
}

func (IndexJob) TableName() string { return "index_job" }

func (j *IndexJob) BeforeCreate(*gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Status == "" {
		j.Status = string(StatePending)
	}
	return nil
}

// Snapshot converts the row into a Status with known item counts.
func (j *IndexJob) Snapshot() Status {
	processed, failed := j.ItemsProcessed, j.ItemsFailed
	return Status{
		JobID:          j.ID,
		State:          State(j.Status),
		ItemsProcessed: &processed,
		ItemsFailed:    &failed,
		ErrorMessage:   j.Error,
	}
}
