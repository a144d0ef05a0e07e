package indexing

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type State string

const (
	StatePending          State = "pending"
	StateRunning          State = "running"
	StateSucceeded        State = "succeeded"
	StateTransientFailure State = "transient_failure"
	StateReset            State = "reset"
	StateTimedOut         State = "timed_out"
)

// Terminal reports whether polling stops at s.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateTransientFailure, StateReset, StateTimedOut:
		return true
	default:
		return false
	}
}

// Status is a job snapshot. Item counts are nil when unknown, which is always
// the case for a timed_out status.
type Status struct {
	JobID          string
	State          State
	ItemsProcessed *int
	ItemsFailed    *int
	ErrorMessage   string
	Elapsed        time.Duration
}

var ErrJobNotFound = errors.New("index job not found")

// JobStatusSource reports the current state of an indexing job. An empty
// jobID means the most recent job.
type JobStatusSource interface {
	JobStatus(ctx context.Context, jobID string) (Status, error)
}

// PollError means the status query itself failed, as opposed to the job
// reporting a failure.
type PollError struct {
	JobID   string
	Elapsed time.Duration
	Err     error
}

func (e *PollError) Error() string {
	if e == nil {
		return "index status poll failed"
	}
	return fmt.Sprintf("index status poll failed (job=%s elapsed=%s): %v", e.JobID, e.Elapsed, e.Err)
}

func (e *PollError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
