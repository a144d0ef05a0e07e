package indexing

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/casechat-backend/internal/platform/httpx"
	"github.com/yungbote/casechat-backend/internal/platform/logger"
)

// Poller waits for an indexing job to reach a terminal state within a bounded
// time.
type Poller struct {
	log    *logger.Logger
	source JobStatusSource
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewPoller(log *logger.Logger, source JobStatusSource) (*Poller, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if source == nil {
		return nil, fmt.Errorf("job status source required")
	}
	return &Poller{
		log:    log.With("service", "IndexJobPoller"),
		source: source,
		now:    time.Now,
		sleep:  httpx.Sleep,
	}, nil
}

// Poll queries the job once per interval until it reports succeeded,
// transient_failure or reset, or until more than timeout has elapsed. A
// status read at exactly elapsed == timeout is honored. Query failures and
// cancellation come back as *PollError; a timeout is a timed_out Status.
func (p *Poller) Poll(ctx context.Context, jobID string, timeout, interval time.Duration) (Status, error) {
	start := p.now()
	for polls := 1; ; polls++ {
		elapsed := p.now().Sub(start)
		if elapsed > timeout {
			p.log.Info("Index job poll timed out", "job_id", jobID, "elapsed", elapsed.String(), "polls", polls-1)
			return Status{JobID: jobID, State: StateTimedOut, Elapsed: elapsed}, nil
		}

		st, err := p.source.JobStatus(ctx, jobID)
		if err != nil {
			return Status{}, &PollError{JobID: jobID, Elapsed: p.now().Sub(start), Err: err}
		}
		st.Elapsed = p.now().Sub(start)
		if st.JobID == "" {
			st.JobID = jobID
		}

		switch st.State {
		case StateSucceeded, StateTransientFailure, StateReset:
			p.log.Info("Index job finished", "job_id", st.JobID, "state", st.State, "elapsed", st.Elapsed.String(), "polls", polls)
			return st, nil
		case StatePending, StateRunning:
		default:
			return Status{}, &PollError{JobID: jobID, Elapsed: st.Elapsed, Err: fmt.Errorf("unexpected job state %q", st.State)}
		}

		if err := p.sleep(ctx, interval); err != nil {
			return Status{}, &PollError{JobID: jobID, Elapsed: p.now().Sub(start), Err: err}
		}
	}
}
