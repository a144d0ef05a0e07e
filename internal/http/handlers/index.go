package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/casechat-backend/internal/http/response"
	"github.com/yungbote/casechat-backend/internal/modules/indexing"
	"github.com/yungbote/casechat-backend/internal/platform/logger"
)

const (
	defaultStatusTimeout = 300 * time.Second
	maxStatusTimeout     = 30 * time.Minute
)

type StatusPoller interface {
	Poll(ctx context.Context, jobID string, timeout, interval time.Duration) (indexing.Status, error)
}

type JobResetter interface {
	Reset(ctx context.Context, jobID string) (indexing.Status, error)
}

type IndexHandler struct {
	log          *logger.Logger
	poller       StatusPoller
	jobs         JobResetter
	pollInterval time.Duration
}

func NewIndexHandler(log *logger.Logger, poller StatusPoller, jobs JobResetter, pollInterval time.Duration) *IndexHandler {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &IndexHandler{
		log:          log.With("handler", "IndexHandler"),
		poller:       poller,
		jobs:         jobs,
		pollInterval: pollInterval,
	}
}

type indexStatusResp struct {
	JobID          string  `json:"jobId,omitempty"`
	Status         string  `json:"status"`
	Message        string  `json:"message"`
	IsComplete     bool    `json:"isComplete"`
	ElapsedTime    float64 `json:"elapsedTime"`
	ItemsProcessed *int    `json:"itemsProcessed,omitempty"`
	ItemsFailed    *int    `json:"itemsFailed,omitempty"`
}

// GET /api/index/status?timeoutSeconds=300&pollIntervalSeconds=5&jobId=
func (h *IndexHandler) Status(c *gin.Context) {
	timeout, err := secondsParam(c, "timeoutSeconds", defaultStatusTimeout)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_timeout", err)
		return
	}
	if timeout > maxStatusTimeout {
		timeout = maxStatusTimeout
	}
	interval, err := secondsParam(c, "pollIntervalSeconds", h.pollInterval)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_poll_interval", err)
		return
	}
	if interval <= 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_poll_interval", errors.New("pollIntervalSeconds must be positive"))
		return
	}
	jobID := strings.TrimSpace(c.Query("jobId"))

	st, err := h.poller.Poll(c.Request.Context(), jobID, timeout, interval)
	if err != nil {
		if errors.Is(err, indexing.ErrJobNotFound) {
			response.RespondError(c, http.StatusNotFound, "index_job_not_found", err)
			return
		}
		h.log.Error("Index status poll failed", "job_id", jobID, "error", err)
		var pe *indexing.PollError
		elapsed := 0.0
		if errors.As(err, &pe) {
			elapsed = pe.Elapsed.Seconds()
		}
		c.JSON(http.StatusInternalServerError, indexStatusResp{
			JobID:       jobID,
			Status:      "poll_error",
			Message:     "Could not read the index job status: " + err.Error(),
			ElapsedTime: elapsed,
		})
		return
	}
	c.JSON(statusCodeFor(st.State), statusBody(st))
}

// POST /api/index/jobs/:id/reset
func (h *IndexHandler) Reset(c *gin.Context) {
	jobID := strings.TrimSpace(c.Param("id"))
	if jobID == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", errors.New("job id required"))
		return
	}
	st, err := h.jobs.Reset(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, indexing.ErrJobNotFound) {
			response.RespondError(c, http.StatusNotFound, "index_job_not_found", err)
			return
		}
		h.log.Error("Index job reset failed", "job_id", jobID, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "reset_failed", err)
		return
	}
	response.RespondOK(c, statusBody(st))
}

func statusCodeFor(s indexing.State) int {
	switch s {
	case indexing.StateSucceeded, indexing.StateReset:
		return http.StatusOK
	case indexing.StateTimedOut:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func statusBody(st indexing.Status) indexStatusResp {
	out := indexStatusResp{
		JobID:          st.JobID,
		Status:         string(st.State),
		IsComplete:     st.State == indexing.StateSucceeded || st.State == indexing.StateReset,
		ElapsedTime:    st.Elapsed.Seconds(),
		ItemsProcessed: st.ItemsProcessed,
		ItemsFailed:    st.ItemsFailed,
	}
	switch st.State {
	case indexing.StateSucceeded:
		out.Message = "Indexing completed successfully."
	case indexing.StateReset:
		out.Message = "Index job was reset."
	case indexing.StateTimedOut:
		out.Message = fmt.Sprintf("Indexing did not finish within %.0f seconds.", st.Elapsed.Seconds())
	case indexing.StateTransientFailure:
		out.Message = "Indexing failed with a transient error."
	default:
		out.Message = "Indexing is in progress."
	}
	if st.ErrorMessage != "" {
		out.Message += " " + st.ErrorMessage
	}
	return out
}

func secondsParam(c *gin.Context, name string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative number of seconds", name)
	}
	return time.Duration(n * float64(time.Second)), nil
}
