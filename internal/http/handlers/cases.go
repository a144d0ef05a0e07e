package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/casechat-backend/internal/http/response"
	"github.com/yungbote/casechat-backend/internal/modules/ingestion"
	"github.com/yungbote/casechat-backend/internal/platform/gcp"
	"github.com/yungbote/casechat-backend/internal/platform/logger"
)

const maxUploadMemory = 32 << 20

type CaseIngester interface {
	Ingest(ctx context.Context, caseNumber string, files []ingestion.UploadedFile) (ingestion.Result, error)
}

type CaseHandler struct {
	log       *logger.Logger
	ingestion CaseIngester
}

func NewCaseHandler(log *logger.Logger, ingester CaseIngester) *CaseHandler {
	return &CaseHandler{log: log.With("handler", "CaseHandler"), ingestion: ingester}
}

type uploadResp struct {
	CaseNumber string                 `json:"caseNumber"`
	Files      []ingestion.FileResult `json:"files"`
	Index      indexTriggerResp       `json:"index"`
}

type indexTriggerResp struct {
	Result string `json:"result"`
	JobID  string `json:"jobId,omitempty"`
}

// POST /api/cases/upload
func (h *CaseHandler) Upload(c *gin.Context) {
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		response.RespondError(c, http.StatusBadRequest, "invalid_content_type", errors.New("expected multipart/form-data"))
		return
	}
	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_multipart_form", err)
		return
	}
	form := c.Request.MultipartForm
	var (
		headers    []*multipart.FileHeader
		caseNumber string
	)
	if form != nil {
		headers = form.File["files"]
		if v := form.Value["caseNumber"]; len(v) > 0 {
			caseNumber = strings.TrimSpace(v[0])
		}
	}

	files := make([]ingestion.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		files = append(files, ingestion.UploadedFile{
			Name: fh.Filename,
			Size: fh.Size,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	if err := ingestion.ValidateUpload(caseNumber, files); err != nil {
		response.RespondAPIError(c, err, "invalid_upload")
		return
	}

	res, err := h.ingestion.Ingest(c.Request.Context(), caseNumber, files)
	if err != nil {
		if errors.Is(err, gcp.ErrUnreadableDocument) {
			response.RespondError(c, http.StatusUnprocessableEntity, "unreadable_document", err)
			return
		}
		h.log.Error("Case upload failed", "case_number", caseNumber, "files", len(files), "error", err)
		_ = c.Error(err)
		response.RespondAPIError(c, err, "ingest_failed")
		return
	}

	response.RespondOK(c, uploadResp{
		CaseNumber: res.CaseNumber,
		Files:      res.Files,
		Index: indexTriggerResp{
			Result: string(res.Index.Result),
			JobID:  res.Index.JobID,
		},
	})
}
