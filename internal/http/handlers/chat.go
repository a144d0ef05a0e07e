package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/casechat-backend/internal/http/response"
	"github.com/yungbote/casechat-backend/internal/modules/chat"
	"github.com/yungbote/casechat-backend/internal/platform/ctxutil"
	"github.com/yungbote/casechat-backend/internal/platform/httpx"
	"github.com/yungbote/casechat-backend/internal/platform/logger"
	"github.com/yungbote/casechat-backend/internal/platform/redisx"
)

const (
	headerSessionID = "X-Session-Id"
	maxChatBody     = 64 << 10
)

type ChatResponder interface {
	Respond(ctx context.Context, sessionID, query string) (chat.Reply, error)
}

type ChatHandler struct {
	log  *logger.Logger
	chat ChatResponder
}

func NewChatHandler(log *logger.Logger, responder ChatResponder) *ChatHandler {
	return &ChatHandler{log: log.With("handler", "ChatHandler"), chat: responder}
}

type chatReq struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxChatBody+1))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if len(raw) > maxChatBody {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "message_too_large", nil)
		return
	}
	req := parseChatBody(raw)

	sessionID := strings.TrimSpace(req.SessionID)
	if !chat.ValidSessionID(sessionID) {
		sessionID = uuid.NewString()
	}
	c.Header(headerSessionID, sessionID)
	ctxutil.SetSessionID(c.Request.Context(), sessionID)

	reply, err := h.chat.Respond(c.Request.Context(), sessionID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyQuery):
			response.RespondError(c, http.StatusBadRequest, "empty_message", err)
		case errors.Is(err, redisx.ErrLockBusy):
			response.RespondError(c, http.StatusConflict, "session_busy", err)
		case errors.Is(err, context.DeadlineExceeded):
			response.RespondError(c, http.StatusGatewayTimeout, "chat_timeout", err)
		case httpx.IsRateLimited(err):
			h.log.Warn("Model rate limited", "session_id", sessionID, "error", err)
			response.RespondError(c, http.StatusServiceUnavailable, "model_rate_limited", errors.New("the model is busy, try again shortly"))
		default:
			h.log.Error("Chat reply failed", "session_id", sessionID, "error", err)
			_ = c.Error(err)
			response.RespondError(c, http.StatusBadGateway, "chat_failed", errors.New("could not produce a reply"))
		}
		return
	}

	if c.NegotiateFormat(gin.MIMEPlain, gin.MIMEHTML) == gin.MIMEHTML {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(renderHTML(reply.Text)))
		return
	}
	c.String(http.StatusOK, reply.Text)
}

// A body that decodes as {sessionId, message} with a non-blank message is
// used as is, whatever the Content-Type. Anything else is the raw message
// of a new session.
func parseChatBody(raw []byte) chatReq {
	var req chatReq
	if err := json.Unmarshal(raw, &req); err == nil && strings.TrimSpace(req.Message) != "" {
		return req
	}
	return chatReq{Message: string(raw)}
}

func renderHTML(text string) string {
	paras := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	var b strings.Builder
	for _, p := range paras {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(p), "\n", "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}
