package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/casechat-backend/internal/http"
	httpH "github.com/yungbote/casechat-backend/internal/http/handlers"
	"github.com/yungbote/casechat-backend/internal/platform/logger"
)

type Handlers struct {
	Health *httpH.HealthHandler
	Chat   *httpH.ChatHandler
	Case   *httpH.CaseHandler
	Index  *httpH.IndexHandler
}

func wireHandlers(log *logger.Logger, cfg Config, services Services) Handlers {
	log.Info("Wiring handlers...")
	h := Handlers{Health: httpH.NewHealthHandler()}
	if services.Orchestrator != nil {
		h.Chat = httpH.NewChatHandler(log, services.Orchestrator)
	}
	if services.Ingestion != nil {
		h.Case = httpH.NewCaseHandler(log, services.Ingestion)
	}
	if services.Poller != nil && services.Indexer != nil {
		h.Index = httpH.NewIndexHandler(log, services.Poller, services.Indexer, cfg.Index.PollInterval)
	}
	return h
}

func wireRouter(log *logger.Logger, cfg Config, handlers Handlers) *gin.Engine {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return http.NewRouter(http.RouterConfig{
		Log:            log,
		ServiceName:    serviceName,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		ChatHandler:    handlers.Chat,
		CaseHandler:    handlers.Case,
		IndexHandler:   handlers.Index,
		HealthHandler:  handlers.Health,
	})
}
