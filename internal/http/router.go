package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/casechat-backend/internal/http/handlers"
	httpMW "github.com/yungbote/casechat-backend/internal/http/middleware"
	"github.com/yungbote/casechat-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string

	ChatHandler   *httpH.ChatHandler
	CaseHandler   *httpH.CaseHandler
	IndexHandler  *httpH.IndexHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.ChatHandler != nil {
			api.POST("/chat", cfg.ChatHandler.Chat)
		}

		if cfg.CaseHandler != nil {
			api.POST("/cases/upload", cfg.CaseHandler.Upload)
		}

		if cfg.IndexHandler != nil {
			api.GET("/index/status", cfg.IndexHandler.Status)
			api.POST("/index/jobs/:id/reset", cfg.IndexHandler.Reset)
		}
	}

	return r
}
