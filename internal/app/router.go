package app

import (
	"github.com/yungbote/postbridge-backend/internal/observability"
	"github.com/yungbote/postbridge-backend/internal/platform/logger"

	httpapi "github.com/yungbote/postbridge-backend/internal/http"
)

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics) *httpapi.Server {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return httpapi.NewServer(httpapi.RouterConfig{
		Log:           log,
		ServiceName:   serviceName,
		CORSOrigins:   cfg.CORSOrigins,
		Metrics:       metrics,
		PostHandler:   handlers.Post,
		AskHandler:    handlers.Ask,
		HealthHandler: handlers.Health,
	})
}
