package app

import (
	"github.com/yungbote/postbridge-backend/internal/http/handlers"
	"github.com/yungbote/postbridge-backend/internal/platform/logger"
)

type Handlers struct {
	Post   *handlers.PostHandler
	Ask    *handlers.AskHandler
	Health *handlers.HealthHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Post:   handlers.NewPostHandler(services.Ingestion),
		Ask:    handlers.NewAskHandler(services.Ask),
		Health: handlers.NewHealthHandler(),
	}
}
