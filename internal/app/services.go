package app

import (
	"fmt"
	"strings"

	"github.com/yungbote/postbridge-backend/internal/observability"
	"github.com/yungbote/postbridge-backend/internal/platform/logger"
	"github.com/yungbote/postbridge-backend/internal/services"
)

type Services struct {
	Guard        *services.Guard
	GuardWatcher *services.GuardWatcher
	Ingestion    services.IngestionService
	Retriever    services.Retriever
	Generator    services.AnswerGenerator
	Ask          services.AskService
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	// Guard
	guardBase := services.GuardConfig{MaxQueryChars: cfg.GuardMaxQueryChars}
	guardCfg := guardBase
	patternsFile := strings.TrimSpace(cfg.GuardPatternsFile)
	if patternsFile != "" {
		fileCfg, err := services.LoadGuardConfig(patternsFile)
		if err != nil {
			return Services{}, fmt.Errorf("load guard patterns: %w", err)
		}
		guardCfg = services.MergeGuardConfig(guardBase, fileCfg)
	}
	guard := services.NewGuard(guardCfg)
	var watcher *services.GuardWatcher
	if patternsFile != "" {
		w, err := services.NewGuardWatcher(log, guard, patternsFile, guardBase)
		if err != nil {
			log.Warn("Guard pattern hot reload disabled", "path", patternsFile, "error", err)
		} else {
			watcher = w
		}
	}

	// System prompt
	systemPrompt := services.DefaultSystemPrompt()
	if path := strings.TrimSpace(cfg.SystemPromptFile); path != "" {
		p, err := services.LoadSystemPrompt(path)
		if err != nil {
			return Services{}, fmt.Errorf("load system prompt: %w", err)
		}
		systemPrompt = p
	}

	ingestion := services.NewIngestionService(log, clients.OpenAI, clients.VectorStore, services.IngestionConfig{
		Namespace:  cfg.Namespace,
		Dimensions: cfg.EmbedDimensions,
	})
	retriever := services.NewRetriever(log, clients.OpenAI, clients.VectorStore, cfg.Namespace)

	var generator services.AnswerGenerator = services.NewAnswerGenerator(log,
		services.OpenAICompleter{Client: clients.OpenAI, Structured: cfg.StructuredOutput},
		services.AnswerConfig{RepairAttempts: cfg.RepairAttempts},
	)
	generator = services.NewCachingAnswerGenerator(log, generator, clients.Cache, cfg.AnswerCacheTTL, metrics)

	ask := services.NewAskService(log, guard, retriever, generator, metrics, services.AskConfig{
		TopK:         cfg.RetrievalTopK,
		Timeout:      cfg.AskTimeout,
		SystemPrompt: systemPrompt,
	})

	return Services{
		Guard:        guard,
		GuardWatcher: watcher,
		Ingestion:    ingestion,
		Retriever:    retriever,
		Generator:    generator,
		Ask:          ask,
	}, nil
}
