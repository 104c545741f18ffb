package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/postbridge-backend/internal/observability"
	"github.com/yungbote/postbridge-backend/internal/platform/logger"
	"github.com/yungbote/postbridge-backend/internal/platform/openai"
	"github.com/yungbote/postbridge-backend/internal/platform/pinecone"
	"github.com/yungbote/postbridge-backend/internal/platform/redis"
)

type Clients struct {
	OpenAI      openai.Client
	VectorStore pinecone.VectorStore
	// Cache is nil when REDIS_ADDR is unset.
	Cache redis.Cache
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")

	// Openai
	oa, err := openai.NewClient(log, openai.Config{
		APIKey:            cfg.OpenAIAPIKey,
		BaseURL:           cfg.OpenAIBaseURL,
		Model:             cfg.OpenAIModel,
		EmbedModel:        cfg.OpenAIEmbedModel,
		EmbedDimensions:   cfg.EmbedDimensions,
		Timeout:           cfg.OpenAITimeout,
		MaxRetries:        cfg.OpenAIMaxRetries,
		Temperature:       cfg.OpenAITemperature,
		RequestsPerSecond: cfg.OpenAIRequestsPerSecond,
	})
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	// Vector store
	vs, err := resolveVectorStore(ctx, log, cfg, metrics)
	if err != nil {
		return Clients{}, err
	}

	// Redis
	var cache redis.Cache
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		c, err := redis.NewCache(ctx, log, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   "postbridge:",
		})
		if err != nil {
			// The cache is optional; answers are still generated without it.
			log.Warn("Redis unavailable; answer cache disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			cache = c
		}
	}

	return Clients{OpenAI: oa, VectorStore: vs, Cache: cache}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
}
