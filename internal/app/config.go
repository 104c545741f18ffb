package app

import (
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/postbridge-backend/internal/observability"
	"github.com/yungbote/postbridge-backend/internal/platform/envutil"
	"github.com/yungbote/postbridge-backend/internal/platform/logger"
)

type Config struct {
	Port    string
	LogMode string

	VectorProvider string
	Namespace      string

	PineconeAPIKey          string
	PineconeAPIVersion      string
	PineconeBaseURL         string
	PineconeIndexName       string
	PineconeIndexHost       string
	PineconeNamespacePrefix string

	QdrantURL             string
	QdrantAPIKey          string
	QdrantCollection      string
	QdrantNamespacePrefix string
	QdrantCreateIfMissing bool

	OpenAIAPIKey            string
	OpenAIBaseURL           string
	OpenAIModel             string
	OpenAIEmbedModel        string
	EmbedDimensions         int
	OpenAIMaxRetries        int
	OpenAIRequestsPerSecond float64
	OpenAITemperature       *float64
	OpenAITimeout           time.Duration
	StructuredOutput        bool

	GuardPatternsFile  string
	GuardMaxQueryChars int
	RetrievalTopK      int
	AskTimeout         time.Duration
	RepairAttempts     int
	SystemPromptFile   string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	AnswerCacheTTL time.Duration

	CORSOrigins    []string
	MetricsEnabled bool
	Otel           observability.OtelConfig
}

// LoadConfig reads .env (when present) and then the process environment.
func LoadConfig(log *logger.Logger) Config {
	if err := godotenv.Load(); err == nil {
		log.Info("Loaded .env file")
	}

	cfg := Config{
		Port:    envutil.String("PORT", "8000"),
		LogMode: envutil.String("LOG_MODE", "development"),

		VectorProvider: strings.ToLower(envutil.String("VECTOR_PROVIDER", string(VectorProviderPinecone))),
		Namespace:      envutil.String("POST_NAMESPACE", ""),

		PineconeAPIKey:          envutil.String("PINECONE_API_KEY", ""),
		PineconeAPIVersion:      envutil.String("PINECONE_API_VERSION", "2025-10"),
		PineconeBaseURL:         envutil.String("PINECONE_BASE_URL", "https://api.pinecone.io"),
		PineconeIndexName:       envutil.String("PINECONE_INDEX_NAME", "posts"),
		PineconeIndexHost:       envutil.String("PINECONE_INDEX_HOST", ""),
		PineconeNamespacePrefix: envutil.String("PINECONE_NAMESPACE_PREFIX", ""),

		QdrantURL:             envutil.String("QDRANT_URL", ""),
		QdrantAPIKey:          envutil.String("QDRANT_API_KEY", ""),
		QdrantCollection:      envutil.String("QDRANT_COLLECTION", "posts"),
		QdrantNamespacePrefix: envutil.String("QDRANT_NAMESPACE_PREFIX", ""),
		QdrantCreateIfMissing: envutil.Bool("QDRANT_CREATE_IF_MISSING", true),

		OpenAIAPIKey:            envutil.String("OPENAI_API_KEY", ""),
		OpenAIBaseURL:           envutil.String("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIModel:             envutil.String("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIEmbedModel:        envutil.String("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		EmbedDimensions:         envutil.Int("OPENAI_EMBED_DIMENSIONS", 512),
		OpenAIMaxRetries:        envutil.Int("OPENAI_MAX_RETRIES", 2),
		OpenAIRequestsPerSecond: envutil.Float("OPENAI_REQUESTS_PER_SECOND", 0),
		OpenAITimeout:           envutil.Seconds("OPENAI_TIMEOUT_SECONDS", 60*time.Second),
		StructuredOutput:        envutil.Bool("LLM_STRUCTURED_OUTPUT", true),

		GuardPatternsFile:  envutil.String("GUARD_PATTERNS_FILE", ""),
		GuardMaxQueryChars: envutil.Int("GUARD_MAX_QUERY_CHARS", 0),
		RetrievalTopK:      envutil.Int("RETRIEVAL_TOP_K", 5),
		AskTimeout:         envutil.Seconds("ASK_TIMEOUT_SECONDS", 60*time.Second),
		RepairAttempts:     envutil.Int("ANSWER_REPAIR_ATTEMPTS", 1),
		SystemPromptFile:   envutil.String("SYSTEM_PROMPT_FILE", ""),

		RedisAddr:      envutil.String("REDIS_ADDR", ""),
		RedisPassword:  envutil.String("REDIS_PASSWORD", ""),
		RedisDB:        envutil.Int("REDIS_DB", 0),
		AnswerCacheTTL: envutil.Seconds("ANSWER_CACHE_TTL_SECONDS", 10*time.Minute),

		CORSOrigins:    envutil.CSV("CORS_ALLOW_ORIGINS", []string{"*"}),
		MetricsEnabled: envutil.Bool("METRICS_ENABLED", true),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "postbridge-backend"),
			Environment: envutil.String("OTEL_ENVIRONMENT", envutil.String("APP_ENV", "development")),
			Version:     envutil.String("OTEL_SERVICE_VERSION", "dev"),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     observability.ParseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 1),
		},
	}
	if envutil.String("OPENAI_TEMPERATURE", "") != "" {
		t := envutil.Float("OPENAI_TEMPERATURE", 0.2)
		cfg.OpenAITemperature = &t
	}
	return cfg
}
