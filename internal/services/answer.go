package services

import (
	"context"
	"errors"
	"time"

	"github.com/yungbote/postbridge-backend/internal/domain"
	"github.com/yungbote/postbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/postbridge-backend/internal/platform/logger"
	"github.com/yungbote/postbridge-backend/internal/platform/openai"
)

// LLM completes a single prompt and returns the raw model text.
type LLM interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type AnswerGenerator interface {
	Generate(ctx context.Context, query, anchorID string, contexts []domain.ContextRecord, systemPrompt string) (*domain.StructuredAnswer, error)
}

type AnswerConfig struct {
	// RepairAttempts is the number of extra rounds that send an invalid answer
	// back to the model for correction. 0 disables repair.
	RepairAttempts int
}

type answerGenerator struct {
	log *logger.Logger
	llm LLM
	cfg AnswerConfig
}

func NewAnswerGenerator(log *logger.Logger, llm LLM, cfg AnswerConfig) AnswerGenerator {
	if cfg.RepairAttempts < 0 {
		cfg.RepairAttempts = 0
	}
	return &answerGenerator{
		log: log.With("service", "AnswerGenerator"),
		llm: llm,
		cfg: cfg,
	}
}

func (g *answerGenerator) Generate(ctx context.Context, query, anchorID string, contexts []domain.ContextRecord, systemPrompt string) (*domain.StructuredAnswer, error) {
	prompt := RenderPrompt(systemPrompt, SchemaDescription(), contexts, anchorID, query)

	start := time.Now()
	raw, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, upstream(ErrLLMService, "complete", err)
	}
	ans, perr := ParseAnswer(raw)
	for attempt := 1; perr != nil && attempt <= g.cfg.RepairAttempts; attempt++ {
		g.log.Warn("Model output failed validation; requesting repair",
			append(ctxutil.LogFields(ctx), "attempt", attempt, "error", perr.Error())...,
		)
		raw, err = g.llm.Complete(ctx, repairPrompt(prompt, raw, perr))
		if err != nil {
			return nil, upstream(ErrLLMService, "repair", err)
		}
		ans, perr = ParseAnswer(raw)
	}
	if perr != nil {
		return nil, perr
	}
	g.log.Debug("Answer generated",
		append(ctxutil.LogFields(ctx),
			"type", string(ans.Type),
			"contexts", len(contexts),
			"duration_ms", time.Since(start).Milliseconds(),
		)...,
	)
	return ans, nil
}

// OpenAICompleter adapts the OpenAI client to LLM. With Structured set the
// answer schema is enforced by the provider as well.
type OpenAICompleter struct {
	Client     openai.Client
	Structured bool
}

const completerSystem = "Follow the instructions in the user message exactly. Respond with the JSON object only."

func (c OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if c.Client == nil {
		return "", errors.New("openai client not configured")
	}
	if c.Structured {
		return c.Client.GenerateJSON(ctx, completerSystem, prompt, AnswerSchemaName, AnswerSchema())
	}
	return c.Client.GenerateText(ctx, completerSystem, prompt)
}
