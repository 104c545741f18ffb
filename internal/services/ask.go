package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/postbridge-backend/internal/domain"
	"github.com/yungbote/postbridge-backend/internal/observability"
	"github.com/yungbote/postbridge-backend/internal/platform/apierr"
	"github.com/yungbote/postbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/postbridge-backend/internal/platform/logger"
)

const (
	MsgEmptyQuery = "Please enter a question about the posts."
	MsgTooLong    = "Your question is too long. Please keep it under %d characters."
	MsgInjection  = "Sorry, I can't help with that request. Please ask a question about the posts."
	MsgGeneric    = "Sorry, something went wrong while answering. Please try again."
)

// AskService runs one question through guard, retrieval and generation.
// Every failure still yields a well-formed answer envelope next to an
// *apierr.Error describing it.
type AskService interface {
	Ask(ctx context.Context, query, currentPostID string) (*domain.StructuredAnswer, error)
}

type AskConfig struct {
	TopK         int
	Timeout      time.Duration
	SystemPrompt string
}

type askService struct {
	log       *logger.Logger
	guard     *Guard
	retriever Retriever
	generator AnswerGenerator
	metrics   *observability.Metrics
	tracer    trace.Tracer
	cfg       AskConfig
}

func NewAskService(log *logger.Logger, guard *Guard, retriever Retriever, generator AnswerGenerator, metrics *observability.Metrics, cfg AskConfig) AskService {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt()
	}
	return &askService{
		log:       log.With("service", "AskService"),
		guard:     guard,
		retriever: retriever,
		generator: generator,
		metrics:   metrics,
		tracer:    otel.Tracer(observability.TracerName),
		cfg:       cfg,
	}
}

func (s *askService) Ask(ctx context.Context, query, currentPostID string) (*domain.StructuredAnswer, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	currentPostID = strings.TrimSpace(currentPostID)

	var q string
	err := s.stage(ctx, "ask.guard", func(context.Context) error {
		var gerr error
		q, gerr = s.guard.Validate(query)
		return gerr
	})
	if err != nil {
		return s.fail(ctx, err)
	}

	var contexts []domain.ContextRecord
	err = s.stage(ctx, "ask.retrieve", func(ctx context.Context) error {
		var rerr error
		contexts, rerr = s.retriever.Assemble(ctx, q, currentPostID, s.cfg.TopK)
		return rerr
	})
	if err != nil {
		return s.fail(ctx, err)
	}

	var ans *domain.StructuredAnswer
	err = s.stage(ctx, "ask.generate", func(ctx context.Context) error {
		var gerr error
		ans, gerr = s.generator.Generate(ctx, q, currentPostID, contexts, s.cfg.SystemPrompt)
		return gerr
	})
	if err != nil {
		return s.fail(ctx, err)
	}

	s.metrics.IncAskOutcome("ok")
	return ans, nil
}

func (s *askService) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, name)
	defer span.End()
	start := time.Now()
	err := fn(ctx)
	s.metrics.ObserveAskStage(name, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.code", ClassifyError(err).Code))
	}
	return err
}

func (s *askService) fail(ctx context.Context, err error) (*domain.StructuredAnswer, error) {
	ae := ClassifyError(err)
	if ctx.Err() != nil && ae.Status >= http.StatusInternalServerError {
		ae = apierr.New(http.StatusGatewayTimeout, "timeout", err).WithMessage(MsgGeneric)
	}
	fields := append(ctxutil.LogFields(ctx), "code", ae.Code, "error", err.Error())
	if ae.Status >= http.StatusInternalServerError {
		s.log.Error("Ask failed", fields...)
	} else {
		s.log.Info("Ask rejected", fields...)
	}
	s.metrics.IncAskOutcome(ae.Code)
	return domain.TextAnswer(ae.Message), ae
}

// ClassifyError maps service errors to their transport status, code and
// user-facing message.
func ClassifyError(err error) *apierr.Error {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae
	}
	var tooLong *QueryLengthError
	switch {
	case errors.Is(err, ErrEmptyQuery):
		return apierr.New(http.StatusBadRequest, "empty_query", err).WithMessage(MsgEmptyQuery)
	case errors.As(err, &tooLong):
		return apierr.New(http.StatusBadRequest, "query_too_long", err).WithMessage(fmt.Sprintf(MsgTooLong, tooLong.Max))
	case errors.Is(err, ErrQueryTooLong):
		return apierr.New(http.StatusBadRequest, "query_too_long", err).WithMessage(fmt.Sprintf(MsgTooLong, DefaultMaxQueryChars))
	case errors.Is(err, ErrPromptInjection):
		return apierr.New(http.StatusBadRequest, "prompt_injection_detected", err).WithMessage(MsgInjection)
	case errors.Is(err, ErrMissingRequiredField):
		return apierr.New(http.StatusBadRequest, "missing_required_field", err).WithMessage(err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apierr.New(http.StatusGatewayTimeout, "timeout", err).WithMessage(MsgGeneric)
	case errors.Is(err, ErrSchemaValidation):
		return apierr.New(http.StatusBadGateway, "invalid_model_output", err).WithMessage(MsgGeneric)
	case errors.Is(err, ErrEmbeddingService), errors.Is(err, ErrVectorStore), errors.Is(err, ErrLLMService):
		return apierr.New(http.StatusBadGateway, "upstream_unavailable", err).WithMessage(MsgGeneric)
	default:
		return apierr.New(http.StatusInternalServerError, "internal_error", err).WithMessage(MsgGeneric)
	}
}
