package services

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyQuery           = errors.New("empty query")
	ErrQueryTooLong         = errors.New("query too long")
	ErrPromptInjection      = errors.New("prompt injection detected")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrEmbeddingService     = errors.New("embedding service error")
	ErrVectorStore          = errors.New("vector store error")
	ErrLLMService           = errors.New("llm service error")
	ErrSchemaValidation     = errors.New("model output failed schema validation")

	errEmptyEmbedding = errors.New("no embedding returned")
)

// QueryLengthError reports a query over the configured limit. It matches
// ErrQueryTooLong under errors.Is.
type QueryLengthError struct {
	Length int
	Max    int
}

func (e *QueryLengthError) Error() string {
	return fmt.Sprintf("%s: %d characters (max %d)", ErrQueryTooLong, e.Length, e.Max)
}

func (e *QueryLengthError) Unwrap() error { return ErrQueryTooLong }

// upstream wraps a provider error under one of the service sentinels while
// keeping the provider error reachable.
func upstream(kind error, op string, err error) error {
	return fmt.Errorf("%w: %s: %w", kind, op, err)
}
