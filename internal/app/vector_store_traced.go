package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/postbridge-backend/internal/observability"
	"github.com/yungbote/postbridge-backend/internal/platform/pinecone"
)

// instrumentedVectorStore records a span and a latency sample per call.
type instrumentedVectorStore struct {
	provider string
	inner    pinecone.VectorStore
	metrics  *observability.Metrics
	tracer   trace.Tracer
}

func instrumentVectorStore(provider string, inner pinecone.VectorStore, metrics *observability.Metrics) pinecone.VectorStore {
	if inner == nil {
		return nil
	}
	return &instrumentedVectorStore{
		provider: provider,
		inner:    inner,
		metrics:  metrics,
		tracer:   otel.Tracer(observability.TracerName),
	}
}

func (s *instrumentedVectorStore) Upsert(ctx context.Context, namespace string, vectors []pinecone.Vector) error {
	ctx, done := s.start(ctx, "upsert", namespace, attribute.Int("vectorstore.vectors", len(vectors)))
	err := s.inner.Upsert(ctx, namespace, vectors)
	done(err)
	return err
}

func (s *instrumentedVectorStore) QueryMatches(ctx context.Context, namespace string, q pinecone.Query) ([]pinecone.VectorMatch, error) {
	ctx, done := s.start(ctx, "query_matches", namespace, attribute.Int("vectorstore.top_k", q.TopK))
	out, err := s.inner.QueryMatches(ctx, namespace, q)
	done(err)
	return out, err
}

func (s *instrumentedVectorStore) Fetch(ctx context.Context, namespace string, ids []string) (map[string]pinecone.Vector, error) {
	ctx, done := s.start(ctx, "fetch", namespace, attribute.Int("vectorstore.ids", len(ids)))
	out, err := s.inner.Fetch(ctx, namespace, ids)
	done(err)
	return out, err
}

func (s *instrumentedVectorStore) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	ctx, done := s.start(ctx, "delete_ids", namespace, attribute.Int("vectorstore.ids", len(ids)))
	err := s.inner.DeleteIDs(ctx, namespace, ids)
	done(err)
	return err
}

func (s *instrumentedVectorStore) start(ctx context.Context, operation, namespace string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	began := time.Now()
	attrs = append(attrs,
		attribute.String("vectorstore.provider", s.provider),
		attribute.String("vectorstore.namespace", namespace),
	)
	ctx, span := s.tracer.Start(ctx, "vectorstore."+operation, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.metrics.ObserveVectorStoreOperation(s.provider, operation, err, time.Since(began))
	}
}
