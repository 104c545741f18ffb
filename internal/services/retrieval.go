package services

import (
	"context"
	"strings"

	"github.com/yungbote/postbridge-backend/internal/domain"
	"github.com/yungbote/postbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/postbridge-backend/internal/platform/logger"
	"github.com/yungbote/postbridge-backend/internal/platform/pinecone"
)

const DefaultTopK = 5

// Retriever assembles the context set for one question: the top-K semantic
// matches plus the post the user is viewing.
type Retriever interface {
	Assemble(ctx context.Context, query string, anchorID string, topK int) ([]domain.ContextRecord, error)
}

type retriever struct {
	log       *logger.Logger
	embedder  Embedder
	store     pinecone.VectorStore
	namespace string
}

func NewRetriever(log *logger.Logger, embedder Embedder, store pinecone.VectorStore, namespace string) Retriever {
	return &retriever{
		log:       log.With("service", "Retriever"),
		embedder:  embedder,
		store:     store,
		namespace: namespace,
	}
}

func (r *retriever) Assemble(ctx context.Context, query string, anchorID string, topK int) ([]domain.ContextRecord, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, upstream(ErrEmbeddingService, "embed query", err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, upstream(ErrEmbeddingService, "embed query", errEmptyEmbedding)
	}

	matches, err := r.store.QueryMatches(ctx, r.namespace, pinecone.Query{
		Vector:          vecs[0],
		TopK:            topK,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, upstream(ErrVectorStore, "query", err)
	}

	records := make([]domain.ContextRecord, 0, len(matches)+1)
	for _, m := range matches {
		records = append(records, contextRecord(m.ID, m.Metadata))
	}

	anchorID = strings.TrimSpace(anchorID)
	if anchorID == "" {
		return records, nil
	}
	for i := range records {
		if records[i].ID == anchorID {
			records[i].Anchor = true
			return records, nil
		}
	}

	found, err := r.store.Fetch(ctx, r.namespace, []string{anchorID})
	if err != nil {
		return nil, upstream(ErrVectorStore, "fetch anchor", err)
	}
	v, ok := found[anchorID]
	if !ok {
		r.log.Debug("Anchor post not found", append(ctxutil.LogFields(ctx), "post_id", anchorID)...)
		return records, nil
	}
	anchor := contextRecord(anchorID, v.Metadata)
	anchor.Anchor = true
	return append([]domain.ContextRecord{anchor}, records...), nil
}

// contextRecord prefers the store id over any id carried in metadata.
func contextRecord(id string, meta map[string]any) domain.ContextRecord {
	md := domain.MetadataFromMap(meta)
	md.ID = id
	return domain.ContextRecord{ID: id, Metadata: md}
}
