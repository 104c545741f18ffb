package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/postbridge-backend/internal/domain"
	"github.com/yungbote/postbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/postbridge-backend/internal/platform/logger"
	"github.com/yungbote/postbridge-backend/internal/platform/pinecone"
)

// Embedder turns text into fixed-dimension vectors, one per input.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

type IngestionService interface {
	Upsert(ctx context.Context, post domain.Post) error
	Delete(ctx context.Context, postID string) error
}

type IngestionConfig struct {
	Namespace string
	// Dimensions is the expected embedding length; 0 skips the check.
	Dimensions int
}

type ingestionService struct {
	log      *logger.Logger
	embedder Embedder
	store    pinecone.VectorStore
	cfg      IngestionConfig
}

func NewIngestionService(log *logger.Logger, embedder Embedder, store pinecone.VectorStore, cfg IngestionConfig) IngestionService {
	return &ingestionService{
		log:      log.With("service", "IngestionService"),
		embedder: embedder,
		store:    store,
		cfg:      cfg,
	}
}

func (s *ingestionService) Upsert(ctx context.Context, post domain.Post) error {
	post.ID = strings.TrimSpace(post.ID)
	if post.ID == "" {
		return fmt.Errorf("%w: _id", ErrMissingRequiredField)
	}

	vecs, err := s.embedder.Embed(ctx, []string{post.EmbedText()})
	if err != nil {
		return upstream(ErrEmbeddingService, "embed post", err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return fmt.Errorf("%w: embed post: got %d vectors", ErrEmbeddingService, len(vecs))
	}
	if s.cfg.Dimensions > 0 && len(vecs[0]) != s.cfg.Dimensions {
		return fmt.Errorf("%w: embed post: dimension %d, want %d", ErrEmbeddingService, len(vecs[0]), s.cfg.Dimensions)
	}

	vector := pinecone.Vector{
		ID:       post.ID,
		Values:   vecs[0],
		Metadata: post.Metadata().Flatten(),
	}
	if err := s.store.Upsert(ctx, s.cfg.Namespace, []pinecone.Vector{vector}); err != nil {
		return upstream(ErrVectorStore, "upsert post", err)
	}
	s.log.Info("Post indexed", append(ctxutil.LogFields(ctx), "post_id", post.ID)...)
	return nil
}

func (s *ingestionService) Delete(ctx context.Context, postID string) error {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return fmt.Errorf("%w: post_id", ErrMissingRequiredField)
	}
	if err := s.store.DeleteIDs(ctx, s.cfg.Namespace, []string{postID}); err != nil {
		return upstream(ErrVectorStore, "delete post", err)
	}
	s.log.Info("Post deleted", append(ctxutil.LogFields(ctx), "post_id", postID)...)
	return nil
}
