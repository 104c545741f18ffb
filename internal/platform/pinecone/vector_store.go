package pinecone

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/postbridge-backend/internal/platform/logger"
)

// VectorStore is the provider-neutral surface the services depend on.
// The Qdrant adapter implements the same interface.
type VectorStore interface {
	Upsert(ctx context.Context, namespace string, vectors []Vector) error
	// QueryMatches returns matches in the store's ranking order (higher score is better).
	QueryMatches(ctx context.Context, namespace string, q Query) ([]VectorMatch, error)
	// Fetch is a point lookup; ids that do not exist are absent from the result.
	Fetch(ctx context.Context, namespace string, ids []string) (map[string]Vector, error)
	// DeleteIDs removes ids; unknown ids are not an error.
	DeleteIDs(ctx context.Context, namespace string, ids []string) error
}

type Query struct {
	Vector          []float32
	TopK            int
	Filter          map[string]any
	IncludeMetadata bool
}

type VectorMatch struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

type StoreConfig struct {
	IndexName       string
	IndexHost       string
	NamespacePrefix string
}

type vectorStore struct {
	log       *logger.Logger
	pc        Client
	indexName string
	indexHost string
	nsPrefix  string
}

func NewVectorStore(ctx context.Context, log *logger.Logger, pc Client, cfg StoreConfig) (VectorStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pc == nil {
		return nil, fmt.Errorf("pinecone client required")
	}
	indexName := strings.TrimSpace(cfg.IndexName)
	host := strings.TrimSpace(cfg.IndexHost)
	if indexName == "" && host == "" {
		return nil, fmt.Errorf("missing PINECONE_INDEX_NAME")
	}

	// If host missing, bootstrap via describe_index (fine for local/dev; avoid in prod).
	if host == "" {
		desc, err := pc.DescribeIndex(ctx, indexName)
		if err != nil {
			return nil, fmt.Errorf("pinecone describe_index failed: %w", err)
		}
		host = strings.TrimSpace(desc.Host)
		log.Warn("PINECONE_INDEX_HOST not set; resolved via describe_index (avoid this in production)",
			"index_name", indexName,
			"index_host", host,
		)
	}

	return &vectorStore{
		log:       log.With("service", "PineconeVectorStore"),
		pc:        pc,
		indexName: indexName,
		indexHost: host,
		nsPrefix:  strings.TrimSpace(cfg.NamespacePrefix),
	}, nil
}

func (s *vectorStore) Upsert(ctx context.Context, namespace string, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	for _, v := range vectors {
		if strings.TrimSpace(v.ID) == "" {
			return fmt.Errorf("vector id required")
		}
		if len(v.Values) == 0 {
			return fmt.Errorf("vector %q has empty values", v.ID)
		}
	}
	_, err := s.pc.UpsertVectors(ctx, s.indexHost, UpsertRequest{
		Namespace: s.qualifyNamespace(namespace),
		Vectors:   vectors,
	})
	return err
}

func (s *vectorStore) QueryMatches(ctx context.Context, namespace string, q Query) ([]VectorMatch, error) {
	resp, err := s.pc.Query(ctx, s.indexHost, QueryRequest{
		Namespace:       s.qualifyNamespace(namespace),
		Vector:          q.Vector,
		TopK:            q.TopK,
		Filter:          q.Filter,
		IncludeMetadata: q.IncludeMetadata,
	})
	if err != nil {
		return nil, err
	}
	out := make([]VectorMatch, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if strings.TrimSpace(m.ID) == "" {
			continue
		}
		out = append(out, VectorMatch{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}
	return out, nil
}

func (s *vectorStore) Fetch(ctx context.Context, namespace string, ids []string) (map[string]Vector, error) {
	ids = compactIDs(ids)
	if len(ids) == 0 {
		return map[string]Vector{}, nil
	}
	resp, err := s.pc.FetchVectors(ctx, s.indexHost, FetchRequest{
		Namespace: s.qualifyNamespace(namespace),
		IDs:       ids,
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]Vector, len(resp.Vectors))
	for key, v := range resp.Vectors {
		if v.ID == "" {
			v.ID = key
		}
		out[key] = v
	}
	return out, nil
}

func (s *vectorStore) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	ids = compactIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	return s.pc.DeleteVectors(ctx, s.indexHost, DeleteRequest{
		Namespace: s.qualifyNamespace(namespace),
		IDs:       ids,
	})
}

func (s *vectorStore) qualifyNamespace(ns string) string {
	ns = strings.TrimSpace(ns)
	switch {
	case s.nsPrefix == "":
		return ns
	case ns == "":
		return s.nsPrefix
	default:
		return s.nsPrefix + ":" + ns
	}
}

func compactIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
