package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/yungbote/postbridge-backend/internal/platform/logger"
	"github.com/yungbote/postbridge-backend/internal/platform/pinecone"
)

func TestVectorStoreUpsertRequestShape(t *testing.T) {
	var captured map[string]any
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPut {
			t.Fatalf("method: want=%s got=%s", http.MethodPut, r.Method)
		}
		if r.URL.Path != "/collections/posts/points" || r.URL.RawQuery != "wait=true" {
			t.Fatalf("url: got=%s", r.URL.String())
		}
		if r.Header.Get("api-key") != "qd-key" {
			t.Fatalf("api-key header missing")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})

	meta := map[string]any{"title": "Intro to Graphs"}
	err := s.Upsert(context.Background(), "", []pinecone.Vector{{ID: "p1", Values: []float32{1, 2, 3}, Metadata: meta}})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	points := captured["points"].([]any)
	first := points[0].(map[string]any)
	if first["id"] != s.pointID("pb", "p1") {
		t.Fatalf("point id: got=%v", first["id"])
	}
	payload := first["payload"].(map[string]any)
	if payload[payloadVectorIDKey] != "p1" || payload[payloadNamespaceKey] != "pb" {
		t.Fatalf("payload: got=%v", payload)
	}
	if _, leaked := meta[payloadVectorIDKey]; leaked {
		t.Fatalf("input metadata mutated")
	}
}

func TestVectorStoreUpsertDimensionMismatch(t *testing.T) {
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("no request expected")
		return nil, nil
	})
	err := s.Upsert(context.Background(), "", []pinecone.Vector{{ID: "p1", Values: []float32{1}}})
	var oe *OperationError
	if !errors.As(err, &oe) || oe.Code != OperationErrorValidation {
		t.Fatalf("want validation error, got=%v", err)
	}
}

func TestVectorStoreQueryMatchesKeepsStoreOrder(t *testing.T) {
	var captured map[string]any
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/collections/posts/points/search" {
			t.Fatalf("path: got=%s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		return okResponse(t, []map[string]any{
			{"id": "uuid-b", "score": 0.9, "payload": map[string]any{payloadVectorIDKey: "p2", payloadNamespaceKey: "pb", "title": "B"}},
			{"id": "uuid-a", "score": 0.4, "payload": map[string]any{payloadVectorIDKey: "p3", payloadNamespaceKey: "pb", "title": "C"}},
		}), nil
	})

	got, err := s.QueryMatches(context.Background(), "", pinecone.Query{
		Vector:          []float32{1, 2, 3},
		TopK:            2,
		IncludeMetadata: true,
		Filter:          map[string]any{"category": map[string]any{"$eq": "graphs"}},
	})
	if err != nil {
		t.Fatalf("QueryMatches: %v", err)
	}
	if len(got) != 2 || got[0].ID != "p2" || got[1].ID != "p3" {
		t.Fatalf("matches: got=%+v", got)
	}
	if got[0].Metadata["title"] != "B" {
		t.Fatalf("metadata: got=%v", got[0].Metadata)
	}
	if _, leaked := got[0].Metadata[payloadVectorIDKey]; leaked {
		t.Fatalf("internal payload keys must be stripped")
	}
	must := captured["filter"].(map[string]any)["must"].([]any)
	if len(must) != 2 {
		t.Fatalf("filter conditions: got=%v", must)
	}
}

func TestVectorStoreQueryRejectsRangeFilter(t *testing.T) {
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("no request expected")
		return nil, nil
	})
	_, err := s.QueryMatches(context.Background(), "", pinecone.Query{
		Vector: []float32{1, 2, 3},
		Filter: map[string]any{"score": map[string]any{"$gt": 1}},
	})
	var oe *OperationError
	if !errors.As(err, &oe) || oe.Code != OperationErrorUnsupportedFilter {
		t.Fatalf("want unsupported filter, got=%v", err)
	}
}

func TestVectorStoreFetchReturnsOnlyExisting(t *testing.T) {
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPost || r.URL.Path != "/collections/posts/points" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if ids := body["ids"].([]any); len(ids) != 2 {
			t.Fatalf("ids: got=%v", ids)
		}
		return okResponse(t, []map[string]any{
			{"id": "uuid-1", "payload": map[string]any{payloadVectorIDKey: "p1", payloadNamespaceKey: "pb", "title": "Intro to Graphs"}},
		}), nil
	})

	got, err := s.Fetch(context.Background(), "", []string{"p1", "ghost"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 1 || got["p1"].Metadata["title"] != "Intro to Graphs" {
		t.Fatalf("fetch: got=%+v", got)
	}
}

func TestVectorStoreDeleteUsesDerivedPointIDs(t *testing.T) {
	var captured map[string]any
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/collections/posts/points/delete" {
			t.Fatalf("path: got=%s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})
	if err := s.DeleteIDs(context.Background(), "", []string{"p1", "p1", ""}); err != nil {
		t.Fatalf("DeleteIDs: %v", err)
	}
	points := captured["points"].([]any)
	if len(points) != 1 || points[0] != s.pointID("pb", "p1") {
		t.Fatalf("points: got=%v", points)
	}
}

func TestBootstrapCreatesMissingCollection(t *testing.T) {
	var methods []string
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		methods = append(methods, r.Method)
		if r.Method == http.MethodGet {
			return &http.Response{
				StatusCode: http.StatusNotFound,
				Body:       io.NopCloser(bytes.NewReader([]byte(`{"status":{"error":"Not found"}}`))),
			}, nil
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		vectors := body["vectors"].(map[string]any)
		if vectors["size"] != float64(3) || vectors["distance"] != "Cosine" {
			t.Fatalf("create body: got=%v", body)
		}
		return okResponse(t, true), nil
	})
	s.cfg.CreateIfMissing = true
	if err := s.bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if len(methods) != 2 || methods[1] != http.MethodPut {
		t.Fatalf("methods: got=%v", methods)
	}
}

func TestBootstrapDetectsDimensionMismatch(t *testing.T) {
	s := newTestVectorStore(t, func(r *http.Request) (*http.Response, error) {
		return okResponse(t, map[string]any{
			"config": map[string]any{"params": map[string]any{"vectors": map[string]any{"size": 1536}}},
		}), nil
	})
	if err := s.bootstrap(context.Background()); err == nil {
		t.Fatalf("expected dimension mismatch")
	}
}

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		code ConfigErrorCode
	}{
		{"missing_url", Config{Collection: "posts", VectorDim: 3}, ConfigErrorMissingURL},
		{"relative_url", Config{URL: "qdrant:6333", Collection: "posts", VectorDim: 3}, ConfigErrorInvalidURL},
		{"missing_collection", Config{URL: "http://q:6333", VectorDim: 3}, ConfigErrorMissingCollection},
		{"bad_dim", Config{URL: "http://q:6333", Collection: "posts"}, ConfigErrorInvalidVectorDim},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ce *ConfigError
			if err := ValidateConfig(tc.cfg); !errors.As(err, &ce) || ce.Code != tc.code {
				t.Fatalf("want %s got=%v", tc.code, err)
			}
		})
	}
	if err := ValidateConfig(Config{URL: "http://q:6333", Collection: "posts", VectorDim: 512}); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func newTestVectorStore(t *testing.T, roundTrip func(*http.Request) (*http.Response, error)) *vectorStore {
	t.Helper()
	return newVectorStore(logger.NewNop(), Config{
		URL:             "http://qdrant.local",
		APIKey:          "qd-key",
		Collection:      "posts",
		NamespacePrefix: "pb",
		VectorDim:       3,
		HTTPClient:      &http.Client{Transport: roundTripFunc(roundTrip)},
	})
}

func okResponse(t *testing.T, result any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(map[string]any{"result": result, "status": "ok", "time": 0.001})
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
