package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/postbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/postbridge-backend/internal/platform/logger"
	"github.com/yungbote/postbridge-backend/internal/platform/pinecone"
)

const (
	payloadNamespaceKey = "_pb_namespace"
	payloadVectorIDKey  = "_pb_vector_id"
	maxErrorBodyBytes   = 1024
)

var pointIDNamespaceUUID = uuid.MustParse("6b1d0f4e-93a2-4c5e-9a57-2f0e8c1d7b36")

// vectorStore adapts Qdrant's REST API to pinecone.VectorStore. Qdrant point ids
// must be UUIDs or integers, so the platform id is kept in the payload and the
// point id is derived from it deterministically.
type vectorStore struct {
	log      *logger.Logger
	cfg      Config
	baseURL  string
	nsPrefix string
	http     *http.Client
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type qdrantPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

func NewVectorStore(ctx context.Context, log *logger.Logger, cfg Config) (pinecone.VectorStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	s := newVectorStore(log, cfg)
	if err := s.bootstrap(ctx); err != nil {
		return nil, err
	}
	log.Info("Qdrant vector store selected",
		"url", s.baseURL,
		"collection", cfg.Collection,
		"namespace_prefix", s.nsPrefix,
		"vector_dim", cfg.VectorDim,
	)
	return s, nil
}

func newVectorStore(log *logger.Logger, cfg Config) *vectorStore {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &vectorStore{
		log:      log.With("service", "QdrantVectorStore"),
		cfg:      cfg,
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		nsPrefix: strings.TrimSpace(cfg.NamespacePrefix),
		http:     hc,
	}
}

func (s *vectorStore) Upsert(ctx context.Context, namespace string, vectors []pinecone.Vector) error {
	const op = "upsert"
	if len(vectors) == 0 {
		return nil
	}
	ns := s.qualifyNamespace(namespace)
	points := make([]map[string]any, 0, len(vectors))
	for _, v := range vectors {
		id := strings.TrimSpace(v.ID)
		if id == "" {
			return opErr(op, OperationErrorValidation, "vector id is required", nil)
		}
		if len(v.Values) != s.cfg.VectorDim {
			return opErr(op, OperationErrorValidation,
				fmt.Sprintf("vector %q dimension mismatch: expected=%d got=%d", id, s.cfg.VectorDim, len(v.Values)), nil)
		}
		payload := make(map[string]any, len(v.Metadata)+2)
		for k, val := range v.Metadata {
			payload[k] = val
		}
		payload[payloadNamespaceKey] = ns
		payload[payloadVectorIDKey] = id
		points = append(points, map[string]any{
			"id":      s.pointID(ns, id),
			"vector":  v.Values,
			"payload": payload,
		})
	}
	return s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/points?wait=true"), map[string]any{"points": points}, nil)
}

func (s *vectorStore) QueryMatches(ctx context.Context, namespace string, q pinecone.Query) ([]pinecone.VectorMatch, error) {
	const op = "query"
	if len(q.Vector) == 0 {
		return nil, opErr(op, OperationErrorValidation, "query vector required", nil)
	}
	if len(q.Vector) != s.cfg.VectorDim {
		return nil, opErr(op, OperationErrorValidation,
			fmt.Sprintf("query vector dimension mismatch: expected=%d got=%d", s.cfg.VectorDim, len(q.Vector)), nil)
	}
	topK := q.TopK
	if topK <= 0 {
		topK = 10
	}
	ns := s.qualifyNamespace(namespace)
	filter, err := translateFilter(ns, q.Filter)
	if err != nil {
		return nil, err
	}

	req := map[string]any{
		"vector":       q.Vector,
		"limit":        topK,
		"with_payload": true,
		"with_vector":  false,
		"filter":       filter,
	}
	var points []qdrantPoint
	if err := s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/search"), req, &points); err != nil {
		return nil, err
	}

	out := make([]pinecone.VectorMatch, 0, len(points))
	for _, p := range points {
		id := vectorID(p)
		if id == "" {
			continue
		}
		m := pinecone.VectorMatch{ID: id, Score: p.Score}
		if q.IncludeMetadata {
			m.Metadata = stripInternal(p.Payload)
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *vectorStore) Fetch(ctx context.Context, namespace string, ids []string) (map[string]pinecone.Vector, error) {
	const op = "fetch"
	ns := s.qualifyNamespace(namespace)
	pointIDs := s.pointIDs(ns, ids)
	if len(pointIDs) == 0 {
		return map[string]pinecone.Vector{}, nil
	}
	req := map[string]any{
		"ids":          pointIDs,
		"with_payload": true,
		"with_vector":  false,
	}
	var points []qdrantPoint
	if err := s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points"), req, &points); err != nil {
		return nil, err
	}
	out := make(map[string]pinecone.Vector, len(points))
	for _, p := range points {
		if got, _ := p.Payload[payloadNamespaceKey].(string); got != ns {
			continue
		}
		id := vectorID(p)
		if id == "" {
			continue
		}
		out[id] = pinecone.Vector{ID: id, Metadata: stripInternal(p.Payload)}
	}
	return out, nil
}

func (s *vectorStore) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	const op = "delete"
	pointIDs := s.pointIDs(s.qualifyNamespace(namespace), ids)
	if len(pointIDs) == 0 {
		return nil
	}
	return s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/delete?wait=true"), map[string]any{"points": pointIDs}, nil)
}

func (s *vectorStore) bootstrap(ctx context.Context) error {
	const op = "bootstrap"
	var info struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	err := s.doJSON(ctx, op, http.MethodGet, s.collectionPath(""), nil, &info)
	if oe, ok := err.(*OperationError); ok && oe.StatusCode == http.StatusNotFound && s.cfg.CreateIfMissing {
		distance := s.cfg.Distance
		if distance == "" {
			distance = "Cosine"
		}
		s.log.Info("Creating qdrant collection", "collection", s.cfg.Collection, "size", s.cfg.VectorDim, "distance", distance)
		return s.doJSON(ctx, op, http.MethodPut, s.collectionPath(""), map[string]any{
			"vectors": map[string]any{"size": s.cfg.VectorDim, "distance": distance},
		}, nil)
	}
	if err != nil {
		return err
	}
	if size := info.Config.Params.Vectors.Size; size != 0 && size != s.cfg.VectorDim {
		return opErr(op, OperationErrorValidation,
			fmt.Sprintf("collection %q vector size mismatch: expected=%d actual=%d", s.cfg.Collection, s.cfg.VectorDim, size), nil)
	}
	return nil
}

func (s *vectorStore) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, s.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("api-key", s.cfg.APIKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorRequestFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("body=%q", truncateBody(raw)),
		}
	}

	var env qdrantEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode envelope failed", err)
	}
	if msg := envelopeStatusError(env.Status); msg != "" {
		return &OperationError{Code: OperationErrorRequestFailed, Operation: op, StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode result failed", err)
	}
	return nil
}

func envelopeStatusError(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if strings.EqualFold(str, "ok") || strings.EqualFold(str, "acknowledged") {
			return ""
		}
		return fmt.Sprintf("status=%q", str)
	}
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && strings.TrimSpace(obj.Error) != "" {
		return strings.TrimSpace(obj.Error)
	}
	return "status=" + status
}

// translateFilter scopes every query to the namespace and accepts flat equality
// conditions: {"category": "graphs"} or {"category": {"$eq": "graphs"}}.
func translateFilter(ns string, filter map[string]any) (map[string]any, error) {
	must := []any{matchCondition(payloadNamespaceKey, ns)}
	for key, val := range filter {
		if cond, ok := val.(map[string]any); ok {
			eq, has := cond["$eq"]
			if !has || len(cond) != 1 {
				return nil, opErr("query", OperationErrorUnsupportedFilter, fmt.Sprintf("unsupported filter on %q", key), nil)
			}
			val = eq
		}
		must = append(must, matchCondition(key, val))
	}
	return map[string]any{"must": must}, nil
}

func matchCondition(key string, value any) map[string]any {
	return map[string]any{"key": key, "match": map[string]any{"value": value}}
}

func vectorID(p qdrantPoint) string {
	if id, ok := p.Payload[payloadVectorIDKey].(string); ok && strings.TrimSpace(id) != "" {
		return strings.TrimSpace(id)
	}
	var str string
	if err := json.Unmarshal(p.ID, &str); err == nil {
		return strings.TrimSpace(str)
	}
	return strings.TrimSpace(string(p.ID))
}

func stripInternal(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if k == payloadNamespaceKey || k == payloadVectorIDKey {
			continue
		}
		out[k] = v
	}
	return out
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func (s *vectorStore) qualifyNamespace(namespace string) string {
	ns := strings.TrimSpace(namespace)
	switch {
	case s.nsPrefix == "":
		return ns
	case ns == "":
		return s.nsPrefix
	default:
		return s.nsPrefix + ":" + ns
	}
}

func (s *vectorStore) pointID(ns, id string) string {
	return uuid.NewSHA1(pointIDNamespaceUUID, []byte(ns+"|"+id)).String()
}

func (s *vectorStore) pointIDs(ns string, ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		pid := s.pointID(ns, id)
		if seen[pid] {
			continue
		}
		seen[pid] = true
		out = append(out, pid)
	}
	return out
}

func (s *vectorStore) collectionPath(suffix string) string {
	return "/collections/" + s.cfg.Collection + suffix
}
