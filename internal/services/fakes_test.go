package services

import (
	"context"
	"sync"

	"github.com/yungbote/postbridge-backend/internal/platform/pinecone"
)

type fakeEmbedder struct {
	mu     sync.Mutex
	calls  int
	inputs []string
	dim    int
	err    error
}

func (f *fakeEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.inputs = append(f.inputs, inputs...)
	if f.err != nil {
		return nil, f.err
	}
	dim := f.dim
	if dim == 0 {
		dim = 4
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		vec := make([]float32, dim)
		vec[0] = float32(len(inputs[i]))
		out[i] = vec
	}
	return out, nil
}

// fakeStore keeps vectors in memory. Queries return the ids in queryOrder, or
// everything in insertion order when queryOrder is nil.
type fakeStore struct {
	mu         sync.Mutex
	vectors    map[string]pinecone.Vector
	order      []string
	queryOrder []string

	upsertCalls int
	queryCalls  int
	fetchCalls  int
	deleteCalls int
	lastQuery   pinecone.Query
	namespaces  []string

	upsertErr error
	queryErr  error
	fetchErr  error
	deleteErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{vectors: map[string]pinecone.Vector{}}
}

func (f *fakeStore) put(id string, meta map[string]any) {
	f.vectors[id] = pinecone.Vector{ID: id, Values: []float32{1}, Metadata: meta}
	f.order = append(f.order, id)
}

func (f *fakeStore) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upsertCalls + f.queryCalls + f.fetchCalls + f.deleteCalls
}

func (f *fakeStore) Upsert(_ context.Context, namespace string, vectors []pinecone.Vector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	f.namespaces = append(f.namespaces, namespace)
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, v := range vectors {
		if _, ok := f.vectors[v.ID]; !ok {
			f.order = append(f.order, v.ID)
		}
		f.vectors[v.ID] = v
	}
	return nil
}

func (f *fakeStore) QueryMatches(_ context.Context, namespace string, q pinecone.Query) ([]pinecone.VectorMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	f.lastQuery = q
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	ids := f.queryOrder
	if ids == nil {
		ids = f.order
	}
	var out []pinecone.VectorMatch
	for i, id := range ids {
		if len(out) >= q.TopK {
			break
		}
		v, ok := f.vectors[id]
		if !ok {
			continue
		}
		out = append(out, pinecone.VectorMatch{ID: id, Score: 1 - float64(i)*0.1, Metadata: v.Metadata})
	}
	return out, nil
}

func (f *fakeStore) Fetch(_ context.Context, namespace string, ids []string) (map[string]pinecone.Vector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := map[string]pinecone.Vector{}
	for _, id := range ids {
		if v, ok := f.vectors[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteIDs(_ context.Context, namespace string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for _, id := range ids {
		delete(f.vectors, id)
	}
	return nil
}

type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	prompts   []string
}

func (f *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return f.responses[len(f.responses)-1], nil
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

const validTextAnswer = `{"type":"text","content":"## Intro to Graphs\nA graph is a set of nodes and edges.","videos":null,"posts":null,"suggestions":["What is a directed graph?","How are graphs stored in memory?","When should I use BFS over DFS?"]}`
