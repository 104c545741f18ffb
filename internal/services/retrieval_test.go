package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/postbridge-backend/internal/domain"
	"github.com/yungbote/postbridge-backend/internal/platform/logger"
)

func seededStore() *fakeStore {
	s := newFakeStore()
	s.put("p1", map[string]any{"title": "Intro to Graphs", "_id": "p1"})
	s.put("p2", map[string]any{"title": "Trees", "_id": "stale-id"})
	s.put("p3", map[string]any{"title": "Heaps"})
	s.put("p4", map[string]any{"title": "Sorting"})
	return s
}

func ids(records []domain.ContextRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestAssembleInjectsMissingAnchorFirst(t *testing.T) {
	store := seededStore()
	store.queryOrder = []string{"p3", "p2"}
	r := NewRetriever(logger.NewNop(), &fakeEmbedder{}, store, "")

	got, err := r.Assemble(context.Background(), "tell me about heaps", "p1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p3", "p2"}, ids(got))
	assert.True(t, got[0].Anchor)
	assert.Equal(t, "Intro to Graphs", got[0].Metadata.Title)
	assert.False(t, got[1].Anchor)
	assert.Equal(t, 1, store.fetchCalls)
}

func TestAssembleDoesNotDuplicatePresentAnchor(t *testing.T) {
	store := seededStore()
	store.queryOrder = []string{"p3", "p1", "p2"}
	r := NewRetriever(logger.NewNop(), &fakeEmbedder{}, store, "")

	got, err := r.Assemble(context.Background(), "graphs", "p1", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p1", "p2"}, ids(got), "search order is preserved")
	assert.True(t, got[1].Anchor)
}

func TestAssembleMissingAnchorReturnsSearchResults(t *testing.T) {
	store := seededStore()
	store.queryOrder = []string{"p2", "p3"}
	r := NewRetriever(logger.NewNop(), &fakeEmbedder{}, store, "")

	got, err := r.Assemble(context.Background(), "trees", "deleted-post", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p3"}, ids(got))
	for _, rec := range got {
		assert.False(t, rec.Anchor)
	}
}

func TestAssembleWithoutAnchorSkipsFetch(t *testing.T) {
	store := seededStore()
	r := NewRetriever(logger.NewNop(), &fakeEmbedder{}, store, "")

	got, err := r.Assemble(context.Background(), "anything", "", 0)
	require.NoError(t, err)
	assert.Len(t, got, 4)
	assert.Equal(t, DefaultTopK, store.lastQuery.TopK)
	assert.True(t, store.lastQuery.IncludeMetadata)
	assert.Zero(t, store.fetchCalls)
}

func TestAssembleStoreIDOverridesMetadataID(t *testing.T) {
	store := seededStore()
	store.queryOrder = []string{"p2"}
	r := NewRetriever(logger.NewNop(), &fakeEmbedder{}, store, "")

	got, err := r.Assemble(context.Background(), "trees", "", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p2", got[0].ID)
	assert.Equal(t, "p2", got[0].Metadata.ID)
}

func TestAssembleErrors(t *testing.T) {
	r := NewRetriever(logger.NewNop(), &fakeEmbedder{err: errors.New("down")}, seededStore(), "")
	_, err := r.Assemble(context.Background(), "q", "p1", 5)
	assert.ErrorIs(t, err, ErrEmbeddingService)

	store := seededStore()
	store.queryErr = errors.New("timeout")
	r = NewRetriever(logger.NewNop(), &fakeEmbedder{}, store, "")
	_, err = r.Assemble(context.Background(), "q", "p1", 5)
	assert.ErrorIs(t, err, ErrVectorStore)

	store = seededStore()
	store.queryOrder = []string{"p2"}
	store.fetchErr = errors.New("timeout")
	r = NewRetriever(logger.NewNop(), &fakeEmbedder{}, store, "")
	_, err = r.Assemble(context.Background(), "q", "p1", 1)
	assert.ErrorIs(t, err, ErrVectorStore)
}
