package indexfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtyshyk/telegram-rag/internal/types"
	"github.com/rtyshyk/telegram-rag/internal/vespa"
)

func TestFeedDocuments_AllSucceed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	feeder := NewFeeder(vespa.NewClient(srv.URL))
	docs := make([]types.IndexedDocument, 0, 20)
	for i := 0; i < 20; i++ {
		docs = append(docs, types.IndexedDocument{
			ChunkID: types.BuildChunkID("chat", int64(i), 0, 1),
			ChatID:  "chat", MessageID: int64(i), Text: "hello", BM25Text: "hello",
		})
	}
	err := feeder.FeedDocuments(context.Background(), docs)
	assert.NoError(t, err)
}

func TestFeedDocuments_PermanentFailureReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	feeder := NewFeeder(vespa.NewClient(srv.URL))
	docs := []types.IndexedDocument{{ChunkID: "c:1:0:v1", ChatID: "c", MessageID: 1}}
	err := feeder.FeedDocuments(context.Background(), docs)
	require.Error(t, err)
}

func TestFeedDocuments_RetriesTransientThenSucceeds(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	feeder := NewFeeder(vespa.NewClient(srv.URL))
	docs := []types.IndexedDocument{{ChunkID: "c:1:0:v1", ChatID: "c", MessageID: 1}}
	err := feeder.FeedDocuments(context.Background(), docs)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, int(atomic.LoadInt32(&attempts)), 2)
}

func TestDeleteMessageChunks_404TreatedAsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	feeder := NewFeeder(vespa.NewClient(srv.URL))
	err := feeder.DeleteMessageChunks(context.Background(), "chat", 1, 1)
	assert.NoError(t, err)
}

func TestDocumentFields_RoutesVectorByModel(t *testing.T) {
	doc := types.IndexedDocument{
		ChunkID: "c:1:0:v1", ChatID: "c", MessageID: 1,
		Model: types.EmbeddingModelLarge, Vector: []float32{0.1, 0.2},
	}
	fields := documentFields(doc)
	_, ok := fields["vector_large"]
	assert.True(t, ok)
}
