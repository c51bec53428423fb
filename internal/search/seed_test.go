package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtyshyk/telegram-rag/internal/embedding"
	"github.com/rtyshyk/telegram-rag/internal/vespa"
)

func TestSearchSeeds_DropsMalformedChildren(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"root":{"children":[
			{"id":"a","fields":{"chat_id":"c1","message_id":1,"text":"hello"},"relevance":0.8},
			{"id":"b","fields":{"text":"missing chat id"},"relevance":0.5}
		]}}`))
	}))
	defer srv.Close()

	searcher := NewSearcher(vespa.NewClient(srv.URL), embedding.NewStubBackend("stub", 8))
	seeds, err := searcher.SearchSeeds(context.Background(), SeedQuery{Query: "hello", SeedLimit: 10})
	require.NoError(t, err)
	require.Len(t, seeds, 1)
	assert.Equal(t, "c1", seeds[0].ChatID)
}

func TestSearchSeeds_HybridEmbedsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"root":{"children":[]}}`))
	}))
	defer srv.Close()

	searcher := NewSearcher(vespa.NewClient(srv.URL), embedding.NewStubBackend("stub", 8))
	_, err := searcher.SearchSeeds(context.Background(), SeedQuery{Query: "hello", Hybrid: true, SeedLimit: 10})
	require.NoError(t, err)
}
