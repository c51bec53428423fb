package answer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtyshyk/telegram-rag/internal/embedding"
	"github.com/rtyshyk/telegram-rag/internal/search"
	"github.com/rtyshyk/telegram-rag/internal/types"
	"github.com/rtyshyk/telegram-rag/internal/vespa"
)

func testAnswerer(t *testing.T, seedChildren string) *Answerer {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"root":{"children":[` + seedChildren + `]}}`))
	}))
	t.Cleanup(srv.Close)

	client := vespa.NewClient(srv.URL)
	searcher := search.NewSearcher(client, embedding.NewStubBackend("stub", 8))
	expander := search.NewExpander(client)

	cfg := Config{
		RateLimitPerMinute: 2,
		ReformulationModel: "stub",
		ChatModel:          "stub",
		Retrieval: RetrievalConfig{
			DefaultResultLimit: 10, SeedLimit: 30, RerankCandidateLimit: 40,
			DedupeIDGap: 10, DedupeTimeGapMs: 120000,
			MessageWindow: 15, TimeWindowMinutes: 45, MinMessages: 1, MaxMessages: 80,
			TokenLimit: 1800, MaxReturn: 25,
		},
	}
	return New(cfg, searcher, expander, nil, StubChatProvider{})
}

func drain(ch <-chan types.StreamChunk) []types.StreamChunk {
	var out []types.StreamChunk
	for c := range ch {
		out = append(out, c)
	}
	return out
}

func TestAnswer_StreamShapeWithResults(t *testing.T) {
	children := `{"id":"a","fields":{"chat_id":"c1","message_id":1,"text":"hello world","message_date":1000},"relevance":0.9}`
	a := testAnswerer(t, children)

	chunks := drain(a.Answer(context.Background(), "user-1", types.ChatRequest{Query: "hello"}))
	require.NotEmpty(t, chunks)

	types_ := make([]types.StreamEventType, len(chunks))
	for i, c := range chunks {
		types_[i] = c.Type
	}
	assert.Equal(t, types.EventSearch, types_[0])
	assert.Equal(t, types.EventStart, types_[1])
	assert.Equal(t, types.EventEnd, types_[len(types_)-1])
	assert.Contains(t, types_, types.EventContent)
	assert.Contains(t, types_, types.EventCitations)
}

func TestAnswer_NoCandidatesEndsImmediately(t *testing.T) {
	a := testAnswerer(t, "")
	chunks := drain(a.Answer(context.Background(), "user-2", types.ChatRequest{Query: "nothing matches"}))
	require.Len(t, chunks, 3)
	assert.Equal(t, types.EventSearch, chunks[0].Type)
	assert.Equal(t, types.EventEnd, chunks[len(chunks)-1].Type)
}

func TestAnswer_RateLimitEmitsErrorAndStops(t *testing.T) {
	a := testAnswerer(t, "")
	_ = drain(a.Answer(context.Background(), "user-3", types.ChatRequest{Query: "q1"}))
	_ = drain(a.Answer(context.Background(), "user-3", types.ChatRequest{Query: "q2"}))
	chunks := drain(a.Answer(context.Background(), "user-3", types.ChatRequest{Query: "q3"}))
	require.Len(t, chunks, 1)
	assert.Equal(t, types.EventError, chunks[0].Type)
	assert.Equal(t, 60, chunks[0].RetryAfterSeconds)
}

func TestAnswer_ReformulationEmittedWhenHistoryPresent(t *testing.T) {
	children := `{"id":"a","fields":{"chat_id":"c1","message_id":1,"text":"hello world","message_date":1000},"relevance":0.9}`
	a := testAnswerer(t, children)
	req := types.ChatRequest{
		Query:   "and then?",
		History: []types.ChatMessage{{Role: types.RoleUser, Content: "tell me about the flight"}},
	}
	chunks := drain(a.Answer(context.Background(), "user-4", req))
	require.NotEmpty(t, chunks)
	assert.Equal(t, types.EventReformulate, chunks[0].Type)
}
