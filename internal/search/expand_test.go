package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtyshyk/telegram-rag/internal/types"
	"github.com/rtyshyk/telegram-rag/internal/vespa"
)

func neighborHandler(children string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"root":{"children":[` + children + `]}}`))
	}
}

func TestExpandOne_HybridExpansionScenario(t *testing.T) {
	// message_date is epoch seconds, as the real index stores it.
	children := `
		{"id":"id:ragchat:chunk::c1","fields":{"message_id":100,"message_date":1695758900,"text":"Let's meet before the flight."}},
		{"id":"id:ragchat:chunk::c2","fields":{"message_id":101,"message_date":1695759000,"text":"Reminder about the flight"}},
		{"id":"id:ragchat:chunk::c3","fields":{"message_id":102,"message_date":1695759100,"text":"Flight is at 11:34 tomorrow."}}
	`
	srv := httptest.NewServer(neighborHandler(children))
	defer srv.Close()

	expander := NewExpander(vespa.NewClient(srv.URL))
	seed := types.Seed{ChatID: "chat-1", MessageID: 101, Text: "Reminder about the flight", Score: 0.92, MessageDateMs: ms(1695759000000)}

	cand, err := expander.ExpandOne(context.Background(), seed, ExpandOptions{
		MessageWindow: 15, TimeWindowMinutes: 45, MinMessages: 2, MaxMessages: 80, TokenLimit: 1800,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, cand.MessageCount)
	assert.Equal(t, int64(100), cand.Span.StartID)
	assert.Equal(t, int64(102), cand.Span.EndID)
	assert.Equal(t, int64(1695758900000), *cand.Span.StartTS, "message_date seconds must be converted to ms")
	assert.Equal(t, int64(1695759100000), *cand.Span.EndTS)
	assert.True(t, strings.HasPrefix(cand.Text, "Reminder about the flight"), "candidate text must start with the seed's own line, not the lowest message-id")
	assert.Contains(t, cand.Text, "Flight is at 11:34 tomorrow.")
	assert.InDelta(t, 0.92, cand.SeedScore, 1e-9)
}

func TestExpandOne_TextStartsWithSeedWhenOrderedFirst(t *testing.T) {
	children := `{"id":"id1","fields":{"message_id":50,"message_date":1,"text":"only the seed"}}`
	srv := httptest.NewServer(neighborHandler(children))
	defer srv.Close()

	expander := NewExpander(vespa.NewClient(srv.URL))
	seed := types.Seed{ChatID: "chat-1", MessageID: 50, Text: "only the seed", Score: 0.5, MessageDateMs: ms(1000)}

	cand, err := expander.ExpandOne(context.Background(), seed, ExpandOptions{
		MessageWindow: 15, TimeWindowMinutes: 45, MinMessages: 2, MaxMessages: 80, TokenLimit: 1800,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, cand.MessageCount)
	assert.True(t, strings.HasPrefix(cand.Text, "only the seed"))
}
