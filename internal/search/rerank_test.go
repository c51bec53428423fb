package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtyshyk/telegram-rag/internal/types"
)

func TestStubReranker_OverlapRankingScenario(t *testing.T) {
	candidates := []types.CandidateSnippet{
		{Text: "Lunch tomorrow?", RetrievalScore: 0.6},
		{Text: "Flight leaves 11:34", RetrievalScore: 0.5},
	}
	out, err := StubReranker{}.Rerank(context.Background(), "flight 11:34", candidates, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Flight leaves 11:34", out[0].Text)
	require.NotNil(t, out[0].RerankScore)
}

func TestStubReranker_TiesBrokenByRetrievalScore(t *testing.T) {
	candidates := []types.CandidateSnippet{
		{Text: "alpha", RetrievalScore: 0.1},
		{Text: "alpha", RetrievalScore: 0.9},
	}
	out, err := StubReranker{}.Rerank(context.Background(), "alpha", candidates, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.9, out[0].RetrievalScore)
}

func TestNewReranker_DisabledReturnsNil(t *testing.T) {
	r, err := NewReranker(false, false, "", "", "")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestNewReranker_EnabledWithoutConfigErrors(t *testing.T) {
	_, err := NewReranker(true, false, "model", "", "")
	assert.Error(t, err)
}
