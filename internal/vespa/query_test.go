package vespa

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rtyshyk/telegram-rag/internal/types"
)

func TestBuildSeedQuery_BM25Only(t *testing.T) {
	body, profile := BuildSeedQuery(QueryOptions{Query: "keyword", Hybrid: false, SeedLimit: 30})
	assert.Equal(t, "default", profile)
	for k := range body {
		assert.NotContains(t, k, "input.query", "bm25-only query must not carry a vector parameter")
	}
	assert.Contains(t, body["yql"], "bm25_text contains")
}

func TestBuildSeedQuery_Hybrid(t *testing.T) {
	vec := []float32{0.1, 0.2, 0.3}
	body, profile := BuildSeedQuery(QueryOptions{
		Query: "flight", Hybrid: true, SeedLimit: 30,
		Model: types.EmbeddingModelSmall, QueryVector: vec,
	})
	assert.Equal(t, "hybrid-small", profile)
	assert.Contains(t, body, "input.query(qv_vector_small)")
	assert.Contains(t, body["yql"], "nearestNeighbor")
}

func TestBuildSeedQuery_CyrillicLanguageHint(t *testing.T) {
	body, _ := BuildSeedQuery(QueryOptions{Query: "коли іра прилітає з катовіце?", Hybrid: false, SeedLimit: 30})
	assert.Equal(t, "uk", body["language"])
}

func TestBuildSeedQuery_NoLanguageHintForLatin(t *testing.T) {
	body, _ := BuildSeedQuery(QueryOptions{Query: "when does the flight land", Hybrid: false, SeedLimit: 30})
	_, ok := body["language"]
	assert.False(t, ok)
}
