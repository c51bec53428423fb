package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rtyshyk/telegram-rag/internal/types"
)

func ms(v int64) *int64 { return &v }

func TestDedupeSeeds_DropsClashesByMessageGap(t *testing.T) {
	seeds := []types.Seed{
		{ChatID: "c1", MessageID: 100, Score: 0.9, MessageDateMs: ms(1000)},
		{ChatID: "c1", MessageID: 103, Score: 0.8, MessageDateMs: ms(50000)},
		{ChatID: "c1", MessageID: 500, Score: 0.5, MessageDateMs: ms(999999)},
	}
	out := DedupeSeeds(seeds, 10, 120000)
	assert.Len(t, out, 2)
	assert.Equal(t, int64(100), out[0].MessageID)
	assert.Equal(t, int64(500), out[1].MessageID)
}

func TestDedupeSeeds_NeverEmpty(t *testing.T) {
	seeds := []types.Seed{
		{ChatID: "c1", MessageID: 100, Score: 0.9, MessageDateMs: ms(1000)},
		{ChatID: "c1", MessageID: 101, Score: 0.8, MessageDateMs: ms(1000)},
	}
	out := DedupeSeeds(seeds, 10, 120000)
	assert.Len(t, out, 1)
	assert.Equal(t, int64(100), out[0].MessageID)
}

func TestDedupeSeeds_EmptyInputReturnsEmpty(t *testing.T) {
	out := DedupeSeeds(nil, 10, 120000)
	assert.Empty(t, out)
}
