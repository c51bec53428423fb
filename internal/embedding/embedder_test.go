package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtyshyk/telegram-rag/internal/errors"
)

func TestPseudoVectorDeterministic(t *testing.T) {
	v1 := PseudoVector("hello world", 16)
	v2 := PseudoVector("hello world", 16)
	assert.Equal(t, v1, v2)

	v3 := PseudoVector("different", 16)
	assert.NotEqual(t, v1, v3)
}

func TestPseudoVectorNormalised(t *testing.T) {
	v := PseudoVector("some text", 32)
	var sumSq float64
	for _, f := range v {
		sumSq += float64(f) * float64(f)
	}
	assert.InDelta(t, 1.0, sumSq, 1e-4)
}

func TestEstimateCostUSD(t *testing.T) {
	cost := EstimateCostUSD("text-embedding-3-small", []string{"one two three four five"})
	assert.Greater(t, cost, 0.0)
}

func TestEmbedMisses_BudgetExceeded(t *testing.T) {
	backend := NewStubBackend("text-embedding-3-small", 8)
	svc := NewService(Config{DailyBudgetUSD: 0.0000000001}, NewCache(nil), backend)

	inputs := make([]TextInput, 0)
	for i := 0; i < 100; i++ {
		inputs = append(inputs, TextInput{TextHash: "h", Text: "this is a reasonably long sentence to embed for budget testing purposes"})
	}

	_, err := svc.EmbedMisses(context.Background(), inputs)
	require.Error(t, err)
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, errors.KindBudgetExceeded, appErr.Kind)
}

func TestEmbedMisses_GatesOnCurrentCallOnly(t *testing.T) {
	backend := NewStubBackend("text-embedding-3-small", 8)
	// Budget comfortably covers one call's estimated cost but not two
	// accumulated; the gate must still pass both calls since each is
	// judged on its own estimated cost, not a running total.
	svc := NewService(Config{DailyBudgetUSD: 1e-7}, NewCache(nil), backend)

	inputs := []TextInput{{TextHash: "h1", Text: "a short sentence"}}

	_, err := svc.EmbedMisses(context.Background(), inputs)
	require.NoError(t, err)

	_, err = svc.EmbedMisses(context.Background(), inputs)
	require.NoError(t, err)
}

func TestEmbedMisses_NoInputsNoError(t *testing.T) {
	backend := NewStubBackend("text-embedding-3-small", 8)
	svc := NewService(Config{}, NewCache(nil), backend)
	out, err := svc.EmbedMisses(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, out)
}
