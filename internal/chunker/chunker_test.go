package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtyshyk/telegram-rag/internal/errors"
)

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	pieces, err := Split("hello world", "[header]", Options{})
	require.NoError(t, err)
	require.Len(t, pieces, 1)
	assert.Contains(t, pieces[0].FullText, "[header]")
	assert.Contains(t, pieces[0].FullText, "hello world")
}

func TestSplit_EmptyInputFails(t *testing.T) {
	_, err := Split("   \n  ", "", Options{})
	require.Error(t, err)
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "chunking_empty", appErr.Code)
}

func TestSplit_LongTextMultipleChunksWithOverlap(t *testing.T) {
	sentence := "This is a moderately long sentence used to pad out the token count. "
	text := strings.Repeat(sentence, 300)

	pieces, err := Split(text, "", Options{TargetTokens: 200, OverlapTokens: 30})
	require.NoError(t, err)
	require.Greater(t, len(pieces), 1)

	for _, p := range pieces {
		assert.LessOrEqual(t, CountTokens(p.FullText), 260)
	}
}

func TestCountTokens(t *testing.T) {
	assert.Greater(t, CountTokens("hello world"), 0)
	assert.Equal(t, 0, CountTokens(""))
}
