package platform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtyshyk/telegram-rag/internal/types"
)

func TestStubPlatform_FetchHistoryOrderedAndBounded(t *testing.T) {
	p := NewStubPlatform()
	p.Seed(ChatInfo{ID: "chat-1", Title: "Chat One"}, []types.Message{
		{ChatID: "chat-1", MessageID: 3, Text: "c"},
		{ChatID: "chat-1", MessageID: 1, Text: "a"},
		{ChatID: "chat-1", MessageID: 2, Text: "b"},
	})

	msgs, err := p.FetchHistory(context.Background(), "chat-1", 0, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(1), msgs[0].MessageID)
	assert.Equal(t, int64(2), msgs[1].MessageID)
}

func TestStubPlatform_PushDeliversToHandler(t *testing.T) {
	p := NewStubPlatform()
	var received types.Message
	p.OnMessage(func(m types.Message) { received = m })

	p.Push(types.Message{ChatID: "chat-1", MessageID: 10, Text: "hi"})
	assert.Equal(t, int64(10), received.MessageID)
}

func TestStubPlatform_GetMessageNotFound(t *testing.T) {
	p := NewStubPlatform()
	_, ok, err := p.GetMessage(context.Background(), "chat-1", 99)
	require.NoError(t, err)
	assert.False(t, ok)
}
