package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rtyshyk/telegram-rag/internal/types"
)

type fakeReplies map[string]string

func (f fakeReplies) GetMessageText(chatID string, messageID int64) (string, bool) {
	v, ok := f[chatID]
	return v, ok
}

func TestNormalise_CollapsesWhitespaceAndDetectsLink(t *testing.T) {
	username := "ira"
	msg := types.Message{
		ChatID:         "chat-1",
		MessageID:      1,
		MessageDate:    1695759000,
		SenderUsername: &username,
		Text:           "check   this   out:   HTTPS://example.com/path   now",
	}
	res := Normalise(msg, nil, DefaultOptions())
	assert.True(t, res.HasLink)
	assert.Contains(t, res.DisplayText, "HTTPS://example.com/path")
	assert.NotContains(t, res.DisplayText, "  ") // collapsed
}

func TestNormalise_NoLink(t *testing.T) {
	msg := types.Message{ChatID: "c", MessageID: 1, MessageDate: 1, Text: "no links here"}
	res := Normalise(msg, nil, DefaultOptions())
	assert.False(t, res.HasLink)
}

func TestNormalise_SplicesReplyContext(t *testing.T) {
	replyID := int64(5)
	msg := types.Message{
		ChatID:       "chat-1",
		MessageID:    6,
		MessageDate:  1695759000,
		ReplyToMsgID: &replyID,
		Text:         "agreed",
	}
	replies := fakeReplies{"chat-1": "original message being replied to"}
	res := Normalise(msg, replies, DefaultOptions())
	assert.Contains(t, res.DisplayText, "—")
	assert.Contains(t, res.DisplayText, "agreed")
}

func TestBuildHeader_PrefersUsername(t *testing.T) {
	sender := "Ira Ivanova"
	username := "ira"
	msg := types.Message{MessageDate: 1695759000, Sender: &sender, SenderUsername: &username}
	header := BuildHeader(msg)
	assert.Contains(t, header, "@ira")
}

func TestBuildHeader_FallsBackToUnknown(t *testing.T) {
	msg := types.Message{MessageDate: 1695759000}
	header := BuildHeader(msg)
	assert.Contains(t, header, "Unknown")
}
