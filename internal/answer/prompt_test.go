package answer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rtyshyk/telegram-rag/internal/types"
)

func TestBuildReformulationMessages_CapsHistoryAtSix(t *testing.T) {
	history := make([]types.ChatMessage, 10)
	for i := range history {
		history[i] = types.ChatMessage{Role: types.RoleUser, Content: "turn"}
	}
	messages := BuildReformulationMessages(history, "question")
	// system + 6 history + question
	assert.Len(t, messages, 8)
}

func TestBuildAnswerMessages_RendersContextHeader(t *testing.T) {
	title := "Flight Planning"
	ts := int64(1695759000000)
	candidates := []types.CandidateSnippet{
		{SourceTitle: &title, SeedMessageID: 101, Span: types.Span{StartTS: &ts}, Text: "Reminder about the flight"},
	}
	messages := BuildAnswerMessages(nil, candidates, "when is the flight", time.Now())
	last := messages[len(messages)-1]
	assert.Contains(t, last.Content, "Flight Planning")
	assert.Contains(t, last.Content, "message 101")
	assert.Contains(t, last.Content, "QUESTION: when is the flight")
}
