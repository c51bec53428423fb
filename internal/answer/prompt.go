package answer

import (
	"fmt"
	"strings"
	"time"

	"github.com/rtyshyk/telegram-rag/internal/types"
)

// perMessageOverheadTokens and replyPrimerTokens are the fixed overhead
// terms used to approximate prompt/completion token counts when a provider
// does not return usage with its streaming response.
const (
	perMessageOverheadTokens = 4
	replyPrimerTokens        = 2
)

const systemPromptTemplate = `You are a retrieval assistant answering questions about the user's own Telegram chat history.
Current date and time: %s.
Answer only from the CONTEXT provided in the user's message. If the context does not contain the answer, say so plainly instead of guessing.
Cite specific messages by date and chat when useful, and keep answers concise.`

func renderSystemPrompt(now time.Time) types.ChatMessage {
	return types.ChatMessage{
		Role:    types.RoleSystem,
		Content: fmt.Sprintf(systemPromptTemplate, now.Format("2006-01-02 15:04")),
	}
}

const reformulationSystemPrompt = `Rewrite the user's latest message as a single, self-contained search query over their chat history, resolving pronouns and references from the conversation. Reply with only the rewritten query, nothing else.`

// BuildReformulationMessages assembles the prompt for query reformulation:
// a dedicated system prompt, the last up to 6 history turns, then the
// question.
func BuildReformulationMessages(history []types.ChatMessage, query string) []types.ChatMessage {
	messages := []types.ChatMessage{{Role: types.RoleSystem, Content: reformulationSystemPrompt}}
	messages = append(messages, lastN(history, 6)...)
	messages = append(messages, types.ChatMessage{Role: types.RoleUser, Content: query})
	return messages
}

// BuildAnswerMessages assembles the final prompt: system prompt, the last
// up to 16 history turns verbatim, then one user turn carrying the rendered
// context and the reformulated question.
func BuildAnswerMessages(history []types.ChatMessage, candidates []types.CandidateSnippet, reformulatedQuery string, now time.Time) []types.ChatMessage {
	messages := []types.ChatMessage{renderSystemPrompt(now)}
	messages = append(messages, lastN(history, 16)...)
	snippets := renderSnippets(candidates)
	messages = append(messages, types.ChatMessage{
		Role:    types.RoleUser,
		Content: fmt.Sprintf("CONTEXT:\n%s\n\nQUESTION: %s", snippets, reformulatedQuery),
	})
	return messages
}

func renderSnippets(candidates []types.CandidateSnippet) string {
	var b strings.Builder
	for i, c := range candidates {
		title := "Unknown chat"
		if c.SourceTitle != nil {
			title = *c.SourceTitle
		}
		ts := "unknown time"
		if c.Span.StartTS != nil {
			ts = time.UnixMilli(*c.Span.StartTS).UTC().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(&b, "[%d] %s — %s — message %d:\n%s\n\n", i+1, title, ts, c.SeedMessageID, c.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func lastN(history []types.ChatMessage, n int) []types.ChatMessage {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
