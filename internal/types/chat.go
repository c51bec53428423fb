package types

// ChatRole is the role of one turn in a conversation sent to the LLM.
type ChatRole string

const (
	RoleSystem    ChatRole = "system"
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of conversation history or prompt content.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// ChatUsage reports token consumption and estimated cost for one completion.
type ChatUsage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
	Estimated        bool    `json:"estimated"`
}

// ChatCitation is one entry in the citations chunk: a search result that
// survived dedupe and expansion and was used to ground the answer.
type ChatCitation struct {
	ChatID      string  `json:"chat_id"`
	MessageID   int64   `json:"message_id"`
	SourceTitle string  `json:"source_title,omitempty"`
	Score       float64 `json:"score"`
	Snippet     string  `json:"snippet"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Query          string        `json:"query" binding:"required"`
	History        []ChatMessage `json:"history"`
	ChatIDs        []string      `json:"chat_ids,omitempty"`
	ExpansionLevel int           `json:"expansion_level,omitempty"`
}

// StreamEventType tags the arm of a StreamChunk tagged union.
type StreamEventType string

const (
	EventReformulate StreamEventType = "reformulate"
	EventSearch      StreamEventType = "search"
	EventStart       StreamEventType = "start"
	EventContent     StreamEventType = "content"
	EventCitations   StreamEventType = "citations"
	EventUsage       StreamEventType = "usage"
	EventEnd         StreamEventType = "end"
	EventError       StreamEventType = "error"
)

// StreamChunk is the tagged union sent down the /chat SSE stream. Only the
// fields relevant to Type are populated; the JSON wire shape is flat for
// backward compatibility with the original envelope.
type StreamChunk struct {
	Type StreamEventType `json:"type"`

	ReformulatedQuery string         `json:"reformulated_query,omitempty"`
	ResultCount       int            `json:"result_count,omitempty"`
	Content           string         `json:"content,omitempty"`
	Citations         []ChatCitation `json:"citations,omitempty"`
	Usage             *ChatUsage     `json:"usage,omitempty"`
	ElapsedSeconds    float64        `json:"elapsed_seconds,omitempty"`
	Error             string         `json:"error,omitempty"`
	RetryAfterSeconds int            `json:"retry_after_seconds,omitempty"`
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query          string   `json:"query" binding:"required"`
	ChatIDs        []string `json:"chat_ids,omitempty"`
	ThreadID       *int64   `json:"thread_id,omitempty"`
	Hybrid         bool     `json:"hybrid"`
	ExpansionLevel int      `json:"expansion_level,omitempty"`
}

// SearchResult is one item returned by POST /search.
type SearchResult struct {
	ChatID         string  `json:"chat_id"`
	SeedMessageID  int64   `json:"seed_message_id"`
	Text           string  `json:"text"`
	MessageCount   int     `json:"message_count"`
	SeedScore      float64 `json:"seed_score"`
	RetrievalScore float64 `json:"retrieval_score"`
	RerankScore    *float64 `json:"rerank_score,omitempty"`
}
