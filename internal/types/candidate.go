package types

// Span identifies the message-id and timestamp bounds of a CandidateSnippet.
// StartTS/EndTS are epoch milliseconds, matching Seed.MessageDateMs.
type Span struct {
	StartID int64
	EndID   int64
	StartTS *int64
	EndTS   *int64
}

// CandidateSnippet is a seed grown by neighbouring messages and size-capped,
// the unit handed to the reranker and, finally, to the answerer's prompt.
type CandidateSnippet struct {
	ChatID         string
	SeedMessageID  int64
	Span           Span
	Text           string
	MessageCount   int
	SeedScore      float64
	RetrievalScore float64
	RerankScore    *float64

	SourceTitle    *string
	ChatType       ChatType
	SenderUsername *string
}
