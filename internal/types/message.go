// Package types holds the data model shared across the indexing and
// retrieval pipelines: Message, Chunk, EmbeddingCacheEntry, IndexedDocument,
// BackfillCheckpoint, Seed and CandidateSnippet.
package types

// ChatType enumerates the kinds of chat a Message can come from.
type ChatType string

const (
	ChatTypePrivate ChatType = "private"
	ChatTypeGroup   ChatType = "group"
	ChatTypeChannel ChatType = "channel"
	ChatTypeSaved   ChatType = "saved"
	ChatTypeUnknown ChatType = "unknown"
)

// Message is an immutable snapshot of a single chat-platform message at
// ingest time.
type Message struct {
	ChatID         string
	MessageID      int64
	MessageDate    int64 // epoch seconds
	EditDate       *int64
	Sender         *string
	SenderUsername *string
	ChatUsername   *string
	ChatType       ChatType
	ThreadID       *int64
	ReplyToMsgID   *int64
	Text           string
	SourceTitle    *string
}

// HasEdit reports whether the message carries an edit timestamp.
func (m Message) HasEdit() bool { return m.EditDate != nil }
