package types

import "fmt"

// Chunk is the unit of indexing: one or more per Message.
//
// Invariant: (ChatID, MessageID, ChunkIdx) is unique; TextHash is
// deterministic from (full text, embed model, chunking version, preprocess
// version).
type Chunk struct {
	ChunkID         string
	ChatID          string
	MessageID       int64
	ChunkIdx        int
	ChunkingVersion int
	TextHash        string
	FullText        string
	LexicalText     string
	MessageDate     int64
	EditDate        *int64
	DeletedAt       *int64
	Sender          *string
	SenderUsername  *string
	ChatUsername    *string
	ChatType        ChatType
	ThreadID        *int64
	SourceTitle     *string
	HasLink         bool
}

// BuildChunkID renders the canonical "{chat_id}:{message_id}:{chunk_idx}:v{chunking_version}" id.
func BuildChunkID(chatID string, messageID int64, chunkIdx, chunkingVersion int) string {
	return fmt.Sprintf("%s:%d:%d:v%d", chatID, messageID, chunkIdx, chunkingVersion)
}

// IsDeleted reports whether the chunk has been tombstoned.
func (c Chunk) IsDeleted() bool { return c.DeletedAt != nil }
