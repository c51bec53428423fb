package types

// IndexedDocument is the full document shape fed to the search engine: all
// Chunk fields plus rendered text fields and one dense vector field,
// selected by embedding model.
type IndexedDocument struct {
	ChunkID         string
	ChatID          string
	MessageID       int64
	ChunkIdx        int
	ChunkingVersion int
	TextHash        string
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

	Text      string
	BM25Text  string
	Model     EmbeddingModel
	Vector    []float32 // routed to vector_small or vector_large at feed time
}

// FromChunk builds the durable-field subset of an IndexedDocument from a Chunk.
func FromChunk(c Chunk) IndexedDocument {
	return IndexedDocument{
		ChunkID:         c.ChunkID,
		ChatID:          c.ChatID,
		MessageID:       c.MessageID,
		ChunkIdx:        c.ChunkIdx,
		ChunkingVersion: c.ChunkingVersion,
		TextHash:        c.TextHash,
		MessageDate:     c.MessageDate,
		EditDate:        c.EditDate,
		DeletedAt:       c.DeletedAt,
		Sender:          c.Sender,
		SenderUsername:  c.SenderUsername,
		ChatUsername:    c.ChatUsername,
		ChatType:        c.ChatType,
		ThreadID:        c.ThreadID,
		SourceTitle:     c.SourceTitle,
		HasLink:         c.HasLink,
		Text:            c.FullText,
		BM25Text:        c.LexicalText,
	}
}
