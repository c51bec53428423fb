// Package store holds the GORM models and repository used to persist
// Chunks and the embedding cache in PostgreSQL.
package store

import "time"

// ChunkRecord is the GORM model backing the chunks table (SPEC_FULL §3.1).
type ChunkRecord struct {
	ChunkID         string `gorm:"column:chunk_id;primaryKey"`
	ChatID          string `gorm:"column:chat_id;index:idx_chunks_chat_msg_idx,unique,priority:1"`
	MessageID       int64  `gorm:"column:message_id;index:idx_chunks_chat_msg_idx,unique,priority:2"`
	ChunkIdx        int    `gorm:"column:chunk_idx;index:idx_chunks_chat_msg_idx,unique,priority:3"`
	ChunkingVersion int    `gorm:"column:chunking_version"`
	TextHash        string `gorm:"column:text_hash;index"`
	MessageDate     int64  `gorm:"column:message_date"`
	EditDate        *int64 `gorm:"column:edit_date"`
	DeletedAt       *int64 `gorm:"column:deleted_at"`
	Sender          *string `gorm:"column:sender"`
	SenderUsername  *string `gorm:"column:sender_username"`
	ChatUsername    *string `gorm:"column:chat_username"`
	ChatType        string  `gorm:"column:chat_type"`
	ThreadID        *int64  `gorm:"column:thread_id"`
	SourceTitle     *string `gorm:"column:source_title"`
	HasLink         bool    `gorm:"column:has_link"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName pins the GORM table name regardless of struct name pluralisation.
func (ChunkRecord) TableName() string { return "chunks" }

// EmbeddingCacheRecord is the GORM model backing the embedding_cache table.
type EmbeddingCacheRecord struct {
	TextHash          string `gorm:"column:text_hash;primaryKey"`
	Model             string `gorm:"column:model"`
	Dim               int    `gorm:"column:dim"`
	Vector            []byte `gorm:"column:vector"` // packed little-endian float32
	ChunkingVersion   int    `gorm:"column:chunking_version"`
	PreprocessVersion int    `gorm:"column:preprocess_version"`
	CreatedAt         time.Time
}

func (EmbeddingCacheRecord) TableName() string { return "embedding_cache" }
