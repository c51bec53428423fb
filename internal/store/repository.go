package store

import (
	"context"
	"encoding/binary"
	"math"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rtyshyk/telegram-rag/internal/types"
)

// Repository persists Chunks and embedding-cache entries.
type Repository struct {
	db *gorm.DB
}

// NewRepository wraps an opened *gorm.DB.
func NewRepository(db *gorm.DB) *Repository { return &Repository{db: db} }

// GetExistingChunks returns the chunk records already stored for a message,
// used by per-message processing (§4.6 step 1) to decide whether to skip.
func (r *Repository) GetExistingChunks(ctx context.Context, chatID string, messageID int64) ([]ChunkRecord, error) {
	var rows []ChunkRecord
	err := r.db.WithContext(ctx).
		Where("chat_id = ? AND message_id = ?", chatID, messageID).
		Order("chunk_idx asc").
		Find(&rows).Error
	return rows, err
}

// UpsertChunks writes chunk records keyed by chunk_id, updating in place
// when a chunk_id is re-ingested.
func (r *Repository) UpsertChunks(ctx context.Context, chunks []types.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	rows := make([]ChunkRecord, 0, len(chunks))
	for _, c := range chunks {
		rows = append(rows, ChunkRecord{
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
			ChatType:        string(c.ChatType),
			ThreadID:        c.ThreadID,
			SourceTitle:     c.SourceTitle,
			HasLink:         c.HasLink,
		})
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chunk_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"text_hash", "message_date", "edit_date", "deleted_at", "has_link"}),
	}).Create(&rows).Error
}

// MarkDeleted tombstones every chunk belonging to a message.
func (r *Repository) MarkDeleted(ctx context.Context, chatID string, messageID int64, deletedAt int64) error {
	return r.db.WithContext(ctx).Model(&ChunkRecord{}).
		Where("chat_id = ? AND message_id = ?", chatID, messageID).
		Update("deleted_at", deletedAt).Error
}

// GetCachedVectors probes the embedding cache for a batch of text hashes and
// returns the ones present.
func (r *Repository) GetCachedVectors(ctx context.Context, hashes []string) (map[string]types.EmbeddingCacheEntry, error) {
	out := map[string]types.EmbeddingCacheEntry{}
	if len(hashes) == 0 {
		return out, nil
	}
	var rows []EmbeddingCacheRecord
	if err := r.db.WithContext(ctx).Where("text_hash IN ?", hashes).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.TextHash] = types.EmbeddingCacheEntry{
			TextHash:          row.TextHash,
			Model:             row.Model,
			Dim:               row.Dim,
			Vector:            BytesToVector(row.Vector),
			ChunkingVersion:   row.ChunkingVersion,
			PreprocessVersion: row.PreprocessVersion,
		}
	}
	return out, nil
}

// PutCachedVector idempotently inserts a new embedding-cache entry
// (ON CONFLICT DO NOTHING, per the budget-gate and idempotency invariants).
func (r *Repository) PutCachedVector(ctx context.Context, entry types.EmbeddingCacheEntry) error {
	row := EmbeddingCacheRecord{
		TextHash:          entry.TextHash,
		Model:             entry.Model,
		Dim:               entry.Dim,
		Vector:            VectorToBytes(entry.Vector),
		ChunkingVersion:   entry.ChunkingVersion,
		PreprocessVersion: entry.PreprocessVersion,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

// ChatSummary is one row of the /chats index aggregation: a chat_id with the
// greatest (max()) denormalised title/type among its live chunks and a live
// message count.
type ChatSummary struct {
	ChatID       string `gorm:"column:chat_id"`
	SourceTitle  string `gorm:"column:source_title"`
	ChatType     string `gorm:"column:chat_type"`
	MessageCount int    `gorm:"column:message_count"`
}

// ListChats aggregates non-deleted chunks by chat_id for the /chats listing,
// ordered by most recently active first.
func (r *Repository) ListChats(ctx context.Context) ([]ChatSummary, error) {
	var rows []ChatSummary
	err := r.db.WithContext(ctx).Model(&ChunkRecord{}).
		Select("chat_id, max(source_title) as source_title, max(chat_type) as chat_type, "+
			"count(distinct message_id) as message_count").
		Where("deleted_at IS NULL").
		Group("chat_id").
		Order("max(message_date) desc").
		Scan(&rows).Error
	return rows, err
}

// VectorToBytes packs a float32 vector into little-endian bytes for storage.
func VectorToBytes(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// BytesToVector is the inverse of VectorToBytes.
func BytesToVector(b []byte) []float32 {
	n := len(b) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
