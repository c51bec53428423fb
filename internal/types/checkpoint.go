package types

import "time"

// ChatCheckpoint is one chat's entry in the BackfillCheckpoint map.
type ChatCheckpoint struct {
	LastMessageID int64     `json:"last_message_id"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BackfillCheckpoint is the persisted, monotonic per-chat progress map:
// never rewritten downward.
type BackfillCheckpoint struct {
	Chats map[string]ChatCheckpoint `json:"chats"`
}

// NewBackfillCheckpoint returns an empty checkpoint ready to accept updates.
func NewBackfillCheckpoint() *BackfillCheckpoint {
	return &BackfillCheckpoint{Chats: make(map[string]ChatCheckpoint)}
}
