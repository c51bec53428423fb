// Package platform abstracts the chat source the ingest pipeline reads
// from, so the rest of the system never imports a transport library
// directly.
package platform

import (
	"context"

	"github.com/rtyshyk/telegram-rag/internal/types"
)

// ChatInfo is a resolved chat handle returned by ResolveChats.
type ChatInfo struct {
	ID       string
	Title    string
	Type     types.ChatType
	Username *string
}

// ChatPlatform is the seam between the ingest coordinator and whatever
// messaging backend supplies chat history and live updates.
type ChatPlatform interface {
	// Start connects and begins delivering live messages to the handler
	// registered via OnMessage. It blocks until ctx is cancelled or Stop is
	// called.
	Start(ctx context.Context) error

	// Stop disconnects gracefully.
	Stop() error

	// OnMessage registers the callback invoked for every live message.
	// Must be called before Start.
	OnMessage(handler func(types.Message))

	// ResolveChats maps human-provided chat names/usernames/ids to
	// canonical ChatInfo, "<Saved Messages>" resolving to the caller's own
	// saved-messages chat where the platform supports one.
	ResolveChats(ctx context.Context, names []string) (map[string]ChatInfo, error)

	// ListAllChats enumerates every chat visible to the configured
	// account, for backfill discovery when no explicit chat list is given.
	ListAllChats(ctx context.Context) ([]string, error)

	// FetchHistory returns up to limit messages from chatID with message_id
	// greater than afterMessageID, oldest first.
	FetchHistory(ctx context.Context, chatID string, afterMessageID int64, limit int) ([]types.Message, error)

	// GetMessage fetches a single message by id, used to resolve reply
	// context.
	GetMessage(ctx context.Context, chatID string, messageID int64) (types.Message, bool, error)

	// IsConnected reports current connectivity, sampled by the daemon's
	// connection watchdog to detect reconnects.
	IsConnected() bool
}
