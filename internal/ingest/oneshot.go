package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/rtyshyk/telegram-rag/internal/logger"
	"github.com/rtyshyk/telegram-rag/internal/platform"
)

// OneShotConfig controls a single backfill-and-exit run.
type OneShotConfig struct {
	Chats         []string // explicit chat names/ids; empty means every chat the platform can list
	SinceDays     int      // 0 means full history
	LimitMessages int      // 0 means unbounded
	HistoryPage   int      // page size per FetchHistory call, default 200
}

func (c OneShotConfig) withDefaults() OneShotConfig {
	if c.HistoryPage <= 0 {
		c.HistoryPage = 200
	}
	return c
}

// RunOnce resolves the configured chat selection, iterates each chat's
// history from the beginning (or the last SinceDays) and processes every
// message synchronously, up to the optional global message cap.
func RunOnce(ctx context.Context, plat platform.ChatPlatform, proc *Processor, cfg OneShotConfig) error {
	cfg = cfg.withDefaults()

	chatIDs, err := resolveChatSelection(ctx, plat, cfg.Chats)
	if err != nil {
		return err
	}

	var sinceCutoff int64
	if cfg.SinceDays > 0 {
		sinceCutoff = time.Now().AddDate(0, 0, -cfg.SinceDays).Unix()
	}

	var processed int
	for _, chatID := range chatIDs {
		var afterID int64
		for {
			if cfg.LimitMessages > 0 && processed >= cfg.LimitMessages {
				logger.Info(ctx, "one-shot: global message limit reached", "limit", cfg.LimitMessages)
				return nil
			}
			page := cfg.HistoryPage
			if cfg.LimitMessages > 0 && cfg.LimitMessages-processed < page {
				page = cfg.LimitMessages - processed
			}
			msgs, err := plat.FetchHistory(ctx, chatID, afterID, page)
			if err != nil {
				logger.Warn(ctx, "one-shot: fetch history failed", "chat_id", chatID, "error", err)
				break
			}
			if len(msgs) == 0 {
				break
			}
			for _, msg := range msgs {
				afterID = msg.MessageID
				if sinceCutoff > 0 && msg.MessageDate < sinceCutoff {
					continue
				}
				if err := proc.ProcessMessage(ctx, msg, false); err != nil {
					logger.Warn(ctx, "one-shot: process message failed", "chat_id", chatID, "message_id", msg.MessageID, "error", err)
				}
				processed++
			}
		}
	}

	logger.Info(ctx, "one-shot backfill complete", "messages_processed", processed)
	return nil
}

// resolveChatSelection expands an explicit chat list (if given) via
// ResolveChats, or falls back to ListAllChats.
func resolveChatSelection(ctx context.Context, plat platform.ChatPlatform, chats []string) ([]string, error) {
	if len(chats) == 0 {
		return plat.ListAllChats(ctx)
	}
	resolved, err := plat.ResolveChats(ctx, chats)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(resolved))
	for _, info := range resolved {
		out = append(out, info.ID)
	}
	return out, nil
}

// ParseChatsFlag splits a CSV --chats flag value into a trimmed, non-empty
// chat name list.
func ParseChatsFlag(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
