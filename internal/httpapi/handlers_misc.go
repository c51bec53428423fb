package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/rtyshyk/telegram-rag/internal/answer"
	"github.com/rtyshyk/telegram-rag/internal/logger"
)

func (s *AppState) handleHealthz(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok", "service": "telegram-rag"})
}

func (s *AppState) handleModels(c *gin.Context) {
	c.JSON(200, gin.H{"ok": true, "models": answer.AvailableModels(s.Cfg.Chat.ChatModel)})
}

// chatSummaryDTO is one entry of the /chats response.
type chatSummaryDTO struct {
	ChatID       string `json:"chat_id"`
	SourceTitle  string `json:"source_title"`
	ChatType     string `json:"chat_type"`
	MessageCount int    `json:"message_count"`
}

func (s *AppState) handleChats(c *gin.Context) {
	ctx := c.Request.Context()
	rows, err := s.Repo.ListChats(ctx)
	if err != nil {
		logger.Warn(ctx, "chats aggregation failed", "error", err)
		c.JSON(200, gin.H{"ok": false, "chats": []chatSummaryDTO{}, "error": err.Error()})
		return
	}

	out := make([]chatSummaryDTO, len(rows))
	for i, r := range rows {
		out[i] = chatSummaryDTO{
			ChatID: r.ChatID, SourceTitle: r.SourceTitle, ChatType: r.ChatType, MessageCount: r.MessageCount,
		}
	}
	c.JSON(200, gin.H{"ok": true, "chats": out})
}
