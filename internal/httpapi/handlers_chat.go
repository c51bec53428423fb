package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rtyshyk/telegram-rag/internal/types"
	"github.com/rtyshyk/telegram-rag/internal/utils"
)

// handleChat streams a POST /chat answer as Server-Sent Events. The HTTP
// response always starts at 200: once the stream is open a downstream
// failure degrades to a single `error` frame rather than an HTTP error
// status, since the headers are already committed.
func (s *AppState) handleChat(c *gin.Context) {
	var req types.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request body"})
		return
	}
	query, ok := utils.ValidateInput(req.Query)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid query"})
		return
	}
	req.Query = query

	username, _ := c.Get(usernameKey)
	userID, _ := username.(string)
	if userID == "" {
		userID = c.ClientIP()
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	chunks := s.Answerer.Answer(c.Request.Context(), userID, req)
	c.Stream(func(w io.Writer) bool {
		chunk, ok := <-chunks
		if !ok {
			return false
		}
		data, err := json.Marshal(chunk)
		if err != nil {
			return false
		}
		w.Write([]byte("data: "))
		w.Write(data)
		w.Write([]byte("\n\n"))
		return true
	})
}
