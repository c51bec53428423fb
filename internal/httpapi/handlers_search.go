package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rtyshyk/telegram-rag/internal/logger"
	"github.com/rtyshyk/telegram-rag/internal/search"
	"github.com/rtyshyk/telegram-rag/internal/types"
	"github.com/rtyshyk/telegram-rag/internal/utils"
)

// handleSearch runs the C7-C10 retrieval pipeline standalone, without the
// chat/reformulation/completion steps. On downstream failure it returns an
// empty result list rather than propagating the error, consistent with the
// rest of the retrieval surface degrading gracefully under load.
func (s *AppState) handleSearch(c *gin.Context) {
	var req types.SearchRequest
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

	ctx := c.Request.Context()
	correlationID, _ := c.Get(correlationIDKey)

	cfg := s.retrievalConfig(req.ExpansionLevel)
	cfg.Hybrid = req.Hybrid

	pipeline := &search.Pipeline{Searcher: s.Searcher, Expander: s.Expander, Reranker: s.Reranker}
	candidates, err := pipeline.Retrieve(ctx, req.Query, req.ChatIDs, req.ThreadID, req.ExpansionLevel, cfg)
	if err != nil {
		logger.Warn(ctx, "search failed", "query", utils.SanitizeForLog(req.Query), "error", err)
		c.JSON(http.StatusOK, gin.H{"ok": true, "results": []types.SearchResult{}, "correlation_id": correlationID})
		return
	}

	results := make([]types.SearchResult, len(candidates))
	for i, cand := range candidates {
		results[i] = types.SearchResult{
			ChatID: cand.ChatID, SeedMessageID: cand.SeedMessageID, Text: cand.Text,
			MessageCount: cand.MessageCount, SeedScore: cand.SeedScore,
			RetrievalScore: cand.RetrievalScore, RerankScore: cand.RerankScore,
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "results": results, "correlation_id": correlationID})
}
