// Package search implements the retrieval pipeline stages C7-C10: seed
// search, dedupe, context expansion and reranking.
package search

import (
	"context"

	"github.com/rtyshyk/telegram-rag/internal/embedding"
	"github.com/rtyshyk/telegram-rag/internal/logger"
	"github.com/rtyshyk/telegram-rag/internal/types"
	"github.com/rtyshyk/telegram-rag/internal/vespa"
)

// SeedQuery configures one C7 seed search.
type SeedQuery struct {
	Query     string
	Hybrid    bool
	SeedLimit int
	Model     types.EmbeddingModel
	ChatIDs   []string
	ThreadID  *int64
}

// Searcher wraps a vespa client and an embedding backend to run the C7
// hybrid seed search.
type Searcher struct {
	client  *vespa.Client
	backend embedding.Backend
}

// NewSearcher wires a search engine client and a query-embedding backend.
func NewSearcher(client *vespa.Client, backend embedding.Backend) *Searcher {
	return &Searcher{client: client, backend: backend}
}

// SearchSeeds runs the hybrid lexical+ANN query and parses the result into
// Seeds, dropping entries with no chat_id/message_id; a hit without a
// relevance value gets score zero.
func (s *Searcher) SearchSeeds(ctx context.Context, q SeedQuery) ([]types.Seed, error) {
	opts := vespa.QueryOptions{
		Query:     q.Query,
		Hybrid:    q.Hybrid,
		SeedLimit: q.SeedLimit,
		Model:     q.Model,
		ChatIDs:   q.ChatIDs,
		ThreadID:  q.ThreadID,
	}

	if q.Hybrid {
		vectors, err := s.backend.EmbedBatch(ctx, []string{q.Query})
		if err != nil {
			logger.Warn(ctx, "query embedding failed, falling back to bm25-only", "error", err)
		} else if len(vectors) == 1 {
			opts.QueryVector = vectors[0]
		}
	}

	body, _ := vespa.BuildSeedQuery(opts)
	resp, err := s.client.Query(ctx, body)
	if err != nil {
		return nil, err
	}

	seeds := make([]types.Seed, 0, len(resp.Root.Children))
	for _, child := range resp.Root.Children {
		chatID, ok := child.Fields["chat_id"].(string)
		if !ok || chatID == "" {
			continue
		}
		messageID, ok := parseInt64(child.Fields["message_id"])
		if !ok {
			continue
		}
		seed := types.Seed{
			ID:        child.ID,
			ChatID:    chatID,
			MessageID: messageID,
			Text:      stringField(child.Fields["text"]),
			Score:     child.Relevance,
			RawFields: child.Fields,
		}
		if dateSec, ok := parseInt64(child.Fields["message_date"]); ok {
			dateMs := dateSec * 1000
			seed.MessageDateMs = &dateMs
		}
		seeds = append(seeds, seed)
	}
	return seeds, nil
}

func stringField(v interface{}) string {
	s, _ := v.(string)
	return s
}

func parseInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}
