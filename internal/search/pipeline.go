package search

import (
	"context"

	"github.com/rtyshyk/telegram-rag/internal/logger"
	"github.com/rtyshyk/telegram-rag/internal/types"
)

// RetrieveConfig holds every knob C7-C10 and the expansion-broadening steps
// need, shared by every caller of the retrieval pipeline (the answerer and
// the standalone /search handler).
type RetrieveConfig struct {
	DefaultResultLimit   int
	SeedLimit            int
	RerankCandidateLimit int
	DedupeIDGap          int64
	DedupeTimeGapMs      int64
	MessageWindow        int64
	TimeWindowMinutes    int
	MinMessages          int
	MaxMessages          int
	TokenLimit           int
	MaxReturn            int
	ExpansionSeedStep    int
	ExpansionResultStep  int
	ExpansionRerankStep  int
	Hybrid               bool
	Model                types.EmbeddingModel
}

// Pipeline wires a Searcher, Expander and optional Reranker into the single
// seed-search -> dedupe -> expand -> sort -> rerank -> truncate sequence
// that both POST /search and POST /chat run.
type Pipeline struct {
	Searcher *Searcher
	Expander *Expander
	Reranker Reranker
}

// Retrieve runs the full retrieval pipeline for one query, broadened by
// expansionLevel, scoped to chatIDs/threadID when given.
func (p *Pipeline) Retrieve(ctx context.Context, query string, chatIDs []string, threadID *int64,
	expansionLevel int, cfg RetrieveConfig,
) ([]types.CandidateSnippet, error) {
	limits := Broaden(expansionLevel, cfg.DefaultResultLimit, cfg.SeedLimit, cfg.RerankCandidateLimit,
		cfg.ExpansionResultStep, cfg.ExpansionSeedStep, cfg.ExpansionRerankStep, cfg.MaxReturn)

	seeds, err := p.Searcher.SearchSeeds(ctx, SeedQuery{
		Query: query, Hybrid: cfg.Hybrid, SeedLimit: limits.SeedLimit, Model: cfg.Model,
		ChatIDs: chatIDs, ThreadID: threadID,
	})
	if err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		return nil, nil
	}

	deduped := DedupeSeeds(seeds, cfg.DedupeIDGap, cfg.DedupeTimeGapMs)

	candidates := p.Expander.ExpandAll(ctx, deduped, ExpandOptions{
		MessageWindow: cfg.MessageWindow, TimeWindowMinutes: cfg.TimeWindowMinutes,
		MinMessages: cfg.MinMessages, MaxMessages: cfg.MaxMessages, TokenLimit: cfg.TokenLimit,
		ThreadID: threadID,
	})

	SortByRecencyThenScore(candidates)

	if p.Reranker != nil {
		reranked, err := p.Reranker.Rerank(ctx, query, candidates, limits.RerankCap)
		if err != nil {
			logger.Warn(ctx, "rerank failed, using retrieval order", "error", err)
		} else {
			candidates = reranked
		}
	}

	if len(candidates) > limits.ResultLimit {
		candidates = candidates[:limits.ResultLimit]
	}
	return candidates, nil
}

// SortByRecencyThenScore stably sorts candidates by (message_date desc,
// seed_score desc), the ordering guarantee applied before rerank.
func SortByRecencyThenScore(candidates []types.CandidateSnippet) {
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidateLess(candidates[j], candidates[j-1]); j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}
}

func candidateLess(a, b types.CandidateSnippet) bool {
	aTS, bTS := int64(0), int64(0)
	if a.Span.StartTS != nil {
		aTS = *a.Span.StartTS
	}
	if b.Span.StartTS != nil {
		bTS = *b.Span.StartTS
	}
	if aTS != bTS {
		return aTS > bTS
	}
	return a.SeedScore > b.SeedScore
}
