package answer

import (
	"context"
	"strings"
	"time"

	"github.com/rtyshyk/telegram-rag/internal/chunker"
	"github.com/rtyshyk/telegram-rag/internal/logger"
	"github.com/rtyshyk/telegram-rag/internal/metrics"
	"github.com/rtyshyk/telegram-rag/internal/ratelimit"
	"github.com/rtyshyk/telegram-rag/internal/search"
	"github.com/rtyshyk/telegram-rag/internal/types"
)

// RetrievalConfig holds every knob C7-C10 need from configuration.
type RetrievalConfig struct {
	DefaultResultLimit int
	SeedLimit          int
	RerankCandidateLimit int
	DedupeIDGap        int64
	DedupeTimeGapMs    int64
	MessageWindow      int64
	TimeWindowMinutes  int
	MinMessages        int
	MaxMessages        int
	TokenLimit         int
	MaxReturn          int
	ExpansionMaxLevel  int
	ExpansionSeedStep  int
	ExpansionResultStep int
	ExpansionRerankStep int
	Hybrid             bool
	Model              types.EmbeddingModel
}

// Config configures the Answerer.
type Config struct {
	RateLimitPerMinute int
	ReformulationModel string
	ChatModel          string
	Retrieval          RetrievalConfig
}

// Answerer runs the full C11 pipeline for one /chat request.
type Answerer struct {
	cfg          Config
	limiter      *ratelimit.Limiter
	pipeline     *search.Pipeline
	reformulator ChatProvider
	chatProvider ChatProvider
}

// New wires the Answerer from its collaborators.
func New(cfg Config, searcher *search.Searcher, expander *search.Expander, reranker search.Reranker, chatProvider ChatProvider) *Answerer {
	return &Answerer{
		cfg:          cfg,
		limiter:      ratelimit.New(cfg.RateLimitPerMinute, time.Minute),
		pipeline:     &search.Pipeline{Searcher: searcher, Expander: expander, Reranker: reranker},
		reformulator: chatProvider,
		chatProvider: chatProvider,
	}
}

// Answer runs the pipeline and streams StreamChunks on the returned
// channel, closed when the answer is complete or an error chunk has been
// sent.
func (a *Answerer) Answer(ctx context.Context, userID string, req types.ChatRequest) <-chan types.StreamChunk {
	out := make(chan types.StreamChunk)
	go a.run(ctx, userID, req, out)
	return out
}

func (a *Answerer) run(ctx context.Context, userID string, req types.ChatRequest, out chan<- types.StreamChunk) {
	defer close(out)
	start := time.Now()
	metrics.ChatRequests.Inc()

	if !a.limiter.Allow(userID, start) {
		metrics.ChatRateLimited.Inc()
		out <- types.StreamChunk{Type: types.EventError, Error: "rate limit exceeded", RetryAfterSeconds: 60}
		return
	}

	query := req.Query
	if len(req.History) > 0 {
		reformulated, err := a.reformulator.Complete(ctx, BuildReformulationMessages(req.History, req.Query), a.cfg.ReformulationModel)
		if err != nil || strings.TrimSpace(reformulated) == "" {
			if err != nil {
				logger.Warn(ctx, "reformulation failed, using original query", "error", err)
			}
		} else {
			query = reformulated
			out <- types.StreamChunk{Type: types.EventReformulate, ReformulatedQuery: query}
		}
	}

	candidates := a.retrieve(ctx, query, req)
	out <- types.StreamChunk{Type: types.EventSearch, ResultCount: len(candidates)}

	if len(candidates) == 0 {
		out <- types.StreamChunk{Type: types.EventContent, Content: "I couldn't find anything in the indexed history about that."}
		out <- types.StreamChunk{Type: types.EventEnd, Usage: &types.ChatUsage{Estimated: true}, ElapsedSeconds: time.Since(start).Seconds()}
		return
	}

	messages := BuildAnswerMessages(req.History, candidates, query, start)
	out <- types.StreamChunk{Type: types.EventStart}

	deltas, err := a.chatProvider.ChatStream(ctx, messages, a.cfg.ChatModel)
	if err != nil {
		out <- types.StreamChunk{Type: types.EventError, Error: err.Error()}
		return
	}

	var accumulated strings.Builder
	var usage *types.ChatUsage
	for delta := range deltas {
		if delta.Err != nil {
			out <- types.StreamChunk{Type: types.EventError, Error: delta.Err.Error()}
			return
		}
		if delta.Content != "" {
			accumulated.WriteString(delta.Content)
			out <- types.StreamChunk{Type: types.EventContent, Content: delta.Content}
		}
		if delta.Usage != nil {
			usage = delta.Usage
		}
		if delta.Done {
			break
		}
	}

	if usage == nil {
		usage = estimateUsage(messages, accumulated.String(), a.cfg.ChatModel)
	}

	out <- types.StreamChunk{Type: types.EventCitations, Citations: citationsFrom(candidates)}
	out <- types.StreamChunk{Type: types.EventEnd, Usage: usage, ElapsedSeconds: time.Since(start).Seconds()}
}

func (a *Answerer) retrieve(ctx context.Context, query string, req types.ChatRequest) []types.CandidateSnippet {
	rc := a.cfg.Retrieval
	cfg := search.RetrieveConfig{
		DefaultResultLimit: rc.DefaultResultLimit, SeedLimit: rc.SeedLimit, RerankCandidateLimit: rc.RerankCandidateLimit,
		DedupeIDGap: rc.DedupeIDGap, DedupeTimeGapMs: rc.DedupeTimeGapMs,
		MessageWindow: rc.MessageWindow, TimeWindowMinutes: rc.TimeWindowMinutes,
		MinMessages: rc.MinMessages, MaxMessages: rc.MaxMessages, TokenLimit: rc.TokenLimit, MaxReturn: rc.MaxReturn,
		ExpansionSeedStep: rc.ExpansionSeedStep, ExpansionResultStep: rc.ExpansionResultStep, ExpansionRerankStep: rc.ExpansionRerankStep,
		Hybrid: rc.Hybrid, Model: rc.Model,
	}
	candidates, err := a.pipeline.Retrieve(ctx, query, req.ChatIDs, nil, req.ExpansionLevel, cfg)
	if err != nil {
		logger.Warn(ctx, "retrieval failed", "error", err)
		return nil
	}
	return candidates
}

func citationsFrom(candidates []types.CandidateSnippet) []types.ChatCitation {
	out := make([]types.ChatCitation, len(candidates))
	for i, c := range candidates {
		title := ""
		if c.SourceTitle != nil {
			title = *c.SourceTitle
		}
		score := c.RetrievalScore
		if c.RerankScore != nil {
			score = *c.RerankScore
		}
		out[i] = types.ChatCitation{
			ChatID: c.ChatID, MessageID: c.SeedMessageID, SourceTitle: title, Score: score,
			Snippet: firstLine(c.Text),
		}
	}
	return out
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func estimateUsage(messages []types.ChatMessage, completion, model string) *types.ChatUsage {
	var promptTokens int
	for _, m := range messages {
		promptTokens += chunker.CountTokens(m.Content) + perMessageOverheadTokens
	}
	promptTokens += replyPrimerTokens
	completionTokens := chunker.CountTokens(completion)
	total := promptTokens + completionTokens
	return &types.ChatUsage{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      total,
		EstimatedCostUSD: float64(total) / 1_000_000 * priceFor(model),
		Estimated:        true,
	}
}
