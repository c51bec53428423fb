package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/rtyshyk/telegram-rag/internal/errors"
	"github.com/rtyshyk/telegram-rag/internal/logger"
	"github.com/rtyshyk/telegram-rag/internal/types"
)

// Reranker re-orders candidates by relevance to query, returning at most
// topN of them.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []types.CandidateSnippet, topN int) ([]types.CandidateSnippet, error)
}

// StubReranker ranks by query-token overlap ratio, ties broken by retrieval
// score. Deterministic, used in tests and when rerank_stub_mode is set.
type StubReranker struct{}

func (StubReranker) Rerank(_ context.Context, query string, candidates []types.CandidateSnippet, topN int) ([]types.CandidateSnippet, error) {
	queryTokens := tokenSet(query)

	type scored struct {
		cand  types.CandidateSnippet
		score float64
	}
	ranked := make([]scored, len(candidates))
	for i, c := range candidates {
		overlap := overlapRatio(queryTokens, tokenSet(c.Text))
		ranked[i] = scored{cand: c, score: overlap}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].cand.RetrievalScore > ranked[j].cand.RetrievalScore
	})

	if topN > len(ranked) || topN <= 0 {
		topN = len(ranked)
	}
	out := make([]types.CandidateSnippet, topN)
	for i := 0; i < topN; i++ {
		score := ranked[i].score
		out[i] = ranked[i].cand
		out[i].RerankScore = &score
	}
	return out, nil
}

func tokenSet(s string) map[string]struct{} {
	tokens := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func overlapRatio(query, doc map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	var hits int
	for t := range query {
		if _, ok := doc[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}

// HTTPReranker calls a Cohere/Voyage/Jina-shaped rerank endpoint accepting
// {model, query, documents[], top_n} and returning ranked (index, score)
// pairs, generalising the teacher's Jina reranker client to any compatible
// provider via configuration.
type HTTPReranker struct {
	model   string
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewHTTPReranker builds an HTTPReranker against baseURL (no trailing slash).
func NewHTTPReranker(model, apiKey, baseURL string) *HTTPReranker {
	return &HTTPReranker{model: model, apiKey: apiKey, baseURL: baseURL, client: &http.Client{}}
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type rerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type rerankResponse struct {
	Results []rerankResult `json:"results"`
}

// Rerank calls the configured HTTP endpoint; on any failure it logs and
// falls back to the original candidate order truncated to topN.
func (r *HTTPReranker) Rerank(ctx context.Context, query string, candidates []types.CandidateSnippet, topN int) ([]types.CandidateSnippet, error) {
	documents := make([]string, len(candidates))
	for i, c := range candidates {
		documents[i] = c.Text
	}

	reqBody, err := json.Marshal(rerankRequest{Model: r.model, Query: query, Documents: documents, TopN: topN})
	if err != nil {
		return truncate(candidates, topN), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(reqBody))
	if err != nil {
		logger.Warn(ctx, "rerank request build failed, returning original order", "error", err)
		return truncate(candidates, topN), nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", r.apiKey))

	resp, err := r.client.Do(req)
	if err != nil {
		logger.Warn(ctx, "rerank provider unreachable, returning original order", "error", err)
		return truncate(candidates, topN), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		logger.Warn(ctx, "rerank provider error, returning original order", "status", resp.StatusCode)
		return truncate(candidates, topN), nil
	}

	var parsed rerankResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		logger.Warn(ctx, "rerank response unparsable, returning original order", "error", err)
		return truncate(candidates, topN), nil
	}

	seen := make(map[int]bool, len(parsed.Results))
	out := make([]types.CandidateSnippet, 0, topN)
	for _, res := range parsed.Results {
		if res.Index < 0 || res.Index >= len(candidates) {
			continue
		}
		score := res.RelevanceScore
		c := candidates[res.Index]
		c.RerankScore = &score
		out = append(out, c)
		seen[res.Index] = true
		if len(out) >= topN {
			return out, nil
		}
	}
	for i, c := range candidates {
		if len(out) >= topN {
			break
		}
		if !seen[i] {
			out = append(out, c)
		}
	}
	return out, nil
}

func truncate(candidates []types.CandidateSnippet, topN int) []types.CandidateSnippet {
	if topN <= 0 || topN > len(candidates) {
		return candidates
	}
	return candidates[:topN]
}

// NewReranker selects a Reranker implementation based on configuration,
// erroring only when rerank is enabled but neither a provider key nor stub
// mode is configured.
func NewReranker(enabled, stubMode bool, model, apiKey, baseURL string) (Reranker, error) {
	if !enabled {
		return nil, nil
	}
	if stubMode {
		return StubReranker{}, nil
	}
	if apiKey == "" || baseURL == "" {
		return nil, errors.Permanent("rerank_misconfigured", "rerank enabled but no provider key/base url or stub mode configured", nil)
	}
	return NewHTTPReranker(model, apiKey, baseURL), nil
}
