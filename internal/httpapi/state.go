// Package httpapi implements the HTTP surface named in the specification:
// health/metrics, session login, model listing, chat aggregation, retrieval
// search and the streaming chat endpoint. Routing and middleware follow the
// teacher's gin handler conventions (internal/handler), generalised from a
// REST CRUD surface to this service's narrower, session-gated API.
package httpapi

import (
	"time"

	"github.com/rtyshyk/telegram-rag/internal/answer"
	"github.com/rtyshyk/telegram-rag/internal/authn"
	"github.com/rtyshyk/telegram-rag/internal/config"
	"github.com/rtyshyk/telegram-rag/internal/search"
	"github.com/rtyshyk/telegram-rag/internal/store"
	"github.com/rtyshyk/telegram-rag/internal/types"
)

// AppState bundles every collaborator the HTTP handlers need. It is built
// once at startup (cmd/server) and threaded through the router via gin's
// context, the same shape the teacher wires its handlers from a DI
// container.
type AppState struct {
	Cfg      *config.Settings
	Authn    *authn.Service
	Searcher *search.Searcher
	Expander *search.Expander
	Reranker search.Reranker
	Answerer *answer.Answerer
	Repo     *store.Repository

	sessionCookieName string
	sessionSecure     bool
}

// New builds an AppState. sessionSecure controls whether the session cookie
// carries the Secure attribute; callers should pass true only when serving
// over TLS (directly or behind a terminating proxy), per the "Secure iff
// TLS" rule.
func New(cfg *config.Settings, authnSvc *authn.Service, searcher *search.Searcher, expander *search.Expander,
	reranker search.Reranker, answerer *answer.Answerer, repo *store.Repository, sessionSecure bool,
) *AppState {
	return &AppState{
		Cfg: cfg, Authn: authnSvc, Searcher: searcher, Expander: expander,
		Reranker: reranker, Answerer: answerer, Repo: repo,
		sessionCookieName: "rag_session", sessionSecure: sessionSecure,
	}
}

// retrievalConfig builds the shared search.RetrieveConfig from settings; the
// level parameter is unused here (broadening is applied inside
// search.Pipeline.Retrieve) but kept so call sites read naturally.
func (s *AppState) retrievalConfig(_ int) search.RetrieveConfig {
	rc := s.Cfg.Retrieval
	return search.RetrieveConfig{
		DefaultResultLimit:   rc.SearchDefaultLimit,
		SeedLimit:            rc.SearchSeedLimit,
		RerankCandidateLimit: s.Cfg.Rerank.CandidateLimit,
		DedupeIDGap:          int64(rc.SearchSeedDedupeMessageGap),
		DedupeTimeGapMs:      int64(rc.SearchSeedDedupeTimeGapSeconds) * 1000,
		MessageWindow:        int64(rc.SearchNeighborMessageWindow),
		TimeWindowMinutes:    rc.SearchNeighborTimeWindowMinutes,
		MinMessages:          rc.SearchNeighborMinMessages,
		MaxMessages:          rc.SearchCandidateMaxMessages,
		TokenLimit:           rc.SearchCandidateTokenLimit,
		MaxReturn:            rc.SearchContextMaxReturn,
		ExpansionSeedStep:    rc.SearchExpansionSeedStep,
		ExpansionResultStep:  rc.SearchExpansionResultStep,
		ExpansionRerankStep:  rc.SearchExpansionRerankStep,
		Model:                types.EmbeddingModel(s.Cfg.Embedding.EmbedModel),
	}
}

// loginRateLimitWindow mirrors config so handlers_auth.go doesn't need a
// direct config import for this one value.
func (s *AppState) loginRateLimitWindow() time.Duration {
	return time.Duration(s.Cfg.Auth.LoginRateWindowSeconds) * time.Second
}
