// Command server runs the HTTP surface: session login, model listing, chat
// aggregation, retrieval search and the streaming chat endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/dig"
	"gorm.io/gorm"

	"github.com/rtyshyk/telegram-rag/internal/answer"
	"github.com/rtyshyk/telegram-rag/internal/authn"
	"github.com/rtyshyk/telegram-rag/internal/config"
	"github.com/rtyshyk/telegram-rag/internal/embedding"
	"github.com/rtyshyk/telegram-rag/internal/httpapi"
	"github.com/rtyshyk/telegram-rag/internal/logger"
	"github.com/rtyshyk/telegram-rag/internal/provider"
	"github.com/rtyshyk/telegram-rag/internal/search"
	"github.com/rtyshyk/telegram-rag/internal/store"
	"github.com/rtyshyk/telegram-rag/internal/types"
	"github.com/rtyshyk/telegram-rag/internal/vespa"
)

// sessionSecure is dig-provided as a distinct type so it composes with the
// other bool-free constructors without a naming collision.
type sessionSecure bool

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	tlsEnabled := flag.Bool("tls", false, "serve over TLS, affecting whether the session cookie is marked Secure")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	logger.Init(cfg.Infra.LogLevel)
	rootCtx := context.Background()

	if err := store.Migrate(cfg.Infra.DatabaseDSN); err != nil {
		logger.GetLogger(rootCtx).WithError(err).Fatal("apply migrations")
	}

	container := dig.New()
	providers := []interface{}{
		func() *config.Settings { return cfg },
		func() (*gorm.DB, error) { return store.Open(cfg.Infra.DatabaseDSN) },
		store.NewRepository,
		embedding.NewCache,
		provideEmbeddingBackend,
		provideVespaClient,
		provideSearcher,
		provideExpander,
		provideReranker,
		provideChatProvider,
		provideAnswerer,
		provideAuthn,
		func() sessionSecure { return sessionSecure(*tlsEnabled) },
		func(cfg *config.Settings, authnSvc *authn.Service, searcher *search.Searcher, expander *search.Expander,
			reranker search.Reranker, answerer *answer.Answerer, repo *store.Repository, secure sessionSecure) *httpapi.AppState {
			return httpapi.New(cfg, authnSvc, searcher, expander, reranker, answerer, repo, bool(secure))
		},
	}
	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			logger.GetLogger(rootCtx).WithError(err).Fatal("wire dependency")
		}
	}

	var handler http.Handler
	err = container.Invoke(func(state *httpapi.AppState) {
		handler = httpapi.NewRouter(state)
	})
	if err != nil {
		logger.GetLogger(rootCtx).WithError(err).Fatal("build router")
	}

	srv := &http.Server{Addr: *addr, Handler: handler}

	ctx, stop := signal.NotifyContext(rootCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info(ctx, "http server listening", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.GetLogger(ctx).WithError(err).Fatal("http server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.GetLogger(ctx).WithError(err).Warn("graceful shutdown failed")
	}
}

func provideEmbeddingBackend(cfg *config.Settings) embedding.Backend {
	if cfg.Embedding.StubMode {
		return embedding.NewStubBackend(cfg.Embedding.EmbedModel, types.EmbeddingModel(cfg.Embedding.EmbedModel).Dimension())
	}
	return embedding.NewOpenAIBackend(cfg.Embedding.APIKey, cfg.Embedding.BaseURL, cfg.Embedding.EmbedModel,
		types.EmbeddingModel(cfg.Embedding.EmbedModel).Dimension(), provider.Name(cfg.Embedding.Provider))
}

// provideVespaClient builds the single shared Vespa client: its HTTP client
// is connection-pooled and reused across seed search and expansion so
// neither path pays for a second idle connection pool against the same
// endpoint.
func provideVespaClient(cfg *config.Settings) *vespa.Client {
	return vespa.NewClient(cfg.SearchEngine.VespaEndpoint)
}

func provideSearcher(client *vespa.Client, backend embedding.Backend) *search.Searcher {
	return search.NewSearcher(client, backend)
}

func provideExpander(client *vespa.Client) *search.Expander {
	return search.NewExpander(client)
}

func provideReranker(cfg *config.Settings) (search.Reranker, error) {
	return search.NewReranker(cfg.Rerank.Enabled, cfg.Rerank.StubMode, cfg.Rerank.Model, cfg.Rerank.APIKey, cfg.Rerank.BaseURL)
}

func provideChatProvider(cfg *config.Settings) answer.ChatProvider {
	if cfg.Chat.StubMode {
		return answer.StubChatProvider{}
	}
	return answer.NewOpenAIChatProvider(cfg.Chat.APIKey, cfg.Chat.BaseURL)
}

func provideAnswerer(cfg *config.Settings, searcher *search.Searcher, expander *search.Expander, reranker search.Reranker, chatProvider answer.ChatProvider) *answer.Answerer {
	answerCfg := answer.Config{
		RateLimitPerMinute: cfg.Chat.RateLimitRPM,
		ReformulationModel: cfg.Chat.ReformulationModel,
		ChatModel:          cfg.Chat.ChatModel,
		Retrieval: answer.RetrievalConfig{
			DefaultResultLimit:   cfg.Retrieval.SearchDefaultLimit,
			SeedLimit:            cfg.Retrieval.SearchSeedLimit,
			RerankCandidateLimit: cfg.Rerank.CandidateLimit,
			DedupeIDGap:          int64(cfg.Retrieval.SearchSeedDedupeMessageGap),
			DedupeTimeGapMs:      int64(cfg.Retrieval.SearchSeedDedupeTimeGapSeconds) * 1000,
			MessageWindow:        int64(cfg.Retrieval.SearchNeighborMessageWindow),
			TimeWindowMinutes:    cfg.Retrieval.SearchNeighborTimeWindowMinutes,
			MinMessages:          cfg.Retrieval.SearchNeighborMinMessages,
			MaxMessages:          cfg.Retrieval.SearchCandidateMaxMessages,
			TokenLimit:           cfg.Retrieval.SearchCandidateTokenLimit,
			MaxReturn:            cfg.Retrieval.SearchContextMaxReturn,
			ExpansionMaxLevel:    cfg.Retrieval.SearchExpansionMaxLevel,
			ExpansionSeedStep:    cfg.Retrieval.SearchExpansionSeedStep,
			ExpansionResultStep:  cfg.Retrieval.SearchExpansionResultStep,
			ExpansionRerankStep:  cfg.Retrieval.SearchExpansionRerankStep,
			Model:                types.EmbeddingModel(cfg.Embedding.EmbedModel),
			// /chat always runs hybrid lexical+ANN retrieval; BM25-only is
			// reserved for callers of the plain search endpoint.
			Hybrid: true,
		},
	}
	return answer.New(answerCfg, searcher, expander, reranker, chatProvider)
}

func provideAuthn(cfg *config.Settings) *authn.Service {
	return authn.New(authn.Config{
		AppUser:              cfg.Auth.AppUser,
		AppUserHashBcrypt:    cfg.Auth.AppUserHashBcrypt,
		SessionSecret:        cfg.Auth.SessionSecret,
		SessionTTL:           cfg.Auth.SessionTTL(),
		LoginRateMaxAttempts: cfg.Auth.LoginRateMaxAttempts,
		LoginRateWindow:      time.Duration(cfg.Auth.LoginRateWindowSeconds) * time.Second,
	})
}
