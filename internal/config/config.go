// Package config loads process configuration once at startup using viper,
// with every option overridable by environment variable (prefix RAG_) and
// sane defaults matching the values named in the specification.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Auth holds session and login-throttling settings.
type Auth struct {
	AppUser                string        `mapstructure:"app_user"`
	AppUserHashBcrypt      string        `mapstructure:"app_user_hash_bcrypt"`
	SessionSecret          string        `mapstructure:"session_secret"`
	SessionTTLHours        int           `mapstructure:"session_ttl_hours"`
	LoginRateMaxAttempts   int           `mapstructure:"login_rate_max_attempts"`
	LoginRateWindowSeconds int           `mapstructure:"login_rate_window_seconds"`
	sessionTTL             time.Duration `mapstructure:"-"`
}

// SessionTTL returns the configured session lifetime as a time.Duration.
func (a Auth) SessionTTL() time.Duration { return time.Duration(a.SessionTTLHours) * time.Hour }

// CORS holds allowed-origin settings for the HTTP surface.
type CORS struct {
	UIOrigin     string `mapstructure:"ui_origin"`
	CORSAllowAll bool   `mapstructure:"cors_allow_all"`
}

// SearchEngine holds the Vespa endpoint.
type SearchEngine struct {
	VespaEndpoint string `mapstructure:"vespa_endpoint"`
}

// Embedding holds embedding-provider settings.
type Embedding struct {
	EmbedModel          string  `mapstructure:"embed_model"`
	EmbedBatchSize      int     `mapstructure:"embed_batch_size"`
	EmbedConcurrency    int     `mapstructure:"embed_concurrency"`
	DailyEmbedBudgetUSD float64 `mapstructure:"daily_embed_budget_usd"`
	APIKey              string  `mapstructure:"embed_api_key"`
	BaseURL             string  `mapstructure:"embed_base_url"`
	Provider            string  `mapstructure:"embed_provider"`
	StubMode            bool    `mapstructure:"embed_stub_mode"`
}

// Retrieval holds every knob controlling seed search, dedupe, expansion and
// broadening.
type Retrieval struct {
	SearchDefaultLimit              int `mapstructure:"search_default_limit"`
	SearchSeedLimit                 int `mapstructure:"search_seed_limit"`
	SearchSeedsPerChat              int `mapstructure:"search_seeds_per_chat"`
	SearchSeedDedupeMessageGap       int `mapstructure:"search_seed_dedupe_message_gap"`
	SearchSeedDedupeTimeGapSeconds   int `mapstructure:"search_seed_dedupe_time_gap_seconds"`
	SearchNeighborMessageWindow      int `mapstructure:"search_neighbor_message_window"`
	SearchNeighborTimeWindowMinutes  int `mapstructure:"search_neighbor_time_window_minutes"`
	SearchNeighborMinMessages        int `mapstructure:"search_neighbor_min_messages"`
	SearchCandidateMaxMessages       int `mapstructure:"search_candidate_max_messages"`
	SearchCandidateTokenLimit        int `mapstructure:"search_candidate_token_limit"`
	SearchContextMaxReturn           int `mapstructure:"search_context_max_return"`
	SearchExpansionMaxLevel          int `mapstructure:"search_expansion_max_level"`
	SearchExpansionSeedStep          int `mapstructure:"search_expansion_seed_step"`
	SearchExpansionResultStep        int `mapstructure:"search_expansion_result_step"`
	SearchExpansionRerankStep        int `mapstructure:"search_expansion_rerank_step"`
}

// Rerank holds cross-encoder rerank settings.
type Rerank struct {
	Enabled            bool   `mapstructure:"rerank_enabled"`
	Model              string `mapstructure:"rerank_model"`
	CandidateLimit     int    `mapstructure:"rerank_candidate_limit"`
	APIKey             string `mapstructure:"rerank_api_key"`
	BaseURL            string `mapstructure:"rerank_base_url"`
	StubMode           bool   `mapstructure:"rerank_stub_mode"`
}

// Chat holds answerer-side settings.
type Chat struct {
	RateLimitRPM           int    `mapstructure:"chat_rate_limit_rpm"`
	MaxContextTokens       int    `mapstructure:"chat_max_context_tokens"`
	SearchDecisionModel    string `mapstructure:"chat_search_decision_model"`
	ReformulationModel     string `mapstructure:"chat_reformulation_model"`
	ChatModel              string `mapstructure:"chat_model"`
	APIKey                 string `mapstructure:"chat_api_key"`
	BaseURL                string `mapstructure:"chat_base_url"`
	StubMode               bool   `mapstructure:"chat_stub_mode"`
}

// Daemon holds ingest-coordinator settings.
type Daemon struct {
	WorkerConcurrency        int    `mapstructure:"daemon_worker_concurrency"`
	LookbackMinutes          int    `mapstructure:"daemon_lookback_minutes"`
	ConnectionCheckSecs      int    `mapstructure:"daemon_connection_check_secs"`
	HourlySweepIntervalMins  int    `mapstructure:"hourly_sweep_interval_minutes"`
	HourlySweepDays          int    `mapstructure:"hourly_sweep_days"`
	BackfillStatePath        string `mapstructure:"backfill_state_path"`
	BackfillCheckpointEvery  int    `mapstructure:"backfill_checkpoint_interval"`
	LookbackMessageLimit     int    `mapstructure:"lookback_message_limit"`
}

// Versioning holds the two global knobs that force re-chunking/re-embedding
// when bumped.
type Versioning struct {
	ChunkingVersion   int `mapstructure:"chunking_version"`
	PreprocessVersion int `mapstructure:"preprocess_version"`
}

// Infra holds connection settings for the ambient/domain stack.
type Infra struct {
	DatabaseDSN       string `mapstructure:"database_dsn"`
	RedisAddr         string `mapstructure:"redis_addr"`
	TelegramBotToken  string `mapstructure:"telegram_bot_token"`
	TelegramStubMode  bool   `mapstructure:"telegram_stub_mode"`
	MetricsAddr       string `mapstructure:"metrics_addr"`
	LogLevel          string `mapstructure:"log_level"`
}

// Settings is the fully populated, immutable configuration snapshot loaded
// once at process start.
type Settings struct {
	Auth         Auth         `mapstructure:"auth"`
	CORS         CORS         `mapstructure:"cors"`
	SearchEngine SearchEngine `mapstructure:"search_engine"`
	Embedding    Embedding    `mapstructure:"embedding"`
	Retrieval    Retrieval    `mapstructure:"retrieval"`
	Rerank       Rerank       `mapstructure:"rerank"`
	Chat         Chat         `mapstructure:"chat"`
	Daemon       Daemon       `mapstructure:"daemon"`
	Versioning   Versioning   `mapstructure:"versioning"`
	Infra        Infra        `mapstructure:"infra"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("auth.session_ttl_hours", 24)
	v.SetDefault("auth.login_rate_max_attempts", 5)
	v.SetDefault("auth.login_rate_window_seconds", 900)

	v.SetDefault("cors.cors_allow_all", false)

	v.SetDefault("embedding.embed_model", "text-embedding-3-small")
	v.SetDefault("embedding.embed_batch_size", 64)
	v.SetDefault("embedding.embed_concurrency", 4)
	v.SetDefault("embedding.daily_embed_budget_usd", 0.0)

	v.SetDefault("retrieval.search_default_limit", 10)
	v.SetDefault("retrieval.search_seed_limit", 30)
	v.SetDefault("retrieval.search_seed_dedupe_message_gap", 10)
	v.SetDefault("retrieval.search_seed_dedupe_time_gap_seconds", 120)
	v.SetDefault("retrieval.search_neighbor_message_window", 15)
	v.SetDefault("retrieval.search_neighbor_time_window_minutes", 45)
	v.SetDefault("retrieval.search_neighbor_min_messages", 5)
	v.SetDefault("retrieval.search_candidate_max_messages", 80)
	v.SetDefault("retrieval.search_candidate_token_limit", 1800)
	v.SetDefault("retrieval.search_context_max_return", 25)
	v.SetDefault("retrieval.search_expansion_max_level", 3)
	v.SetDefault("retrieval.search_expansion_seed_step", 30)
	v.SetDefault("retrieval.search_expansion_result_step", 5)
	v.SetDefault("retrieval.search_expansion_rerank_step", 40)

	v.SetDefault("rerank.rerank_enabled", false)
	v.SetDefault("rerank.rerank_candidate_limit", 40)

	v.SetDefault("chat.chat_rate_limit_rpm", 30)
	v.SetDefault("chat.chat_max_context_tokens", 50000)

	v.SetDefault("daemon.daemon_worker_concurrency", 3)
	v.SetDefault("daemon.daemon_lookback_minutes", 5)
	v.SetDefault("daemon.daemon_connection_check_secs", 60)
	v.SetDefault("daemon.hourly_sweep_interval_minutes", 60)
	v.SetDefault("daemon.hourly_sweep_days", 7)
	v.SetDefault("daemon.backfill_state_path", "./data/checkpoint.json")
	v.SetDefault("daemon.backfill_checkpoint_interval", 50)
	v.SetDefault("daemon.lookback_message_limit", 250)

	v.SetDefault("versioning.chunking_version", 1)
	v.SetDefault("versioning.preprocess_version", 1)

	v.SetDefault("infra.metrics_addr", ":9090")
	v.SetDefault("infra.log_level", "info")
	v.SetDefault("infra.telegram_stub_mode", false)
}

// Load reads configuration from an optional YAML file, environment
// variables (prefix RAG_, nested keys joined with "_") and the defaults
// above. Precedence, highest first: environment, YAML file, defaults.
func Load(configPath string) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("RAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	// Keys without a default are bound explicitly so Unmarshal sees their
	// environment values too.
	for _, key := range []string{
		"auth.app_user", "auth.app_user_hash_bcrypt", "auth.session_secret", "cors.ui_origin",
		"search_engine.vespa_endpoint", "retrieval.search_seeds_per_chat",
		"embedding.embed_api_key", "embedding.embed_base_url", "embedding.embed_provider", "embedding.embed_stub_mode",
		"rerank.rerank_model", "rerank.rerank_api_key", "rerank.rerank_base_url", "rerank.rerank_stub_mode",
		"chat.chat_search_decision_model", "chat.chat_reformulation_model", "chat.chat_model",
		"chat.chat_api_key", "chat.chat_base_url", "chat.chat_stub_mode",
		"infra.database_dsn", "infra.redis_addr", "infra.telegram_bot_token",
	} {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &s, nil
}
