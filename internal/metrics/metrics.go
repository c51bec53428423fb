// Package metrics registers the Prometheus collectors shared across the
// ingest pipeline, search path and HTTP surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messages_processed_total",
		Help: "Messages normalised, chunked and fed to the index.",
	})

	EmbeddingCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "embeddings_cache_hits_total",
		Help: "Chunk embeddings served from the content-addressed cache.",
	})

	EmbeddingAPICalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "embeddings_api_calls_total",
		Help: "Messages whose cache misses were embedded successfully (one per message, however many batches).",
	})

	IndexFeedSuccess = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_success_total",
		Help: "Documents upserted to the search engine successfully.",
	})

	IndexFeedRetry = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_retries_total",
		Help: "Index feed attempts retried after a transient failure.",
	})

	IndexFeedFailure = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_failures_total",
		Help: "Index feed attempts that exhausted retries or failed permanently.",
	})

	SearchRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "search_requests_total",
		Help: "Seed search queries issued against the index.",
	})

	ChatRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_requests_total",
		Help: "Chat requests served over the streaming endpoint.",
	})

	ChatRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_rate_limited_total",
		Help: "Chat requests rejected by the per-user rate limiter.",
	})

	ReconnectLookbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconnect_lookbacks_total",
		Help: "Startup/reconnect look-back sweeps performed by the ingest daemon.",
	})

	HourlySweeps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hourly_sweeps_total",
		Help: "Periodic edit/delete sweep runs performed by the ingest daemon.",
	})
)
