// Package embedding implements C3 (the content-addressed embedding cache)
// and C4 (the batched, concurrency-limited embedder with budget ceiling and
// exponential backoff).
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/rtyshyk/telegram-rag/internal/store"
	"github.com/rtyshyk/telegram-rag/internal/types"
)

// TextHash computes the content-addressed cache key: SHA256(text || model ||
// chunking_version || preprocess_version || lang?).
func TextHash(text, model string, chunkingVersion, preprocessVersion int, lang string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%d|%s", text, model, chunkingVersion, preprocessVersion, lang)
	return hex.EncodeToString(h.Sum(nil))
}

// Cache wraps the durable embedding_cache table.
type Cache struct {
	repo *store.Repository
}

// NewCache wraps a store.Repository as the C3 cache.
func NewCache(repo *store.Repository) *Cache { return &Cache{repo: repo} }

// ProbeResult splits a batch of text hashes into cache hits and misses.
type ProbeResult struct {
	Hits   map[string]types.EmbeddingCacheEntry
	Misses []string
}

// Probe checks the cache for every hash, returning which ones must be
// embedded.
func (c *Cache) Probe(ctx context.Context, hashes []string) (ProbeResult, error) {
	hits, err := c.repo.GetCachedVectors(ctx, hashes)
	if err != nil {
		return ProbeResult{}, err
	}
	var misses []string
	for _, h := range hashes {
		if _, ok := hits[h]; !ok {
			misses = append(misses, h)
		}
	}
	return ProbeResult{Hits: hits, Misses: misses}, nil
}

// Put idempotently writes a fresh vector to the cache (ON CONFLICT DO NOTHING).
// A Cache built without a repository stores nothing.
func (c *Cache) Put(ctx context.Context, entry types.EmbeddingCacheEntry) error {
	if c.repo == nil {
		return nil
	}
	return c.repo.PutCachedVector(ctx, entry)
}
