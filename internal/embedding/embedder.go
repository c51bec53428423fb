package embedding

import (
	"context"
	"crypto/sha256"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/sashabaranov/go-openai"

	"github.com/rtyshyk/telegram-rag/internal/errors"
	"github.com/rtyshyk/telegram-rag/internal/logger"
	"github.com/rtyshyk/telegram-rag/internal/provider"
	"github.com/rtyshyk/telegram-rag/internal/types"
)

// Backend performs the actual remote embedding call for one batch of texts.
// Real implementations talk to an OpenAI-compatible endpoint; the stub
// implementation is deterministic and never touches the network.
type Backend interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
	Dimension() int
}

// priceTable is USD per million tokens, by model name.
var priceTable = map[string]float64{
	string(types.EmbeddingModelSmall): 0.02,
	string(types.EmbeddingModelLarge): 0.13,
}

// Config configures the Service.
type Config struct {
	Model             string
	BatchSize         int // default 64
	Concurrency       int // default 4
	DailyBudgetUSD    float64
	ChunkingVersion   int
	PreprocessVersion int
	BaseRetryMs       int // default 200
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 64
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.BaseRetryMs <= 0 {
		c.BaseRetryMs = 200
	}
	return c
}

// Service implements the C4 side of the embedding contract: budget-gate and
// batch the cache misses it is given, submit bounded-concurrency embedding
// calls with retry, and write fresh vectors back to the cache. Probing the
// cache is left to the caller (Cache.Probe).
type Service struct {
	cfg     Config
	cache   *Cache
	backend Backend
}

// NewService wires a cache and backend into the embedder contract.
func NewService(cfg Config, cache *Cache, backend Backend) *Service {
	return &Service{cfg: cfg.withDefaults(), cache: cache, backend: backend}
}

// TextInput is one text awaiting embedding, paired with its cache key.
type TextInput struct {
	TextHash string
	Text     string
}

// EstimateCostUSD approximates cost as words*1.3 tokens priced from the
// model->price table, before any network call.
func EstimateCostUSD(model string, texts []string) float64 {
	var words int
	for _, t := range texts {
		words += len(strings.Fields(t))
	}
	tokens := float64(words) * 1.3
	pricePerMillion, ok := priceTable[model]
	if !ok {
		pricePerMillion = 0.02
	}
	return tokens / 1_000_000 * pricePerMillion
}

// EmbedMisses embeds the given cache misses, honouring the daily budget
// ceiling, batch size and concurrency bound, with retry and idempotent
// cache writes. Returns the fresh entries; cache hits are not included.
func (s *Service) EmbedMisses(ctx context.Context, inputs []TextInput) ([]types.EmbeddingCacheEntry, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	texts := make([]string, len(inputs))
	for i, in := range inputs {
		texts[i] = in.Text
	}
	estimated := EstimateCostUSD(s.backend.ModelName(), texts)
	if s.cfg.DailyBudgetUSD > 0 && estimated >= s.cfg.DailyBudgetUSD {
		return nil, errors.BudgetExceeded("daily embedding budget exceeded")
	}

	batches := chunkInputs(inputs, s.cfg.BatchSize)

	pool, err := ants.NewPool(s.cfg.Concurrency)
	if err != nil {
		return nil, errors.Transient("pool_init_failed", "failed to start embedding worker pool", err)
	}
	defer pool.Release()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []types.EmbeddingCacheEntry
		firstErr error
	)

	for _, batch := range batches {
		batch := batch
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			entries, err := s.embedBatchWithRetry(ctx, batch)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			results = append(results, entries...)
		})
		if submitErr != nil {
			wg.Done()
			return nil, errors.Transient("pool_submit_failed", "failed to submit embedding batch", submitErr)
		}
	}
	wg.Wait()

	if firstErr != nil {
		return results, firstErr
	}

	for _, entry := range results {
		if err := s.cache.Put(ctx, entry); err != nil {
			logger.Warn(ctx, "failed to write embedding cache entry", "text_hash", entry.TextHash, "error", err)
		}
	}
	return results, nil
}

func (s *Service) embedBatchWithRetry(ctx context.Context, batch []TextInput) ([]types.EmbeddingCacheEntry, error) {
	texts := make([]string, len(batch))
	for i, in := range batch {
		texts[i] = in.Text
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(s.cfg.BaseRetryMs) * time.Millisecond * time.Duration(1<<attempt)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, errors.Cancelled(ctx.Err())
			}
		}
		vectors, err := s.backend.EmbedBatch(ctx, texts)
		if err == nil {
			entries := make([]types.EmbeddingCacheEntry, len(batch))
			dim := s.backend.Dimension()
			for i, in := range batch {
				vec := vectors[i]
				if dim > 0 && len(vec) != dim {
					logger.Warn(ctx, "embedding dimension mismatch", "expected", dim, "got", len(vec), "model", s.backend.ModelName())
				}
				entries[i] = types.EmbeddingCacheEntry{
					TextHash:          in.TextHash,
					Model:             s.backend.ModelName(),
					Dim:               len(vec),
					Vector:            vec,
					ChunkingVersion:   s.cfg.ChunkingVersion,
					PreprocessVersion: s.cfg.PreprocessVersion,
				}
			}
			return entries, nil
		}
		lastErr = err
	}
	return nil, errors.Transient("embed_failed", "embedding provider call failed after retries", lastErr)
}

func chunkInputs(inputs []TextInput, size int) [][]TextInput {
	var out [][]TextInput
	for i := 0; i < len(inputs); i += size {
		end := i + size
		if end > len(inputs) {
			end = len(inputs)
		}
		out = append(out, inputs[i:end])
	}
	return out
}

// OpenAIBackend embeds against an OpenAI-compatible endpoint, selected
// through the provider registry.
type OpenAIBackend struct {
	client    *openai.Client
	model     string
	dimension int
}

// NewOpenAIBackend builds a Backend over go-openai, routing through the
// provider registry to pick sensible defaults when baseURL is empty.
func NewOpenAIBackend(apiKey, baseURL, model string, dimension int, providerName provider.Name) *OpenAIBackend {
	if providerName == "" {
		providerName = provider.DetectProvider(baseURL)
	}
	if baseURL == "" {
		if p, ok := provider.Get(providerName); ok {
			baseURL = p.Info().GetDefaultURL(provider.ModelTypeEmbedding)
		}
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIBackend{client: openai.NewClientWithConfig(cfg), model: model, dimension: dimension}
}

func (b *OpenAIBackend) ModelName() string { return b.model }
func (b *OpenAIBackend) Dimension() int    { return b.dimension }

// EmbedBatch calls the embeddings endpoint for the whole batch in one request.
func (b *OpenAIBackend) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := b.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(b.model),
	})
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// StubBackend yields deterministic, normalised pseudo-vectors derived from
// each text's hash. Used by tests; never selected in production.
type StubBackend struct {
	model     string
	dimension int
}

// NewStubBackend builds a deterministic test Backend.
func NewStubBackend(model string, dimension int) *StubBackend {
	if dimension <= 0 {
		dimension = 8
	}
	return &StubBackend{model: model, dimension: dimension}
}

func (b *StubBackend) ModelName() string { return b.model }
func (b *StubBackend) Dimension() int    { return b.dimension }

// EmbedBatch derives one pseudo-vector per text from its SHA256 digest.
func (b *StubBackend) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = PseudoVector(t, b.dimension)
	}
	return out, nil
}

// PseudoVector derives a deterministic, L2-normalised vector of the given
// dimension from the SHA256 digest of seed.
func PseudoVector(seed string, dim int) []float32 {
	digest := sha256.Sum256([]byte(seed))
	vec := make([]float32, dim)
	var sumSq float64
	for i := 0; i < dim; i++ {
		b := digest[i%len(digest)]
		v := float64(b)/127.5 - 1.0
		vec[i] = float32(v)
		sumSq += v * v
	}
	norm := math.Sqrt(sumSq)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}
