// Package provider implements the lazy-provider-selection pattern as an
// interface abstraction: each model type (embedding, chat, rerank) is
// served by a RealOpenAI, RealGeneric or Stub variant, selected once at
// startup from configuration rather than gated by a runtime import check.
package provider

import (
	"fmt"
	"strings"
	"sync"
)

// ModelType enumerates the kinds of model a Provider can serve.
type ModelType string

const (
	ModelTypeEmbedding ModelType = "embedding"
	ModelTypeChat      ModelType = "chat"
	ModelTypeRerank    ModelType = "rerank"
)

// Name identifies a provider implementation.
type Name string

const (
	NameOpenAI  Name = "openai"
	NameGeneric Name = "generic"
	NameStub    Name = "stub"
)

// Config carries the connection details needed to validate and construct a
// provider-backed client.
type Config struct {
	APIKey    string
	BaseURL   string
	ModelName string
}

// Info describes a registered provider's capabilities.
type Info struct {
	Name         Name
	DisplayName  string
	DefaultURLs  map[ModelType]string
	ModelTypes   []ModelType
	RequiresAuth bool
}

// GetDefaultURL returns the default base URL for the given model type, if any.
func (i Info) GetDefaultURL(mt ModelType) string { return i.DefaultURLs[mt] }

// Provider is implemented once per backend family (OpenAI, a generic
// OpenAI-compatible endpoint, ...). It does not itself perform embedding,
// chat or rerank calls; it validates configuration and exposes metadata
// used to pick sane defaults. embedding.NewOpenAIBackend consults the
// registry to resolve a Name to a default base URL.
type Provider interface {
	Info() Info
	ValidateConfig(cfg *Config) error
}

var (
	mu        sync.RWMutex
	providers = map[Name]Provider{}
)

// Register adds a provider to the registry. Called from each provider
// implementation's init().
func Register(p Provider) {
	mu.Lock()
	defer mu.Unlock()
	providers[p.Info().Name] = p
}

// Get returns the provider registered under name, if any.
func Get(name Name) (Provider, bool) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := providers[name]
	return p, ok
}

// GetOrDefault returns the provider registered under name, falling back to
// the generic OpenAI-compatible provider when name is unknown.
func GetOrDefault(name Name) Provider {
	if p, ok := Get(name); ok {
		return p
	}
	p, _ := Get(NameGeneric)
	return p
}

// List returns the metadata of every registered provider.
func List() []Info {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Info, 0, len(providers))
	for _, p := range providers {
		out = append(out, p.Info())
	}
	return out
}

// ListByModelType returns the metadata of every provider that serves mt.
func ListByModelType(mt ModelType) []Info {
	var out []Info
	for _, info := range List() {
		for _, t := range info.ModelTypes {
			if t == mt {
				out = append(out, info)
				break
			}
		}
	}
	return out
}

// DetectProvider guesses a Name from a base URL's host, falling back to
// NameGeneric when nothing matches.
func DetectProvider(baseURL string) Name {
	lower := strings.ToLower(baseURL)
	switch {
	case strings.Contains(lower, "api.openai.com"):
		return NameOpenAI
	default:
		return NameGeneric
	}
}

// Validate is a convenience wrapper: resolve name (or detect it from
// baseURL when name is empty) and validate cfg against it.
func Validate(name Name, cfg *Config) error {
	if name == "" {
		name = DetectProvider(cfg.BaseURL)
	}
	p, ok := Get(name)
	if !ok {
		return fmt.Errorf("unknown provider %q", name)
	}
	return p.ValidateConfig(cfg)
}
