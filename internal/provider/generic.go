package provider

import "fmt"

// GenericProvider serves any OpenAI-compatible endpoint (self-hosted
// gateways, Cohere/Voyage-compatible rerank proxies, etc.) where the user
// supplies the base URL directly.
type GenericProvider struct{}

func init() { Register(&GenericProvider{}) }

// Info returns generic-provider metadata; no default URLs since the caller
// must configure one.
func (p *GenericProvider) Info() Info {
	return Info{
		Name:         NameGeneric,
		DisplayName:  "Generic OpenAI-compatible endpoint",
		DefaultURLs:  map[ModelType]string{},
		ModelTypes:   []ModelType{ModelTypeEmbedding, ModelTypeChat, ModelTypeRerank},
		RequiresAuth: false,
	}
}

// ValidateConfig requires a base URL and model name; auth is optional.
func (p *GenericProvider) ValidateConfig(cfg *Config) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("base URL is required for generic provider")
	}
	if cfg.ModelName == "" {
		return fmt.Errorf("model name is required")
	}
	return nil
}
