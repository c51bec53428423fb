package provider

import "fmt"

// OpenAIBaseURL is the default endpoint for OpenAI's hosted API.
const OpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider serves embedding and chat traffic against OpenAI's own
// API.
type OpenAIProvider struct{}

func init() { Register(&OpenAIProvider{}) }

// Info returns OpenAI provider metadata.
func (p *OpenAIProvider) Info() Info {
	return Info{
		Name:        NameOpenAI,
		DisplayName: "OpenAI",
		DefaultURLs: map[ModelType]string{
			ModelTypeEmbedding: OpenAIBaseURL,
			ModelTypeChat:      OpenAIBaseURL,
		},
		ModelTypes:   []ModelType{ModelTypeEmbedding, ModelTypeChat},
		RequiresAuth: true,
	}
}

// ValidateConfig requires an API key and model name.
func (p *OpenAIProvider) ValidateConfig(cfg *Config) error {
	if cfg.APIKey == "" {
		return fmt.Errorf("API key is required for OpenAI provider")
	}
	if cfg.ModelName == "" {
		return fmt.Errorf("model name is required")
	}
	return nil
}
