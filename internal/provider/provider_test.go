package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderRegistry(t *testing.T) {
	t.Run("default providers registered", func(t *testing.T) {
		infos := List()
		assert.NotEmpty(t, infos, "should have registered providers")

		for _, name := range []Name{NameOpenAI, NameGeneric} {
			p, ok := Get(name)
			assert.True(t, ok, "provider %s should be registered", name)
			assert.NotNil(t, p)
		}
	})

	t.Run("GetOrDefault fallback", func(t *testing.T) {
		p := GetOrDefault("nonexistent")
		require.NotNil(t, p)
		assert.Equal(t, NameGeneric, p.Info().Name)
	})
}

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		url      string
		expected Name
	}{
		{"https://api.openai.com/v1", NameOpenAI},
		{"https://custom-endpoint.example.com/v1", NameGeneric},
		{"http://localhost:11434/v1", NameGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectProvider(tt.url))
		})
	}
}

func TestOpenAIProviderValidation(t *testing.T) {
	p := &OpenAIProvider{}

	t.Run("valid config", func(t *testing.T) {
		err := p.ValidateConfig(&Config{APIKey: "sk-test", ModelName: "text-embedding-3-small"})
		assert.NoError(t, err)
	})

	t.Run("missing API key", func(t *testing.T) {
		err := p.ValidateConfig(&Config{ModelName: "text-embedding-3-small"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "API key")
	})
}

func TestListByModelType(t *testing.T) {
	chatProviders := ListByModelType(ModelTypeChat)
	assert.NotEmpty(t, chatProviders)

	rerankProviders := ListByModelType(ModelTypeRerank)
	found := false
	for _, p := range rerankProviders {
		if p.Name == NameGeneric {
			found = true
		}
	}
	assert.True(t, found, "generic provider should support rerank")
}
