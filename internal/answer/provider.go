// Package answer implements C11: the answerer pipeline behind POST /chat —
// rate limiting, query reformulation, retrieval orchestration, prompt
// assembly and streaming completion.
package answer

import (
	"context"
	"errors"
	"io"
	"sort"

	"github.com/sashabaranov/go-openai"

	"github.com/rtyshyk/telegram-rag/internal/types"
)

// StreamDelta is one increment from a ChatProvider's streaming completion,
// mirroring the teacher's channel-based streaming contract.
type StreamDelta struct {
	Content string
	Done    bool
	Usage   *types.ChatUsage
	Err     error
}

// ChatProvider is the seam between the answerer and an LLM backend.
type ChatProvider interface {
	// Complete runs a single non-streaming completion, used for
	// reformulation.
	Complete(ctx context.Context, messages []types.ChatMessage, model string) (string, error)

	// ChatStream opens a streaming completion; the returned channel is
	// closed by the provider once the stream ends or errors.
	ChatStream(ctx context.Context, messages []types.ChatMessage, model string) (<-chan StreamDelta, error)
}

// chatPriceTable is USD per million tokens (prompt+completion averaged),
// by model name; unknown models default to the first entry.
var chatPriceTable = map[string]float64{
	"gpt-4o-mini": 0.3,
	"gpt-4o":      5.0,
}

func priceFor(model string) float64 {
	if p, ok := chatPriceTable[model]; ok {
		return p
	}
	return 0.3
}

// ModelInfo is one entry returned by GET /models.
type ModelInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// AvailableModels lists the chat models the configured provider supports,
// with the configured default model surfaced first.
func AvailableModels(defaultModel string) []ModelInfo {
	seen := map[string]bool{}
	out := make([]ModelInfo, 0, len(chatPriceTable)+1)
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, ModelInfo{ID: id, Label: id})
	}
	add(defaultModel)
	ids := make([]string, 0, len(chatPriceTable))
	for id := range chatPriceTable {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		add(id)
	}
	return out
}

// OpenAIChatProvider talks to an OpenAI-compatible chat completion API.
type OpenAIChatProvider struct {
	client *openai.Client
}

// NewOpenAIChatProvider builds a provider over go-openai.
func NewOpenAIChatProvider(apiKey, baseURL string) *OpenAIChatProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIChatProvider{client: openai.NewClientWithConfig(cfg)}
}

func toOpenAIMessages(messages []types.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}

func (p *OpenAIChatProvider) Complete(ctx context.Context, messages []types.ChatMessage, model string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(messages),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// ChatStream opens a streaming completion, relaying each delta on a
// channel closed when the stream ends, is cancelled, or errors.
func (p *OpenAIChatProvider) ChatStream(ctx context.Context, messages []types.ChatMessage, model string) (<-chan StreamDelta, error) {
	stream, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(messages),
		Stream:   true,
	})
	if err != nil {
		return nil, err
	}

	out := make(chan StreamDelta)
	go func() {
		defer close(out)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					out <- StreamDelta{Done: true}
					return
				}
				out <- StreamDelta{Done: true, Err: err}
				return
			}
			if len(resp.Choices) > 0 {
				delta := resp.Choices[0].Delta.Content
				if delta != "" {
					out <- StreamDelta{Content: delta}
				}
			}
			if resp.Usage != nil {
				usage := &types.ChatUsage{
					PromptTokens:     resp.Usage.PromptTokens,
					CompletionTokens: resp.Usage.CompletionTokens,
					TotalTokens:      resp.Usage.TotalTokens,
					EstimatedCostUSD: float64(resp.Usage.TotalTokens) / 1_000_000 * priceFor(model),
				}
				out <- StreamDelta{Usage: usage}
			}
		}
	}()
	return out, nil
}

// StubChatProvider is a deterministic ChatProvider for tests: Complete
// echoes the last message, ChatStream emits "stub answer based on: "
// followed by that message as a handful of word-sized chunks.
type StubChatProvider struct{}

func (StubChatProvider) Complete(_ context.Context, messages []types.ChatMessage, _ string) (string, error) {
	if len(messages) == 0 {
		return "", nil
	}
	return messages[len(messages)-1].Content, nil
}

func (StubChatProvider) ChatStream(ctx context.Context, messages []types.ChatMessage, _ string) (<-chan StreamDelta, error) {
	var text string
	if len(messages) > 0 {
		text = "stub answer based on: " + messages[len(messages)-1].Content
	}
	out := make(chan StreamDelta)
	go func() {
		defer close(out)
		words := splitWords(text)
		for _, w := range words {
			select {
			case <-ctx.Done():
				out <- StreamDelta{Done: true, Err: ctx.Err()}
				return
			case out <- StreamDelta{Content: w + " "}:
			}
		}
		out <- StreamDelta{Done: true}
	}()
	return out, nil
}

func splitWords(s string) []string {
	var words []string
	var current []rune
	for _, r := range s {
		if r == ' ' {
			if len(current) > 0 {
				words = append(words, string(current))
				current = nil
			}
			continue
		}
		current = append(current, r)
	}
	if len(current) > 0 {
		words = append(words, string(current))
	}
	return words
}
