// Package llm wraps the OpenAI-compatible chat-completion and embedding
// APIs behind a small typed interface: structured prompt in, parsed JSON out,
// or a typed failure.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/searchlab/examgen-backend/internal/config"
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api            *openai.Client
	model          string
	embeddingModel string
	timeout        time.Duration
	log            zerolog.Logger
}

// New creates a new LLM client from configuration.
func New(cfg *config.Config, log zerolog.Logger) *Client {
	apiConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		apiConfig.BaseURL = cfg.OpenAIBaseURL
	}
	return &Client{
		api:            openai.NewClientWithConfig(apiConfig),
		model:          cfg.LLMModel,
		embeddingModel: cfg.EmbeddingModel,
		timeout:        cfg.LLMTimeout,
		log:            log.With().Str("component", "llm").Logger(),
	}
}

// CompleteJSON sends a single-prompt completion in JSON mode and unmarshals
// the response into out. Each call carries its own timeout.
func (c *Client) CompleteJSON(ctx context.Context, prompt string, temperature float32, out interface{}) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: temperature,
	})
	if err != nil {
		return fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	c.log.Debug().Str("raw", raw).Msg("LLM response")

	cleaned := StripFences(raw)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	return nil
}

// Embed returns one embedding vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateEmbeddings(callCtx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding API call: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding API returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// StripFences removes a surrounding markdown code fence, which some models
// emit even in JSON mode.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
