package llm

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

type openAIClient struct {
	client *openai.Client
	models []string
	logger *log.Logger

	mu       sync.Mutex
	selected string
}

// NewOpenAIClient builds a client that walks the model priority list on
// first use and caches the first reachable model for the process
// lifetime.
func NewOpenAIClient(apiKey, baseURL string, models []string, logger *log.Logger) Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if logger == nil {
		logger = log.Default()
	}

	return &openAIClient{
		client: openai.NewClientWithConfig(cfg),
		models: models,
		logger: logger,
	}
}

func (c *openAIClient) resolveModel(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selected != "" {
		return c.selected, nil
	}

	var lastErr error
	for _, model := range c.models {
		if _, err := c.client.GetModel(ctx, model); err != nil {
			lastErr = err
			c.logger.Printf("completion model %s not reachable: %v", model, err)
			continue
		}
		c.logger.Printf("using completion model %s", model)
		c.selected = model
		return model, nil
	}

	return "", fmt.Errorf("no usable model in priority list %v: %v: %w", c.models, lastErr, ErrUnavailable)
}

func (c *openAIClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt must not be empty")
	}

	model, err := c.resolveModel(ctx)
	if err != nil {
		return "", err
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create chat completion: %v: %w", err, ErrUnavailable)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	choice := resp.Choices[0]
	answer := strings.TrimSpace(choice.Message.Content)
	if answer == "" {
		return "", ErrEmptyResponse
	}

	// A truncated answer is still an answer for this domain; flag it and
	// hand it back.
	if choice.FinishReason == openai.FinishReasonLength {
		c.logger.Printf("completion truncated at max tokens for model %s", model)
	}

	return answer, nil
}

var _ Client = (*openAIClient)(nil)
