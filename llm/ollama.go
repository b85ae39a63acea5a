package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

type ollamaClient struct {
	host   string
	models []string
	logger *log.Logger
	client *http.Client

	mu       sync.Mutex
	selected string
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  ollamaChatOptions   `json:"options"`
}

type ollamaChatOptions struct {
	Temperature float32 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message    ollamaChatMessage `json:"message"`
	Done       bool              `json:"done"`
	DoneReason string            `json:"done_reason"`
	Error      string            `json:"error"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func NewOllamaClient(host string, models []string, logger *log.Logger) Client {
	host = strings.TrimRight(host, "/")
	if host == "" {
		host = "http://localhost:11434"
	}
	if logger == nil {
		logger = log.Default()
	}

	return &ollamaClient{
		host:   host,
		models: models,
		logger: logger,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// resolveModel picks the first model from the priority list that the
// local daemon reports, caching the choice for the process lifetime.
func (c *ollamaClient) resolveModel(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selected != "" {
		return c.selected, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return "", fmt.Errorf("create ollama tags request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama not reachable at %s: %v: %w", c.host, err, ErrUnavailable)
	}
	defer resp.Body.Close()

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return "", fmt.Errorf("decode ollama tags: %v: %w", err, ErrUnavailable)
	}

	available := make(map[string]struct{}, len(tags.Models))
	for _, m := range tags.Models {
		available[m.Name] = struct{}{}
	}

	for _, model := range c.models {
		if _, ok := available[model]; !ok {
			c.logger.Printf("completion model %s not present on ollama host", model)
			continue
		}
		c.logger.Printf("using completion model %s", model)
		c.selected = model
		return model, nil
	}

	return "", fmt.Errorf("no model from priority list %v present on ollama host: %w", c.models, ErrUnavailable)
}

func (c *ollamaClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt must not be empty")
	}

	model, err := c.resolveModel(ctx)
	if err != nil {
		return "", err
	}

	payload := ollamaChatRequest{
		Model:  model,
		Stream: false,
		Options: ollamaChatOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
		},
		Messages: []ollamaChatMessage{
			{Role: "user", Content: prompt},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call ollama chat API: %v: %w", err, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, readErr := io.ReadAll(resp.Body)
		if readErr == nil && len(data) > 0 {
			return "", fmt.Errorf("ollama chat API error: %s: %w", string(data), ErrUnavailable)
		}
		return "", fmt.Errorf("ollama chat API returned status %s: %w", resp.Status, ErrUnavailable)
	}

	var parsed ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}

	if parsed.Error != "" {
		return "", fmt.Errorf("ollama chat error: %s: %w", parsed.Error, ErrUnavailable)
	}

	answer := strings.TrimSpace(parsed.Message.Content)
	if answer == "" {
		return "", ErrEmptyResponse
	}

	if parsed.DoneReason == "length" {
		c.logger.Printf("completion truncated at max tokens for model %s", model)
	}

	return answer, nil
}

var _ Client = (*ollamaClient)(nil)
