// Package llm wraps the completion capability used to generate study
// answers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Rudranshpardeshi09/StudyMind-AI/config"
)

var (
	// ErrUnavailable means the capability could not be reached or is
	// misconfigured. Callers should not retry.
	ErrUnavailable = errors.New("completion capability unavailable")

	// ErrEmptyResponse means the capability answered with no content.
	ErrEmptyResponse = errors.New("completion returned an empty response")
)

// Options bound a single generation call. Temperature stays low for
// study answers; MaxTokens caps the output length.
type Options struct {
	Temperature float32
	MaxTokens   int
}

type Client interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
}

func NewClient(cfg config.Config, logger *log.Logger) (Client, error) {
	if logger == nil {
		logger = log.Default()
	}

	switch cfg.LLM.Provider {
	case config.ProviderOllama:
		return NewOllamaClient(cfg.OllamaHost, cfg.LLM.Models, logger), nil
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but OPENAI_API_KEY not set: %w", ErrUnavailable)
		}
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.LLM.Models, logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLM.Provider)
	}
}
