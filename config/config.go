package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

type Config struct {
	Addr string `env:"ADDR" envDefault:":8000"`

	UploadDir string `env:"UPLOAD_DIR" envDefault:"data/uploads"`
	IndexDir  string `env:"VECTOR_DB_PATH" envDefault:"data/vector_db"`

	ChunkSize    int `env:"CHUNK_SIZE" envDefault:"1000"`
	ChunkOverlap int `env:"CHUNK_OVERLAP" envDefault:"200"`

	TopK   int `env:"TOP_K" envDefault:"5"`
	FetchK int `env:"FETCH_K" envDefault:"15"`

	IngestWorkers int   `env:"INGEST_WORKERS" envDefault:"2"`
	IngestQueue   int   `env:"INGEST_QUEUE" envDefault:"32"`
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"52428800"`

	Embeddings Embeddings
	LLM        LLM

	OllamaHost    string `env:"OLLAMA_HOST" envDefault:"http://localhost:11434"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
}

type Embeddings struct {
	Provider  string `env:"EMBEDDINGS_PROVIDER" envDefault:"openai"`
	Model     string `env:"EMBEDDINGS_MODEL" envDefault:"text-embedding-3-small"`
	Dimension int    `env:"EMBEDDINGS_DIMENSION" envDefault:"1536"`
}

type LLM struct {
	Provider    string   `env:"LLM_PROVIDER" envDefault:"openai"`
	Models      []string `env:"LLM_MODELS" envDefault:"gpt-4o-mini,gpt-4o,gpt-3.5-turbo" envSeparator:","`
	Temperature float64  `env:"LLM_TEMPERATURE" envDefault:"0.3"`
	MaxTokens   int      `env:"LLM_MAX_TOKENS" envDefault:"4096"`
}

// Load reads configuration from the environment, honouring a local .env
// file when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.ChunkOverlap >= cfg.ChunkSize {
		return Config{}, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", cfg.ChunkOverlap, cfg.ChunkSize)
	}
	if cfg.TopK > cfg.FetchK {
		return Config{}, fmt.Errorf("top-k %d cannot exceed fetch-k %d", cfg.TopK, cfg.FetchK)
	}

	return cfg, nil
}
