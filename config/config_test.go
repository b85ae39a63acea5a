package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Addr != ":8000" {
		t.Fatalf("unexpected addr: %q", cfg.Addr)
	}
	if cfg.ChunkSize != 1000 || cfg.ChunkOverlap != 200 {
		t.Fatalf("unexpected chunking defaults: %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.TopK != 5 || cfg.FetchK != 15 {
		t.Fatalf("unexpected retrieval defaults: %d/%d", cfg.TopK, cfg.FetchK)
	}
	if len(cfg.LLM.Models) != 3 || cfg.LLM.Models[0] != "gpt-4o-mini" {
		t.Fatalf("unexpected model priority list: %v", cfg.LLM.Models)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("LLM_MODELS", "llama3.2,mistral")
	t.Setenv("LLM_PROVIDER", "ollama")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Addr != ":9090" {
		t.Fatalf("unexpected addr: %q", cfg.Addr)
	}
	if len(cfg.LLM.Models) != 2 || cfg.LLM.Models[1] != "mistral" {
		t.Fatalf("unexpected model list: %v", cfg.LLM.Models)
	}
	if cfg.LLM.Provider != ProviderOllama {
		t.Fatalf("unexpected provider: %q", cfg.LLM.Provider)
	}
}

func TestLoadRejectsOverlapLargerThanChunk(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "100")
	t.Setenv("CHUNK_OVERLAP", "100")

	if _, err := Load(); err == nil {
		t.Fatal("expected a validation error")
	}
}

func TestLoadRejectsTopKAboveFetchK(t *testing.T) {
	t.Setenv("TOP_K", "20")
	t.Setenv("FETCH_K", "10")

	if _, err := Load(); err == nil {
		t.Fatal("expected a validation error")
	}
}
