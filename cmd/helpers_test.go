package cmd

import (
	"strings"
	"testing"

	"github.com/ziadkadry99/pdfqa/internal/config"
)

func TestCreateEmbedderFromConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")

	cfg := config.DefaultConfig()
	if _, err := createEmbedderFromConfig(cfg); err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("openai without key: err = %v", err)
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")
	e, err := createEmbedderFromConfig(cfg)
	if err != nil {
		t.Fatalf("openai: %v", err)
	}
	if e.Name() != "openai/text-embedding-3-small" {
		t.Errorf("Name() = %q", e.Name())
	}

	cfg.EmbeddingDimensions = 512
	e, err = createEmbedderFromConfig(cfg)
	if err != nil {
		t.Fatalf("openai shortened: %v", err)
	}
	if e.Dimensions() != 512 || e.Name() != "openai/text-embedding-3-small@512" {
		t.Errorf("shortened embedder = %q/%d", e.Name(), e.Dimensions())
	}

	cfg.EmbeddingProvider = config.ProviderOllama
	cfg.EmbeddingModel = "nomic-embed-text"
	cfg.EmbeddingDimensions = 0
	e, err = createEmbedderFromConfig(cfg)
	if err != nil {
		t.Fatalf("ollama: %v", err)
	}
	if e.Dimensions() != 0 {
		t.Errorf("Dimensions() = %d, want 0 until the model answers", e.Dimensions())
	}

	cfg.EmbeddingDimensions = 768
	e, err = createEmbedderFromConfig(cfg)
	if err != nil {
		t.Fatalf("ollama sized: %v", err)
	}
	if e.Dimensions() != 768 {
		t.Errorf("Dimensions() = %d, want 768", e.Dimensions())
	}

	cfg.EmbeddingProvider = config.ProviderGoogle
	cfg.EmbeddingModel = ""
	if _, err := createEmbedderFromConfig(cfg); err == nil || !strings.Contains(err.Error(), "GOOGLE_API_KEY") {
		t.Errorf("google without key: err = %v", err)
	}
}
