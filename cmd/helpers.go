package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/sashabaranov/go-openai"

	"github.com/ziadkadry99/pdfqa/internal/answer"
	"github.com/ziadkadry99/pdfqa/internal/chunker"
	"github.com/ziadkadry99/pdfqa/internal/config"
	"github.com/ziadkadry99/pdfqa/internal/embeddings"
	"github.com/ziadkadry99/pdfqa/internal/llm"
	"github.com/ziadkadry99/pdfqa/internal/parser"
	"github.com/ziadkadry99/pdfqa/internal/pipeline"
	"github.com/ziadkadry99/pdfqa/internal/registry"
	"github.com/ziadkadry99/pdfqa/internal/stream"
	"github.com/ziadkadry99/pdfqa/internal/vectordb"
)

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	provider, model := cfg.ResolvedEmbedding()

	switch provider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
			oc := openai.DefaultConfig(apiKey)
			oc.BaseURL = base
			return embeddings.NewOpenAIEmbedderWithConfig(oc, embeddings.OpenAIModel(model)).WithDimensions(cfg.EmbeddingDimensions), nil
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(model)).WithDimensions(cfg.EmbeddingDimensions), nil
	case config.ProviderGoogle:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderGoogle))
		if apiKey == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY environment variable is required for Google embeddings")
		}
		return embeddings.NewGoogleEmbedder(apiKey, embeddings.GoogleModel(model)).WithDimensions(cfg.EmbeddingDimensions), nil
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(model, cfg.EmbeddingDimensions, llm.OllamaHost()), nil
	default:
		return nil, fmt.Errorf("provider %s cannot produce embeddings; set embedding_provider", provider)
	}
}

// createLLMProviderFromConfig creates an LLM provider based on config settings.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	p, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	return llm.NewRateLimitedProvider(p, cfg.RequestsPerMinute), nil
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `pdfqa init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// quietLogs silences pipeline logging for interactive commands unless
// --verbose or debug is set.
func quietLogs(cfg *config.Config) {
	if !verbose && !cfg.Debug {
		log.SetOutput(io.Discard)
	}
}

// buildPipeline assembles the document pipeline described by cfg. The
// returned close function releases the vector store.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, func() error, error) {
	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating embedder: %w", err)
	}

	provider, err := createLLMProviderFromConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	splitter, err := chunker.New(chunker.Options{
		Size:       cfg.ChunkSize,
		Overlap:    cfg.ChunkOverlap,
		Separators: chunker.DefaultSeparators,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating splitter: %w", err)
	}

	index, closeIndex, err := vectordb.OpenChromemIndex(cfg.DataDir, embedder)
	if err != nil {
		return nil, nil, fmt.Errorf("opening vector store in %s: %w", cfg.DataDir, err)
	}

	generator := answer.NewGenerator(provider, answer.Options{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxOutputTokens,
		MaxContext:  cfg.MaxContext,
		Timeout:     cfg.GenerationTimeout,
	})

	streamer := stream.New(stream.Options{
		WordsPerEvent: cfg.Stream.WordsPerEvent,
		Interval:      cfg.Stream.Interval,
		StartDelay:    cfg.Stream.StartDelay,
		Debug:         cfg.Debug,
	})

	p := pipeline.New(pipeline.Deps{
		Parser:    parser.NewRegistry(),
		Splitter:  splitter,
		Embedder:  embedder,
		Index:     index,
		Registry:  registry.New(),
		Generator: generator,
		Streamer:  streamer,
	}, pipeline.Options{
		TopK:         cfg.TopK,
		EmbedTimeout: cfg.EmbedTimeout,
		Incremental:  cfg.Stream.Incremental,
	})

	return p, closeIndex, nil
}
