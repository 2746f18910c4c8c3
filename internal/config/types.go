package config

import "time"

// QualityTier controls the model selection and trade-off between speed/cost and quality.
type QualityTier string

const (
	QualityLite   QualityTier = "lite"
	QualityNormal QualityTier = "normal"
	QualityMax    QualityTier = "max"
)

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderGoogle    ProviderType = "google"
	ProviderOllama    ProviderType = "ollama"
)

// Config is the top-level pdfqa configuration, corresponding to .pdfqa.yml.
type Config struct {
	Provider            ProviderType `yaml:"provider" koanf:"provider"`
	Model               string       `yaml:"model" koanf:"model"`
	EmbeddingProvider   ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel      string       `yaml:"embedding_model" koanf:"embedding_model"`
	// EmbeddingDimensions overrides the output size; 0 keeps the model default.
	EmbeddingDimensions int          `yaml:"embedding_dimensions" koanf:"embedding_dimensions"`
	Quality             QualityTier  `yaml:"quality" koanf:"quality"`

	DataDir   string `yaml:"data_dir" koanf:"data_dir"`
	UploadDir string `yaml:"upload_dir" koanf:"upload_dir"`

	ChunkSize    int `yaml:"chunk_size" koanf:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap" koanf:"chunk_overlap"`
	TopK         int `yaml:"top_k" koanf:"top_k"`
	MaxContext   int `yaml:"max_context" koanf:"max_context"`

	Temperature       float64 `yaml:"temperature" koanf:"temperature"`
	MaxOutputTokens   int     `yaml:"max_output_tokens" koanf:"max_output_tokens"`
	RequestsPerMinute int     `yaml:"requests_per_minute" koanf:"requests_per_minute"`

	EmbedTimeout      time.Duration `yaml:"embed_timeout" koanf:"embed_timeout"`
	GenerationTimeout time.Duration `yaml:"generation_timeout" koanf:"generation_timeout"`

	Debug  bool         `yaml:"debug" koanf:"debug"`
	Stream StreamConfig `yaml:"stream" koanf:"stream"`
	Server ServerConfig `yaml:"server" koanf:"server"`
}

// StreamConfig controls how answers are delivered to clients.
type StreamConfig struct {
	WordsPerEvent int           `yaml:"words_per_event" koanf:"words_per_event"`
	Interval      time.Duration `yaml:"interval" koanf:"interval"`
	StartDelay    time.Duration `yaml:"start_delay" koanf:"start_delay"`
	// Incremental forwards model tokens as they arrive when the backend supports it.
	Incremental bool `yaml:"incremental" koanf:"incremental"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}
