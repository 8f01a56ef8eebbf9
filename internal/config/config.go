package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the root of the application configuration tree. It is populated
// from config.yaml plus LIPIDBOT_* environment variables via viper.
type Config struct {
	Logger   LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Server   ServerConfig    `mapstructure:"server" yaml:"server"`
	Neo4j    Neo4jConfig     `mapstructure:"neo4j" yaml:"neo4j"`
	LLM      LLMRouterConfig `mapstructure:"llm" yaml:"llm"`
	Citation CitationConfig  `mapstructure:"citation" yaml:"citation"`
	Entity   EntityConfig    `mapstructure:"entity" yaml:"entity"`
	Bot      BotConfig       `mapstructure:"bot" yaml:"bot"`
}

// LoggerConfig mirrors the zap + lumberjack setup in internal/observability.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	ListenAddr      string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Neo4jConfig holds the connection details for the knowledge graph.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri" yaml:"uri"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
	ProviderOllama LLMProvider = "ollama"
)

// LLMRouterConfig configures the model routing logic.
type LLMRouterConfig struct {
	DefaultFastModel     string                    `mapstructure:"default_fast_model" yaml:"default_fast_model"`
	DefaultPowerfulModel string                    `mapstructure:"default_powerful_model" yaml:"default_powerful_model"`
	Models               map[string]LLMModelConfig `mapstructure:"models" yaml:"models"`
}

// LLMModelConfig defines the configuration for a single LLM.
type LLMModelConfig struct {
	Provider      LLMProvider       `mapstructure:"provider" yaml:"provider"`
	Model         string            `mapstructure:"model" yaml:"model"`
	APIKey        string            `mapstructure:"api_key" yaml:"api_key"`
	Endpoint      string            `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout    time.Duration     `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature   float32           `mapstructure:"temperature" yaml:"temperature"`
	TopP          float32           `mapstructure:"top_p" yaml:"top_p"`
	TopK          int               `mapstructure:"top_k" yaml:"top_k"`
	MaxTokens     int               `mapstructure:"max_tokens" yaml:"max_tokens"`
	NumCtx        int               `mapstructure:"num_ctx" yaml:"num_ctx"`
	RatePerSecond float64           `mapstructure:"rate_per_second" yaml:"rate_per_second"`
	SafetyFilters map[string]string `mapstructure:"safety_filters" yaml:"safety_filters"`
}

// CitationConfig configures the literature retrieval subsystem.
type CitationConfig struct {
	// IndexDir holds the bleve index and the embedding vector store.
	IndexDir string `mapstructure:"index_dir" yaml:"index_dir"`
	// CorpusCSV is the citations file (citation_id, title, abstract) used
	// by `lipidbot index build`.
	CorpusCSV       string   `mapstructure:"corpus_csv" yaml:"corpus_csv"`
	EmbeddingModels []string `mapstructure:"embedding_models" yaml:"embedding_models"`
	OllamaEndpoint  string   `mapstructure:"ollama_endpoint" yaml:"ollama_endpoint"`
	ChunkSize       int      `mapstructure:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap    int      `mapstructure:"chunk_overlap" yaml:"chunk_overlap"`
	TopK            int      `mapstructure:"top_k" yaml:"top_k"`
	RRFK            int      `mapstructure:"rrf_k" yaml:"rrf_k"`
}

// EntityConfig configures the alias dictionary extractor.
type EntityConfig struct {
	// AliasDir contains the ID_map_*.csv alias files.
	AliasDir string `mapstructure:"alias_dir" yaml:"alias_dir"`
	// CachePath is the gob-encoded alias table built by `lipidbot index build`.
	CachePath string `mapstructure:"cache_path" yaml:"cache_path"`
	MinLength int    `mapstructure:"min_length" yaml:"min_length"`
}

// BotConfig holds the per-stage deadlines of the ask pipeline.
type BotConfig struct {
	ClassifyTimeout  time.Duration `mapstructure:"classify_timeout" yaml:"classify_timeout"`
	CypherTimeout    time.Duration `mapstructure:"cypher_timeout" yaml:"cypher_timeout"`
	CitationTimeout  time.Duration `mapstructure:"citation_timeout" yaml:"citation_timeout"`
	SynthesisTimeout time.Duration `mapstructure:"synthesis_timeout" yaml:"synthesis_timeout"`
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "lipidbot")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Server --
	// Port 7120 is the published container contract.
	v.SetDefault("server.listen_addr", ":7120")
	v.SetDefault("server.request_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// -- Neo4j --
	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.user", "neo4j")
	v.SetDefault("neo4j.password", "")

	// -- LLM --
	v.SetDefault("llm.default_fast_model", "llama")
	v.SetDefault("llm.default_powerful_model", "gemini-flash")
	v.SetDefault("llm.models.gemini-flash.provider", "gemini")
	v.SetDefault("llm.models.gemini-flash.model", "gemini-2.5-flash")
	v.SetDefault("llm.models.gemini-flash.api_timeout", "60s")
	v.SetDefault("llm.models.gemini-flash.temperature", 0.1)
	v.SetDefault("llm.models.gemini-flash.top_p", 0.95)
	v.SetDefault("llm.models.gemini-flash.top_k", 40)
	v.SetDefault("llm.models.gemini-flash.max_tokens", 8192)
	v.SetDefault("llm.models.llama.provider", "ollama")
	v.SetDefault("llm.models.llama.model", "llama3.1")
	v.SetDefault("llm.models.llama.endpoint", "http://localhost:11434")
	v.SetDefault("llm.models.llama.api_timeout", "120s")
	v.SetDefault("llm.models.llama.temperature", 0.1)
	v.SetDefault("llm.models.llama.top_p", 0.95)
	v.SetDefault("llm.models.llama.top_k", 40)
	v.SetDefault("llm.models.llama.num_ctx", 4096)
	v.SetDefault("llm.models.llama.max_tokens", 2048)

	// -- Citation --
	v.SetDefault("citation.index_dir", "citation_cache")
	v.SetDefault("citation.corpus_csv", "citations.csv")
	v.SetDefault("citation.embedding_models", []string{"nomic-embed-text"})
	v.SetDefault("citation.ollama_endpoint", "http://localhost:11434")
	v.SetDefault("citation.chunk_size", 180)
	v.SetDefault("citation.chunk_overlap", 40)
	v.SetDefault("citation.top_k", 5)
	v.SetDefault("citation.rrf_k", 60)

	// -- Entity --
	v.SetDefault("entity.alias_dir", "maps_dir")
	v.SetDefault("entity.cache_path", "ac_kegg.gob")
	v.SetDefault("entity.min_length", 2)

	// -- Bot --
	v.SetDefault("bot.classify_timeout", "30s")
	v.SetDefault("bot.cypher_timeout", "40s")
	v.SetDefault("bot.citation_timeout", "40s")
	v.SetDefault("bot.synthesis_timeout", "120s")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for sensitive data.
	v.BindEnv("neo4j.password", "LIPIDBOT_NEO4J_PASSWORD")
	v.BindEnv("llm.models.gemini-flash.api_key", "LIPIDBOT_GEMINI_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	if c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j.uri is required")
	}
	if c.LLM.DefaultFastModel == "" || c.LLM.DefaultPowerfulModel == "" {
		return fmt.Errorf("llm.default_fast_model and llm.default_powerful_model are required")
	}
	for _, name := range []string{c.LLM.DefaultFastModel, c.LLM.DefaultPowerfulModel} {
		if _, ok := c.LLM.Models[name]; !ok {
			return fmt.Errorf("llm.models is missing an entry for %q", name)
		}
	}
	if c.Citation.ChunkSize <= 0 {
		return fmt.Errorf("citation.chunk_size must be a positive integer")
	}
	if c.Citation.ChunkOverlap < 0 || c.Citation.ChunkOverlap >= c.Citation.ChunkSize {
		return fmt.Errorf("citation.chunk_overlap must be in [0, chunk_size)")
	}
	if c.Citation.RRFK <= 0 {
		return fmt.Errorf("citation.rrf_k must be a positive integer")
	}
	if c.Entity.MinLength < 1 {
		return fmt.Errorf("entity.min_length must be at least 1")
	}
	return nil
}
