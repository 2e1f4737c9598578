package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/leohan123123/blueprint-core/internal/core/domain"
)

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// VectorConfig selects and configures the vector index backend
type VectorConfig struct {
	Backend  string         `yaml:"backend"` // memory, pinecone or postgres
	Pinecone PineconeConfig `yaml:"pinecone,omitempty"`
	Postgres PostgresConfig `yaml:"postgres,omitempty"`
}

// PineconeConfig contains connection details for a Pinecone index
type PineconeConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// PostgresConfig contains connection details for a pgvector database
type PostgresConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// SessionConfig selects the conversation history backend
type SessionConfig struct {
	Backend    string `yaml:"backend"` // memory or redis
	RedisURL   string `yaml:"redis_url"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

// EmbeddingConfig configures the embedding strategy for the index
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // local or openai
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Dimensions int    `yaml:"dimensions"`
}

// LLMConfig configures one chat provider
type LLMConfig struct {
	Provider string `yaml:"provider"` // openai, anthropic or ollama
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
}

// IngestConfig tunes the ingestion pipeline
type IngestConfig struct {
	MaxChunkSize int `yaml:"max_chunk_size"`
	PoolSize     int `yaml:"pool_size"`
}

// LogConfig configures logging output
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Config is the root application configuration.
// Values come from the YAML file, overridden by environment variables.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Vector    VectorConfig    `yaml:"vector"`
	Session   SessionConfig   `yaml:"session"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       []LLMConfig     `yaml:"llm"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Log       LogConfig       `yaml:"log"`
}

// Load reads configuration from path, falling back to defaults when
// the file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(cfg)
	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// AISettings converts the static configuration into the runtime's
// settings shape
func (c *Config) AISettings() domain.AISettings {
	settings := domain.AISettings{
		Embedding: domain.EmbeddingSettings{
			Provider:   domain.AIProvider(c.Embedding.Provider),
			Model:      c.Embedding.Model,
			APIKey:     c.Embedding.APIKey,
			BaseURL:    c.Embedding.BaseURL,
			Dimensions: c.Embedding.Dimensions,
		},
	}
	for _, entry := range c.LLM {
		settings.LLM = append(settings.LLM, domain.LLMSettings{
			Provider: domain.AIProvider(entry.Provider),
			Model:    entry.Model,
			APIKey:   entry.APIKey,
			BaseURL:  entry.BaseURL,
		})
	}
	return settings
}

func defaultConfig() *Config {
	return &Config{
		Server:    ServerConfig{Host: "0.0.0.0", Port: 8080, AllowedOrigins: []string{"*"}},
		Vector:    VectorConfig{Backend: "memory"},
		Session:   SessionConfig{Backend: "memory", TTLMinutes: 24 * 60},
		Embedding: EmbeddingConfig{Provider: "local", Dimensions: domain.DefaultEmbeddingDimensions},
		LLM:       []LLMConfig{{Provider: "ollama", Model: "llama3.1", BaseURL: "http://localhost:11434"}},
		Ingest:    IngestConfig{MaxChunkSize: 1000, PoolSize: 4},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// applyDefaults fills gaps a partial YAML file leaves behind
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Vector.Backend == "" {
		cfg.Vector.Backend = "memory"
	}
	if cfg.Session.Backend == "" {
		cfg.Session.Backend = "memory"
	}
	if cfg.Session.TTLMinutes == 0 {
		cfg.Session.TTLMinutes = 24 * 60
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "local"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = domain.DefaultEmbeddingDimensions
	}
	if cfg.Ingest.MaxChunkSize == 0 {
		cfg.Ingest.MaxChunkSize = 1000
	}
	if cfg.Ingest.PoolSize == 0 {
		cfg.Ingest.PoolSize = 4
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// applyEnv overrides file values with environment variables.
// Credentials usually arrive this way rather than through the file.
func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnvInt("PORT", cfg.Server.Port)
	cfg.Vector.Backend = getEnv("VECTOR_BACKEND", cfg.Vector.Backend)
	cfg.Vector.Pinecone.BaseURL = getEnv("PINECONE_BASE_URL", cfg.Vector.Pinecone.BaseURL)
	cfg.Vector.Pinecone.APIKey = getEnv("PINECONE_API_KEY", cfg.Vector.Pinecone.APIKey)
	cfg.Vector.Postgres.URL = getEnv("DATABASE_URL", cfg.Vector.Postgres.URL)
	cfg.Session.Backend = getEnv("SESSION_BACKEND", cfg.Session.Backend)
	cfg.Session.RedisURL = getEnv("REDIS_URL", cfg.Session.RedisURL)
	cfg.Embedding.Provider = getEnv("EMBEDDING_PROVIDER", cfg.Embedding.Provider)
	cfg.Embedding.Model = getEnv("EMBEDDING_MODEL", cfg.Embedding.Model)
	cfg.Embedding.APIKey = getEnv("OPENAI_API_KEY", cfg.Embedding.APIKey)
	cfg.Embedding.Dimensions = getEnvInt("EMBEDDING_DIMENSIONS", cfg.Embedding.Dimensions)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)

	// Chat credentials by provider
	for i := range cfg.LLM {
		switch cfg.LLM[i].Provider {
		case "openai":
			cfg.LLM[i].APIKey = getEnv("OPENAI_API_KEY", cfg.LLM[i].APIKey)
		case "anthropic":
			cfg.LLM[i].APIKey = getEnv("ANTHROPIC_API_KEY", cfg.LLM[i].APIKey)
		case "ollama":
			cfg.LLM[i].BaseURL = getEnv("OLLAMA_BASE_URL", cfg.LLM[i].BaseURL)
		}
	}
}

func validate(cfg *Config) error {
	switch cfg.Vector.Backend {
	case "memory":
	case "pinecone":
		if cfg.Vector.Pinecone.BaseURL == "" {
			return fmt.Errorf("%w: pinecone backend needs a base URL", domain.ErrNotConfigured)
		}
		if cfg.Vector.Pinecone.APIKey == "" {
			return fmt.Errorf("%w: pinecone backend needs an API key", domain.ErrNotConfigured)
		}
	case "postgres":
		if cfg.Vector.Postgres.URL == "" {
			return fmt.Errorf("%w: postgres backend needs a database URL", domain.ErrNotConfigured)
		}
	default:
		return fmt.Errorf("%w: unknown vector backend %q", domain.ErrInvalidInput, cfg.Vector.Backend)
	}

	switch cfg.Session.Backend {
	case "memory":
	case "redis":
		if cfg.Session.RedisURL == "" {
			return fmt.Errorf("%w: redis session backend needs a URL", domain.ErrNotConfigured)
		}
	default:
		return fmt.Errorf("%w: unknown session backend %q", domain.ErrInvalidInput, cfg.Session.Backend)
	}

	if !domain.AIProvider(cfg.Embedding.Provider).IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidProvider, cfg.Embedding.Provider)
	}
	for _, entry := range cfg.LLM {
		if !domain.AIProvider(entry.Provider).IsValid() {
			return fmt.Errorf("%w: %q", domain.ErrInvalidProvider, entry.Provider)
		}
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
	}
	return defaultValue
}
