// Package config loads service configuration from config.yaml with
// environment variable overrides. Secrets only come from the environment.
package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for analyst-engine.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	LLM     LLMConfig     `yaml:"llm"`
	Catalog CatalogConfig `yaml:"catalog"`
	Vectors VectorConfig  `yaml:"vectors"`
	Reports ReportsConfig `yaml:"reports"`
	Ingest  IngestConfig  `yaml:"ingest"`
}

// LLMConfig selects the model provider and its credentials.
type LLMConfig struct {
	// Provider is "openai" or "anthropic". Anthropic has no embedding
	// endpoint, so embedding settings are used in either case.
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`

	Endpoint       string `yaml:"endpoint" env:"OPENAI_ENDPOINT" env-default:""`
	Model          string `yaml:"model" env:"OPENAI_MODEL" env-default:"gpt-4o-mini"`
	EmbeddingModel string `yaml:"embedding_model" env:"OPENAI_EMBEDDING_MODEL" env-default:"text-embedding-3-small"`
	APIKey         string `yaml:"-" env:"OPENAI_API_KEY"` // Secret

	AnthropicModel  string `yaml:"anthropic_model" env:"ANTHROPIC_MODEL" env-default:"claude-3-5-sonnet-20241022"`
	AnthropicAPIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret
}

// CatalogConfig holds the durable catalog database. All fields optional:
// with no host configured the catalog runs cache-only.
type CatalogConfig struct {
	Host     string `yaml:"host" env:"PGHOST" env-default:""`
	Port     int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User     string `yaml:"user" env:"PGUSER" env-default:"analyst"`
	Password string `yaml:"-" env:"PGPASSWORD"` // Secret
	Database string `yaml:"database" env:"PGDATABASE" env-default:"analyst_engine"`
	SSLMode  string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// Enabled reports whether a durable catalog is configured at all.
func (c CatalogConfig) Enabled() bool {
	return c.Host != ""
}

// DSN renders the catalog connection string.
func (c CatalogConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// VectorConfig holds the embedded vector store settings.
type VectorConfig struct {
	// Dir is where collections persist. Empty means in-memory only.
	Dir string `yaml:"dir" env:"VECTOR_DIR" env-default:"./data/vectors"`
}

// ReportsConfig holds PDF report output settings.
type ReportsConfig struct {
	Dir string `yaml:"dir" env:"REPORTS_DIR" env-default:"./data/reports"`
}

// IngestConfig tunes dataset processing.
type IngestConfig struct {
	// ChunkSize is the number of data rows per embedded chunk.
	ChunkSize int `yaml:"chunk_size" env:"INGEST_CHUNK_SIZE" env-default:"100"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. A missing config.yaml is fine; everything then comes from the
// environment and defaults.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.LLM.Provider)
	}
	if c.Ingest.ChunkSize < 0 {
		return fmt.Errorf("ingest chunk_size must not be negative")
	}
	return nil
}

// Addr is the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return c.BindAddr + ":" + c.Port
}
