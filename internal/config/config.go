// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (RAGENT_* runtime override)
//  2. Config file (~/.ragent/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - AI: provider, model, embedder, temperature
//   - Retrieval: per-index top-k, fusion weights, final result count
//   - Judge: affirmative-token set for the sufficiency gate
//   - Agent: iteration budget for the tool loop
//   - Tools: external search services (web search key, Wikipedia, arXiv)
//   - Storage: optional PostgreSQL backend (dense index + checkpoints)
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default model and retrieval values. Retrieval defaults mirror the tuned
// production values: 10 candidates per index fused 50/50, reranked to 3.
const (
	DefaultProvider      = "gemini"
	DefaultModelName     = "gemini-2.5-flash"
	DefaultEmbedderModel = "gemini-embedding-001"

	DefaultDenseTopK    = 10
	DefaultSparseTopK   = 10
	DefaultFinalTopK    = 3
	DefaultDenseWeight  = 0.5
	DefaultSparseWeight = 0.5

	DefaultAgentMaxIterations = 6

	DefaultWikipediaLanguage = "en"
	DefaultWikipediaTopK     = 3
	DefaultWebSearchTopK     = 5
	DefaultArxivTopK         = 2
	DefaultArxivMaxChars     = 1000
	DefaultToolTimeout       = 15 * time.Second

	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200

	DefaultServerAddr = ":8080"
)

// Config stores application configuration.
// SECURITY: Sensitive fields are masked by String(); never log the raw struct.
type Config struct {
	// AI provider and model configuration
	Provider      string  `mapstructure:"provider"`       // "gemini" (default) or "googleai"
	ModelName     string  `mapstructure:"model_name"`     // e.g. "gemini-2.5-flash"
	EmbedderModel string  `mapstructure:"embedder_model"` // e.g. "gemini-embedding-001"
	Temperature   float32 `mapstructure:"temperature"`

	// Judge configuration. Affirmatives is the set of tokens treated as a
	// "sufficient" verdict, matched case-insensitively as substrings.
	// Defaults to ["yes", "oui"].
	JudgeAffirmatives []string `mapstructure:"judge_affirmatives"`

	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Tools     ToolsConfig     `mapstructure:"tools"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Server    ServerConfig    `mapstructure:"server"`
}

// RetrievalConfig controls the hybrid retrieval pipeline.
type RetrievalConfig struct {
	DenseTopK    int     `mapstructure:"dense_top_k"`
	SparseTopK   int     `mapstructure:"sparse_top_k"`
	FinalTopK    int     `mapstructure:"final_top_k"`
	DenseWeight  float64 `mapstructure:"dense_weight"`
	SparseWeight float64 `mapstructure:"sparse_weight"`
}

// AgentConfig controls the tool-augmented agent loop.
type AgentConfig struct {
	MaxIterations int `mapstructure:"max_iterations"`
}

// ToolsConfig configures the external information tools.
type ToolsConfig struct {
	TavilyAPIKey      string        `mapstructure:"tavily_api_key"`
	WebSearchTopK     int           `mapstructure:"web_search_top_k"`
	WikipediaLanguage string        `mapstructure:"wikipedia_language"`
	WikipediaTopK     int           `mapstructure:"wikipedia_top_k"`
	ArxivTopK         int           `mapstructure:"arxiv_top_k"`
	ArxivMaxChars     int           `mapstructure:"arxiv_max_chars"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// IngestConfig configures corpus bootstrap.
type IngestConfig struct {
	URLs         []string `mapstructure:"urls"`
	Files        []string `mapstructure:"files"`
	ChunkSize    int      `mapstructure:"chunk_size"`
	ChunkOverlap int      `mapstructure:"chunk_overlap"`
}

// PostgresConfig configures the optional PostgreSQL backend.
// When Enabled is false, the dense index and checkpoint store run in memory.
type PostgresConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ServerConfig configures the JSON API server.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads configuration from file, environment, and defaults.
//
// The config file is optional; a missing file is not an error. Environment
// variables use the RAGENT_ prefix with underscores for nesting, e.g.
// RAGENT_TOOLS_TAVILY_API_KEY.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".ragent"))
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("RAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a Config populated with defaults only.
// Useful for tests and for embedding the engine as a library.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Unmarshal from defaults cannot fail: types match the default values.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", DefaultProvider)
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("temperature", 0.2)
	v.SetDefault("judge_affirmatives", []string{"yes", "oui"})

	v.SetDefault("retrieval.dense_top_k", DefaultDenseTopK)
	v.SetDefault("retrieval.sparse_top_k", DefaultSparseTopK)
	v.SetDefault("retrieval.final_top_k", DefaultFinalTopK)
	v.SetDefault("retrieval.dense_weight", DefaultDenseWeight)
	v.SetDefault("retrieval.sparse_weight", DefaultSparseWeight)

	v.SetDefault("agent.max_iterations", DefaultAgentMaxIterations)

	v.SetDefault("tools.web_search_top_k", DefaultWebSearchTopK)
	v.SetDefault("tools.wikipedia_language", DefaultWikipediaLanguage)
	v.SetDefault("tools.wikipedia_top_k", DefaultWikipediaTopK)
	v.SetDefault("tools.arxiv_top_k", DefaultArxivTopK)
	v.SetDefault("tools.arxiv_max_chars", DefaultArxivMaxChars)
	v.SetDefault("tools.timeout", DefaultToolTimeout)

	v.SetDefault("ingest.chunk_size", DefaultChunkSize)
	v.SetDefault("ingest.chunk_overlap", DefaultChunkOverlap)

	v.SetDefault("postgres.enabled", false)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "ragent")
	v.SetDefault("postgres.dbname", "ragent")
	v.SetDefault("postgres.sslmode", "disable")

	v.SetDefault("server.addr", DefaultServerAddr)
}

// String implements fmt.Stringer with sensitive fields masked, so a Config
// can be logged without leaking the Tavily key or database password.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Provider:%s Model:%s Embedder:%s Temperature:%.2f Retrieval:%d/%d->%d Agent:%d Tavily:%s Postgres:%s}",
		c.Provider,
		c.ModelName,
		c.EmbedderModel,
		c.Temperature,
		c.Retrieval.DenseTopK,
		c.Retrieval.SparseTopK,
		c.Retrieval.FinalTopK,
		c.Agent.MaxIterations,
		maskSecret(c.Tools.TavilyAPIKey),
		c.Postgres,
	)
}

// String implements fmt.Stringer with the password masked.
func (p PostgresConfig) String() string {
	if !p.Enabled {
		return "disabled"
	}
	return fmt.Sprintf("%s@%s:%d/%s password:%s",
		p.User, p.Host, p.Port, p.DBName, maskSecret(p.Password))
}

func maskSecret(s string) string {
	if s == "" {
		return "(unset)"
	}
	return "(set)"
}

// quoteDSNValue quotes a value for PostgreSQL key=value DSN format.
// Within single quotes, backslashes and single quotes are escaped.
func quoteDSNValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

// ConnectionString returns the PostgreSQL DSN for the pgx driver.
// Password is single-quoted to handle special characters (spaces, =, quotes).
func (p PostgresConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host,
		p.Port,
		p.User,
		quoteDSNValue(p.Password),
		p.DBName,
		p.SSLMode,
	)
}

// URL returns the PostgreSQL URL for golang-migrate.
// Uses url.URL for proper encoding of special characters in credentials.
func (p PostgresConfig) URL() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     p.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", p.SSLMode),
	}
	return u.String()
}
