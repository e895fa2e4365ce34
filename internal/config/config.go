package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/museumrag/internal/domain"
)

// Index backends.
const (
	BackendChromem = "chromem"
	BackendRedis   = "redis"
	BackendQdrant  = "qdrant"
)

// Embedding provision modes.
const (
	// EmbeddingModeIndex lets the vector index embed raw text itself.
	EmbeddingModeIndex = "index"
	// EmbeddingModeCaller makes callers supply precomputed vectors.
	EmbeddingModeCaller = "caller"
)

// Config holds the museumrag configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	RAG        RAGConfig        `yaml:"rag"`
	Index      IndexConfig      `yaml:"index"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// OpenAIConfig holds the credential shared by the embedding and chat clients.
type OpenAIConfig struct {
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Provider string `yaml:"provider"` // metrics label
}

// EmbeddingConfig holds embedding model settings.
type EmbeddingConfig struct {
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	Cache      bool   `yaml:"cache"` // Redis-backed cache, requires database.addrs
}

// GenerationConfig holds chat completion settings.
type GenerationConfig struct {
	Model          string  `yaml:"model"`
	Temperature    float32 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"` // 0 = unlimited
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// RAGConfig holds question/answer pipeline settings.
type RAGConfig struct {
	DefaultK   int `yaml:"default_k"`
	MaxK       int `yaml:"max_k"`
	TimeoutSec int `yaml:"timeout_sec"` // per outbound stage
}

// IndexConfig selects and tunes the vector index.
type IndexConfig struct {
	Backend       string        `yaml:"backend"`        // chromem, redis, qdrant
	EmbeddingMode string        `yaml:"embedding_mode"` // index, caller
	Collection    string        `yaml:"collection"`
	SeedOnStart   bool          `yaml:"seed_on_start"`
	Chromem       ChromemConfig `yaml:"chromem"`
	Qdrant        QdrantConfig  `yaml:"qdrant"`
	HNSWM         int           `yaml:"hnsw_m"`
	HNSWEFConst   int           `yaml:"hnsw_ef_construction"`
}

// ChromemConfig holds embedded index settings. An empty Path keeps the index in memory.
type ChromemConfig struct {
	Path     string `yaml:"path"`
	Compress bool   `yaml:"compress"`
}

// Persistent reports whether the chromem index survives restarts.
func (c ChromemConfig) Persistent() bool { return c.Path != "" }

// QdrantConfig holds Qdrant gRPC settings.
type QdrantConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
	UseTLS bool   `yaml:"use_tls"`
}

// DatabaseConfig holds Redis/Valkey connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// CorpusConfig selects the document source.
type CorpusConfig struct {
	Source string `yaml:"source"` // builtin, yaml, pdf
	Path   string `yaml:"path"`
	Title  string `yaml:"title"`
}

// Load reads configuration from a YAML file by environment name (local, dev, docker, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references, decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8501
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 75
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.OpenAI.Provider == "" {
		c.OpenAI.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "gpt-4o-mini"
	}
	if c.Generation.RateLimitRPS > 0 && c.Generation.RateLimitBurst <= 0 {
		c.Generation.RateLimitBurst = 1
	}
	if c.RAG.MaxK <= 0 {
		c.RAG.MaxK = 5
	}
	if c.RAG.DefaultK <= 0 {
		c.RAG.DefaultK = 3
	}
	if c.RAG.TimeoutSec <= 0 {
		c.RAG.TimeoutSec = 30
	}
	if c.Index.Backend == "" {
		c.Index.Backend = BackendChromem
	}
	if c.Index.EmbeddingMode == "" {
		c.Index.EmbeddingMode = EmbeddingModeCaller
	}
	if c.Index.Collection == "" {
		c.Index.Collection = "dali_museum"
	}
	if c.Index.Qdrant.Port <= 0 {
		c.Index.Qdrant.Port = 6334
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConst <= 0 {
		c.Index.HNSWEFConst = 200
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "museumrag:"
	}
	if c.Corpus.Source == "" {
		c.Corpus.Source = "builtin"
	}
}

// Validate checks the configuration for correctness. The OpenAI credential is
// checked separately by RequireCredential so a server can still start and report it.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.RAG.MaxK < 1 {
		return fmt.Errorf("rag.max_k must be positive, got %d", c.RAG.MaxK)
	}
	if c.RAG.DefaultK < 1 || c.RAG.DefaultK > c.RAG.MaxK {
		return fmt.Errorf("rag.default_k must be between 1 and %d, got %d", c.RAG.MaxK, c.RAG.DefaultK)
	}
	switch c.Index.EmbeddingMode {
	case EmbeddingModeIndex, EmbeddingModeCaller:
	default:
		return fmt.Errorf("index.embedding_mode must be %q or %q, got %q",
			EmbeddingModeIndex, EmbeddingModeCaller, c.Index.EmbeddingMode)
	}
	switch c.Index.Backend {
	case BackendChromem:
	case BackendRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the redis index backend")
		}
	case BackendQdrant:
		if c.Index.Qdrant.Host == "" {
			return fmt.Errorf("index.qdrant.host is required for the qdrant index backend")
		}
	default:
		return fmt.Errorf("index.backend must be one of chromem, redis, qdrant, got %q", c.Index.Backend)
	}
	if c.Embedding.Cache && len(c.Database.Addrs) == 0 {
		return fmt.Errorf("embedding.cache requires database.addrs")
	}
	switch c.Corpus.Source {
	case "builtin":
	case "yaml", "pdf":
		if c.Corpus.Path == "" {
			return fmt.Errorf("corpus.path is required for source %q", c.Corpus.Source)
		}
	default:
		return fmt.Errorf("corpus.source must be builtin, yaml or pdf, got %q", c.Corpus.Source)
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature must be between 0 and 2, got %g", c.Generation.Temperature)
	}
	return nil
}

// OverrideAPIKey replaces the configured credential when key is non-empty.
// Called once at startup, before any client is built.
func (c *Config) OverrideAPIKey(key string) {
	if key = strings.TrimSpace(key); key != "" {
		c.OpenAI.APIKey = key
	}
}

// RequireCredential reports a missing OpenAI credential as domain.ErrConfiguration.
func (c *Config) RequireCredential() error {
	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		return fmt.Errorf("openai api key is not set (OPENAI_API_KEY or --openai-api-key): %w",
			domain.ErrConfiguration)
	}
	return nil
}

// DefaultDimensions is the output size of text-embedding-3-small.
const DefaultDimensions = 1536

// VectorDimensions returns the stored vector size: the requested embedding
// dimensions, or the model default when none are requested.
func (c *Config) VectorDimensions() int {
	if c.Embedding.Dimensions > 0 {
		return c.Embedding.Dimensions
	}
	return DefaultDimensions
}

// NeedsRedis reports whether any component uses the Redis store.
func (c *Config) NeedsRedis() bool {
	return c.Index.Backend == BackendRedis || c.Embedding.Cache
}

// EphemeralIndex reports whether the index starts empty on every process start.
func (c *Config) EphemeralIndex() bool {
	return c.Index.Backend == BackendChromem && !c.Index.Chromem.Persistent()
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
