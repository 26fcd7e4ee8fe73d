package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Search     SearchConfig     `yaml:"search"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Server     ServerConfig     `yaml:"server"`
	LocalIndex LocalIndexConfig `yaml:"local_index"`
	RunLog     RunLogConfig     `yaml:"run_log"`
}

// SearchConfig points at the remote vector-search service. When Endpoint is
// empty the pipeline falls back to the embedded local index.
type SearchConfig struct {
	Endpoint  string `yaml:"endpoint"`
	APIKey    string `yaml:"api_key"`
	IndexName string `yaml:"index_name"`
}

// EmbeddingConfig describes the model server hosting the sentence-embedding
// model, reachable over an OpenAI-compatible API.
type EmbeddingConfig struct {
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type LocalIndexConfig struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
}

// RunLogConfig enables the Postgres ingestion-run log when DSN is set.
type RunLogConfig struct {
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

const (
	DefaultIndexName    = "cpa-documents"
	DefaultModel        = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultDimension    = 384
	DefaultBatchSize    = 32
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultPort         = "5000"
)

// Load reads the YAML config file when present, then applies environment
// overrides and defaults. A missing file is not an error; a .env file in the
// working directory is honored.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setEnv(&cfg.Search.Endpoint, "AZURE_SEARCH_ENDPOINT")
	setEnv(&cfg.Search.APIKey, "AZURE_SEARCH_API_KEY")
	setEnv(&cfg.Search.IndexName, "AZURE_SEARCH_INDEX_NAME")
	setEnv(&cfg.Embedding.BaseURL, "EMBEDDING_BASE_URL")
	setEnv(&cfg.Embedding.APIKey, "EMBEDDING_API_KEY")
	setEnv(&cfg.Embedding.Model, "EMBEDDING_MODEL")
	setEnvInt(&cfg.Embedding.Dimension, "EMBEDDING_DIMENSION")
	setEnvInt(&cfg.Chunking.ChunkSize, "MAX_CHUNK_SIZE")
	setEnvInt(&cfg.Chunking.ChunkOverlap, "CHUNK_OVERLAP")
	setEnv(&cfg.Server.Port, "PORT")
	setEnv(&cfg.RunLog.DSN, "RUN_LOG_DSN")
	setEnv(&cfg.RunLog.Password, "RUN_LOG_PASSWORD")
}

func applyDefaults(cfg *Config) {
	if cfg.Search.IndexName == "" {
		cfg.Search.IndexName = DefaultIndexName
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = DefaultModel
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = DefaultDimension
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = DefaultBatchSize
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = DefaultChunkSize
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = DefaultChunkOverlap
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = DefaultPort
	}
	if cfg.LocalIndex.Path == "" {
		cfg.LocalIndex.Path = "./chromemdb"
	}
	if cfg.LocalIndex.Collection == "" {
		cfg.LocalIndex.Collection = "cpa_documents"
	}
}

func setEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setEnvInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
