// Package config loads pipeline settings from an optional YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when no path is given.
const DefaultPath = "config.yaml"

// QdrantConfig points at the vector store (gRPC port).
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key"`
	UseTLS     bool   `yaml:"use_tls"`
	Collection string `yaml:"collection"`
}

// CassandraConfig points at the chunk document store.
type CassandraConfig struct {
	Hosts       []string `yaml:"hosts"`
	Keyspace    string   `yaml:"keyspace"`
	Table       string   `yaml:"table"`
	Consistency string   `yaml:"consistency"`
	TimeoutSecs int      `yaml:"timeout_secs"`
}

// EmbeddingConfig selects the multimodal embedding provider.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"` // "cohere" or "openai"
	Model       string `yaml:"model"`
	VisionModel string `yaml:"vision_model"` // openai only: describes frames before embedding
	BatchSize   int    `yaml:"batch_size"`
}

// LLMConfig configures the answering model.
type LLMConfig struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top_p"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// IngestConfig configures the ingestion stage.
type IngestConfig struct {
	Dataset       string  `yaml:"dataset"` // webdataset tar path
	WindowSeconds float64 `yaml:"window_seconds"`
	Concurrency   int     `yaml:"concurrency"`
	GitHubOwner   string  `yaml:"github_owner"`
	GitHubRepo    string  `yaml:"github_repo"`
	GitHubPath    string  `yaml:"github_path"`
}

// QueryConfig configures retrieval and answer generation.
type QueryConfig struct {
	TopK         int     `yaml:"top_k"`
	GapTolerance float64 `yaml:"gap_tolerance_seconds"`
	VideosDir    string  `yaml:"videos_dir"`
	ClipsDir     string  `yaml:"clips_dir"`
}

// CacheConfig configures the optional Redis answer cache. Empty Addr disables it.
type CacheConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTLSecs  int    `yaml:"ttl_secs"`
}

// ClipStoreConfig configures the optional S3 clip publisher. Empty Bucket disables it.
type ClipStoreConfig struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// ServerConfig configures cmd/mcp-server.
type ServerConfig struct {
	Port       string `yaml:"port"`
	ServerMode bool   `yaml:"server_mode"`
}

// Config is the root configuration.
type Config struct {
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Cassandra CassandraConfig `yaml:"cassandra"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Query     QueryConfig     `yaml:"query"`
	Cache     CacheConfig     `yaml:"cache"`
	ClipStore ClipStoreConfig `yaml:"clip_store"`
	Server    ServerConfig    `yaml:"server"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Qdrant: QdrantConfig{
			Host:       "localhost",
			Port:       6334,
			Collection: "video_chunks_multimodal",
		},
		Cassandra: CassandraConfig{
			Hosts:       []string{"localhost"},
			Keyspace:    "video_and_subtitle_rag",
			Table:       "video_chunks",
			Consistency: "quorum",
			TimeoutSecs: 10,
		},
		Embedding: EmbeddingConfig{
			Provider:  "cohere",
			BatchSize: 48,
		},
		LLM: LLMConfig{
			Model:       "gpt-4o",
			Temperature: 0.4,
			TopP:        0.9,
			MaxTokens:   1024,
		},
		Ingest: IngestConfig{
			Dataset:       "./datasets/youtube_dataset.tar",
			WindowSeconds: 30,
			Concurrency:   2,
		},
		Query: QueryConfig{
			TopK:         15,
			GapTolerance: 120,
			VideosDir:    "./datasets/videos",
			ClipsDir:     filepath.Join(os.TempDir(), "videorag-clips"),
		},
		Cache: CacheConfig{
			TTLSecs: 24 * 60 * 60,
		},
		ClipStore: ClipStoreConfig{
			Prefix: "clips",
		},
		Server: ServerConfig{
			Port: "8080",
		},
	}
}

// Load reads path over the defaults and then applies environment overrides.
// A missing file is not an error; the defaults are used.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// applyEnv overrides file values with the deployment environment.
func applyEnv(cfg *Config) {
	cfg.Qdrant.Host = getEnv("QDRANT_HOST", cfg.Qdrant.Host)
	cfg.Qdrant.Port = getEnvInt("QDRANT_PORT", cfg.Qdrant.Port)
	cfg.Qdrant.APIKey = getEnv("QDRANT_API_KEY", cfg.Qdrant.APIKey)

	if hosts := os.Getenv("CASSANDRA_HOSTS"); hosts != "" {
		cfg.Cassandra.Hosts = strings.Split(hosts, ",")
	}
	cfg.Cassandra.Keyspace = getEnv("CASSANDRA_KEYSPACE", cfg.Cassandra.Keyspace)

	cfg.Embedding.Provider = getEnv("EMBEDDING_PROVIDER", cfg.Embedding.Provider)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)

	cfg.Ingest.Dataset = getEnv("DATASET_PATH", cfg.Ingest.Dataset)
	cfg.Query.VideosDir = getEnv("VIDEOS_DIR", cfg.Query.VideosDir)
	cfg.Query.ClipsDir = getEnv("CLIPS_DIR", cfg.Query.ClipsDir)

	cfg.Cache.Addr = getEnv("REDIS_ADDR", cfg.Cache.Addr)
	cfg.Cache.Password = getEnv("REDIS_PASS", cfg.Cache.Password)

	cfg.ClipStore.Bucket = getEnv("CLIP_BUCKET", cfg.ClipStore.Bucket)
	cfg.ClipStore.Region = getEnv("AWS_REGION", cfg.ClipStore.Region)

	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.ServerMode = getEnv("SERVER_MODE", strconv.FormatBool(cfg.Server.ServerMode)) == "true"
}

// applyDefaults fills zero values a partial config file may leave behind.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = def.Qdrant.Collection
	}
	if cfg.Cassandra.Table == "" {
		cfg.Cassandra.Table = def.Cassandra.Table
	}
	if cfg.Cassandra.TimeoutSecs <= 0 {
		cfg.Cassandra.TimeoutSecs = def.Cassandra.TimeoutSecs
	}
	if cfg.Ingest.WindowSeconds <= 0 {
		cfg.Ingest.WindowSeconds = def.Ingest.WindowSeconds
	}
	if cfg.Ingest.Concurrency <= 0 {
		cfg.Ingest.Concurrency = 1
	}
	if cfg.Query.TopK <= 0 {
		cfg.Query.TopK = def.Query.TopK
	}
	if cfg.Query.GapTolerance < 0 {
		cfg.Query.GapTolerance = def.Query.GapTolerance
	}
	if cfg.Embedding.BatchSize <= 0 {
		cfg.Embedding.BatchSize = def.Embedding.BatchSize
	}
}

// CacheTTL returns the answer cache TTL.
func (c CacheConfig) CacheTTL() time.Duration {
	return time.Duration(c.TTLSecs) * time.Second
}

// Timeout returns the Cassandra request timeout.
func (c CassandraConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}
