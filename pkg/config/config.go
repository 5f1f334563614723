// Package config loads and validates pagesearch configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Indexer, Cache, Redis, Kafka, Logging, Metrics, Client).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Indexer IndexerConfig `yaml:"indexer"`
	Cache   CacheConfig   `yaml:"cache"`
	Redis   RedisConfig   `yaml:"redis"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Client  ClientConfig  `yaml:"client"`
}

// ServerConfig holds line-protocol listener settings. Zero timeouts disable
// the per-connection deadlines; a zero RateLimit disables throttling.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxLineBytes    int           `yaml:"maxLineBytes"`
	MaxConnections  int           `yaml:"maxConnections"`
	RateLimit       int           `yaml:"rateLimit"`
	RateWindow      time.Duration `yaml:"rateWindow"`
}

// IndexerConfig controls the corpus scan.
type IndexerConfig struct {
	CorpusDir           string `yaml:"corpusDir"`
	Workers             int    `yaml:"workers"`
	SkipFailedDocuments bool   `yaml:"skipFailedDocuments"`
}

// CacheConfig sizes the in-process response cache used when Redis is not
// available. Zero disables it.
type CacheConfig struct {
	LocalEntries int `yaml:"localEntries"`
}

// RedisConfig holds the optional response cache connection parameters.
type RedisConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Addr             string        `yaml:"addr"`
	Password         string        `yaml:"password"`
	DB               int           `yaml:"db"`
	PoolSize         int           `yaml:"poolSize"`
	CacheTTL         time.Duration `yaml:"cacheTTL"`
	OpTimeout        time.Duration `yaml:"opTimeout"`
	FailureThreshold int           `yaml:"failureThreshold"`
	BreakerCooldown  time.Duration `yaml:"breakerCooldown"`
}

// KafkaConfig holds the optional analytics producer settings.
type KafkaConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Brokers        []string `yaml:"brokers"`
	AnalyticsTopic string   `yaml:"analyticsTopic"`
	BufferSize     int      `yaml:"bufferSize"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics and health server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// ClientConfig holds settings for the interactive query client.
type ClientConfig struct {
	Addr         string        `yaml:"addr"`
	QueryTimeout time.Duration `yaml:"queryTimeout"`
	DialAttempts int           `yaml:"dialAttempts"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	return defaultConfig()
}

// Validate reports the first setting that cannot be used to start a service.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Server.MaxLineBytes <= 0 {
		return fmt.Errorf("server.maxLineBytes must be positive, got %d", c.Server.MaxLineBytes)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rateLimit must not be negative, got %d", c.Server.RateLimit)
	}
	if c.Server.RateLimit > 0 && c.Server.RateWindow <= 0 {
		return fmt.Errorf("server.rateWindow must be positive when rateLimit is set")
	}
	if c.Server.MaxConnections < 0 {
		return fmt.Errorf("server.maxConnections must not be negative, got %d", c.Server.MaxConnections)
	}
	if c.Cache.LocalEntries < 0 {
		return fmt.Errorf("cache.localEntries must not be negative, got %d", c.Cache.LocalEntries)
	}
	if c.Indexer.CorpusDir == "" {
		return fmt.Errorf("indexer.corpusDir must not be empty")
	}
	if c.Indexer.Workers <= 0 {
		return fmt.Errorf("indexer.workers must be positive, got %d", c.Indexer.Workers)
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port out of range: %d", c.Metrics.Port)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers must be set when kafka is enabled")
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8989",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxLineBytes:    4096,
			RateWindow:      time.Second,
		},
		Indexer: IndexerConfig{
			CorpusDir: "pdfs",
			Workers:   4,
		},
		Cache: CacheConfig{
			LocalEntries: 10000,
		},
		Redis: RedisConfig{
			Enabled:          false,
			Addr:             "localhost:6379",
			PoolSize:         10,
			CacheTTL:         5 * time.Minute,
			OpTimeout:        200 * time.Millisecond,
			FailureThreshold: 5,
			BreakerCooldown:  30 * time.Second,
		},
		Kafka: KafkaConfig{
			Enabled:        false,
			Brokers:        []string{"localhost:9092"},
			AnalyticsTopic: "pagesearch-queries",
			BufferSize:     10000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		Client: ClientConfig{
			Addr:         "localhost:8989",
			QueryTimeout: 10 * time.Second,
			DialAttempts: 3,
		},
	}
}

// applyEnvOverrides reads PS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PS_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("PS_SERVER_MAX_LINE_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MaxLineBytes = n
		}
	}
	if v := os.Getenv("PS_SERVER_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimit = n
		}
	}
	if v := os.Getenv("PS_SERVER_MAX_CONNECTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MaxConnections = n
		}
	}
	if v := os.Getenv("PS_CACHE_LOCAL_ENTRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.LocalEntries = n
		}
	}
	if v := os.Getenv("PS_INDEXER_CORPUS_DIR"); v != "" {
		cfg.Indexer.CorpusDir = v
	}
	if v := os.Getenv("PS_INDEXER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.Workers = n
		}
	}
	if v := os.Getenv("PS_INDEXER_SKIP_FAILED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Indexer.SkipFailedDocuments = b
		}
	}
	if v := os.Getenv("PS_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("PS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("PS_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("PS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("PS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("PS_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
	if v := os.Getenv("PS_CLIENT_ADDR"); v != "" {
		cfg.Client.Addr = v
	}
}
