package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8989", cfg.Server.Addr)
	assert.Equal(t, "pdfs", cfg.Indexer.CorpusDir)
	assert.False(t, cfg.Indexer.SkipFailedDocuments)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagesearch.yaml")
	yamlDoc := `
server:
  addr: "127.0.0.1:7000"
  readTimeout: 2s
indexer:
  corpusDir: /srv/corpus
  workers: 8
  skipFailedDocuments: true
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7000", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout, "unset keys keep defaults")
	assert.Equal(t, "/srv/corpus", cfg.Indexer.CorpusDir)
	assert.Equal(t, 8, cfg.Indexer.Workers)
	assert.True(t, cfg.Indexer.SkipFailedDocuments)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PS_INDEXER_CORPUS_DIR", "/data/books")
	t.Setenv("PS_INDEXER_WORKERS", "2")
	t.Setenv("PS_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("PS_REDIS_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/data/books", cfg.Indexer.CorpusDir)
	assert.Equal(t, 2, cfg.Indexer.Workers)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Redis.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"zero line limit", func(c *Config) { c.Server.MaxLineBytes = 0 }},
		{"negative rate limit", func(c *Config) { c.Server.RateLimit = -1 }},
		{"rate limit without window", func(c *Config) {
			c.Server.RateLimit = 10
			c.Server.RateWindow = 0
		}},
		{"empty corpus", func(c *Config) { c.Indexer.CorpusDir = "" }},
		{"zero workers", func(c *Config) { c.Indexer.Workers = 0 }},
		{"bad metrics port", func(c *Config) { c.Metrics.Port = 70000 }},
		{"kafka without brokers", func(c *Config) {
			c.Kafka.Enabled = true
			c.Kafka.Brokers = nil
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "pagesearch.yaml"))
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 256, cfg.Server.MaxConnections)
	assert.Equal(t, 10000, cfg.Cache.LocalEntries)
}
