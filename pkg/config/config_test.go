package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammar0144/soql4go/pkg/querycache"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "soql4go.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, querycache.StrategyRecord, cfg.Cache.Strategy)
	assert.Equal(t, 10*time.Minute, cfg.Cache.DefaultTTL)
	assert.Equal(t, BackendRedis, cfg.CacheBackend)
	assert.Equal(t, "soql4go", cfg.Redis.KeyPrefix)
	assert.Equal(t, "v59.0", cfg.Salesforce.APIVersion)
	assert.False(t, cfg.Webhook.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
salesforce:
  instance_url: https://example.my.salesforce.com
  access_token: token-123
cache:
  strategy: object
  default_ttl: 5m
  object_ttl:
    Account: 30s
redis:
  host: cache.internal
  port: 6380
repository:
  bulk_chunk_size: 100
webhook:
  enabled: true
  secret: hunter2
cache_backend: memory
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.my.salesforce.com", cfg.Salesforce.InstanceURL)
	assert.Equal(t, querycache.StrategyObject, cfg.Cache.Strategy)
	assert.Equal(t, 5*time.Minute, cfg.Cache.DefaultTTL)
	assert.Equal(t, 30*time.Second, cfg.Cache.ObjectTTL["Account"])
	assert.Equal(t, "cache.internal", cfg.Redis.Host)
	assert.Equal(t, 6380, cfg.Redis.Port)
	assert.Equal(t, 100, cfg.Repository.BulkChunkSize)
	assert.True(t, cfg.Webhook.Enabled)
	assert.Equal(t, BackendMemory, cfg.CacheBackend)

	// Unset keys keep their defaults.
	assert.Equal(t, "soql4go", cfg.Redis.KeyPrefix)
	assert.Equal(t, "v59.0", cfg.Salesforce.APIVersion)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad strategy", "cache:\n  strategy: row\n"},
		{"bad backend", "cache_backend: memcached\n"},
		{"oversized chunk", "repository:\n  bulk_chunk_size: 500\n"},
		{"webhook without secret", "webhook:\n  enabled: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/soql4go.yaml")
	assert.Error(t, err)
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("SOQL4GO_REDIS_HOST", "env.internal")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env.internal", cfg.Redis.Host)
}
