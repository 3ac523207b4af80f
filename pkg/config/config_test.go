package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Index.Shards)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "zstd", cfg.Snapshot.Compression)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
index:
  shards: 2
  typoScorer: keyboard
snapshot:
  interval: 1m
  compression: lz4
store:
  backend: badger
  badgerDir: /tmp/docs
`), 0o644))

	t.Setenv("DS_INDEX_SHARDS", "8")
	t.Setenv("DS_KAFKA_BROKERS", "a:1,b:2")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Index.Shards)
	assert.Equal(t, "keyboard", cfg.Index.TypoScorer)
	assert.Equal(t, time.Minute, cfg.Snapshot.Interval)
	assert.Equal(t, "lz4", cfg.Snapshot.Compression)
	assert.Equal(t, "/tmp/docs", cfg.Store.BadgerDir)
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout, "unset keys keep defaults")
}

func TestValidate(t *testing.T) {
	tests := map[string]func(c *Config){
		"zero shards":               func(c *Config) { c.Index.Shards = 0 },
		"unknown scorer":            func(c *Config) { c.Index.TypoScorer = "phonetic" },
		"unknown codec":             func(c *Config) { c.Snapshot.Compression = "brotli" },
		"unknown store":             func(c *Config) { c.Store.Backend = "mongo" },
		"redis cache without redis": func(c *Config) { c.Cache.Backend = "redis" },
		"remote without bucket":     func(c *Config) { c.Snapshot.Remote = RemoteConfig{Enabled: true, Endpoint: "localhost:9000"} },
		"rate limit without window": func(c *Config) { c.Server.RateLimit = RateLimit{Enabled: true, Requests: 10} },
		"malformed trusted proxy":   func(c *Config) { c.Server.RateLimit.TrustedProxies = []string{"10.0.0.0/33"} },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := defaultConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, defaultConfig().Validate())
}

func TestTrustedPrefixes(t *testing.T) {
	rl := RateLimit{TrustedProxies: []string{"10.1.2.3/8", " 192.0.2.10 ", "::ffff:198.51.100.1", "2001:db8::/32"}}
	prefixes, err := rl.TrustedPrefixes()
	require.NoError(t, err)
	require.Len(t, prefixes, 4)
	assert.Equal(t, "10.0.0.0/8", prefixes[0].String())
	assert.Equal(t, "192.0.2.10/32", prefixes[1].String())
	assert.Equal(t, "198.51.100.1/32", prefixes[2].String())
	assert.Equal(t, "2001:db8::/32", prefixes[3].String())

	_, err = RateLimit{TrustedProxies: []string{"proxy.internal"}}.TrustedPrefixes()
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
