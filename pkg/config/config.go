// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Index, Snapshot, Store, Redis, Kafka, etc.).
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Index    IndexConfig    `yaml:"index"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Store    StoreConfig    `yaml:"store"`
	Cache    CacheConfig    `yaml:"cache"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RateLimit       RateLimit     `yaml:"rateLimit"`
}

// RateLimit caps mutating requests per client address. The address is the
// TCP peer unless the peer is one of TrustedProxies (IPs or CIDRs), in which
// case X-Forwarded-For is consulted.
type RateLimit struct {
	Enabled        bool          `yaml:"enabled"`
	Requests       int           `yaml:"requests"`
	Window         time.Duration `yaml:"window"`
	TrustedProxies []string      `yaml:"trustedProxies"`
}

// TrustedPrefixes parses TrustedProxies. A bare address becomes a
// single-host prefix.
func (rl RateLimit) TrustedPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(rl.TrustedProxies))
	for _, s := range rl.TrustedProxies {
		s = strings.TrimSpace(s)
		if p, err := netip.ParsePrefix(s); err == nil {
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q is neither an address nor a CIDR", s)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// IndexConfig controls the in-memory inverted index.
type IndexConfig struct {
	Shards int `yaml:"shards"`
	// TypoScorer is "bytes" (positional byte mismatches) or "keyboard"
	// (neighbouring-key slips forgiven).
	TypoScorer string `yaml:"typoScorer"`
}

// SnapshotConfig controls index persistence.
type SnapshotConfig struct {
	Path        string        `yaml:"path"`
	Interval    time.Duration `yaml:"interval"`
	Compression string        `yaml:"compression"`
	LockTimeout time.Duration `yaml:"lockTimeout"`
	Remote      RemoteConfig  `yaml:"remote"`
}

// RemoteConfig points at an S3-compatible bucket receiving snapshot copies.
type RemoteConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	UseSSL    bool   `yaml:"useSSL"`
}

// StoreConfig selects the document store backend: memory, badger or postgres.
type StoreConfig struct {
	Backend   string `yaml:"backend"`
	BadgerDir string `yaml:"badgerDir"`
}

// CacheConfig controls the query result cache: lru (in process) or redis.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Backend string `yaml:"backend"`
	Size    int    `yaml:"size"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`

	// HandlerRetries is the number of attempts a write event gets before it
	// is dead-lettered.
	HandlerRetries int `yaml:"handlerRetries"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	DocumentWrite   string `yaml:"documentWrite"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
	DeadLetter      string `yaml:"deadLetter"`
}

// RedisConfig holds Redis connection parameters. Redis backs the query cache
// when cache.backend is "redis" and click records when ClickStore is set.
type RedisConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	PoolSize   int           `yaml:"poolSize"`
	KeyPrefix  string        `yaml:"keyPrefix"`
	CacheTTL   time.Duration `yaml:"cacheTTL"`
	ClickStore bool          `yaml:"clickStore"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
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
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Index.Shards < 1 {
		errs = append(errs, fmt.Errorf("index.shards must be at least 1, got %d", c.Index.Shards))
	}
	if rl := c.Server.RateLimit; rl.Enabled && (rl.Requests < 1 || rl.Window <= 0) {
		errs = append(errs, errors.New("server.rateLimit needs positive requests and window"))
	}
	if _, err := c.Server.RateLimit.TrustedPrefixes(); err != nil {
		errs = append(errs, fmt.Errorf("server.rateLimit.trustedProxies: %w", err))
	}
	switch c.Index.TypoScorer {
	case "bytes", "keyboard":
	default:
		errs = append(errs, fmt.Errorf("index.typoScorer: unknown scorer %q", c.Index.TypoScorer))
	}
	switch strings.ToLower(c.Snapshot.Compression) {
	case "", "none", "lz4", "zstd":
	default:
		errs = append(errs, fmt.Errorf("snapshot.compression: unknown codec %q", c.Snapshot.Compression))
	}
	switch c.Store.Backend {
	case "memory", "badger", "postgres":
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}
	if c.Store.Backend == "badger" && c.Store.BadgerDir == "" {
		errs = append(errs, errors.New("store.badgerDir is required for the badger backend"))
	}
	if c.Cache.Enabled {
		switch c.Cache.Backend {
		case "lru":
			if c.Cache.Size < 1 {
				errs = append(errs, fmt.Errorf("cache.size must be positive, got %d", c.Cache.Size))
			}
		case "redis":
			if !c.Redis.Enabled {
				errs = append(errs, errors.New("cache.backend redis requires redis.enabled"))
			}
		default:
			errs = append(errs, fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend))
		}
	}
	if c.Redis.ClickStore && !c.Redis.Enabled {
		errs = append(errs, errors.New("redis.clickStore requires redis.enabled"))
	}
	if c.Snapshot.Remote.Enabled && (c.Snapshot.Remote.Endpoint == "" || c.Snapshot.Remote.Bucket == "") {
		errs = append(errs, errors.New("snapshot.remote needs endpoint and bucket"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit: RateLimit{
				Requests: 100,
				Window:   time.Minute,
			},
		},
		Index: IndexConfig{
			Shards:     4,
			TypoScorer: "bytes",
		},
		Snapshot: SnapshotConfig{
			Path:        "data/index.dsix",
			Interval:    30 * time.Second,
			Compression: "zstd",
			LockTimeout: 5 * time.Second,
			Remote: RemoteConfig{
				Prefix: "docsearch",
				UseSSL: true,
			},
		},
		Store: StoreConfig{
			Backend:   "memory",
			BadgerDir: "data/documents",
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: "lru",
			Size:    1024,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "docsearch",
			User:            "docsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "docsearch-group",
			Topics: KafkaTopics{
				DocumentWrite:   "document-write",
				AnalyticsEvents: "analytics-events",
			},
			HandlerRetries: 3,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "docsearch:",
			CacheTTL:  60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads DS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DS_INDEX_SHARDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Index.Shards = n
		}
	}
	if v := os.Getenv("DS_SNAPSHOT_PATH"); v != "" {
		cfg.Snapshot.Path = v
	}
	if v := os.Getenv("DS_SNAPSHOT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Snapshot.Interval = d
		}
	}
	if v := os.Getenv("DS_SNAPSHOT_COMPRESSION"); v != "" {
		cfg.Snapshot.Compression = v
	}
	if v := os.Getenv("DS_SNAPSHOT_REMOTE_ACCESS_KEY"); v != "" {
		cfg.Snapshot.Remote.AccessKey = v
	}
	if v := os.Getenv("DS_SNAPSHOT_REMOTE_SECRET_KEY"); v != "" {
		cfg.Snapshot.Remote.SecretKey = v
	}
	if v := os.Getenv("DS_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("DS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("DS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("DS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("DS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("DS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("DS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("DS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
