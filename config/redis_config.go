package config

import (
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisMode represents the Redis deployment mode
type RedisMode string

const (
	// RedisModeStandalone represents a single Redis instance
	RedisModeStandalone RedisMode = "standalone"

	// RedisModeCluster represents Redis cluster mode
	RedisModeCluster RedisMode = "cluster"

	// RedisModeSentinel represents Redis sentinel mode
	RedisModeSentinel RedisMode = "sentinel"
)

// RedisConfig configures the redis session store. It is only used when
// Session.Store is "redis".
type RedisConfig struct {
	Mode RedisMode `yaml:"mode"`

	// Addr is the Redis server address (host:port) in standalone mode
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	ClusterAddrs  []string `yaml:"cluster_addrs"`
	MasterName    string   `yaml:"master_name"`
	SentinelAddrs []string `yaml:"sentinel_addrs"`

	PoolSize     int           `yaml:"pool_size"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// KeyPrefix is the prefix for session hashes
	KeyPrefix string `yaml:"key_prefix"`
	// TTL bounds how long an unfinished login is kept
	TTL time.Duration `yaml:"ttl"`

	TLSEnabled bool `yaml:"tls_enabled"`
}

// DefaultRedisConfig returns default Redis configuration
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Mode:         RedisModeStandalone,
		Addr:         "localhost:6379",
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		KeyPrefix:    "authflow:session:",
		TTL:          10 * time.Minute,
	}
}

// Validate checks the settings of the selected mode.
func (c *RedisConfig) Validate() error {
	switch c.Mode {
	case RedisModeStandalone, "":
		if c.Addr == "" {
			return &ValidationError{Field: "Redis.Addr", Message: "address is required for standalone mode"}
		}
	case RedisModeCluster:
		if len(c.ClusterAddrs) == 0 {
			return &ValidationError{Field: "Redis.ClusterAddrs", Message: "at least one cluster address is required"}
		}
	case RedisModeSentinel:
		if c.MasterName == "" {
			return &ValidationError{Field: "Redis.MasterName", Message: "master name is required for sentinel mode"}
		}
		if len(c.SentinelAddrs) == 0 {
			return &ValidationError{Field: "Redis.SentinelAddrs", Message: "at least one sentinel address is required"}
		}
	default:
		return &ValidationError{Field: "Redis.Mode", Message: "invalid redis mode", Value: c.Mode}
	}
	if c.TTL <= 0 {
		return &ValidationError{Field: "Redis.TTL", Message: "must be positive", Value: c.TTL}
	}
	return nil
}

// UniversalOptions maps the configuration onto go-redis options. The
// universal client picks a single node, cluster or failover client from
// the address count and master name.
func (c *RedisConfig) UniversalOptions() *redis.UniversalOptions {
	opts := &redis.UniversalOptions{
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}

	switch c.Mode {
	case RedisModeCluster:
		opts.Addrs = c.ClusterAddrs
	case RedisModeSentinel:
		opts.Addrs = c.SentinelAddrs
		opts.MasterName = c.MasterName
	default:
		opts.Addrs = []string{c.Addr}
	}

	if c.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// NewClient creates a client for the configured deployment.
func (c *RedisConfig) NewClient() redis.UniversalClient {
	return redis.NewUniversalClient(c.UniversalOptions())
}
