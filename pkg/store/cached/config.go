// Package cached wraps a record store with a Redis read-through cache.
//
// Permission checks are read-heavy and tolerate short staleness, so record
// reads are served from Redis when possible and fall back to the underlying
// store on a miss. Entries expire after a short TTL; misses are never
// cached, so a record created moments after a denied check is visible
// immediately.
//
// Cache failures are deliberately non-fatal: when Redis is unreachable the
// store degrades to direct reads so that authorization stays available.
package cached

import (
	"fmt"
	"net/url"
	"time"
)

// Default connection and expiry settings for Kubernetes deployments.
const (
	// DefaultHost is the Kubernetes Service DNS name for the Redis cache.
	DefaultHost = "redis.databases.svc.cluster.local"

	// DefaultPort is the standard Redis port.
	DefaultPort = 6379

	// DefaultDB is the default Redis database index.
	DefaultDB = 0

	// DefaultTTL is the expiry applied to cached records. Thirty seconds
	// bounds how long a revoked membership or reassigned case can still
	// influence permission decisions.
	DefaultTTL = 30 * time.Second

	// DefaultPoolSize is the maximum number of connections in the pool.
	DefaultPoolSize = 25

	// DefaultMinIdleConns is the minimum number of idle connections
	// maintained in the pool.
	DefaultMinIdleConns = 5

	// DefaultDialTimeout is the maximum time to wait when establishing a
	// new connection to Redis.
	DefaultDialTimeout = 10 * time.Second

	// DefaultReadTimeout is the maximum time to wait for a read response.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum time to wait for a write to
	// complete.
	DefaultWriteTimeout = 5 * time.Second

	// DefaultHealthTimeout is the maximum time for a health check ping
	// when the caller's context has no deadline.
	DefaultHealthTimeout = 5 * time.Second
)

// Secret is a string type that prevents accidental logging of sensitive
// values such as the Redis password. Its String and GoString methods return
// a redacted placeholder; use [Secret.Value] to retrieve the actual value.
type Secret string

// redacted is the placeholder string returned by Secret's string methods.
const redacted = "[REDACTED]"

// String returns "[REDACTED]" to prevent accidental logging of the secret.
func (s Secret) String() string {
	return redacted
}

// GoString returns "[REDACTED]" for fmt.Sprintf("%#v", secret) safety.
func (s Secret) GoString() string {
	return redacted
}

// Value returns the actual secret string. Handle the returned value with
// care; avoid logging, serializing, or storing it in plaintext.
func (s Secret) Value() string {
	return string(s)
}

// MarshalText implements encoding.TextMarshaler, returning "[REDACTED]" to
// keep the secret out of JSON and YAML output.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// Config holds the Redis cache configuration. It supports both URI-based
// and structured configuration; when [Config.URI] is set it takes
// precedence over Host, Port, DB, and Password.
type Config struct {
	// URI is a Redis connection string (e.g.
	// "redis://:password@host:6379/0"). Supports both "redis://" and
	// "rediss://" (TLS) schemes.
	// Environment variable: CACHE_REDIS_URI
	URI string `yaml:"uri" env:"CACHE_REDIS_URI"`

	// Host is the Redis server hostname or IP address.
	// Environment variable: CACHE_REDIS_HOST
	Host string `yaml:"host" env:"CACHE_REDIS_HOST" envDefault:"redis.databases.svc.cluster.local"`

	// Port is the Redis server port.
	// Environment variable: CACHE_REDIS_PORT
	Port int `yaml:"port" env:"CACHE_REDIS_PORT" envDefault:"6379"`

	// DB is the Redis database index.
	// Environment variable: CACHE_REDIS_DB
	DB int `yaml:"db" env:"CACHE_REDIS_DB" envDefault:"0"`

	// Password is the Redis password. Uses the [Secret] type to prevent
	// accidental logging.
	// Environment variable: CACHE_REDIS_PASSWORD
	Password Secret `yaml:"-" env:"CACHE_REDIS_PASSWORD"`

	// TTL is the expiry applied to cached records.
	// Environment variable: CACHE_TTL
	TTL time.Duration `yaml:"ttl" env:"CACHE_TTL" envDefault:"30s"`

	// PoolSize is the maximum number of connections in the pool.
	// Environment variable: CACHE_REDIS_POOL_SIZE
	PoolSize int `yaml:"pool_size" env:"CACHE_REDIS_POOL_SIZE" envDefault:"25"`

	// MinIdleConns is the minimum number of idle connections maintained
	// in the pool.
	// Environment variable: CACHE_REDIS_MIN_IDLE_CONNS
	MinIdleConns int `yaml:"min_idle_conns" env:"CACHE_REDIS_MIN_IDLE_CONNS" envDefault:"5"`

	// DialTimeout is the maximum time to wait when establishing a new
	// connection to Redis.
	// Environment variable: CACHE_REDIS_DIAL_TIMEOUT
	DialTimeout time.Duration `yaml:"dial_timeout" env:"CACHE_REDIS_DIAL_TIMEOUT" envDefault:"10s"`

	// ReadTimeout is the maximum time to wait for a read response.
	// Environment variable: CACHE_REDIS_READ_TIMEOUT
	ReadTimeout time.Duration `yaml:"read_timeout" env:"CACHE_REDIS_READ_TIMEOUT" envDefault:"5s"`

	// WriteTimeout is the maximum time to wait for a write to complete.
	// Environment variable: CACHE_REDIS_WRITE_TIMEOUT
	WriteTimeout time.Duration `yaml:"write_timeout" env:"CACHE_REDIS_WRITE_TIMEOUT" envDefault:"5s"`
}

// DefaultConfig returns a Config with default values. Callers should
// override fields as needed before passing the config to [New].
func DefaultConfig() Config {
	return Config{
		Host:         DefaultHost,
		Port:         DefaultPort,
		DB:           DefaultDB,
		TTL:          DefaultTTL,
		PoolSize:     DefaultPoolSize,
		MinIdleConns: DefaultMinIdleConns,
		DialTimeout:  DefaultDialTimeout,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
}

// Validate checks the configuration for invalid values and applies
// defaults for zero-valued fields. Returns the first validation error
// encountered, or nil if the configuration is valid.
func (c *Config) Validate() error {
	c.applyDefaults()

	if c.URI != "" {
		u, err := url.Parse(c.URI)
		if err != nil {
			return fmt.Errorf("cache: config uri is invalid: %w", err)
		}
		if u.Scheme != "redis" && u.Scheme != "rediss" {
			return fmt.Errorf("cache: config uri scheme must be redis:// or rediss://, got %q", u.Scheme)
		}
		return nil
	}

	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("cache: config port must be between 1 and 65535, got %d", c.Port)
	}
	if c.PoolSize < 1 {
		return fmt.Errorf("cache: config pool_size must be >= 1, got %d", c.PoolSize)
	}
	if c.MinIdleConns < 0 {
		return fmt.Errorf("cache: config min_idle_conns must be >= 0, got %d", c.MinIdleConns)
	}
	if c.PoolSize < c.MinIdleConns {
		return fmt.Errorf("cache: config pool_size (%d) must be >= min_idle_conns (%d)", c.PoolSize, c.MinIdleConns)
	}
	return nil
}

// applyDefaults sets defaults for zero-valued expiry, pool, and timeout
// fields.
func (c *Config) applyDefaults() {
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.PoolSize == 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.MinIdleConns == 0 {
		c.MinIdleConns = DefaultMinIdleConns
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
}
