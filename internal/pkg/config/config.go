package config

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Token TokenConfig
	Keys  KeysConfig
	Login LoginConfig
	Mongo MongoConfig
	Redis RedisConfig
	AMQP  AMQPConfig
	Audit AuditConfig
}

type TokenConfig struct {
	TTLSeconds int           `env:"TOKEN_TTL_SECONDS, default=3600"`
	Issuer     string        `env:"TOKEN_ISSUER,      default=iam-engine"`
	Audience   string        `env:"TOKEN_AUDIENCE"`
	ClockSkew  time.Duration `env:"TOKEN_CLOCK_SKEW,  default=30s"`
	// Store selects the tracked-token backend: mongo or redis.
	Store     string        `env:"TOKEN_STORE,     default=mongo"`
	Retention time.Duration `env:"TOKEN_RETENTION, default=720h"`
}

// TTL is the configured token lifetime.
func (t TokenConfig) TTL() time.Duration {
	return time.Duration(t.TTLSeconds) * time.Second
}

type KeysConfig struct {
	// SystemKey is the base64-encoded 32-byte key every stored private key is
	// encrypted under.
	SystemKey             string `env:"SYSTEM_KEY, required"`
	SystemKeyVersion      int    `env:"SYSTEM_KEY_VERSION,          default=1"`
	SystemKeyAlgorithm    string `env:"SYSTEM_KEY_ALGORITHM,        default=AES"`
	Symmetric             string `env:"SYMMETRIC_ALGORITHM,         default=AES"`
	Encryption            string `env:"ENCRYPTION_ALGORITHM,        default=RSA"`
	Signature             string `env:"SIGNATURE_ALGORITHM,         default=ES256"`
	VerificationCacheSize int    `env:"VERIFICATION_KEY_CACHE_SIZE, default=1024"`
}

// SystemKeyBytes decodes SystemKey and checks it is 32 bytes long.
func (k KeysConfig) SystemKeyBytes() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(k.SystemKey)
	if err != nil {
		return nil, fmt.Errorf("config: SYSTEM_KEY is not valid base64: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("config: SYSTEM_KEY must decode to 32 bytes, got %d", len(raw))
	}
	return raw, nil
}

type LoginConfig struct {
	MaxFailedAttempts int           `env:"MAX_FAILED_LOGINS,      default=5"`
	LockoutDuration   time.Duration `env:"LOGIN_LOCKOUT_DURATION, default=15m"`
	RatePerSecond     float64       `env:"LOGIN_RATE_PER_SECOND,  default=1"`
	Burst             int           `env:"LOGIN_RATE_BURST,       default=5"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=iam"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
	PoolSize int    `env:"REDIS_POOL_SIZE, default=10"`
}

type AMQPConfig struct {
	// URL enables the RabbitMQ audit publisher when non-empty.
	URL      string `env:"AMQP_URL"`
	Exchange string `env:"AMQP_EXCHANGE, default=iam.audit"`
}

type AuditConfig struct {
	Workers int `env:"AUDIT_WORKERS, default=4"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith reads configuration from l.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if cfg.Token.Store != "mongo" && cfg.Token.Store != "redis" {
		return nil, fmt.Errorf("config: TOKEN_STORE must be mongo or redis, got %q", cfg.Token.Store)
	}
	if cfg.Token.TTLSeconds <= 0 {
		return nil, fmt.Errorf("config: TOKEN_TTL_SECONDS must be positive")
	}
	return &cfg, nil
}
