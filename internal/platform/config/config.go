package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreLevelDB  = "leveldb"
)

// Config aggregates everything the server binary needs. main stays lean:
// read env, validate, wire.
type Config struct {
	HTTPAddr string
	LogLevel string

	Store    StoreConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Recorder RecorderConfig
}

// StoreConfig selects and parameterizes the ledger state backend.
type StoreConfig struct {
	Backend     string
	PostgresDSN string
	LevelDBPath string
}

// RedisConfig configures the optional redis event sink.
// An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional transaction record sink.
// Empty brokers disable it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// AuthConfig carries token-signing material and the bootstrap principals.
type AuthConfig struct {
	JWTSecret            string
	TokenTTL             time.Duration
	AdminAccount         string
	AdminSecretHash      string
	ControllerAccount    string
	ControllerSecretHash string
}

// RecorderConfig tunes transaction record publishing.
// Buffer 0 keeps recording synchronous.
type RecorderConfig struct {
	Buffer int
}

// FromEnv builds the full configuration from environment variables with
// development defaults. Production deployments must override the secrets;
// Validate enforces the fields that have no safe default.
func FromEnv() Config {
	return Config{
		HTTPAddr: getenv("ESCROWD_HTTP_ADDR", ":8080"),
		LogLevel: getenv("ESCROWD_LOG_LEVEL", "info"),
		Store: StoreConfig{
			Backend:     getenv("ESCROWD_STORE_BACKEND", StoreMemory),
			PostgresDSN: os.Getenv("ESCROWD_POSTGRES_DSN"),
			LevelDBPath: getenv("ESCROWD_LEVELDB_PATH", "./data/escrowd"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("ESCROWD_REDIS_URL"),
			PoolSize:     getenvInt("ESCROWD_REDIS_POOL_SIZE", 10),
			MinIdleConns: getenvInt("ESCROWD_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getenvDuration("ESCROWD_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getenvDuration("ESCROWD_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getenvDuration("ESCROWD_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("ESCROWD_KAFKA_BROKERS")),
			Topic:   getenv("ESCROWD_KAFKA_TOPIC", "escrowd.transactions"),
		},
		Auth: AuthConfig{
			// Development default - must be overridden in production.
			JWTSecret:            getenv("ESCROWD_JWT_SECRET", "dev-secret-key-change-in-production"),
			TokenTTL:             getenvDuration("ESCROWD_TOKEN_TTL", time.Hour),
			AdminAccount:         os.Getenv("ESCROWD_ADMIN_ACCOUNT"),
			AdminSecretHash:      os.Getenv("ESCROWD_ADMIN_SECRET_HASH"),
			ControllerAccount:    os.Getenv("ESCROWD_CONTROLLER_ACCOUNT"),
			ControllerSecretHash: os.Getenv("ESCROWD_CONTROLLER_SECRET_HASH"),
		},
		Recorder: RecorderConfig{
			Buffer: getenvInt("ESCROWD_RECORDER_BUFFER", 0),
		},
	}
}

// Validate rejects configurations that cannot boot a working ledger.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory, StoreLevelDB:
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("ESCROWD_POSTGRES_DSN is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if c.Auth.AdminAccount == "" {
		return fmt.Errorf("ESCROWD_ADMIN_ACCOUNT is required")
	}
	if c.Auth.AdminSecretHash == "" {
		return fmt.Errorf("ESCROWD_ADMIN_SECRET_HASH is required")
	}
	if c.Auth.ControllerAccount == "" {
		return fmt.Errorf("ESCROWD_CONTROLLER_ACCOUNT is required")
	}
	if c.Auth.ControllerSecretHash == "" {
		return fmt.Errorf("ESCROWD_CONTROLLER_SECRET_HASH is required")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
