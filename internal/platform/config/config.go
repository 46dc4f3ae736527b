package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// envPrefix namespaces every variable, e.g. ONS_SERVER_ADDR.
const envPrefix = "ons"

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRemote   = "remote"
)

// Config is the full process configuration, loaded from the environment.
type Config struct {
	Server    Server
	Chain     Chain
	Protocol  Protocol
	Store     Store
	Redis     RedisConfig
	Kafka     Kafka
	Reconcile Reconcile
	Log       Log
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string `envconfig:"SERVER_ADDR" default:":8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
	AdminToken  string `envconfig:"ADMIN_TOKEN"`
}

// Chain configures the chain RPC gateway.
type Chain struct {
	RPCURL  string        `envconfig:"CHAIN_RPC_URL" default:"https://octra.network"`
	Timeout time.Duration `envconfig:"CHAIN_TIMEOUT" default:"10s"`
}

// Protocol holds the on-chain constants every verification is checked against.
type Protocol struct {
	MasterAddress   string          `envconfig:"MASTER_ADDRESS" default:"oct8UYokvM1DR2QpTD4mncgvRzfM6f9yDuRR1gmBASgTk8d"`
	RegistrationFee decimal.Decimal `envconfig:"REGISTRATION_FEE" default:"0.5"`
	DeletionFee     decimal.Decimal `envconfig:"DELETION_FEE" default:"0.1"`
}

// Store selects and configures the registry store backend.
type Store struct {
	Backend     string `envconfig:"STORE_BACKEND" default:"memory"`
	PostgresDSN string `envconfig:"POSTGRES_DSN"`
	RegistryURL string `envconfig:"REGISTRY_URL"`
	// RegistryToken is sent as X-Admin-Token on writes to a remote registry.
	RegistryToken string        `envconfig:"REGISTRY_TOKEN"`
	Timeout       time.Duration `envconfig:"STORE_TIMEOUT" default:"5s"`
}

// RedisConfig configures the optional Redis client. An empty URL disables Redis.
type RedisConfig struct {
	URL          string        `envconfig:"REDIS_URL"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Kafka configures the optional notification publisher. No brokers disables it.
type Kafka struct {
	Brokers []string `envconfig:"KAFKA_BROKERS"`
	Topic   string   `envconfig:"KAFKA_TOPIC" default:"ons.domain-events"`
}

// Reconcile tunes the reconciliation service and its sweeper.
type Reconcile struct {
	SweepInterval    time.Duration `envconfig:"SWEEP_INTERVAL" default:"30s"`
	SweepBatch       int           `envconfig:"SWEEP_BATCH" default:"100"`
	SweepConcurrency int           `envconfig:"SWEEP_CONCURRENCY" default:"8"`
	AwaitWindow      time.Duration `envconfig:"AWAIT_WINDOW" default:"5m"`
	PendingTimeout   time.Duration `envconfig:"PENDING_TIMEOUT" default:"1h"`
	DeletionTimeout  time.Duration `envconfig:"DELETION_TIMEOUT" default:"1h"`
	// InvalidClaimPolicy is keep_pending or reject.
	InvalidClaimPolicy string `envconfig:"INVALID_CLAIM_POLICY" default:"keep_pending"`
	// DeletionFailurePolicy is revert or review.
	DeletionFailurePolicy string        `envconfig:"DELETION_FAILURE_POLICY" default:"revert"`
	DedupeSize            int           `envconfig:"DEDUPE_SIZE" default:"10000"`
	DedupeTTL             time.Duration `envconfig:"DEDUPE_TTL" default:"24h"`
}

// Log configures the process logger.
type Log struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the process cannot start with.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory:
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("ONS_POSTGRES_DSN is required for the postgres store")
		}
	case StoreRemote:
		if c.Store.RegistryURL == "" {
			return fmt.Errorf("ONS_REGISTRY_URL is required for the remote store")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if !strings.HasPrefix(c.Protocol.MasterAddress, "oct") {
		return fmt.Errorf("master address must be an oct address, got %q", c.Protocol.MasterAddress)
	}
	if !c.Protocol.RegistrationFee.IsPositive() || !c.Protocol.DeletionFee.IsPositive() {
		return fmt.Errorf("protocol fees must be positive")
	}
	switch c.Reconcile.InvalidClaimPolicy {
	case "keep_pending", "reject":
	default:
		return fmt.Errorf("unknown invalid claim policy %q", c.Reconcile.InvalidClaimPolicy)
	}
	switch c.Reconcile.DeletionFailurePolicy {
	case "revert", "review":
	default:
		return fmt.Errorf("unknown deletion failure policy %q", c.Reconcile.DeletionFailurePolicy)
	}
	return nil
}

type contextKey struct{}

// WithContext stores the config on ctx for cobra subcommands.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext returns the config stored by WithContext, or nil.
func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(contextKey{}).(*Config)
	if !ok {
		return nil
	}
	return cfg
}
