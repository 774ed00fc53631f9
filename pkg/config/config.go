package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "CART"

const (
	CatalogSourceJSON  = "json"
	CatalogSourceMySQL = "mysql"

	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	App     AppConfig
	Catalog CatalogConfig
	MySQL   MySQLConfig
	Redis   RedisConfig
	Session SessionConfig
	Orders  OrdersConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	HTTPAddr  string `envconfig:"CART_HTTP_ADDR" default:":8080"`
	GRPCAddr  string `envconfig:"CART_GRPC_ADDR" default:":50051"`
	LogLevel  string `envconfig:"CART_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"CART_LOG_FORMAT" default:"json"`
}

type CatalogConfig struct {
	Source string `envconfig:"CART_CATALOG_SOURCE" default:"json"`
	Dir    string `envconfig:"CART_CATALOG_DIR" default:"./productData"`
}

type MySQLConfig struct {
	DSN             string        `envconfig:"CART_MYSQL_DSN"`
	MaxOpenConns    int           `envconfig:"CART_MYSQL_MAX_OPEN_CONNS" default:"50"`
	MaxIdleConns    int           `envconfig:"CART_MYSQL_MAX_IDLE_CONNS" default:"25"`
	ConnMaxLifetime time.Duration `envconfig:"CART_MYSQL_CONN_MAX_LIFETIME" default:"5m"`
}

func (m MySQLConfig) Enabled() bool {
	return m.DSN != ""
}

type RedisConfig struct {
	Addr     string `envconfig:"CART_REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"CART_REDIS_PASSWORD"`
	DB       int    `envconfig:"CART_REDIS_DB" default:"0"`
	PoolSize int    `envconfig:"CART_REDIS_POOL_SIZE" default:"100"`
}

type SessionConfig struct {
	Store string        `envconfig:"CART_STORE" default:"redis"`
	TTL   time.Duration `envconfig:"CART_SESSION_TTL" default:"720h"`
	// In-memory registry bounds; evicted sessions rehydrate from the store.
	MaxLive int           `envconfig:"CART_SESSION_MAX_LIVE" default:"10000"`
	Idle    time.Duration `envconfig:"CART_SESSION_IDLE" default:"30m"`
}

type OrdersConfig struct {
	WorkerCount int  `envconfig:"CART_WORKER_COUNT" default:"10"`
	QueueSize   int  `envconfig:"CART_QUEUE_SIZE" default:"10000"`
	SeedStock   bool `envconfig:"CART_SEED_STOCK" default:"true"`
}

func (c *Config) Validate() error {
	c.Catalog.Source = strings.ToLower(strings.TrimSpace(c.Catalog.Source))
	c.Session.Store = strings.ToLower(strings.TrimSpace(c.Session.Store))

	switch c.Catalog.Source {
	case CatalogSourceJSON:
		if c.Catalog.Dir == "" {
			return fmt.Errorf("%s_CATALOG_DIR is required for the json catalog", EnvPrefix)
		}
	case CatalogSourceMySQL:
		if !c.MySQL.Enabled() {
			return fmt.Errorf("%s_MYSQL_DSN is required for the mysql catalog", EnvPrefix)
		}
	default:
		return fmt.Errorf("unknown catalog source %q", c.Catalog.Source)
	}

	switch c.Session.Store {
	case StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("unknown session store %q", c.Session.Store)
	}

	if c.Session.MaxLive < 1 {
		return fmt.Errorf("%s_SESSION_MAX_LIVE must be positive", EnvPrefix)
	}
	if c.Session.Idle <= 0 {
		return fmt.Errorf("%s_SESSION_IDLE must be positive", EnvPrefix)
	}
	if c.Orders.WorkerCount < 1 {
		return fmt.Errorf("%s_WORKER_COUNT must be positive", EnvPrefix)
	}
	if c.Orders.QueueSize < 1 {
		return fmt.Errorf("%s_QUEUE_SIZE must be positive", EnvPrefix)
	}
	return nil
}
