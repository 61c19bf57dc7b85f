// Package config loads service settings from defaults, an optional YAML file and the environment,
// in that order of precedence (environment wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"golang.org/x/text/currency"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port    string `yaml:"port"`
	Storage string `yaml:"storage"` // mysql | memory

	MySQL     MySQLConfig     `yaml:"mysql"`
	Redis     RedisConfig     `yaml:"redis"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Notify    NotifyConfig    `yaml:"notify"`
	Orders    OrdersConfig    `yaml:"orders"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type MySQLConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// DSN renders the go-sql-driver connection string.
func (c MySQLConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = c.Host + ":" + c.Port
	cfg.DBName = c.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

type RedisConfig struct {
	Host     string        `yaml:"host"`
	Port     string        `yaml:"port"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type CatalogConfig struct {
	// URL of the catalog service; empty means the in-memory catalog seeded from SeedFile.
	URL      string        `yaml:"url"`
	Timeout  time.Duration `yaml:"timeout"`
	SeedFile string        `yaml:"seed_file"`
}

type GatewayConfig struct {
	// Provider is razorpay or sandbox.
	Provider string        `yaml:"provider"`
	BaseURL  string        `yaml:"base_url"`
	KeyID    string        `yaml:"key_id"`
	Secret   string        `yaml:"secret"`
	Currency string        `yaml:"currency"`
	Timeout  time.Duration `yaml:"timeout"`
}

type NotifyConfig struct {
	// Driver is rabbitmq, kafka, log or none.
	Driver       string   `yaml:"driver"`
	RabbitMQURL  string   `yaml:"rabbitmq_url"`
	Exchange     string   `yaml:"exchange"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
	BufferSize   int      `yaml:"buffer_size"`
}

type OrdersConfig struct {
	ReservationTTL       time.Duration `yaml:"reservation_ttl"`
	ManualReservationTTL time.Duration `yaml:"manual_reservation_ttl"`
	SweepInterval        time.Duration `yaml:"sweep_interval"`
	SweepBatch           int           `yaml:"sweep_batch"`
	IdempotencyTTL       time.Duration `yaml:"idempotency_ttl"`
	DashboardCacheTTL    time.Duration `yaml:"dashboard_cache_ttl"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

func Default() Config {
	return Config{
		Port:    "8080",
		Storage: "mysql",
		MySQL: MySQLConfig{
			Host:            "localhost",
			Port:            "3306",
			User:            "root",
			Database:        "orders",
			MaxOpenConns:    100,
			MaxIdleConns:    20,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: time.Minute,
		},
		Redis: RedisConfig{
			Port:     "6379",
			CacheTTL: time.Minute,
		},
		Catalog: CatalogConfig{
			Timeout: 2 * time.Second,
		},
		Gateway: GatewayConfig{
			Provider: "razorpay",
			BaseURL:  "https://api.razorpay.com/v1",
			Currency: "INR",
			Timeout:  5 * time.Second,
		},
		Notify: NotifyConfig{
			Driver:     "log",
			Exchange:   "order.exchange",
			KafkaTopic: "order-events",
			BufferSize: 256,
		},
		Orders: OrdersConfig{
			ReservationTTL:       15 * time.Minute,
			ManualReservationTTL: 48 * time.Hour,
			SweepInterval:        time.Minute,
			SweepBatch:           100,
			IdempotencyTTL:       24 * time.Hour,
			DashboardCacheTTL:    30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			PerSecond: 10,
			Burst:     20,
		},
	}
}

// Load reads the file named by CONFIG_FILE (if set) over the defaults, then applies environment overrides.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := Parse(data, &cfg); err != nil {
			return cfg, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Parse unmarshals YAML data over cfg, leaving absent keys untouched.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.Storage {
	case "mysql", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown storage %q", c.Storage))
	}

	switch c.Notify.Driver {
	case "rabbitmq", "kafka", "log", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown notify driver %q", c.Notify.Driver))
	}

	switch c.Gateway.Provider {
	case "razorpay", "sandbox":
	default:
		errs = append(errs, fmt.Errorf("unknown gateway provider %q", c.Gateway.Provider))
	}

	if _, err := currency.ParseISO(c.Gateway.Currency); err != nil {
		errs = append(errs, fmt.Errorf("gateway currency %q: %w", c.Gateway.Currency, err))
	}
	if c.Gateway.Secret == "" {
		errs = append(errs, errors.New("gateway secret is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret is required"))
	}
	if c.Orders.ReservationTTL <= 0 || c.Orders.ManualReservationTTL <= 0 {
		errs = append(errs, errors.New("reservation ttl must be positive"))
	}
	if c.Orders.SweepInterval <= 0 {
		errs = append(errs, errors.New("sweep interval must be positive"))
	}

	return errors.Join(errs...)
}

func applyEnv(c *Config) {
	setString(&c.Port, "PORT")
	setString(&c.Storage, "STORAGE")

	setString(&c.MySQL.Host, "MYSQL_HOST")
	setString(&c.MySQL.Port, "MYSQL_PORT")
	setString(&c.MySQL.User, "MYSQL_USER")
	setString(&c.MySQL.Password, "MYSQL_PASSWORD")
	setString(&c.MySQL.Database, "MYSQL_DATABASE")

	setString(&c.Redis.Host, "REDIS_HOST")
	setString(&c.Redis.Port, "REDIS_PORT")

	setString(&c.Catalog.URL, "PRODUCT_SERVICE_URL")
	setString(&c.Catalog.SeedFile, "CATALOG_SEED_FILE")

	setString(&c.Gateway.Provider, "GATEWAY_PROVIDER")
	setString(&c.Gateway.BaseURL, "GATEWAY_BASE_URL")
	setString(&c.Gateway.KeyID, "GATEWAY_KEY_ID")
	setString(&c.Gateway.Secret, "GATEWAY_SECRET")
	setString(&c.Gateway.Currency, "GATEWAY_CURRENCY")

	setString(&c.Notify.Driver, "NOTIFY_DRIVER")
	setString(&c.Notify.RabbitMQURL, "RABBITMQ_URL")
	setString(&c.Notify.Exchange, "RABBITMQ_EXCHANGE")
	setString(&c.Notify.KafkaTopic, "KAFKA_TOPIC")
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Notify.KafkaBrokers = strings.Split(v, ",")
	}

	setDuration(&c.Orders.ReservationTTL, "RESERVATION_TTL")
	setDuration(&c.Orders.ManualReservationTTL, "MANUAL_RESERVATION_TTL")
	setDuration(&c.Orders.SweepInterval, "SWEEP_INTERVAL")

	setString(&c.Auth.JWTSecret, "JWT_SECRET")

	if v := os.Getenv("RATE_LIMIT_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimit.PerSecond = f
		}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
