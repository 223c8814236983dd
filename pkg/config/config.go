package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		SlowThreshold   time.Duration `yaml:"slow_threshold"`
	} `yaml:"server"`
	Logging struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		Output     string `yaml:"output"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Topic      string `yaml:"topic"` // aggregated error logs, kafka only
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Delta struct {
		BaseURL     string        `yaml:"base_url"`
		CandlesPath string        `yaml:"candles_path"`
		Timeout     time.Duration `yaml:"timeout"`
		RateLimit   float64       `yaml:"rate_limit"` // requests per second
		Burst       float64       `yaml:"burst"`
	} `yaml:"delta"`
	Cache struct {
		Freshness time.Duration `yaml:"freshness"`
		Backend   string        `yaml:"backend"` // memory | redis | layered
		CandleTTL time.Duration `yaml:"candle_ttl"`
		MaxSize   int           `yaml:"max_size"`
		Redis     struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Catalog struct {
		ReloadInterval time.Duration `yaml:"reload_interval"`
	} `yaml:"catalog"`
	Monitor struct {
		Interval      time.Duration `yaml:"interval"`
		CandleLimit   int           `yaml:"candle_limit"`
		MinExtra      int           `yaml:"min_extra"`
		FetchTimeout  time.Duration `yaml:"fetch_timeout"`
		NotifyTimeout time.Duration `yaml:"notify_timeout"`
		MarkOnFailure bool          `yaml:"mark_on_failure"`
	} `yaml:"monitor"`
	Notify struct {
		Backend       string        `yaml:"backend"` // smtp | log
		RetryAttempts int           `yaml:"retry_attempts"`
		RetryBackoff  time.Duration `yaml:"retry_backoff"`
		SMTP          struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Username string `yaml:"username"`
			Password string `yaml:"password"`
			From     string `yaml:"from"`
			TLS      bool   `yaml:"tls"`
		} `yaml:"smtp"`
	} `yaml:"notify"`
	Stream struct {
		Interval time.Duration `yaml:"interval"`
	} `yaml:"stream"`
	Events struct {
		Backend string `yaml:"backend"` // none | kafka | clickhouse
		Consume bool   `yaml:"consume"`
	} `yaml:"events"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
}

// Default returns a configuration that runs against the public Delta Exchange
// API with in-memory caching, log notifications and no event backend.
func Default() *Config {
	c := &Config{Environment: "development"}

	c.Server.Port = 5000
	c.Server.ReadTimeout = 10 * time.Second
	c.Server.WriteTimeout = 10 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second
	c.Server.SlowThreshold = 2 * time.Second

	c.Logging.Level = "info"
	c.Logging.Format = "console"
	c.Logging.Output = "stdout"
	c.Logging.MaxSizeMB = 100
	c.Logging.MaxBackups = 5
	c.Logging.MaxAgeDays = 14

	c.Metrics.Enabled = true
	c.Metrics.Path = "/metrics"

	c.Delta.BaseURL = "https://api.delta.exchange/v2"
	c.Delta.CandlesPath = "/history/candles"
	c.Delta.Timeout = 10 * time.Second
	c.Delta.RateLimit = 8
	c.Delta.Burst = 16

	c.Cache.Freshness = time.Second
	c.Cache.Backend = "memory"
	c.Cache.CandleTTL = 20 * time.Second
	c.Cache.MaxSize = 5000
	c.Cache.Redis.Host = "localhost"
	c.Cache.Redis.Port = 6379
	c.Cache.Redis.Prefix = "crosswatch"

	c.Catalog.ReloadInterval = 6 * time.Hour

	c.Monitor.Interval = 60 * time.Second
	c.Monitor.CandleLimit = 300
	c.Monitor.MinExtra = 5
	c.Monitor.FetchTimeout = 15 * time.Second
	c.Monitor.NotifyTimeout = 20 * time.Second
	c.Monitor.MarkOnFailure = true

	c.Notify.Backend = "log"
	c.Notify.RetryAttempts = 1
	c.Notify.RetryBackoff = 2 * time.Second
	c.Notify.SMTP.Host = "smtp.gmail.com"
	c.Notify.SMTP.Port = 465
	c.Notify.SMTP.TLS = true

	c.Stream.Interval = time.Second

	c.Events.Backend = "none"

	c.Kafka.Topic = "crosswatch.signals"
	c.Kafka.RequiredAcks = -1
	c.Kafka.Compression = "gzip"
	c.Kafka.Producer.MaxAttempts = 3
	c.Kafka.Producer.Linger = 100 * time.Millisecond
	c.Kafka.Producer.BatchSize = 100
	c.Kafka.Producer.BatchBytes = 1 << 20
	c.Kafka.Producer.WriteTimeout = 10 * time.Second
	c.Kafka.Producer.ReadTimeout = 10 * time.Second
	c.Kafka.Consumer.GroupID = "crosswatch-signals"
	c.Kafka.Consumer.Workers = 1
	c.Kafka.Consumer.BufferSize = 256
	c.Kafka.Consumer.RetryMax = 3
	c.Kafka.Consumer.BackoffMin = 200 * time.Millisecond
	c.Kafka.Consumer.BackoffMax = 5 * time.Second

	c.ClickHouse.Host = "localhost"
	c.ClickHouse.Port = 9000
	c.ClickHouse.Database = "crosswatch"
	c.ClickHouse.DialTimeout = 5 * time.Second
	c.ClickHouse.ReadTimeout = 10 * time.Second
	c.ClickHouse.WriteTimeout = 10 * time.Second

	return c
}

// Load reads and parses a YAML configuration file on top of Default().
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A .env file next to the working directory is read first when present.
// A missing config file falls back to Default().
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		c = Default()
	}

	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("DELTA_BASE_URL"); v != "" {
		c.Delta.BaseURL = v
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		c.Notify.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		c.Notify.SMTP.Password = v
	}
	if v := os.Getenv("SMTP_FROM"); v != "" {
		c.Notify.SMTP.From = v
	}
	if v := os.Getenv("NOTIFY_BACKEND"); v != "" {
		c.Notify.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("EVENTS_BACKEND"); v != "" {
		c.Events.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Cache.Redis.Host = host
		if ok {
			if p, err := strconv.Atoi(port); err == nil {
				c.Cache.Redis.Port = p
			}
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Delta.BaseURL == "" {
		return fmt.Errorf("delta.base_url is required")
	}
	if c.Cache.Freshness <= 0 {
		return fmt.Errorf("cache.freshness must be positive")
	}
	switch c.Cache.Backend {
	case "memory", "redis", "layered":
	default:
		return fmt.Errorf("cache.backend must be 'memory', 'redis' or 'layered', got '%s'", c.Cache.Backend)
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be positive")
	}
	if c.Monitor.CandleLimit < 2 {
		return fmt.Errorf("monitor.candle_limit must be at least 2")
	}
	switch c.Notify.Backend {
	case "log":
	case "smtp":
		if c.Notify.SMTP.Host == "" || c.Notify.SMTP.Port == 0 {
			return fmt.Errorf("notify.smtp host and port are required")
		}
		if c.Notify.SMTP.Username == "" {
			return fmt.Errorf("notify.smtp.username is required")
		}
	default:
		return fmt.Errorf("notify.backend must be 'smtp' or 'log', got '%s'", c.Notify.Backend)
	}
	switch c.Events.Backend {
	case "none", "clickhouse":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when events.backend is 'kafka'")
		}
	default:
		return fmt.Errorf("events.backend must be 'none', 'kafka' or 'clickhouse', got '%s'", c.Events.Backend)
	}
	if c.Events.Consume && c.Events.Backend != "kafka" {
		return fmt.Errorf("events.consume requires events.backend 'kafka'")
	}
	return nil
}

// ClickHouseEnabled reports whether any component needs a ClickHouse connection.
func (c *Config) ClickHouseEnabled() bool {
	return c.Events.Backend == "clickhouse" || (c.Events.Backend == "kafka" && c.Events.Consume)
}
