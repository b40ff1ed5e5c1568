package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type FeedConfig struct {
	Enabled          bool          `yaml:"enabled"`
	BaseURL          string        `yaml:"base_url"`
	APIKey           string        `yaml:"api_key"`
	Interval         time.Duration `yaml:"interval"`
	SymbolDelay      time.Duration `yaml:"symbol_delay"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`
	RateCapacity     float64       `yaml:"rate_capacity"`
	RateRefillPerSec float64       `yaml:"rate_refill_per_sec"`
}

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Symbols   []string `yaml:"symbols"`
	Scheduler struct {
		TickInterval   time.Duration `yaml:"tick_interval"`
		CollectTimeout time.Duration `yaml:"collect_timeout"`
		RetentionEvery time.Duration `yaml:"retention_every"`
		RetentionAge   time.Duration `yaml:"retention_age"`
	} `yaml:"scheduler"`
	Feeds struct {
		Social   FeedConfig `yaml:"social"`
		Insider  FeedConfig `yaml:"insider"`
		Congress FeedConfig `yaml:"congress"`
		News     FeedConfig `yaml:"news"`
		Market   FeedConfig `yaml:"market"`
	} `yaml:"feeds"`
	Analysis struct {
		ServiceURL  string        `yaml:"service_url"`
		Timeout     time.Duration `yaml:"timeout"`
		Attempts    int           `yaml:"attempts"`
		Concurrency int           `yaml:"concurrency"`
	} `yaml:"analysis"`
	AlertStore struct {
		Path string `yaml:"path"`
	} `yaml:"alert_store"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
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
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Notifications struct {
		WebhookURL      string        `yaml:"webhook_url"`
		SlackWebhookURL string        `yaml:"slack_webhook_url"`
		Timeout         time.Duration `yaml:"timeout"`
	} `yaml:"notifications"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("SOCIAL_API_KEY"); v != "" {
		c.Feeds.Social.APIKey = v
	}
	if v := os.Getenv("INSIDER_API_KEY"); v != "" {
		c.Feeds.Insider.APIKey = v
	}
	if v := os.Getenv("CONGRESS_API_KEY"); v != "" {
		c.Feeds.Congress.APIKey = v
	}
	if v := os.Getenv("NEWS_API_KEY"); v != "" {
		c.Feeds.News.APIKey = v
	}
	if v := os.Getenv("MARKET_API_KEY"); v != "" {
		c.Feeds.Market.APIKey = v
	}
	if v := os.Getenv("ANALYSIS_SERVICE_URL"); v != "" {
		c.Analysis.ServiceURL = v
	}
	if v := os.Getenv("ALERT_STORE_PATH"); v != "" {
		c.AlertStore.Path = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols cannot be empty")
	}
	if c.AlertStore.Path == "" {
		return fmt.Errorf("alert_store.path is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}
