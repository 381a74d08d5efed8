package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		HTTPPort               int    `yaml:"http_port"`
		GRPCPort               int    `yaml:"grpc_port"`
		LogLevel               string `yaml:"log_level"`
		ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address            string `yaml:"address"`
		Password           string `yaml:"password"`
		DB                 int    `yaml:"db"`
		SnapshotTTLSeconds int    `yaml:"snapshot_ttl_seconds"`
	} `yaml:"redis"`

	Feed struct {
		PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	} `yaml:"feed"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Telegram struct {
		BotToken          string  `yaml:"bot_token"`
		ManagerChatIDs    []int64 `yaml:"manager_chat_ids"`
		MessagesPerSecond float64 `yaml:"messages_per_second"`
		MaxRetries        int     `yaml:"max_retries"`
	} `yaml:"telegram"`

	Sheets struct {
		CredentialsFile string `yaml:"credentials_file"`
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		Range           string `yaml:"range"`
	} `yaml:"sheets"`

	WhatsApp struct {
		Number string `yaml:"number"`
	} `yaml:"whatsapp"`

	API struct {
		RequestsPerSecond     float64 `yaml:"requests_per_second"`
		Burst                 int     `yaml:"burst"`
		SessionTimeoutMinutes int     `yaml:"session_timeout_minutes"`
		TrustProxyHeaders     bool    `yaml:"trust_proxy_headers"`
	} `yaml:"api"`

	Rates struct {
		Path                 string `yaml:"path"`
		WatchIntervalSeconds int    `yaml:"watch_interval_seconds"`
	} `yaml:"rates"`
}

// Load reads the YAML config at path (configs/config.yaml when empty). A .env file
// in the working directory is loaded first so ${VAR} placeholders can refer to it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	// Missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = 10
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/studiobook.db"
	}
	if c.Feed.PollIntervalSeconds <= 0 {
		c.Feed.PollIntervalSeconds = 15
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Telegram.MessagesPerSecond <= 0 {
		c.Telegram.MessagesPerSecond = 1
	}
	if c.Telegram.MaxRetries <= 0 {
		c.Telegram.MaxRetries = 3
	}
	if c.Sheets.Range == "" {
		c.Sheets.Range = "Requests!A:K"
	}
	if c.API.RequestsPerSecond <= 0 {
		c.API.RequestsPerSecond = 10
	}
	if c.API.Burst <= 0 {
		c.API.Burst = 20
	}
	if c.API.SessionTimeoutMinutes <= 0 {
		c.API.SessionTimeoutMinutes = 120
	}
	if c.Rates.Path == "" {
		c.Rates.Path = "configs/rates.yaml"
	}
	if c.Rates.WatchIntervalSeconds <= 0 {
		c.Rates.WatchIntervalSeconds = 30
	}
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

func (c *Config) FeedPollInterval() time.Duration {
	return time.Duration(c.Feed.PollIntervalSeconds) * time.Second
}

func (c *Config) SnapshotTTL() time.Duration {
	return time.Duration(c.Redis.SnapshotTTLSeconds) * time.Second
}

func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.API.SessionTimeoutMinutes) * time.Minute
}

func (c *Config) RatesWatchInterval() time.Duration {
	return time.Duration(c.Rates.WatchIntervalSeconds) * time.Second
}
