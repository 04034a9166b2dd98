// File: internal/config/config.go
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

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token       string        `yaml:"token"`
	WebhookURL  string        `yaml:"webhook_url"` // public base URL, e.g. https://bridge.example.com
	SendTimeout time.Duration `yaml:"send_timeout"`
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CORSOrigins    []string      `yaml:"cors_origins"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // postgres|sqlite
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type GreenAPIConfig struct {
	APIURL     string        `yaml:"api_url"`
	PartnerURL string        `yaml:"partner_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

type SecurityConfig struct {
	WebhookSecret string `yaml:"webhook_secret"`
	EncryptionKey string `yaml:"encryption_key"`
}

type LimitsConfig struct {
	CommandsPerMinute int           `yaml:"commands_per_minute"`
	DedupTTL          time.Duration `yaml:"dedup_ttl"`
}

type WatchdogConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type Config struct {
	Bot      BotConfig      `yaml:"bot"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	GreenAPI GreenAPIConfig `yaml:"greenapi"`
	Security SecurityConfig `yaml:"security"`
	Limits   LimitsConfig   `yaml:"limits"`
	Watchdog WatchdogConfig `yaml:"watchdog"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, overlays a .env file if one exists
// and then the process environment. A missing YAML file is tolerated so the
// bridge can run from environment alone.
func LoadConfig(path string, dev bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env-only deployment
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setStr := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setStr(&cfg.Bot.Token, "TELEGRAM_BOT_TOKEN")
	setStr(&cfg.Bot.WebhookURL, "WEBHOOK_URL")
	setStr(&cfg.Database.URL, "DATABASE_URL")
	setStr(&cfg.Redis.URL, "REDIS_URL")
	setStr(&cfg.Security.WebhookSecret, "WEBHOOK_SECRET")
	setStr(&cfg.Security.EncryptionKey, "ENCRYPTION_KEY")
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}
	if cfg.Bot.SendTimeout <= 0 {
		cfg.Bot.SendTimeout = 10 * time.Second
	}
	cfg.Bot.WebhookURL = strings.TrimRight(cfg.Bot.WebhookURL, "/")
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.GreenAPI.APIURL == "" {
		cfg.GreenAPI.APIURL = "https://api.green-api.com"
	}
	if cfg.GreenAPI.PartnerURL == "" {
		cfg.GreenAPI.PartnerURL = "https://api.green-api.com/partner"
	}
	if cfg.GreenAPI.Timeout <= 0 {
		cfg.GreenAPI.Timeout = 15 * time.Second
	}
	if cfg.Limits.CommandsPerMinute <= 0 {
		cfg.Limits.CommandsPerMinute = 20
	}
	if cfg.Limits.DedupTTL <= 0 {
		cfg.Limits.DedupTTL = 24 * time.Hour
	}
	if cfg.Watchdog.Interval <= 0 {
		cfg.Watchdog.Interval = 10 * time.Minute
	}
}

// Validate performs the minimal checks needed to start serving.
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return errors.New("bot.token is required")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if k := len(c.Security.EncryptionKey); k != 0 && k != 16 && k != 24 && k != 32 {
		return fmt.Errorf("security.encryption_key must be 16, 24 or 32 bytes; got %d", k)
	}
	return nil
}

// WhatsAppWebhookURL is the endpoint registered on every bound gateway instance.
func (c *Config) WhatsAppWebhookURL() string {
	if c.Bot.WebhookURL == "" {
		return ""
	}
	return c.Bot.WebhookURL + "/webhook/whatsapp"
}

// TelegramWebhookURL is the endpoint registered with the bot platform.
func (c *Config) TelegramWebhookURL() string {
	if c.Bot.WebhookURL == "" {
		return ""
	}
	return c.Bot.WebhookURL + "/webhook/telegram"
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
