package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"taxbook/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvAPIURL overrides api.base_url when set.
const EnvAPIURL = "API_URL"

type Config struct {
	App        AppConfig        `yaml:"app"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	API        APIConfig        `yaml:"api"`
	Redis      RedisConfig      `yaml:"redis"`
	Database   DatabaseConfig   `yaml:"database"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Booking    BookingConfig    `yaml:"booking"`
	Expenses   ExpensesConfig   `yaml:"expenses"`
	Bot        BotConfig        `yaml:"bot"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

type APIConfig struct {
	BaseURL         string             `yaml:"base_url"`
	TimeoutSeconds  int                `yaml:"timeout_seconds"`
	CacheTTLSeconds int                `yaml:"cache_ttl_seconds"`
	MaxRetries      int                `yaml:"max_retries"`
	RateLimit       APIRateLimitConfig `yaml:"rate_limit"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type BookingConfig struct {
	SlotMinutes            int    `yaml:"slot_minutes"`
	MaxCommentLength       int    `yaml:"max_comment_length"`
	PendingCacheTTLSeconds int    `yaml:"pending_cache_ttl_seconds"`
	MinAdvanceMinutes      int    `yaml:"min_advance_minutes"`
	MaxAdvanceDays         int    `yaml:"max_advance_days"`
	TimeZone               string `yaml:"time_zone"`
}

// ExpensesConfig files receipts added from chat under one account and
// category.
type ExpensesConfig struct {
	AccountID       int64 `yaml:"account_id"`
	CategoryID      int64 `yaml:"category_id"`
	PageSize        int   `yaml:"page_size"`
	CacheTTLSeconds int   `yaml:"cache_ttl_seconds"`
}

type BotConfig struct {
	RateLimitMessages int    `yaml:"rate_limit_messages"`
	RateLimitWindow   int    `yaml:"rate_limit_window"`
	ExportPath        string `yaml:"export_path"`
}

func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		config.API.BaseURL = v
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram bot token is required")
	}

	if err := validateBaseURL(c.API.BaseURL); err != nil {
		return err
	}

	if c.Booking.SlotMinutes <= 0 {
		return fmt.Errorf("booking.slot_minutes must be positive, got %d", c.Booking.SlotMinutes)
	}
	if c.Booking.MaxCommentLength <= 0 {
		return fmt.Errorf("booking.max_comment_length must be positive, got %d", c.Booking.MaxCommentLength)
	}
	if _, err := time.LoadLocation(c.Booking.TimeZone); err != nil {
		return fmt.Errorf("booking.time_zone %q: %w", c.Booking.TimeZone, err)
	}
	if c.Expenses.AccountID < 0 || c.Expenses.CategoryID < 0 {
		return errors.New("expenses.account_id and expenses.category_id must not be negative")
	}

	return nil
}

func validateBaseURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("api base url is required (api.base_url or API_URL)")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api base url must be http(s), got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("api base url has no host: %q", raw)
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.TimeoutSeconds == 0 {
		c.API.TimeoutSeconds = int(models.DefaultRequestTimeout / time.Second)
	}
	if c.API.CacheTTLSeconds == 0 {
		c.API.CacheTTLSeconds = int(models.ServicesCacheTTL / time.Second)
	}

	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Database.Path == "" {
		c.Database.Path = "data/taxbook.db"
	}

	if c.Booking.SlotMinutes == 0 {
		c.Booking.SlotMinutes = int(models.DefaultSlotLength / time.Minute)
	}
	if c.Booking.MaxCommentLength == 0 {
		c.Booking.MaxCommentLength = models.MaxCommentLength
	}
	if c.Booking.MaxAdvanceDays == 0 {
		c.Booking.MaxAdvanceDays = models.MaxAdvanceDays
	}
	if c.Booking.TimeZone == "" {
		c.Booking.TimeZone = "UTC"
	}
	if c.Booking.PendingCacheTTLSeconds == 0 {
		c.Booking.PendingCacheTTLSeconds = int(models.PendingAppointmentsTTL / time.Second)
	}

	if c.Expenses.PageSize == 0 {
		c.Expenses.PageSize = models.ExpensePageSize
	}
	if c.Expenses.CacheTTLSeconds == 0 {
		c.Expenses.CacheTTLSeconds = int(models.ExpensesCacheTTL / time.Second)
	}

	if c.Bot.RateLimitMessages == 0 {
		c.Bot.RateLimitMessages = models.RateLimitMessages
	}
	if c.Bot.RateLimitWindow == 0 {
		c.Bot.RateLimitWindow = models.RateLimitWindow
	}
	if c.Bot.ExportPath == "" {
		c.Bot.ExportPath = "exports"
	}
}

func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c APIConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c BookingConfig) SlotLength() time.Duration {
	return time.Duration(c.SlotMinutes) * time.Minute
}

func (c BookingConfig) PendingCacheTTL() time.Duration {
	return time.Duration(c.PendingCacheTTLSeconds) * time.Second
}

func (c BookingConfig) MinAdvance() time.Duration {
	return time.Duration(c.MinAdvanceMinutes) * time.Minute
}

// Location is the zone slots are shown and booked in. Validate guarantees
// it loads.
func (c BookingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c ExpensesConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c BotConfig) RateWindow() time.Duration {
	return time.Duration(c.RateLimitWindow) * time.Second
}
