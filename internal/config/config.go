package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultReportHour        = 9
	defaultRequestsPerMinute = 20
	defaultLookbackDays      = 1
)

// Config is the full application configuration. It is built once at the
// process boundary and passed down explicitly.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Search    SearchConfig    `yaml:"search"`
	Report    ReportConfig    `yaml:"report"`
	Sheet     SheetConfig     `yaml:"sheet"`
	Secrets   SecretsConfig   `yaml:"secrets"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	DataDir  string `yaml:"data_dir"`
	Timezone string `yaml:"timezone"` // IANA name used for query windows, stamps and triggers
}

// SearchConfig configures the message search client.
type SearchConfig struct {
	Endpoint          string   `yaml:"endpoint"`
	Names             []string `yaml:"names"`               // literal names OR'd with the user mention
	RequestsPerMinute int      `yaml:"requests_per_minute"` // 0 disables pacing
	TimeoutSeconds    int      `yaml:"timeout_seconds"`
}

// ReportConfig configures the daily mention report.
type ReportConfig struct {
	Hour         int    `yaml:"hour"`
	LookbackDays int    `yaml:"lookback_days"` // 0 reports on the current day
	LinkTemplate string `yaml:"link_template"` // %s is replaced with the channel id
	Locale       string `yaml:"locale"`        // BCP 47 tag for channel name collation
}

// SheetConfig configures the spreadsheet digest.
type SheetConfig struct {
	Dir          string `yaml:"dir"`
	Spreadsheet  string `yaml:"spreadsheet"`
	Sheet        string `yaml:"sheet"`
	EveryMinutes int    `yaml:"every_minutes"`
	MaxRows      int    `yaml:"max_rows"`
	WebhookKey   string `yaml:"webhook_key"`
}

// WebhookConfig configures outbound webhook posts.
type WebhookConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// SecretsConfig names the secret store keys read at call time.
type SecretsConfig struct {
	EnvFile       string `yaml:"env_file"`
	WebhookURLKey string `yaml:"webhook_url_key"`
	TokenKey      string `yaml:"token_key"`
	UserIDKey     string `yaml:"user_id_key"`
}

// SchedulerConfig configures the trigger runner.
type SchedulerConfig struct {
	PollInterval  int `yaml:"poll_interval"` // seconds
	MaxConcurrent int `yaml:"max_concurrent"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the server
}

// LoadConfig reads the optional YAML file at path, fills defaults, applies
// environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := newConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.setDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns a configuration with default values only.
func DefaultConfig() *Config {
	cfg := newConfig()
	cfg.setDefaults()
	return cfg
}

// newConfig presets fields whose zero value is meaningful, so a file may set
// them to zero explicitly.
func newConfig() *Config {
	return &Config{
		Search: SearchConfig{RequestsPerMinute: defaultRequestsPerMinute},
		Report: ReportConfig{Hour: defaultReportHour, LookbackDays: defaultLookbackDays},
	}
}

// LoadDotEnv seeds the process environment from a .env file. A missing file
// is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.App.DataDir == "" {
		c.App.DataDir = "data"
	}
	if c.App.Timezone == "" {
		c.App.Timezone = "Asia/Tokyo"
	}
	if c.Search.Endpoint == "" {
		c.Search.Endpoint = "https://slack.com/api/search.messages"
	}
	if c.Search.TimeoutSeconds == 0 {
		c.Search.TimeoutSeconds = 30
	}
	if c.Webhook.TimeoutSeconds == 0 {
		c.Webhook.TimeoutSeconds = 30
	}
	if c.Report.LinkTemplate == "" {
		c.Report.LinkTemplate = "https://slack.com/app_redirect?channel=%s"
	}
	if c.Report.Locale == "" {
		c.Report.Locale = "und"
	}
	if c.Sheet.Dir == "" {
		c.Sheet.Dir = filepath.Join(c.App.DataDir, "sheets")
	}
	if c.Sheet.Spreadsheet == "" {
		c.Sheet.Spreadsheet = "notifications"
	}
	if c.Sheet.Sheet == "" {
		c.Sheet.Sheet = "Sheet1"
	}
	if c.Sheet.EveryMinutes == 0 {
		c.Sheet.EveryMinutes = 5
	}
	if c.Sheet.MaxRows == 0 {
		c.Sheet.MaxRows = 50
	}
	if c.Secrets.EnvFile == "" {
		c.Secrets.EnvFile = ".env"
	}
	if c.Secrets.WebhookURLKey == "" {
		c.Secrets.WebhookURLKey = "MENTION_WEBHOOK_URL"
	}
	if c.Secrets.TokenKey == "" {
		c.Secrets.TokenKey = "SLACK_USER_TOKEN"
	}
	if c.Secrets.UserIDKey == "" {
		c.Secrets.UserIDKey = "SLACK_USER_ID"
	}
	if c.Sheet.WebhookKey == "" {
		c.Sheet.WebhookKey = c.Secrets.WebhookURLKey
	}
	if c.Scheduler.PollInterval == 0 {
		c.Scheduler.PollInterval = 60
	}
	if c.Scheduler.MaxConcurrent == 0 {
		c.Scheduler.MaxConcurrent = 2
	}
}

// applyEnv overrides file values with MENTIONDIGEST_* environment variables.
func (c *Config) applyEnv() {
	c.App.DataDir = getEnv("MENTIONDIGEST_DATA_DIR", c.App.DataDir)
	c.App.Timezone = getEnv("MENTIONDIGEST_TIMEZONE", c.App.Timezone)
	c.Search.Endpoint = getEnv("MENTIONDIGEST_SEARCH_ENDPOINT", c.Search.Endpoint)
	c.Search.RequestsPerMinute = getEnvInt("MENTIONDIGEST_SEARCH_RPM", c.Search.RequestsPerMinute)
	if v := os.Getenv("MENTIONDIGEST_MENTION_NAMES"); v != "" {
		c.Search.Names = splitList(v)
	}
	c.Report.Hour = getEnvInt("MENTIONDIGEST_REPORT_HOUR", c.Report.Hour)
	c.Report.Locale = getEnv("MENTIONDIGEST_REPORT_LOCALE", c.Report.Locale)
	c.Sheet.Dir = getEnv("MENTIONDIGEST_SHEET_DIR", c.Sheet.Dir)
	c.Sheet.Spreadsheet = getEnv("MENTIONDIGEST_SPREADSHEET", c.Sheet.Spreadsheet)
	c.Sheet.Sheet = getEnv("MENTIONDIGEST_SHEET", c.Sheet.Sheet)
	c.Scheduler.PollInterval = getEnvInt("MENTIONDIGEST_POLL_INTERVAL", c.Scheduler.PollInterval)
	c.Metrics.Addr = getEnv("MENTIONDIGEST_METRICS_ADDR", c.Metrics.Addr)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("app.timezone %q: %w", c.App.Timezone, err)
	}
	if c.Search.Endpoint == "" {
		return fmt.Errorf("search.endpoint is required")
	}
	if c.Search.TimeoutSeconds < 0 || c.Webhook.TimeoutSeconds < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.Search.RequestsPerMinute < 0 {
		return fmt.Errorf("search.requests_per_minute must not be negative")
	}
	if c.Report.Hour < 0 || c.Report.Hour > 23 {
		return fmt.Errorf("report.hour must be between 0 and 23, got %d", c.Report.Hour)
	}
	if c.Report.LookbackDays < 0 {
		return fmt.Errorf("report.lookback_days must not be negative")
	}
	if !strings.Contains(c.Report.LinkTemplate, "%s") {
		return fmt.Errorf("report.link_template must contain %%s")
	}
	if c.Sheet.EveryMinutes < 1 || c.Sheet.EveryMinutes > 59 {
		return fmt.Errorf("sheet.every_minutes must be between 1 and 59, got %d", c.Sheet.EveryMinutes)
	}
	if c.Scheduler.PollInterval <= 0 {
		return fmt.Errorf("scheduler.poll_interval must be positive")
	}
	if c.Scheduler.MaxConcurrent <= 0 {
		return fmt.Errorf("scheduler.max_concurrent must be positive")
	}
	return nil
}

// Location returns the configured time zone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DBPath returns the trigger database path.
func (c *Config) DBPath() string {
	return filepath.Join(c.App.DataDir, "mentiondigest.db")
}

// SearchTimeout returns the HTTP timeout for search requests.
func (c *Config) SearchTimeout() time.Duration {
	return time.Duration(c.Search.TimeoutSeconds) * time.Second
}

// WebhookTimeout returns the HTTP timeout for webhook posts.
func (c *Config) WebhookTimeout() time.Duration {
	return time.Duration(c.Webhook.TimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
