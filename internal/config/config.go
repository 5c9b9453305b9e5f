package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"JobsScanner/internal/domain"
)

const (
	defaultTimezone    = "UTC"
	configPathEnv      = "JOBS_SCANNER_CONFIG"
	databaseDSNEnv     = "DATABASE_DSN"
	storageDriverEnv   = "STORAGE_DRIVER"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	smtpHostEnv        = "SMTP_HOST"
	smtpPortEnv        = "SMTP_PORT"
	smtpUsernameEnv    = "SMTP_USERNAME"
	smtpPasswordEnv    = "SMTP_PASSWORD"
	notifyRecipientEnv = "NOTIFY_RECIPIENT"
	logLevelEnv        = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Site          SiteConfig            `yaml:"site"`
	Organizations []domain.Organization `yaml:"organizations"`
	DutyStations  []domain.DutyStation  `yaml:"dutyStations"`
	Keywords      []string              `yaml:"keywords"`
	Crawl         CrawlConfig           `yaml:"crawl"`
	Detail        DetailConfig          `yaml:"detail"`
	Scheduler     SchedulerConfig       `yaml:"scheduler"`
	Storage       StorageConfig         `yaml:"storage"`
	Notifications NotificationConfig    `yaml:"notifications"`
	Logging       LoggingConfig         `yaml:"logging"`
	Metrics       MetricsConfig         `yaml:"metrics"`
}

// SiteConfig describes the job board being crawled.
type SiteConfig struct {
	BaseURL           string        `yaml:"baseUrl"`
	UserAgent         string        `yaml:"userAgent"`
	RequestTimeout    time.Duration `yaml:"requestTimeout"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
}

// CrawlConfig tunes one cycle and the retry loop around it.
type CrawlConfig struct {
	// Concurrency caps the scopes crawled at once; 0 means one worker per scope.
	Concurrency        int           `yaml:"concurrency"`
	Cooldown           time.Duration `yaml:"cooldown"`
	CooldownMultiplier float64       `yaml:"cooldownMultiplier"`
	MaxCooldown        time.Duration `yaml:"maxCooldown"`
	AlertAfterFailures int           `yaml:"alertAfterFailures"`
}

// DetailConfig controls the headless browser used for detail pages.
type DetailConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Attempts      int           `yaml:"attempts"`
	Pause         time.Duration `yaml:"pause"`
	PollInterval  time.Duration `yaml:"pollInterval"`
	ReadyTimeout  time.Duration `yaml:"readyTimeout"`
	ReadySelector string        `yaml:"readySelector"`
	BrowserBin    string        `yaml:"browserBin"`
}

// SchedulerConfig defines when the crawler should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	RunOnStart     bool           `yaml:"runOnStart"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// StorageConfig selects the dedup store backend.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Recipient string         `yaml:"recipient"`
	Telegram  TelegramConfig `yaml:"telegram"`
	SMTP      SMTPConfig     `yaml:"smtp"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// SMTPConfig describes the mail relay.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Enabled reports whether a relay host is configured.
func (s SMTPConfig) Enabled() bool {
	return s.Host != ""
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig enables the Prometheus endpoint when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

// Load reads .env files, the YAML configuration (if present) and applies
// environment overrides. An empty path falls back to JOBS_SCANNER_CONFIG.
func Load(path string) Config {
	loadDotEnv(".env")

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if cfg.Notifications.Recipient == "" {
		cfg.Notifications.Recipient = cfg.Notifications.SMTP.Username
	}

	return cfg
}

func loadDotEnv(files ...string) {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("config: cannot load %s: %v", file, err)
		}
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv(storageDriverEnv); v != "" {
		c.Storage.Driver = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(smtpHostEnv); v != "" {
		c.Notifications.SMTP.Host = v
	}
	if v := os.Getenv(smtpPortEnv); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Notifications.SMTP.Port = port
		} else {
			log.Printf("config: invalid %s %q, keeping %d", smtpPortEnv, v, c.Notifications.SMTP.Port)
		}
	}
	if v := os.Getenv(smtpUsernameEnv); v != "" {
		c.Notifications.SMTP.Username = v
	}
	if v := os.Getenv(smtpPasswordEnv); v != "" {
		c.Notifications.SMTP.Password = v
	}
	if v := os.Getenv(notifyRecipientEnv); v != "" {
		c.Notifications.Recipient = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Site.BaseURL != "" {
		base.Site.BaseURL = strings.TrimRight(override.Site.BaseURL, "/")
	}
	if override.Site.UserAgent != "" {
		base.Site.UserAgent = override.Site.UserAgent
	}
	if override.Site.RequestTimeout > 0 {
		base.Site.RequestTimeout = override.Site.RequestTimeout
	}
	if override.Site.RequestsPerSecond > 0 {
		base.Site.RequestsPerSecond = override.Site.RequestsPerSecond
	}

	if len(override.Organizations) > 0 {
		base.Organizations = override.Organizations
	}
	if len(override.DutyStations) > 0 {
		base.DutyStations = override.DutyStations
	}
	if len(override.Keywords) > 0 {
		base.Keywords = override.Keywords
	}

	if override.Crawl.Concurrency > 0 {
		base.Crawl.Concurrency = override.Crawl.Concurrency
	}
	if override.Crawl.Cooldown > 0 {
		base.Crawl.Cooldown = override.Crawl.Cooldown
	}
	if override.Crawl.CooldownMultiplier > 0 {
		base.Crawl.CooldownMultiplier = override.Crawl.CooldownMultiplier
	}
	if override.Crawl.MaxCooldown > 0 {
		base.Crawl.MaxCooldown = override.Crawl.MaxCooldown
	}
	if override.Crawl.AlertAfterFailures != 0 {
		base.Crawl.AlertAfterFailures = override.Crawl.AlertAfterFailures
	}

	base.Detail.Enabled = base.Detail.Enabled || override.Detail.Enabled
	if override.Detail.Attempts > 0 {
		base.Detail.Attempts = override.Detail.Attempts
	}
	if override.Detail.Pause > 0 {
		base.Detail.Pause = override.Detail.Pause
	}
	if override.Detail.PollInterval > 0 {
		base.Detail.PollInterval = override.Detail.PollInterval
	}
	if override.Detail.ReadyTimeout > 0 {
		base.Detail.ReadyTimeout = override.Detail.ReadyTimeout
	}
	if override.Detail.ReadySelector != "" {
		base.Detail.ReadySelector = override.Detail.ReadySelector
	}
	if override.Detail.BrowserBin != "" {
		base.Detail.BrowserBin = override.Detail.BrowserBin
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	base.Scheduler.RunOnStart = base.Scheduler.RunOnStart || override.Scheduler.RunOnStart

	if override.Storage.Driver != "" {
		base.Storage.Driver = override.Storage.Driver
	}
	if override.Storage.DSN != "" {
		base.Storage.DSN = override.Storage.DSN
	}

	if override.Notifications.Recipient != "" {
		base.Notifications.Recipient = override.Notifications.Recipient
	}
	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}
	if override.Notifications.SMTP.Host != "" {
		base.Notifications.SMTP = mergeSMTP(base.Notifications.SMTP, override.Notifications.SMTP)
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}
	if override.Metrics.Listen != "" {
		base.Metrics.Listen = override.Metrics.Listen
	}

	return base
}

func mergeSMTP(base, override SMTPConfig) SMTPConfig {
	base.Host = override.Host
	if override.Port > 0 {
		base.Port = override.Port
	}
	if override.Username != "" {
		base.Username = override.Username
	}
	if override.Password != "" {
		base.Password = override.Password
	}
	if override.From != "" {
		base.From = override.From
	}
	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Site: SiteConfig{
			BaseURL:        "https://unjobs.org",
			UserAgent:      "JobsScanner/1.0 (+https://unjobs.org)",
			RequestTimeout: 30 * time.Second,
		},
		Crawl: CrawlConfig{
			Cooldown:           time.Minute,
			CooldownMultiplier: 1,
			MaxCooldown:        30 * time.Minute,
			AlertAfterFailures: 5,
		},
		Detail: DetailConfig{
			Attempts:     3,
			Pause:        time.Second,
			PollInterval: time.Second,
			ReadyTimeout: 30 * time.Second,
		},
		Scheduler: SchedulerConfig{CronExpression: "0 * * * *", Timezone: defaultTimezone, location: tz},
		Storage:   StorageConfig{Driver: "sqlite3", DSN: "data/database.sqlite"},
		Notifications: NotificationConfig{
			SMTP: SMTPConfig{Port: 587},
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}
