package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultURL is the DGPA typhoon day-off announcement page.
	DefaultURL = "https://www.dgpa.gov.tw/typh/daily/nds.html"

	// DefaultUserAgent mimics a browser; the page serves the same table to any
	// Mozilla-compatible client.
	DefaultUserAgent = "Mozilla/5.0"

	// DefaultAcceptCharset biases the server toward the encodings the decoder tries first.
	DefaultAcceptCharset = "big5,utf-8"

	// DefaultAcceptLanguage asks for the Traditional Chinese page.
	DefaultAcceptLanguage = "zh-TW,zh;q=0.9,en-US;q=0.8,en;q=0.7"

	// DefaultTimeout bounds one request including the body read.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize caps the response body. The page is a few tens of KB.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultPollInterval is how often serve mode refreshes the page.
	DefaultPollInterval = 10 * time.Minute

	// DefaultHTTPAddr is the serve-mode listen address.
	DefaultHTTPAddr = ":8080"

	// DefaultLogLevel and DefaultLogFormat configure the slog handler.
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	// AppName is the application name used for XDG directory paths.
	AppName = "typhoon"
)

// Environment variables that override the config file.
const (
	EnvURL      = "TYPHOON_URL"
	EnvDataDir  = "TYPHOON_DATA_DIR"
	EnvLogLevel = "TYPHOON_LOG_LEVEL"

	EnvTelegramBotToken    = "TELEGRAM_BOT_TOKEN"
	EnvTelegramChatID      = "TELEGRAM_CHAT_ID"
	EnvTwitterAPIKey       = "TWITTER_API_KEY"
	EnvTwitterAPISecret    = "TWITTER_API_SECRET"
	EnvTwitterAccessToken  = "TWITTER_ACCESS_TOKEN"
	EnvTwitterAccessSecret = "TWITTER_ACCESS_SECRET"
)

// Config holds all configuration options for typhoon.
// It is populated from defaults, the optional config file, environment
// variables, and finally CLI flags, then passed down explicitly.
type Config struct {
	// URL is the announcement page to fetch.
	URL string

	// UserAgent, AcceptCharset and AcceptLanguage are sent with every request.
	UserAgent      string
	AcceptCharset  string
	AcceptLanguage string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default (5MB).
	MaxBodySize int64

	// DataDir holds snapshots and the history database.
	// Defaults to the XDG data directory (~/.local/share/typhoon on Linux).
	DataDir string

	// History enables recording every fetch into the SQLite history database.
	History bool

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// LogFormat is json or text.
	LogFormat string

	// HTTPAddr and PollInterval configure serve mode.
	HTTPAddr     string
	PollInterval time.Duration

	// Filter is the default filter expression applied by check and watch.
	Filter string

	// Telegram and Twitter hold notifier credentials. Empty means disabled.
	Telegram TelegramConfig
	Twitter  TwitterConfig

	// ConfigFilePath is the file the configuration was loaded from, if any.
	ConfigFilePath string
}

// TelegramConfig holds Telegram Bot API credentials.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// Enabled reports whether both token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// TwitterConfig holds OAuth1 credentials for posting status updates.
type TwitterConfig struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// Enabled reports whether all four credentials are set.
func (t TwitterConfig) Enabled() bool {
	return t.APIKey != "" && t.APISecret != "" && t.AccessToken != "" && t.AccessSecret != ""
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		URL:            DefaultURL,
		UserAgent:      DefaultUserAgent,
		AcceptCharset:  DefaultAcceptCharset,
		AcceptLanguage: DefaultAcceptLanguage,
		Timeout:        DefaultTimeout,
		MaxBodySize:    DefaultMaxBodySize,
		DataDir:        XDGDataDir(),
		History:        true,
		LogLevel:       DefaultLogLevel,
		LogFormat:      DefaultLogFormat,
		HTTPAddr:       DefaultHTTPAddr,
		PollInterval:   DefaultPollInterval,
	}
}

// XDGDataDir returns the XDG data directory for typhoon.
// On Linux: ~/.local/share/typhoon
// On macOS: ~/Library/Application Support/typhoon
// On Windows: %LOCALAPPDATA%\typhoon
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvURL)); v != "" {
		c.URL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		c.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvTelegramBotToken); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv(EnvTelegramChatID); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv(EnvTwitterAPIKey); v != "" {
		c.Twitter.APIKey = v
	}
	if v := os.Getenv(EnvTwitterAPISecret); v != "" {
		c.Twitter.APISecret = v
	}
	if v := os.Getenv(EnvTwitterAccessToken); v != "" {
		c.Twitter.AccessToken = v
	}
	if v := os.Getenv(EnvTwitterAccessSecret); v != "" {
		c.Twitter.AccessSecret = v
	}
}

// EffectiveMaxBodySize returns MaxBodySize, or the default when it is 0.
func (c *Config) EffectiveMaxBodySize() int64 {
	if c.MaxBodySize == 0 {
		return DefaultMaxBodySize
	}
	return c.MaxBodySize
}

// Validate checks if the configuration is valid and returns the first problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return ErrEmptyURL
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}

	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return ErrInvalidLogFormat
	}

	return nil
}
