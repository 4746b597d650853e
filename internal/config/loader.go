package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".typhoon"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .typhoon configuration file.
// Every field is optional; unset fields keep their current value.
type File struct {
	Source  SourceFile `yaml:"source,omitempty"`
	DataDir string     `yaml:"dataDir,omitempty"`
	History *bool      `yaml:"history,omitempty"`
	Log     LogFile    `yaml:"log,omitempty"`
	Serve   ServeFile  `yaml:"serve,omitempty"`
	Filter  string     `yaml:"filter,omitempty"`
	Notify  NotifyFile `yaml:"notify,omitempty"`
}

// SourceFile configures the fetched page and request headers.
type SourceFile struct {
	URL            string `yaml:"url,omitempty"`
	UserAgent      string `yaml:"userAgent,omitempty"`
	AcceptCharset  string `yaml:"acceptCharset,omitempty"`
	AcceptLanguage string `yaml:"acceptLanguage,omitempty"`
	Timeout        string `yaml:"timeout,omitempty"`
	MaxBodySize    int64  `yaml:"maxBodySize,omitempty"`
}

// LogFile configures logging.
type LogFile struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// ServeFile configures serve mode.
type ServeFile struct {
	Addr     string `yaml:"addr,omitempty"`
	Interval string `yaml:"interval,omitempty"`
}

// NotifyFile configures notifiers. Secrets are better kept in the environment.
type NotifyFile struct {
	TelegramChatID string `yaml:"telegramChatId,omitempty"`
}

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .typhoon in the current directory
// 3. Look for .typhoon in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// Apply merges the file's settings into the config.
func (c *Config) Apply(cf *File) error {
	if cf == nil {
		return nil
	}

	if cf.Source.URL != "" {
		c.URL = cf.Source.URL
	}
	if cf.Source.UserAgent != "" {
		c.UserAgent = cf.Source.UserAgent
	}
	if cf.Source.AcceptCharset != "" {
		c.AcceptCharset = cf.Source.AcceptCharset
	}
	if cf.Source.AcceptLanguage != "" {
		c.AcceptLanguage = cf.Source.AcceptLanguage
	}
	if cf.Source.Timeout != "" {
		d, err := time.ParseDuration(cf.Source.Timeout)
		if err != nil {
			return fmt.Errorf("parsing source.timeout: %w", err)
		}
		c.Timeout = d
	}
	if cf.Source.MaxBodySize != 0 {
		c.MaxBodySize = cf.Source.MaxBodySize
	}
	if cf.DataDir != "" {
		c.DataDir = cf.DataDir
	}
	if cf.History != nil {
		c.History = *cf.History
	}
	if cf.Log.Level != "" {
		c.LogLevel = cf.Log.Level
	}
	if cf.Log.Format != "" {
		c.LogFormat = cf.Log.Format
	}
	if cf.Serve.Addr != "" {
		c.HTTPAddr = cf.Serve.Addr
	}
	if cf.Serve.Interval != "" {
		d, err := time.ParseDuration(cf.Serve.Interval)
		if err != nil {
			return fmt.Errorf("parsing serve.interval: %w", err)
		}
		c.PollInterval = d
	}
	if cf.Filter != "" {
		c.Filter = cf.Filter
	}
	if cf.Notify.TelegramChatID != "" {
		c.Telegram.ChatID = cf.Notify.TelegramChatID
	}

	return nil
}

// Load builds the configuration from defaults, the config file and the
// environment. An explicit configPath that does not exist is an error;
// a missing default file is not.
func Load(configPath string) (*Config, error) {
	cfg := NewConfig()

	path := FindConfigFile(configPath)
	if configPath != "" && path == "" {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	}

	if path != "" {
		cf, err := LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := cfg.Apply(cf); err != nil {
			return nil, err
		}
		cfg.ConfigFilePath = path
	}

	cfg.ApplyEnv()

	return cfg, nil
}
