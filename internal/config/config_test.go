package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig documents the defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default URL is the DGPA page", func(t *testing.T) {
		t.Parallel()
		if cfg.URL != "https://www.dgpa.gov.tw/typh/daily/nds.html" {
			t.Errorf("expected DGPA url, got '%s'", cfg.URL)
		}
	})

	t.Run("default headers", func(t *testing.T) {
		t.Parallel()
		if cfg.UserAgent != "Mozilla/5.0" {
			t.Errorf("UserAgent = %q", cfg.UserAgent)
		}
		if cfg.AcceptCharset != "big5,utf-8" {
			t.Errorf("AcceptCharset = %q", cfg.AcceptCharset)
		}
		if cfg.AcceptLanguage != "zh-TW,zh;q=0.9,en-US;q=0.8,en;q=0.7" {
			t.Errorf("AcceptLanguage = %q", cfg.AcceptLanguage)
		}
	})

	t.Run("default Timeout is 30 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout to be 30s, got %v", cfg.Timeout)
		}
	})

	t.Run("default DataDir ends with app name", func(t *testing.T) {
		t.Parallel()
		if filepath.Base(cfg.DataDir) != AppName {
			t.Errorf("expected DataDir to end with %q, got %q", AppName, cfg.DataDir)
		}
	})

	t.Run("history enabled by default", func(t *testing.T) {
		t.Parallel()
		if !cfg.History {
			t.Error("expected History to be true")
		}
	})
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr error
	}{
		{"defaults are valid", func(c *Config) {}, nil},
		{"empty url", func(c *Config) { c.URL = "  " }, ErrEmptyURL},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }, ErrInvalidPollInterval},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, ErrInvalidLogFormat},
		{"uppercase log format", func(c *Config) { c.LogFormat = "JSON" }, nil},
		{"malformed url is left to the fetcher", func(c *Config) { c.URL = "://bad" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEffectiveMaxBodySize(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.MaxBodySize = 0
	if got := cfg.EffectiveMaxBodySize(); got != DefaultMaxBodySize {
		t.Errorf("EffectiveMaxBodySize() = %d, want %d", got, DefaultMaxBodySize)
	}
	cfg.MaxBodySize = 1024
	if got := cfg.EffectiveMaxBodySize(); got != 1024 {
		t.Errorf("EffectiveMaxBodySize() = %d, want 1024", got)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte("source: [unclosed"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("applies all sections", func(t *testing.T) {
		t.Parallel()
		content := `
source:
  url: http://127.0.0.1:9999/nds.html
  userAgent: test-agent
  timeout: 5s
  maxBodySize: 2048
dataDir: /tmp/typhoon-test
history: false
log:
  level: debug
  format: json
serve:
  addr: ":9090"
  interval: 1m
filter: "suspended"
notify:
  telegramChatId: "12345"
`
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("LoadConfigFile() error = %v", err)
		}

		cfg := NewConfig()
		if err := cfg.Apply(cf); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}

		if cfg.URL != "http://127.0.0.1:9999/nds.html" {
			t.Errorf("URL = %q", cfg.URL)
		}
		if cfg.UserAgent != "test-agent" {
			t.Errorf("UserAgent = %q", cfg.UserAgent)
		}
		if cfg.AcceptCharset != DefaultAcceptCharset {
			t.Errorf("AcceptCharset should keep default, got %q", cfg.AcceptCharset)
		}
		if cfg.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v", cfg.Timeout)
		}
		if cfg.MaxBodySize != 2048 {
			t.Errorf("MaxBodySize = %d", cfg.MaxBodySize)
		}
		if cfg.DataDir != "/tmp/typhoon-test" {
			t.Errorf("DataDir = %q", cfg.DataDir)
		}
		if cfg.History {
			t.Error("History should be false")
		}
		if cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
			t.Errorf("log = %s/%s", cfg.LogLevel, cfg.LogFormat)
		}
		if cfg.HTTPAddr != ":9090" || cfg.PollInterval != time.Minute {
			t.Errorf("serve = %s/%v", cfg.HTTPAddr, cfg.PollInterval)
		}
		if cfg.Filter != "suspended" {
			t.Errorf("Filter = %q", cfg.Filter)
		}
		if cfg.Telegram.ChatID != "12345" {
			t.Errorf("Telegram.ChatID = %q", cfg.Telegram.ChatID)
		}
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		err := cfg.Apply(&File{Source: SourceFile{Timeout: "soon"}})
		if err == nil || !strings.Contains(err.Error(), "source.timeout") {
			t.Errorf("expected source.timeout error, got %v", err)
		}
	})
}

func TestLoad_ExplicitMissingPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	if err := os.WriteFile(path, []byte("source:\n  url: http://from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvURL, "http://from-env")
	t.Setenv(EnvDataDir, "/tmp/env-dir")
	t.Setenv(EnvTelegramBotToken, "token")
	t.Setenv(EnvTelegramChatID, "chat")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.URL != "http://from-env" {
		t.Errorf("URL = %q, want env override", cfg.URL)
	}
	if cfg.DataDir != "/tmp/env-dir" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.ConfigFilePath != path {
		t.Errorf("ConfigFilePath = %q, want %q", cfg.ConfigFilePath, path)
	}
	if !cfg.Telegram.Enabled() {
		t.Error("expected telegram to be enabled")
	}
	if cfg.Twitter.Enabled() {
		t.Error("expected twitter to be disabled")
	}
}
