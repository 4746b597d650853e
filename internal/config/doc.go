// Package config provides configuration structures and utilities for typhoon.
// It defines the source page and request headers, storage locations, logging
// options, the serve-mode polling settings, and notifier credentials.
package config
