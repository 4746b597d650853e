package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so callers can use
// errors.Is() while still printing a readable message.
var (
	// ErrEmptyURL is returned when no source page URL is configured.
	ErrEmptyURL = errors.New("invalid url: source page url must not be empty")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to fall back to DefaultMaxBodySize.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidPollInterval is returned when the serve-mode interval is not positive.
	ErrInvalidPollInterval = errors.New("invalid poll interval: must be positive")

	// ErrInvalidLogFormat is returned for log formats other than json and text.
	ErrInvalidLogFormat = errors.New("invalid log format: must be json or text")
)
