package api

import (
	"errors"
	"time"
)

// Sentinel errors for configuration validation
var (
	// ErrInvalidTimeout is returned when a timeout value is invalid (negative).
	ErrInvalidTimeout = errors.New("invalid timeout: must be >= 0")

	// ErrInvalidBodyLimit is returned when the body limit is not positive.
	ErrInvalidBodyLimit = errors.New("invalid body limit: must be > 0")
)

// Config holds API-level configuration.
type Config struct {
	// HandlerTimeout is the maximum duration for an API handler to complete,
	// including the storage transaction. A handler that exceeds it returns
	// HTTP 504 Gateway Timeout.
	//
	// It applies only when the request context has no deadline yet, so a
	// shorter deadline set by middleware or the client takes precedence.
	// Zero disables it.
	HandlerTimeout time.Duration

	// MaxBodyBytes bounds the submitted document. Larger bodies get 413.
	MaxBodyBytes int64
}

// DefaultConfig returns the default API configuration.
func DefaultConfig() Config {
	return Config{
		HandlerTimeout: 15 * time.Second,
		MaxBodyBytes:   1 << 20,
	}
}

// Validate checks that the configuration is valid.
func (c Config) Validate() error {
	if c.HandlerTimeout < 0 {
		return ErrInvalidTimeout
	}
	if c.MaxBodyBytes <= 0 {
		return ErrInvalidBodyLimit
	}
	return nil
}
