package config

import (
	"errors"
	"fmt"
	"time"
)

// DefaultMaxBodyBytes bounds a submitted fingerprint document.
const DefaultMaxBodyBytes int64 = 1 << 20

// DefaultServerConfig returns the default server configuration.
// These are sensible defaults for local development and can be overridden
// via flags, environment variables, or config files.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:           "127.0.0.1",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		HandlerTimeout: 15 * time.Second,
	}
}

// DefaultIngestConfig returns the default ingestion configuration.
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		StrictTypes:  false,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// Validate checks the server configuration.
func (c ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d: must be between 1 and 65535", c.Port)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.HandlerTimeout < 0 {
		return errors.New("timeouts must be >= 0")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return errors.New("tls_cert_file and tls_key_file must be set together")
	}
	return nil
}

// TLSEnabled reports whether the server listens with TLS.
func (c ServerConfig) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// Validate checks the ingestion configuration.
func (c IngestConfig) Validate() error {
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes %d: must be positive", c.MaxBodyBytes)
	}
	return nil
}
