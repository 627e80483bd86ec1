// pkg/config/types.go
package config

import (
	"time"

	"github.com/vulntor/fpintake/pkg/storage"
)

// Config is the root configuration structure for fpintake.
type Config struct {
	Log       LogConfig       `description:"Logging configuration" koanf:"log"`
	Server    ServerConfig    `description:"Server configuration" koanf:"server"`
	Storage   storage.Config  `description:"Storage configuration" koanf:"storage"`
	Ingest    IngestConfig    `description:"Ingestion configuration" koanf:"ingest"`
	Retrieval RetrievalConfig `description:"Retrieval configuration" koanf:"retrieval"`
}

// LogConfig holds logging related configuration.
type LogConfig struct {
	Level  string `description:"Log level: debug | info | warn | error" koanf:"level"`
	Format string `description:"Log format: json | text" koanf:"format"`

	// File switches output from stderr to a size-rotated file. SIGUSR1
	// forces a rotation.
	File       string `description:"Log file path (empty: stderr)" koanf:"file"`
	MaxSizeMB  int    `description:"Rotate the log file after this many megabytes" koanf:"max_size_mb"`
	MaxBackups int    `description:"Rotated log files to keep" koanf:"max_backups"`
}

// ServerConfig holds configuration for the HTTP service.
// Used by 'fpintake server start'.
type ServerConfig struct {
	Addr string `description:"Server listen address" koanf:"addr"`
	Port int    `description:"Server listen port" koanf:"port"`

	// TLS is enabled when both files are set. The TLS listener records the
	// negotiated protocol and cipher suite of every connection.
	TLSCertFile string `description:"TLS certificate file" koanf:"tls_cert_file"`
	TLSKeyFile  string `description:"TLS private key file" koanf:"tls_key_file"`

	// HTTP timeouts
	ReadTimeout    time.Duration `description:"HTTP read timeout" koanf:"read_timeout"`
	WriteTimeout   time.Duration `description:"HTTP write timeout" koanf:"write_timeout"`
	HandlerTimeout time.Duration `description:"Per-request handler timeout" koanf:"handler_timeout"`
}

// IngestConfig controls how submitted documents are normalized.
type IngestConfig struct {
	// StrictTypes rejects documents whose values do not fit the field kind
	// with 400 instead of failing in storage with 500.
	StrictTypes  bool  `description:"Reject mistyped fields with 400" koanf:"strict_types"`
	MaxBodyBytes int64 `description:"Maximum request body size in bytes" koanf:"max_body_bytes"`
}

// RetrievalConfig controls fingerprint lookups.
type RetrievalConfig struct {
	CacheTTL time.Duration `description:"Keep rendered fingerprints in memory this long (0 disables)" koanf:"cache_ttl"`
}
