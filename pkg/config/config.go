// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/vulntor/fpintake/pkg/storage"
)

// Manager handles loading and accessing application configuration.
type Manager struct {
	mu            sync.RWMutex
	koanfInstance *koanf.Koanf
	currentConfig Config
	sources       []ConfigSource
}

// NewManager creates a new Manager holding the default configuration.
func NewManager() *Manager {
	return &Manager{
		koanfInstance: koanf.New("."),
		currentConfig: DefaultConfig(),
	}
}

// DefaultConfig returns a new Config struct populated with hardcoded default values.
func DefaultConfig() Config {
	return Config{
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 5,
		},
		Server:    DefaultServerConfig(),
		Storage:   storage.DefaultConfig(),
		Ingest:    DefaultIngestConfig(),
		Retrieval: RetrievalConfig{CacheTTL: 10 * time.Minute},
	}
}

// Load loads configuration from defaults, the config file, FPINTAKE_*
// environment variables and flags, in that order of precedence.
func (m *Manager) Load(flags *pflag.FlagSet, customConfigFilePath string) error {
	debug := false
	if flags != nil {
		if f := flags.Lookup("debug"); f != nil && f.Value.String() == "true" {
			debug = true
		}
	}
	return m.LoadWithSources(DefaultSources(customConfigFilePath, flags, debug))
}

// LoadWithSources loads the given sources by ascending priority into a fresh
// koanf instance and replaces the current configuration. The sources are
// kept for Reload.
func (m *Manager) LoadWithSources(sources []ConfigSource) error {
	ordered := make([]ConfigSource, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})

	k := koanf.New(".")
	for _, src := range ordered {
		if err := src.Load(k); err != nil {
			return fmt.Errorf("source %s: %w", src.Name(), err)
		}
	}

	var newCfg Config
	if err := k.UnmarshalWithConf("", &newCfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("error unmarshaling final config: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.koanfInstance = k
	m.currentConfig = newCfg
	m.sources = ordered
	return nil
}

// Reload re-reads the sources of the last load and returns the new
// configuration. On error the current configuration is kept.
func (m *Manager) Reload() (Config, error) {
	m.mu.RLock()
	sources := m.sources
	m.mu.RUnlock()

	if len(sources) == 0 {
		return Config{}, errors.New("config not loaded")
	}
	if err := m.LoadWithSources(sources); err != nil {
		return Config{}, err
	}
	return m.Get(), nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentConfig
}

// String returns the raw value of a config key, for diagnostics.
func (m *Manager) String(key string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.koanfInstance.String(key)
}

// ConfigFile returns the path of the loaded config file, if any.
func (m *Manager) ConfigFile() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, src := range m.sources {
		if fs, ok := src.(*FileSource); ok {
			return fs.Path
		}
	}
	return ""
}

// DefaultConfigAsMap converts DefaultConfig to a flat map for koanf's
// confmap provider, so koanf knows every key.
func DefaultConfigAsMap() map[string]interface{} {
	def := DefaultConfig()
	return map[string]interface{}{
		// Log configuration
		"log.level":       def.Log.Level,
		"log.format":      def.Log.Format,
		"log.file":        def.Log.File,
		"log.max_size_mb": def.Log.MaxSizeMB,
		"log.max_backups": def.Log.MaxBackups,

		// Server configuration
		"server.addr":            def.Server.Addr,
		"server.port":            def.Server.Port,
		"server.tls_cert_file":   def.Server.TLSCertFile,
		"server.tls_key_file":    def.Server.TLSKeyFile,
		"server.read_timeout":    def.Server.ReadTimeout,
		"server.write_timeout":   def.Server.WriteTimeout,
		"server.handler_timeout": def.Server.HandlerTimeout,

		// Storage configuration
		"storage.driver":            def.Storage.Driver,
		"storage.path":              def.Storage.Path,
		"storage.dsn":               def.Storage.DSN,
		"storage.max_open_conns":    def.Storage.MaxOpenConns,
		"storage.max_idle_conns":    def.Storage.MaxIdleConns,
		"storage.conn_max_lifetime": def.Storage.ConnMaxLifetime,

		// Ingest configuration
		"ingest.strict_types":   def.Ingest.StrictTypes,
		"ingest.max_body_bytes": def.Ingest.MaxBodyBytes,

		// Retrieval configuration
		"retrieval.cache_ttl": def.Retrieval.CacheTTL,
	}
}

// BindFlags defines the global flags that feed configuration.
func BindFlags(flags *pflag.FlagSet) {
	var debug bool
	flags.BoolVar(&debug, "debug", false, "Enable debug logging")
}
