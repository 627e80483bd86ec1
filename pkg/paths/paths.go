// Package paths locates fpintake's per-user files.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// ConfigFileName is the config file looked up in ConfigDir.
const ConfigFileName = "fpintake.yaml"

// ConfigDir returns the config directory for fpintake.
// Order: XDG_CONFIG_HOME/fpintake, platform-specific fallback.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "fpintake")
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("AppData"); appData != "" {
			return filepath.Join(appData, "fpintake")
		}
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "fpintake")
}

// DefaultConfigFile returns ConfigDir/fpintake.yaml if that file exists,
// and "" otherwise.
func DefaultConfigFile() string {
	path := filepath.Join(ConfigDir(), ConfigFileName)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return ""
	}
	return path
}
