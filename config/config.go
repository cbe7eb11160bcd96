// Package config handles klingwallet runtime configuration: defaults, an
// optional key = value config file, and validation. Nothing here touches
// key material; the config only carries operational settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/Klingon-tech/klingwallet/internal/chain"
)

// Config holds runtime settings. Command-line flags override file values,
// which override defaults.
type Config struct {
	// Network is the default network symbol for commands that take none.
	Network string `conf:"network"`

	// GapLimit and MinAddresses drive address discovery.
	GapLimit     uint32 `conf:"gap_limit"`
	MinAddresses uint32 `conf:"min_addresses"`

	// FeeRate is the default fee rate in smallest unit per vbyte.
	FeeRate uint64 `conf:"fee_rate"`

	// KeystoreDir is where sealed wallets are stored.
	KeystoreDir string `conf:"keystore_dir"`

	Log LogConfig
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	JSON  bool   `conf:"log.json"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Network:      "BTC",
		GapLimit:     20,
		MinAddresses: 20,
		FeeRate:      1,
		KeystoreDir:  DefaultKeystoreDir(),
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultKeystoreDir returns the platform-appropriate keystore location.
func DefaultKeystoreDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingwallet"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Klingwallet")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Klingwallet")
		}
		return filepath.Join(home, "Klingwallet")
	default:
		return filepath.Join(home, ".klingwallet")
	}
}

// DefaultFilePath returns the default config file location.
func DefaultFilePath() string {
	return filepath.Join(DefaultKeystoreDir(), "klingwallet.conf")
}

// Validate checks the config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if _, ok := chain.Get(cfg.Network); !ok {
		return fmt.Errorf("unknown network %q", cfg.Network)
	}
	if cfg.GapLimit == 0 {
		return fmt.Errorf("gap_limit must be positive")
	}
	if cfg.FeeRate == 0 {
		return fmt.Errorf("fee_rate must be positive")
	}
	switch cfg.Log.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of trace, debug, info, warn, error")
	}
	return nil
}
