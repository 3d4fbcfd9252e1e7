// Package config reads and writes the project config at .dtf/config.json.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/marcus/dtf/internal/models"
	"golang.org/x/sys/unix"
)

const (
	configFile = ".dtf/config.json"
	lockFile   = ".dtf/config.json.lock"
	logFile    = ".dtf/dtf.log"
)

// Defaults
const (
	DefaultRefreshInterval = time.Second
	DefaultBusQueueSize    = 64
)

// Environment overrides
const (
	EnvDebuggerURL = "DTF_DEBUGGER_URL"
	EnvDebug       = "DTF_DEBUG"
)

// Path returns the config file path under baseDir.
func Path(baseDir string) string {
	return filepath.Join(baseDir, configFile)
}

// Dir returns the .dtf directory under baseDir.
func Dir(baseDir string) string {
	return filepath.Dir(Path(baseDir))
}

// LogPath returns the dashboard log file path under baseDir.
func LogPath(baseDir string) string {
	return filepath.Join(baseDir, logFile)
}

// Load reads the config from disk. A missing file yields the defaults:
// request blocking on and no patterns.
func Load(baseDir string) (*models.Config, error) {
	data, err := os.ReadFile(Path(baseDir))
	if err != nil {
		if os.IsNotExist(err) {
			return &models.Config{RequestBlockingEnabled: true}, nil
		}
		return nil, err
	}

	cfg := models.Config{RequestBlockingEnabled: true}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configFile, err)
	}
	return &cfg, nil
}

// Save writes the config to disk using atomic write (temp file + rename)
func Save(baseDir string, cfg *models.Config) error {
	configPath := Path(baseDir)
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "config-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, configPath)
}

// withConfigLock serializes access to config.json using flock
func withConfigLock(baseDir string, fn func() error) error {
	lockPath := filepath.Join(baseDir, lockFile)
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		return fmt.Errorf("lock config: %w", err)
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN)

	return fn()
}

// Update loads the config, applies fn and saves it, all under the config lock.
// Nothing is written when fn returns an error.
func Update(baseDir string, fn func(cfg *models.Config) error) error {
	return withConfigLock(baseDir, func() error {
		cfg, err := Load(baseDir)
		if err != nil {
			return err
		}
		if err := fn(cfg); err != nil {
			return err
		}
		return Save(baseDir, cfg)
	})
}

// SetDebuggerURL stores the default debugger endpoint
func SetDebuggerURL(baseDir, url string) error {
	return Update(baseDir, func(cfg *models.Config) error {
		cfg.DebuggerURL = url
		return nil
	})
}

// SetPreserveLog sets whether navigations keep the network log
func SetPreserveLog(baseDir string, preserve bool) error {
	return Update(baseDir, func(cfg *models.Config) error {
		cfg.PreserveLog = preserve
		return nil
	})
}

// SetRequestBlockingEnabled turns request blocking on or off
func SetRequestBlockingEnabled(baseDir string, enabled bool) error {
	return Update(baseDir, func(cfg *models.Config) error {
		cfg.RequestBlockingEnabled = enabled
		return nil
	})
}

// SetBlockedPatterns replaces the stored blocking patterns
func SetBlockedPatterns(baseDir string, patterns []models.BlockedPattern) error {
	return Update(baseDir, func(cfg *models.Config) error {
		cfg.BlockedPatterns = append([]models.BlockedPattern(nil), patterns...)
		return nil
	})
}

// GetBlockedPatterns returns the stored blocking patterns and whether
// blocking is enabled
func GetBlockedPatterns(baseDir string) ([]models.BlockedPattern, bool, error) {
	cfg, err := Load(baseDir)
	if err != nil {
		return nil, false, err
	}
	return cfg.BlockedPatterns, cfg.RequestBlockingEnabled, nil
}

// RefreshInterval parses the configured refresh interval, falling back to
// the default when unset or invalid.
func RefreshInterval(cfg *models.Config) time.Duration {
	if cfg.RefreshInterval == "" {
		return DefaultRefreshInterval
	}
	d, err := time.ParseDuration(cfg.RefreshInterval)
	if err != nil || d <= 0 {
		return DefaultRefreshInterval
	}
	return d
}

// BusQueueSize returns the configured per-subscriber queue size.
func BusQueueSize(cfg *models.Config) int {
	if cfg.BusQueueSize <= 0 {
		return DefaultBusQueueSize
	}
	return cfg.BusQueueSize
}

// ApplyEnv overrides cfg from the environment and reports whether debug
// logging was requested.
func ApplyEnv(cfg *models.Config) (debug bool) {
	if u := os.Getenv(EnvDebuggerURL); u != "" {
		cfg.DebuggerURL = u
	}
	debug, _ = strconv.ParseBool(os.Getenv(EnvDebug))
	return debug
}
