// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"sync"
)

// configDirOverride allows tests to override the config directory.
// This is necessary because os.UserHomeDir() doesn't reliably respect
// the HOME environment variable on all platforms (e.g., macOS in CI).
var configDirOverride string

var (
	loadMu                 sync.Mutex
	cached                 *Config
	configFilePathOverride string
)

// Reset clears test overrides and the load cache. Call from test cleanup
// to restore defaults.
func Reset() {
	loadMu.Lock()
	defer loadMu.Unlock()
	configDirOverride = ""
	configFilePathOverride = ""
	cached = nil
}

// SetConfigFilePathOverride forces Load to read a specific config file,
// typically from the --config flag. Clears the load cache.
func SetConfigFilePathOverride(path string) {
	loadMu.Lock()
	defer loadMu.Unlock()
	configFilePathOverride = path
	cached = nil
}

// Load returns the process-wide configuration, loading it on first use and
// caching the result. Use NewProvider for cache-free loading with explicit
// options.
func Load() (*Config, error) {
	loadMu.Lock()
	defer loadMu.Unlock()

	if cached != nil {
		return cached, nil
	}

	cfg, _, err := loadWithOptions(context.Background(), LoadOptions{
		ConfigFilePath: configFilePathOverride,
	})
	if err != nil {
		return nil, err
	}

	cached = cfg
	return cfg, nil
}

// SetConfigDirOverride sets a custom config directory path.
// This is primarily intended for testing to bypass os.UserHomeDir() which
// doesn't reliably respect the HOME env var on all platforms (e.g., macOS in CI).
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}
