package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "freshpots"
	configFile = "config.yaml"

	// PathEnv overrides the config file location
	PathEnv = "FRESHPOTS_CONFIG"

	fileHeader = `# FreshPots configuration
# Remembered pots and client preferences. Command-line flags take
# precedence over these values.

`
)

var (
	loadOnce sync.Once
	loaded   *Registry
	loadErr  error

	// saveMu serializes writers within the process
	saveMu sync.Mutex
)

// GetConfigDir returns the directory holding the config file: the
// directory of $FRESHPOTS_CONFIG when set, else freshpots under the user
// config directory ($XDG_CONFIG_HOME or ~/.config on Linux).
func GetConfigDir() (string, error) {
	if path := os.Getenv(PathEnv); path != "" {
		return filepath.Dir(path), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(base, appName), nil
}

// GetConfigPath returns the full path to the configuration file.
func GetConfigPath() (string, error) {
	if path := os.Getenv(PathEnv); path != "" {
		return path, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// LoadRegistry loads the registry from the default path, once per process.
func LoadRegistry() (*Registry, error) {
	loadOnce.Do(func() {
		path, err := GetConfigPath()
		if err != nil {
			loadErr = err
			return
		}
		loaded, loadErr = LoadFile(path)
	})
	return loaded, loadErr
}

// LoadFile reads a registry from path. A missing file yields the defaults;
// missing sections are filled in.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if reg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", reg.Version, CurrentVersion)
	}

	if reg.Pots == nil {
		reg.Pots = make(map[string]*Pot)
	}
	if reg.Preferences == nil {
		reg.Preferences = DefaultPreferences()
	}
	reg.Preferences.fillDefaults()
	return &reg, nil
}

// Save writes the registry to the default config path.
func (r *Registry) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return r.SaveFile(path)
}

// SaveFile writes the registry to path. The file is replaced by rename so a
// crash never leaves it half written.
func (r *Registry) SaveFile(path string) error {
	saveMu.Lock()
	defer saveMu.Unlock()

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, configFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append([]byte(fileHeader), data...)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

// CreateDefaultConfig writes a config file holding the defaults, unless one
// already exists. It returns the path written.
func CreateDefaultConfig(force bool) (string, error) {
	path, err := GetConfigPath()
	if err != nil {
		return "", err
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return path, fmt.Errorf("config file already exists: %s", path)
		}
	}
	return path, NewRegistry().SaveFile(path)
}
