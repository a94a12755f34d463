// Package config manages the persisted sarex configuration.
//
// The configuration lives in $HOME/.sarex/config.json and is created with
// defaults on first use. Environment variables (optionally from a .env file
// in the working directory) override persisted values at load time only.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	dirName    = ".sarex"
	fileName   = "config.json"
	storeName  = "store"
	envHome    = "SAREX_HOME"
	envStore   = "SAREX_STORE"
	envDot     = "SAREX_DOT"
	envLevel   = "SAREX_LOG_LEVEL"
	envFormat  = "SAREX_LOG_FORMAT"
	defaultLvl = "info"
	defaultFmt = "text"
)

// Config is the persisted sarex configuration.
type Config struct {
	// StorePath is the directory of the local project store.
	StorePath string `json:"store_path"`

	// ProjectID is the currently selected project, empty if none.
	ProjectID string `json:"project_id,omitempty"`

	// DotBinary is the Graphviz program used for png output.
	DotBinary string `json:"dot_binary,omitempty"`

	LogLevel  string `json:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty"`
}

// Dir returns the sarex configuration directory, creating it if needed.
// SAREX_HOME replaces the user's home directory when set.
func Dir() (string, error) {
	home := strings.TrimSpace(os.Getenv(envHome))
	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
	}

	dir := filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	return dir, nil
}

// Path returns the path of the configuration file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// Default returns the configuration used when none has been saved.
func Default(dir string) *Config {
	return &Config{
		StorePath: filepath.Join(dir, storeName),
		LogLevel:  defaultLvl,
		LogFormat: defaultFmt,
	}
}

// Read returns the persisted configuration, writing the default one first
// if the file does not exist yet. Environment overrides are not applied.
func Read() (*Config, error) {
	p, err := Path()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		c := Default(filepath.Dir(p))
		if err := Write(c); err != nil {
			return nil, err
		}
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	c := Default(filepath.Dir(p))
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", p, err)
	}
	return c, nil
}

// Write persists c.
func Write(c *Config) error {
	p, err := Path()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Load reads the persisted configuration and applies environment overrides.
// A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	c, err := Read()
	if err != nil {
		return nil, err
	}
	c.applyEnv()
	return c, nil
}

func (c *Config) applyEnv() {
	c.StorePath = firstNonEmpty(strings.TrimSpace(os.Getenv(envStore)), c.StorePath)
	c.DotBinary = firstNonEmpty(strings.TrimSpace(os.Getenv(envDot)), c.DotBinary)
	c.LogLevel = firstNonEmpty(strings.TrimSpace(os.Getenv(envLevel)), c.LogLevel, defaultLvl)
	c.LogFormat = firstNonEmpty(strings.TrimSpace(os.Getenv(envFormat)), c.LogFormat, defaultFmt)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
