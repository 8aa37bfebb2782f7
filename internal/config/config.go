// Package config loads simfs settings from simfs.yaml, a .env file and the
// process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"simfs/internal/compress"
	"simfs/internal/logging"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

const (
	ConfigFileName = "simfs.yaml"
	EnvFileName    = ".env"
)

// Environment variables that override the config file.
const (
	EnvState    = "SIMFS_STATE"
	EnvLogLevel = "SIMFS_LOG_LEVEL"
	EnvCompress = "SIMFS_COMPRESS"
)

type Config struct {
	StateFile   string `yaml:"state_file"`
	Compress    bool   `yaml:"compress"`
	LogLevel    string `yaml:"log_level"`
	BackupCount int    `yaml:"backup_count"`
	Prompt      string `yaml:"prompt"`
}

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	return &Config{
		StateFile:   "simfs.json",
		Compress:    true,
		LogLevel:    "warn",
		BackupCount: 5,
		Prompt:      "(%s)> ",
	}
}

// Load reads path on top of the defaults. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve builds the effective configuration. An explicit path must exist;
// with an empty path, simfs.yaml in dir is used if present. Variables from
// dir/.env apply unless the process environment already sets them.
func Resolve(dir, path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = filepath.Join(dir, ConfigFileName)
	}

	cfg, err := Load(path)
	switch {
	case errors.Is(err, ErrConfigNotFound) && !explicit:
		cfg = Default()
	case err != nil:
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	env, err := readEnvFile(filepath.Join(dir, EnvFileName))
	if err != nil {
		return nil, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := env[key]
		return v, ok
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readEnvFile(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return env, nil
}

// ApplyEnv overrides fields from the SIMFS_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvState); ok && v != "" {
		c.StateFile = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvCompress); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvCompress, err)
		}
		c.Compress = b
	}
	return nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.BackupCount < 0 {
		return fmt.Errorf("backup_count must not be negative, got %d", c.BackupCount)
	}
	if c.StateFile == "" {
		return errors.New("state_file must not be empty")
	}
	if err := validatePrompt(c.Prompt); err != nil {
		return fmt.Errorf("prompt: %w", err)
	}
	return nil
}

// validatePrompt accepts a format with exactly one %s for the working
// directory. %% is allowed; any other verb is not.
func validatePrompt(format string) error {
	rest := strings.ReplaceAll(format, "%%", "")
	if n := strings.Count(rest, "%s"); n != 1 {
		return fmt.Errorf("%q must contain exactly one %%s, found %d", format, n)
	}
	if strings.Count(rest, "%") != 1 {
		return fmt.Errorf("%q may only use %%s and %%%%", format)
	}
	return nil
}

// Level returns the parsed log level. Call Validate first.
func (c *Config) Level() logging.LogLevel {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return logging.LevelInfo
	}
	return level
}

// Codec returns the snapshot codec selected by Compress.
func (c *Config) Codec() compress.Codec {
	if c.Compress {
		return &compress.Zstd{}
	}
	return compress.Identity{}
}
