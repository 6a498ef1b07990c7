package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvAddr    = "TRANSPARENCIA_ADDR"
	EnvNoDelay = "TRANSPARENCIA_NO_DELAY"
	EnvSeed    = "TRANSPARENCIA_SEED"
)

// LoadFile overlays the YAML file at path onto c. Keys missing from the
// file keep their current values. A missing file yields ErrConfigNotFound.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return ErrConfigNotFound
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.ConfigFilePath = path
	return nil
}

// ApplyEnv loads envFile when it exists (without overriding variables that
// are already set) and applies the TRANSPARENCIA_* variables to c.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	if addr := os.Getenv(EnvAddr); addr != "" {
		c.Addr = addr
	}

	if raw := os.Getenv(EnvNoDelay); raw != "" {
		noDelay, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvNoDelay, err)
		}
		if noDelay {
			c.DisableDelays()
		}
	}

	if raw := os.Getenv(EnvSeed); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvSeed, err)
		}
		c.Seed = seed
	}

	return nil
}
