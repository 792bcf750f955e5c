// Package config loads timevault settings from <ledger>/config.yaml with
// TIMEVAULT_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/illarion/timevault/internal/crypto"
	"github.com/illarion/timevault/internal/logging"
)

const (
	FileName = "config.yaml"

	// DefaultProgramID is the address the vault program is deployed under
	DefaultProgramID = "FP3Dz4vWctJg1kvx3DkuRDT1ToGBoRRegdrjxmEeW7GE"
	// DefaultLamportsPerByte matches the usual rent rate per byte-year
	DefaultLamportsPerByte = 3480
)

// Environment overrides
const (
	EnvProgramID       = "TIMEVAULT_PROGRAM_ID"
	EnvLamportsPerByte = "TIMEVAULT_LAMPORTS_PER_BYTE"
	EnvLogLevel        = "TIMEVAULT_LOG_LEVEL"
	EnvLogFormat       = "TIMEVAULT_LOG_FORMAT"
	EnvIdentity        = "TIMEVAULT_IDENTITY"
)

// Config represents the ledger configuration file
type Config struct {
	ProgramID       string `yaml:"program_id" description:"Address the vault program runs under"`
	LamportsPerByte uint64 `yaml:"lamports_per_byte" description:"Allocation deposit rate per byte" default:"3480"`
	LogLevel        string `yaml:"log_level" description:"debug, info, warn or error" default:"info"`
	LogFormat       string `yaml:"log_format" description:"text or json" default:"text"`
	DefaultIdentity string `yaml:"default_identity" description:"Identity used when a command omits one"`
}

// Default returns the default configuration
func Default() Config {
	return Config{
		ProgramID:       DefaultProgramID,
		LamportsPerByte: DefaultLamportsPerByte,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load reads <dir>/config.yaml, fills in defaults for missing fields and
// applies environment overrides. A missing file yields the defaults. An
// explicit lamports_per_byte of 0 is kept and disables allocation deposits.
func Load(dir string) (Config, error) {
	defaults := Default()
	cfg := defaults

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return defaults, fmt.Errorf("failed to parse config file %s: %w", filepath.Join(dir, FileName), err)
		}
	}

	if cfg.ProgramID == "" {
		cfg.ProgramID = defaults.ProgramID
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = defaults.LogFormat
	}

	if v := os.Getenv(EnvProgramID); v != "" {
		cfg.ProgramID = v
	}
	if v := os.Getenv(EnvLamportsPerByte); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("%s: invalid value %q", EnvLamportsPerByte, v)
		}
		cfg.LamportsPerByte = n
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv(EnvIdentity); v != "" {
		cfg.DefaultIdentity = v
	}

	return cfg, cfg.Validate()
}

// Save writes cfg to <dir>/config.yaml
func Save(dir string, cfg Config) error {
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, FileName), data, 0600)
}

// Validate checks that every field is usable
func (c Config) Validate() error {
	if _, err := c.ProgramAddress(); err != nil {
		return fmt.Errorf("program_id: %w", err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log_format: unknown format %q", c.LogFormat)
	}
	return nil
}

// ProgramAddress parses ProgramID
func (c Config) ProgramAddress() (crypto.Address, error) {
	return crypto.ParseAddress(c.ProgramID)
}
