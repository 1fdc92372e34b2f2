// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/load.go
// Summary: Loads configuration from embedded defaults, the YAML file and
//          TEXELSHELL_* environment overrides.
// Notes: A file without config_version is rejected. Environment keys use
//        underscores for nesting, e.g. TEXELSHELL_LOGGING_LEVEL.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/framegrace/texelshell/defaults"
)

// Default returns the embedded defaults.
func Default() (Config, error) {
	v, err := newViper()
	if err != nil {
		return Config{}, err
	}
	return decode(v)
}

// Load reads configuration from path. If path is empty, DefaultPath is used.
// A missing file is not an error.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}
	v, err := newViper()
	if err != nil {
		return Config{}, err
	}

	file := viper.New()
	file.SetConfigFile(path)
	file.SetConfigType("yaml")
	switch err := file.ReadInConfig(); {
	case err == nil:
		if !file.IsSet("config_version") {
			return Config{}, fmt.Errorf("%s: config_version is required; expected %d", path, CurrentConfigVersion)
		}
		if got := file.GetInt("config_version"); got != CurrentConfigVersion {
			return Config{}, fmt.Errorf("%s: unsupported config_version %d; expected %d", path, got, CurrentConfigVersion)
		}
		if err := v.MergeConfigMap(file.AllSettings()); err != nil {
			return Config{}, fmt.Errorf("merge %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist), isNotFound(err):
	default:
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	return decode(v)
}

func isNotFound(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf)
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults.Config())); err != nil {
		return nil, fmt.Errorf("read embedded defaults: %w", err)
	}
	v.SetEnvPrefix("TEXELSHELL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := expandConfigEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that have no sensible fallback.
func Validate(cfg Config) error {
	switch cfg.Shell.Integration {
	case IntegrationAuto, IntegrationExplicit, IntegrationHeuristic:
	default:
		return fmt.Errorf("shell.integration must be one of auto, integration, heuristic; got %q", cfg.Shell.Integration)
	}
	if cfg.Terminal.Cols <= 0 || cfg.Terminal.Rows <= 0 {
		return fmt.Errorf("terminal size must be positive; got %dx%d", cfg.Terminal.Cols, cfg.Terminal.Rows)
	}
	if cfg.Terminal.HistoryLines < 0 || cfg.Terminal.MaxBlocks < 0 || cfg.History.MaxEntries < 0 {
		return fmt.Errorf("history and block limits must not be negative")
	}
	if cfg.Execution.LockTimeout <= 0 || cfg.Execution.FinalizeTimeout <= 0 {
		return fmt.Errorf("execution timeouts must be positive")
	}
	if _, err := parseLevel(cfg.Logging.Level); err != nil {
		return err
	}
	return nil
}

func expandConfigEnv(cfg *Config) error {
	state, err := StateDir()
	if err != nil {
		return err
	}
	expand := func(value string) string {
		if value == "" {
			return value
		}
		if value == "~" || strings.HasPrefix(value, "~/") {
			if home, err := os.UserHomeDir(); err == nil {
				value = filepath.Join(home, strings.TrimPrefix(value, "~"))
			}
		}
		return os.Expand(value, func(key string) string {
			if key == "TEXELSHELL_STATE" {
				return state
			}
			if val, ok := os.LookupEnv(key); ok {
				return val
			}
			return "$" + key
		})
	}
	cfg.Shell.Path = expand(cfg.Shell.Path)
	cfg.History.Database = expand(cfg.History.Database)
	cfg.Logging.File = expand(cfg.Logging.File)
	return nil
}
