// Package config provides unified configuration loading for dpx.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/dpx/internal/database"
	apperrors "github.com/example/dpx/internal/errors"
	"github.com/example/dpx/internal/scheduler"
	"github.com/example/dpx/internal/task"
)

// Config contains all dpx configuration settings.
type Config struct {
	// Logging sets the verbosity: "warn", "info" (default), "debug" or "trace".
	Logging LoggingConfig `yaml:"logging"`

	Database  database.Config  `yaml:"database"`
	Telegram  TelegramConfig   `yaml:"telegram"`
	Scheduler scheduler.Config `yaml:"scheduler"`

	// Task is the experiment configuration used for every session
	Task task.Config `yaml:"task"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// TelegramConfig configures the bot.
type TelegramConfig struct {
	// Token supports ${VAR} syntax for env vars.
	Token string `yaml:"token"`
	// AdminIDs may export any participant's sessions.
	AdminIDs []int64 `yaml:"admin_ids"`
	// PollTimeout is the long polling timeout in seconds.
	PollTimeout int  `yaml:"poll_timeout"`
	Debug       bool `yaml:"debug"`
}

// String keeps the token out of logs
func (c TelegramConfig) String() string {
	token := ""
	if c.Token != "" {
		token = "(set)"
	}
	return fmt.Sprintf("TelegramConfig{Token:%s, Admins:%d, PollTimeout:%d}", token, len(c.AdminIDs), c.PollTimeout)
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Database: database.Config{
			Driver:  database.DriverSQLite,
			DataDir: "data",
		},
		Telegram: TelegramConfig{PollTimeout: 60},
		Scheduler: scheduler.Config{
			ReapInterval: scheduler.DefaultReapInterval,
			StaleAfter:   scheduler.DefaultStaleAfter,
		},
		Task: task.DefaultConfig(),
	}
}

// Load returns the defaults, overlaid with path when it is not empty,
// then with environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.ConfigInvalid(err.Error()), "parsing config file")
	}

	cfg.Telegram.Token = expandEnvVars(cfg.Telegram.Token)
	cfg.Database.URL = expandEnvVars(cfg.Database.URL)
	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	validLevels := map[string]bool{"": true, "warn": true, "info": true, "debug": true, "trace": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return apperrors.ConfigInvalidf("invalid log level: %s (valid: warn, info, debug, trace)", c.Logging.Level)
	}

	switch c.Database.Driver {
	case "", database.DriverSQLite:
	case database.DriverPostgres:
		if c.Database.URL == "" {
			return apperrors.ConfigInvalid("database url is required for postgres")
		}
	default:
		return apperrors.ConfigInvalidf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Scheduler.ReapInterval < 0 || c.Scheduler.StaleAfter < 0 {
		return apperrors.ConfigInvalid("scheduler durations must be non-negative")
	}
	if c.Telegram.PollTimeout < 0 {
		return apperrors.ConfigInvalidf("poll timeout must be non-negative, got %d", c.Telegram.PollTimeout)
	}

	if err := c.Task.Validate(); err != nil {
		return apperrors.Wrap(err, "task")
	}
	return nil
}

// ValidateBot additionally requires what the bot needs to start.
func (c *Config) ValidateBot() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Telegram.Token == "" {
		return apperrors.ConfigInvalid("TELEGRAM_BOT_TOKEN environment variable is not set")
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Database.DataDir = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("ADMIN_USER_IDS"); v != "" {
		ids, err := parseIDs(v)
		if err != nil {
			return apperrors.ConfigInvalidf("ADMIN_USER_IDS: %v", err)
		}
		cfg.Telegram.AdminIDs = ids
	}
	if v := os.Getenv("DPX_IMAGE_DIR"); v != "" {
		cfg.Task.ImageDir = v
	}
	return nil
}

// parseIDs parses a comma separated list of Telegram user ids
func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
