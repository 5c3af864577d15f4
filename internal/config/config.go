// Package config provides YAML-based configuration loading for shoptalk.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the top-level shoptalk configuration, loaded from config.yaml.
// Secret-bearing fields can be overridden from the environment so the YAML
// file stays safe to commit.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	DB         DBConfig         `yaml:"db"`
	Dialog     DialogConfig     `yaml:"dialog"`
	Escalation EscalationConfig `yaml:"escalation"`
	BotHours   BotHoursConfig   `yaml:"bot_hours"`
	Digest     DigestConfig     `yaml:"digest"`
}

// ServerConfig holds HTTP server settings for the webhook and client API.
type ServerConfig struct {
	Port int `yaml:"port" env:"SHOPTALK_PORT"`
}

// DBConfig holds database connection settings. Driver is "mysql" for
// production or "sqlite" for local runs.
type DBConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host" env:"SHOPTALK_DB_HOST"`
	Port     int    `yaml:"port" env:"SHOPTALK_DB_PORT"`
	User     string `yaml:"user" env:"SHOPTALK_DB_USER"`
	Password string `yaml:"password" env:"SHOPTALK_DB_PASSWORD"`
	Database string `yaml:"database" env:"SHOPTALK_DB_NAME"`
	Path     string `yaml:"path"` // sqlite file path
}

// DialogConfig controls the message batching pipeline.
type DialogConfig struct {
	QuietWindowSeconds  int `yaml:"quiet_window_seconds"`
	ReplyTimeoutSeconds int `yaml:"reply_timeout_seconds"`
	Workers             int `yaml:"workers"`
	QueueSize           int `yaml:"queue_size"`
}

// QuietWindow returns the debounce window as a duration.
func (d DialogConfig) QuietWindow() time.Duration {
	return time.Duration(d.QuietWindowSeconds) * time.Second
}

// ReplyTimeout returns the downstream reply deadline as a duration.
func (d DialogConfig) ReplyTimeout() time.Duration {
	return time.Duration(d.ReplyTimeoutSeconds) * time.Second
}

// EscalationConfig holds the keyword hand-off trigger settings.
type EscalationConfig struct {
	Enabled bool     `yaml:"enabled"`
	Phrases []string `yaml:"phrases"`
	// Reply sent to the buyer when a trigger phrase fires.
	Reply string `yaml:"reply"`
}

// BotHoursConfig defines the daily window in which the assistant is allowed
// to answer. Outside the window any business-account message is treated as a
// human takeover.
type BotHoursConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Start    string `yaml:"start"`    // "09:00"
	End      string `yaml:"end"`      // "21:00"
	Timezone string `yaml:"timezone"` // IANA name, e.g. "Europe/Moscow"
}

// DigestConfig controls the daily activity report.
type DigestConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"` // 5-field cron expression
}

// Load reads a YAML config file from path, applies environment overrides,
// and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes, applies env overrides, and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: env overrides: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.DB.Driver == "" {
		c.DB.Driver = "sqlite"
	}
	if c.DB.Host == "" {
		c.DB.Host = "127.0.0.1"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.User == "" {
		c.DB.User = "root"
	}
	if c.DB.Database == "" {
		c.DB.Database = "shoptalk"
	}
	if c.DB.Path == "" {
		c.DB.Path = "shoptalk.db"
	}
	if c.Dialog.QuietWindowSeconds == 0 {
		c.Dialog.QuietWindowSeconds = 15
	}
	if c.Dialog.ReplyTimeoutSeconds == 0 {
		c.Dialog.ReplyTimeoutSeconds = 90
	}
	if c.Dialog.Workers == 0 {
		c.Dialog.Workers = 8
	}
	if c.Dialog.QueueSize == 0 {
		c.Dialog.QueueSize = 256
	}
	if len(c.Escalation.Phrases) == 0 {
		c.Escalation.Phrases = []string{"заберу сам", "самовывоз", "курьером", "доставка курьером"}
	}
	if c.Escalation.Reply == "" {
		c.Escalation.Reply = "Соединяю вас с оператором, он ответит в ближайшее время."
	}
	if c.BotHours.Start == "" {
		c.BotHours.Start = "09:00"
	}
	if c.BotHours.End == "" {
		c.BotHours.End = "21:00"
	}
	if c.BotHours.Timezone == "" {
		c.BotHours.Timezone = "Europe/Moscow"
	}
	if c.Digest.Schedule == "" {
		c.Digest.Schedule = "0 9 * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.DB.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("db.driver must be mysql or sqlite, got %q", c.DB.Driver))
	}
	if c.Dialog.QuietWindowSeconds < 1 {
		errs = append(errs, "dialog.quiet_window_seconds must be positive")
	}
	if c.Dialog.ReplyTimeoutSeconds < 1 {
		errs = append(errs, "dialog.reply_timeout_seconds must be positive")
	}
	if c.BotHours.Enabled {
		if _, err := time.Parse("15:04", c.BotHours.Start); err != nil {
			errs = append(errs, fmt.Sprintf("bot_hours.start %q is not HH:MM", c.BotHours.Start))
		}
		if _, err := time.Parse("15:04", c.BotHours.End); err != nil {
			errs = append(errs, fmt.Sprintf("bot_hours.end %q is not HH:MM", c.BotHours.End))
		}
		if _, err := time.LoadLocation(c.BotHours.Timezone); err != nil {
			errs = append(errs, fmt.Sprintf("bot_hours.timezone %q is unknown", c.BotHours.Timezone))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
