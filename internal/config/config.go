package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPath     = "config.yaml"
	DefaultTimezone = "America/Sao_Paulo"

	PolicyReset       = "reset"
	PolicyFixedWindow = "fixed_window"
)

type Config struct {
	Discord struct {
		Token    string `yaml:"token"`
		ClientID string `yaml:"client_id"`
	} `yaml:"discord"`

	Database Database `yaml:"database"`

	Scheduler Scheduler `yaml:"scheduler"`

	Timezone string `yaml:"timezone"`

	Log Log `yaml:"log"`

	Reports struct {
		Dir string `yaml:"dir"`
	} `yaml:"reports"`

	// Location is Timezone loaded by Load.
	Location *time.Location `yaml:"-"`
}

type Database struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	// Path is used by the sqlite driver.
	Path string `yaml:"path"`
}

type Scheduler struct {
	Tick            time.Duration `yaml:"tick"`
	Policy          string        `yaml:"policy"`
	OverdueInterval time.Duration `yaml:"overdue_interval"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the YAML file at path, replacing ${VAR} placeholders with
// environment values, then applies defaults and validates.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Replace environment variables in the YAML content
	content := string(data)
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}
		placeholder := "${" + pair[0] + "}"
		content = strings.ReplaceAll(content, placeholder, pair[1])
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	// Convert DB_PORT from string to int if it's an environment variable
	if portStr := os.Getenv("DB_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_PORT value: %w", err)
		}
		cfg.Database.Port = port
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/ada.db"
	}
	if c.Scheduler.Tick <= 0 {
		c.Scheduler.Tick = time.Minute
	}
	if c.Scheduler.Policy == "" {
		c.Scheduler.Policy = PolicyReset
	}
	if c.Scheduler.OverdueInterval <= 0 {
		c.Scheduler.OverdueInterval = 24 * time.Hour
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Reports.Dir == "" {
		c.Reports.Dir = os.TempDir()
	}
}

func (c *Config) validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("discord.token is required")
	}
	switch c.Scheduler.Policy {
	case PolicyReset, PolicyFixedWindow:
	default:
		return fmt.Errorf("invalid scheduler.policy %q (use %q or %q)", c.Scheduler.Policy, PolicyReset, PolicyFixedWindow)
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	c.Location = loc
	return nil
}
