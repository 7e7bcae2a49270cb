// Package config loads the bot settings from a .env file, the environment and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPages are the Apple laptop search result pages that are polled every cycle
var DefaultPages = []string{
	"https://www.kufar.by/l/kompyuternaya-tehnika/noutbuki/nb~apple?clp=v.or%3A66&cursor=eyJ0IjoiYWJzIiwiZiI6dHJ1ZSwicCI6MX0%3D&sort=lst.d",
	"https://www.kufar.by/l/kompyuternaya-tehnika/noutbuki/nb~apple?clp=v.or%3A66&cursor=eyJ0IjoiYWJzIiwiZiI6dHJ1ZWSJCI6MiwicGl0IjoiMjkxMTUxMjEifQ%3D%3D&sort=lst.d",
}

const (
	DefaultBaseURL       = "https://www.kufar.by/"
	DefaultDataFile      = "data.json"
	DefaultExcelFile     = "noutbuki.xlsx"
	DefaultInterval      = 3 * time.Hour
	DefaultRetryInterval = 1 * time.Hour
)

// Telegram holds the bot credentials. Both must be set for notifications to be sent.
type Telegram struct {
	Token  string `yaml:"token"`
	ChatID string `yaml:"chat_id"`
}

// Storage holds file locations
type Storage struct {
	DataFile  string `yaml:"data_file"`
	ExcelFile string `yaml:"excel_file"`
}

// Schedule holds the polling intervals
type Schedule struct {
	Interval      time.Duration `yaml:"interval"`
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// Metrics configures the Prometheus endpoint. An empty address disables it.
type Metrics struct {
	Addr string `yaml:"addr"`
}

// Archive configures the Postgres change log. An empty URL disables it.
type Archive struct {
	DatabaseURL string `yaml:"database_url"`
}

// Events configures RabbitMQ publishing. An empty URL disables it.
type Events struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// Config is built once at startup and passed to every component
type Config struct {
	BaseURL  string   `yaml:"base_url"`
	Pages    []string `yaml:"pages"`
	Telegram Telegram `yaml:"telegram"`
	Storage  Storage  `yaml:"storage"`
	Schedule Schedule `yaml:"schedule"`
	Metrics  Metrics  `yaml:"metrics"`
	Archive  Archive  `yaml:"archive"`
	Events   Events   `yaml:"events"`
}

// TelegramEnabled reports whether both bot credentials are present
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.Token != "" && c.Telegram.ChatID != ""
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		BaseURL: DefaultBaseURL,
		Pages:   append([]string(nil), DefaultPages...),
		Storage: Storage{
			DataFile:  DefaultDataFile,
			ExcelFile: DefaultExcelFile,
		},
		Schedule: Schedule{
			Interval:      DefaultInterval,
			RetryInterval: DefaultRetryInterval,
		},
	}
}

// Load builds the configuration.
// Precedence from lowest to highest: defaults, YAML file, .env file, process environment.
// Empty paths are skipped; a missing .env file is not an error.
func Load(yamlPath, envPath string) (*Config, error) {
	cfg := Default()

	if yamlPath != "" {
		if err := loadYAML(yamlPath, cfg); err != nil {
			return nil, err
		}
	}

	if err := loadDotEnv(envPath); err != nil {
		return nil, err
	}

	cfg.Telegram.Token = getEnvAsString("TELEGRAM_TOKEN", cfg.Telegram.Token)
	cfg.Telegram.ChatID = getEnvAsString("CHAT_ID", cfg.Telegram.ChatID)
	cfg.Storage.DataFile = getEnvAsString("DATA_FILE", cfg.Storage.DataFile)
	cfg.Storage.ExcelFile = getEnvAsString("EXCEL_FILE", cfg.Storage.ExcelFile)
	cfg.Schedule.Interval = getEnvAsDuration("POLL_INTERVAL", cfg.Schedule.Interval)
	cfg.Schedule.RetryInterval = getEnvAsDuration("RETRY_INTERVAL", cfg.Schedule.RetryInterval)
	cfg.Metrics.Addr = getEnvAsString("METRICS_ADDR", cfg.Metrics.Addr)
	cfg.Archive.DatabaseURL = getEnvAsString("DATABASE_URL", cfg.Archive.DatabaseURL)
	cfg.Events.URL = getEnvAsString("RABBITMQ_URL", cfg.Events.URL)
	cfg.Events.Exchange = getEnvAsString("RABBITMQ_EXCHANGE", cfg.Events.Exchange)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url must not be empty")
	}
	if len(c.Pages) == 0 {
		return errors.New("at least one page must be configured")
	}
	if c.Storage.DataFile == "" || c.Storage.ExcelFile == "" {
		return errors.New("data_file and excel_file must not be empty")
	}
	if c.Schedule.Interval <= 0 || c.Schedule.RetryInterval <= 0 {
		return fmt.Errorf("intervals must be positive (interval=%s, retry_interval=%s)",
			c.Schedule.Interval, c.Schedule.RetryInterval)
	}
	return nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func loadDotEnv(path string) error {
	var err error
	if path != "" {
		err = godotenv.Load(path)
	} else {
		err = godotenv.Load()
	}

	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("Info: No .env file found, using the environment only")
			return nil
		}
		return fmt.Errorf("could not load .env file: %w", err)
	}
	return nil
}

// getEnvAsString returns the variable or the fallback when it is unset or empty
func getEnvAsString(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// getEnvAsDuration parses values like "3h" or "90m".
// Logs and keeps the fallback when the value is malformed.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return fallback
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as duration: %v. Using default value: %s\n", key, valueStr, err, fallback)
		return fallback
	}
	return value
}
