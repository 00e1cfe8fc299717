package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`

	// Server
	Port string `toml:"port"`

	Database DatabaseConfig `toml:"database"`

	// JWT
	JWTSecret        string        `toml:"jwt_secret"`
	JWTExpirationDur time.Duration `toml:"-"`
	JWTExpiresIn     string        `toml:"jwt_expires_in"`

	// Shared secret for scheduler-triggered job endpoints.
	PipelineAPIKey string `toml:"pipeline_api_key"`

	// Timezone is the calendar used to decide what "today" is for batch runs.
	Timezone string         `toml:"timezone"`
	Location *time.Location `toml:"-"`

	Alerts AlertsConfig `toml:"alerts"`
	AMQP   AMQPConfig   `toml:"amqp"`

	PushgatewayURL string `toml:"pushgateway_url"`
	EncryptionKey  string `toml:"encryption_key"`
}

// DatabaseConfig selects and addresses the relational store.
type DatabaseConfig struct {
	Driver   string `toml:"driver"`
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
	SSLMode  string `toml:"sslmode"`
	Path     string `toml:"path"`
}

// AlertsConfig holds the default budget thresholds, in percent.
type AlertsConfig struct {
	Warning  float64 `toml:"warning"`
	Alert    float64 `toml:"alert"`
	Critical float64 `toml:"critical"`
}

// AMQPConfig addresses the broker that receives budget alert events.
// An empty URL disables publishing.
type AMQPConfig struct {
	URL      string `toml:"url"`
	Exchange string `toml:"exchange"`
	Queue    string `toml:"queue"`
}

var appConfig *Config

// Defaults returns the configuration used when nothing else is set.
func Defaults() *Config {
	return &Config{
		Env:      "development",
		LogLevel: "",
		Port:     "8080",
		Database: DatabaseConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     "5432",
			User:     "monbudget",
			Password: "monbudget",
			Name:     "monbudget",
			SSLMode:  "disable",
			Path:     "monbudget.db",
		},
		JWTSecret:    "fallback-secret-key-for-dev-only",
		JWTExpiresIn: "24h",
		Timezone:     "UTC",
		Alerts: AlertsConfig{
			Warning:  50,
			Alert:    80,
			Critical: 95,
		},
		AMQP: AMQPConfig{
			Exchange: "monbudget",
			Queue:    "budget.alert",
		},
	}
}

// Load loads configuration from .env, an optional TOML file named by
// MONBUDGET_CONFIG, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := Defaults()

	if path := os.Getenv("MONBUDGET_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, config); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := applyEnv(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	appConfig = config
	return config, nil
}

func applyEnv(c *Config) error {
	c.Env = getEnv("ENV", c.Env)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Port = getEnv("PORT", c.Port)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnv("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.Path = getEnv("DB_PATH", c.Database.Path)

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTExpiresIn = getEnv("JWT_EXPIRES_IN", c.JWTExpiresIn)
	c.PipelineAPIKey = getEnv("PIPELINE_API_KEY", c.PipelineAPIKey)
	c.Timezone = getEnv("TIMEZONE", c.Timezone)

	c.AMQP.URL = getEnv("AMQP_URL", c.AMQP.URL)
	c.AMQP.Exchange = getEnv("AMQP_EXCHANGE", c.AMQP.Exchange)
	c.AMQP.Queue = getEnv("AMQP_QUEUE", c.AMQP.Queue)

	c.PushgatewayURL = getEnv("PUSHGATEWAY_URL", c.PushgatewayURL)
	c.EncryptionKey = getEnv("ENCRYPTION_KEY", c.EncryptionKey)

	var err error
	if c.Alerts.Warning, err = getEnvFloat("ALERT_WARNING_THRESHOLD", c.Alerts.Warning); err != nil {
		return err
	}
	if c.Alerts.Alert, err = getEnvFloat("ALERT_ALERT_THRESHOLD", c.Alerts.Alert); err != nil {
		return err
	}
	if c.Alerts.Critical, err = getEnvFloat("ALERT_CRITICAL_THRESHOLD", c.Alerts.Critical); err != nil {
		return err
	}
	return nil
}

// Validate checks the whole configuration and reports every problem at once.
// It also resolves derived fields (location, JWT expiration).
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver))
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err))
	} else {
		c.Location = loc
	}

	expDur, err := time.ParseDuration(c.JWTExpiresIn)
	if err != nil {
		log.Printf("Warning: invalid JWT_EXPIRES_IN value '%s', falling back to 24h\n", c.JWTExpiresIn)
		expDur = 24 * time.Hour
	}
	c.JWTExpirationDur = expDur

	a := c.Alerts
	if a.Warning <= 0 || a.Warning >= a.Alert || a.Alert >= a.Critical || a.Critical > 100 {
		errs = append(errs, fmt.Errorf("alert thresholds must satisfy 0 < warning < alert < critical <= 100, got %v/%v/%v",
			a.Warning, a.Alert, a.Critical))
	}

	if c.Env == "production" && c.JWTSecret == Defaults().JWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}

	return errors.Join(errs...)
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return v, nil
}
