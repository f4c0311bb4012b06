package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Blob      BlobConfig      `yaml:"blob"`
	JWT       JWTConfig       `yaml:"jwt"`
	Notify    NotifyConfig    `yaml:"notify"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// BlobConfig selects and configures the blob store backend
type BlobConfig struct {
	Type         string `yaml:"type"`          // "memory", "file" or "postgres"
	Dir          string `yaml:"dir"`           // For file storage
	PollInterval string `yaml:"poll_interval"` // File watch interval, e.g. "2s"
	DatabaseURL  string `yaml:"database_url"`  // For postgres storage
}

// JWTConfig contains token settings
type JWTConfig struct {
	Secret      string `yaml:"secret"`
	TokenExpiry int    `yaml:"token_expiry_minutes"`
}

// NotifyConfig selects the notification backend
type NotifyConfig struct {
	Type           string `yaml:"type"` // "log" or "sendgrid"
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	FromEmail      string `yaml:"from_email"`
	FromName       string `yaml:"from_name"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// SchedulerConfig contains the reconciliation schedule. Cron specs use
// six fields (seconds first); "@every" descriptors also work.
type SchedulerConfig struct {
	Reconcile string `yaml:"reconcile"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Blob store
	if val := os.Getenv("BLOB_TYPE"); val != "" {
		c.Blob.Type = val
	}
	if val := os.Getenv("BLOB_DIR"); val != "" {
		c.Blob.Dir = val
	}
	if val := os.Getenv("DATABASE_URL"); val != "" {
		c.Blob.DatabaseURL = val
	}

	// JWT
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	// Notify
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Notify.SendGridAPIKey = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Set defaults for log if not configured
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	// Blob store validation
	switch c.Blob.Type {
	case "", "memory":
		c.Blob.Type = "memory"
	case "file":
		if c.Blob.Dir == "" {
			return fmt.Errorf("blob dir is required for file storage")
		}
		if c.Blob.PollInterval == "" {
			c.Blob.PollInterval = "2s"
		}
	case "postgres":
		if c.Blob.DatabaseURL == "" {
			return fmt.Errorf("database_url is required for postgres storage")
		}
	default:
		return fmt.Errorf("unsupported blob store type: %s", c.Blob.Type)
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.TokenExpiry == 0 {
		c.JWT.TokenExpiry = 60
	}

	// Notify validation
	switch c.Notify.Type {
	case "", "log":
		c.Notify.Type = "log"
	case "sendgrid":
		if c.Notify.SendGridAPIKey == "" {
			return fmt.Errorf("sendgrid_api_key is required for sendgrid notifications")
		}
		if c.Notify.FromEmail == "" {
			return fmt.Errorf("from_email is required for sendgrid notifications")
		}
	default:
		return fmt.Errorf("unsupported notify type: %s", c.Notify.Type)
	}

	// Scheduler defaults
	if c.Scheduler.Reconcile == "" {
		c.Scheduler.Reconcile = "@every 30s"
	}

	return nil
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
