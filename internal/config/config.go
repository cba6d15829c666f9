package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration
type Config struct {
	ServerPort   int    `envconfig:"SERVER_PORT" default:"8080"`
	PublicOrigin string `envconfig:"PUBLIC_ORIGIN" default:"http://localhost:8080"`
	JWTSecret    string `envconfig:"JWT_SECRET" required:"true"`

	StoreType   string `envconfig:"STORE_TYPE" default:"memory"`
	DatabaseURL string `envconfig:"DATABASE_URL"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	ShareTTL         time.Duration `envconfig:"SHARE_TTL" default:"24h"`
	ShareClockSkew   time.Duration `envconfig:"SHARE_CLOCK_SKEW" default:"2m"`
	ShareMaxURLBytes int           `envconfig:"SHARE_MAX_URL_BYTES" default:"2048"`
	ShareSingleUse   bool          `envconfig:"SHARE_SINGLE_USE" default:"false"`

	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`

	GeminiAPIKey   string        `envconfig:"GEMINI_API_KEY"`
	LLMModel       string        `envconfig:"LLM_MODEL" default:"gemini-2.0-flash"`
	LLMTemperature float32       `envconfig:"LLM_TEMPERATURE" default:"0.2"`
	LLMTimeout     time.Duration `envconfig:"LLM_TIMEOUT" default:"30s"`

	AWSBucketName string `envconfig:"AWS_BUCKET_NAME"`
	AWSRegion     string `envconfig:"AWS_REGION"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	TemplatesFile      string   `envconfig:"TEMPLATES_FILE"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads the configuration from environment variables and validates it
func Load(cfg *Config) error {
	if err := envconfig.Process("", cfg); err != nil {
		return err
	}
	return cfg.Validate()
}

// Validate checks rules that span more than one variable
func (c *Config) Validate() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %d", c.ServerPort)
	}
	if c.PublicOrigin == "" {
		return fmt.Errorf("PUBLIC_ORIGIN is required")
	}

	switch c.StoreType {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_TYPE is 'postgres'")
		}
	default:
		return fmt.Errorf("invalid STORE_TYPE: %s (must be 'memory' or 'postgres')", c.StoreType)
	}

	if c.ShareTTL <= 0 {
		return fmt.Errorf("SHARE_TTL must be positive")
	}
	if c.ShareClockSkew < 0 {
		return fmt.Errorf("SHARE_CLOCK_SKEW must not be negative")
	}
	if c.ShareMaxURLBytes < 256 {
		return fmt.Errorf("SHARE_MAX_URL_BYTES must be at least 256")
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2")
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	if c.AWSBucketName != "" && c.AWSRegion == "" {
		return fmt.Errorf("AWS_REGION is required when AWS_BUCKET_NAME is set")
	}
	return nil
}

// DocumentsEnabled reports whether S3 document handles are configured
func (c *Config) DocumentsEnabled() bool {
	return c.AWSBucketName != ""
}

// AIEnabled reports whether an LLM key is configured
func (c *Config) AIEnabled() bool {
	return c.GeminiAPIKey != ""
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}
