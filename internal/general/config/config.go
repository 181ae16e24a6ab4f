package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration for the request service.
type Config struct {
	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`

	RabbitMQ struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
	} `mapstructure:"rabbitmq"`

	Service struct {
		Port  int    `mapstructure:"port"`
		Store string `mapstructure:"store"` // "postgres" (default) or "memory"
	} `mapstructure:"service"`

	JWT struct {
		SecretKey string `mapstructure:"secret_key"`
	} `mapstructure:"jwt"`

	Pricing struct {
		MinRatePerKM float64 `mapstructure:"min_rate_per_km"`
		MaxRatePerKM float64 `mapstructure:"max_rate_per_km"`
		Floor        float64 `mapstructure:"floor"`
		Spread       float64 `mapstructure:"spread"`
		Currency     string  `mapstructure:"currency"`
	} `mapstructure:"pricing"`

	Broadcast struct {
		Buffer int `mapstructure:"buffer"` // per-subscriber queue depth
	} `mapstructure:"broadcast"`
}

// LoadFromFile reads a YAML config (env vars override, DRIVEME_ prefix),
// applies defaults, and validates required fields.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("DRIVEME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// missing file is tolerated: env vars and defaults still apply
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets safe defaults for unset fields.
func applyDefaults(cfg *Config) {
	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	// RabbitMQ
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}

	// Service
	if cfg.Service.Port == 0 {
		cfg.Service.Port = 3000
	}
	if cfg.Service.Store == "" {
		cfg.Service.Store = "postgres"
	}

	// Broadcast
	if cfg.Broadcast.Buffer == 0 {
		cfg.Broadcast.Buffer = 64
	}

	// Pricing defaults live in the pricing package; zero here means "use default".

	if cfg.JWT.SecretKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			// fallback: time-based bytes
			key = []byte(fmt.Sprintf("%d", time.Now().UnixNano()))
		}
		cfg.JWT.SecretKey = base64.StdEncoding.EncodeToString(key)
	}
}

// validate checks required fields and basic ranges.
func (c *Config) validate() error {
	var problems []string

	switch c.Service.Store {
	case "postgres":
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			problems = append(problems, "database.port must be in 1..65535")
		}
		if c.Database.User == "" {
			problems = append(problems, "database.user is required")
		}
		if c.Database.Password == "" {
			problems = append(problems, "database.password is required")
		}
		if c.Database.Name == "" {
			problems = append(problems, "database.name is required")
		}
	case "memory":
		// no database settings required
	default:
		problems = append(problems, "service.store must be postgres or memory")
	}

	if c.RabbitMQ.Port <= 0 || c.RabbitMQ.Port > 65535 {
		problems = append(problems, "rabbitmq.port must be in 1..65535")
	}
	if c.Service.Port <= 0 || c.Service.Port > 65535 {
		problems = append(problems, "service.port must be in 1..65535")
	}

	if c.Pricing.MinRatePerKM < 0 || c.Pricing.MaxRatePerKM < 0 {
		problems = append(problems, "pricing rates must not be negative")
	}
	if c.Pricing.MinRatePerKM > 0 && c.Pricing.MaxRatePerKM > 0 &&
		c.Pricing.MinRatePerKM > c.Pricing.MaxRatePerKM {
		problems = append(problems, "pricing.min_rate_per_km must not exceed pricing.max_rate_per_km")
	}
	if c.Broadcast.Buffer < 0 {
		problems = append(problems, "broadcast.buffer must not be negative")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}
