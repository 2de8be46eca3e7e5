package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		Uploads  string `yaml:"uploads"`
		Notes    string `yaml:"notes"`
		Database string `yaml:"database"`
	} `yaml:"storage"`
	Auth struct {
		Username     string `yaml:"username"`
		PasswordHash string `yaml:"password_hash"`
		JWTSecret    string `yaml:"jwt_secret"`
		TokenTTL     string `yaml:"token_ttl"`
	} `yaml:"auth"`
	Limits struct {
		APIRequests   int    `yaml:"api_requests"`
		LoginAttempts int    `yaml:"login_attempts"`
		Window        string `yaml:"window"`
	} `yaml:"limits"`
}

// LoadConfig reads the YAML config file (CONFIG_PATH or ./config.yaml),
// applies environment overrides and validates the result. The JWT secret and
// the admin credential have no built-in defaults: the server refuses to start
// without them.
func LoadConfig() (*Config, error) {
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}

	config := defaultConfig()

	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", configPath, err)
	}

	applyEnvOverrides(config)

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func defaultConfig() *Config {
	config := &Config{}
	config.Server.Port = "5000"
	config.Storage.Uploads = "./uploads"
	config.Storage.Notes = "./notes"
	config.Storage.Database = "./filenest.db"
	config.Auth.TokenTTL = "24h"
	config.Limits.APIRequests = 100
	config.Limits.LoginAttempts = 5
	config.Limits.Window = "15m"
	return config
}

func applyEnvOverrides(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
	if username := os.Getenv("FILENEST_USERNAME"); username != "" {
		config.Auth.Username = username
	}
	if hash := os.Getenv("FILENEST_PASSWORD_HASH"); hash != "" {
		config.Auth.PasswordHash = hash
	}
	if secret := os.Getenv("FILENEST_JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret must be set via FILENEST_JWT_SECRET or auth.jwt_secret; no default is provided")
	}
	if c.Auth.Username == "" || c.Auth.PasswordHash == "" {
		return fmt.Errorf("admin credential must be set via auth.username and auth.password_hash (bcrypt)")
	}
	if c.Limits.APIRequests < 1 || c.Limits.LoginAttempts < 1 {
		return fmt.Errorf("limits.api_requests and limits.login_attempts must be positive")
	}
	if _, err := c.TokenTTL(); err != nil {
		return fmt.Errorf("invalid auth.token_ttl: %w", err)
	}
	if _, err := c.RateWindow(); err != nil {
		return fmt.Errorf("invalid limits.window: %w", err)
	}
	return nil
}

// TokenTTL parses the configured session token lifetime.
func (c *Config) TokenTTL() (time.Duration, error) {
	return time.ParseDuration(c.Auth.TokenTTL)
}

// RateWindow parses the rate limiter window shared by the API and login limiters.
func (c *Config) RateWindow() (time.Duration, error) {
	return time.ParseDuration(c.Limits.Window)
}
