package core

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultPort = 8080

type Database struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
	MaxConnections   int    `yaml:"maxConnections"`
}

type Session struct {
	Store            string `yaml:"store"`
	ConnectionString string `yaml:"connectionString"`
	Secret           string `yaml:"secret"`
	CookieName       string `yaml:"cookieName"`
	MaxAge           int    `yaml:"maxAge"`
	Secure           bool   `yaml:"secure"`
}

type CatAPI struct {
	URL     string        `yaml:"url"`
	APIKey  string        `yaml:"apiKey"`
	Timeout time.Duration `yaml:"timeout"`
}

type ServiceConfig struct {
	Port        int      `yaml:"port"`
	Database    Database `yaml:"database"`
	Session     Session  `yaml:"session"`
	CatAPI      CatAPI   `yaml:"catApi"`
	SaveLogPath string   `yaml:"saveLogPath"`
}

// DefaultConfig returns the configuration used when no config file is present.
func DefaultConfig() *ServiceConfig {
	return &ServiceConfig{
		Port:     defaultPort,
		Database: Database{Type: "sqlite"},
		Session:  Session{Store: "sqlite"},
	}
}

// LoadConfig loads configuration from the specified YAML file
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML on top of the defaults
	config := DefaultConfig()
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// ResolvePaths fills empty storage connection strings from the environment.
func (config *ServiceConfig) ResolvePaths() error {
	if config.Database.ConnectionString != "" && (config.Session.Store == "redis" || config.Session.ConnectionString != "") {
		return nil
	}

	env, err := LoadPathEnv()
	if err != nil {
		return err
	}
	if config.Database.ConnectionString == "" {
		if config.Database.ConnectionString, err = env.DatabasePath(); err != nil {
			return err
		}
	}
	if config.Session.ConnectionString == "" && config.Session.Store != "redis" {
		if config.Session.ConnectionString, err = env.SessionPath(); err != nil {
			return err
		}
	}
	return nil
}

// validateConfig ensures the configured backends are known
func validateConfig(config *ServiceConfig) error {
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d out of range", config.Port)
	}
	switch config.Database.Type {
	case "sqlite", "":
	default:
		return fmt.Errorf("unsupported database type: %s", config.Database.Type)
	}
	switch config.Session.Store {
	case "sqlite", "":
	case "redis":
		if config.Session.ConnectionString == "" {
			return fmt.Errorf("redis session store requires a connectionString")
		}
	default:
		return fmt.Errorf("unsupported session store: %s", config.Session.Store)
	}
	if config.Session.MaxAge < 0 {
		return fmt.Errorf("session maxAge must not be negative")
	}
	return nil
}
