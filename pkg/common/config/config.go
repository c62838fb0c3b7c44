package config

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds settings for both the grader CLI and the local sandbox server.
type Config struct {
	Canvas struct {
		BaseURL   string `yaml:"base_url" env:"GRADER_BASE_URL"`
		MaxPages  int    `yaml:"max_pages" env:"GRADER_MAX_PAGES"`
		PerPage   int    `yaml:"per_page" env:"GRADER_PER_PAGE"`
		UserAgent string `yaml:"user_agent" env:"GRADER_USER_AGENT"`
	} `yaml:"canvas"`

	Sandbox struct {
		Port            string `yaml:"port" env:"PORT"`
		RosterDBPath    string `yaml:"roster_db_path" env:"ROSTER_SQLITE_PATH"`
		GradesDBPath    string `yaml:"grades_db_path" env:"GRADES_SQLITE_PATH"`
		DefaultPageSize int    `yaml:"default_page_size" env:"SANDBOX_PAGE_SIZE"`
		Issuer          string `yaml:"issuer" env:"PLATFORM_ISSUER"`
	} `yaml:"sandbox"`

	Logging struct {
		Level string `yaml:"level" env:"LOG_LEVEL"`
	} `yaml:"logging"`
}

// Default returns a Config populated with defaults only.
func Default() *Config {
	c := &Config{}
	setDefaults(c)
	return c
}

// LoadConfig loads configuration and validates it.
func LoadConfig(configPath string) (*Config, error) {
	config, err := Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// Load applies defaults, then the YAML file at configPath, then environment
// variables, without validating. An empty path skips the file; a path that
// does not exist is an error. Callers layering more overrides run Validate last.
func Load(configPath string) (*Config, error) {
	config := Default()

	if configPath != "" {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := processStructFields(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}
	return config, nil
}

// OptionalPath returns path if a file exists there and "" otherwise.
// For config paths taken from the environment rather than given explicitly.
func OptionalPath(path string) string {
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func setDefaults(config *Config) {
	config.Canvas.BaseURL = "https://canvas.rice.edu/api/v1"
	config.Canvas.MaxPages = 1000
	config.Canvas.UserAgent = "grader/1.0"

	config.Sandbox.Port = "8080"
	config.Sandbox.RosterDBPath = "./roster.db"
	config.Sandbox.GradesDBPath = "./grades.db"
	config.Sandbox.DefaultPageSize = 10
	config.Sandbox.Issuer = "http://localhost:8080"

	config.Logging.Level = "info"
}

// Validate checks values that would otherwise fail late, mid-run.
func (c *Config) Validate() error {
	if c.Canvas.BaseURL == "" {
		return fmt.Errorf("canvas base url is required")
	}
	u, err := url.Parse(c.Canvas.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("canvas base url %q is not an absolute url", c.Canvas.BaseURL)
	}
	if c.Canvas.MaxPages < 0 {
		return fmt.Errorf("max pages must not be negative")
	}
	if c.Canvas.PerPage < 0 {
		return fmt.Errorf("per page must not be negative")
	}
	if c.Sandbox.DefaultPageSize <= 0 {
		return fmt.Errorf("sandbox page size must be positive")
	}
	return nil
}
