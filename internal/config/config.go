package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Sites     []SiteConfig    `yaml:"sites"`
	Personal  PersonalConfig  `yaml:"personal"`
	Browser   BrowserConfig   `yaml:"browser"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Challenge ChallengeConfig `yaml:"challenge"`
	History   HistoryConfig   `yaml:"history"`
	Logging   LoggingConfig   `yaml:"logging"`
	DryRun    bool            `yaml:"dry_run"`
	Parallel  bool            `yaml:"parallel"`
}

// SiteConfig describes one supported sweepstakes site
type SiteConfig struct {
	Name     string            `yaml:"name"`
	Enabled  bool              `yaml:"enabled"`
	EntryURL string            `yaml:"entry_url"`
	// Selectors overrides individual form selectors for this site; unset
	// keys fall back to the shared defaults.
	Selectors map[string]string `yaml:"selectors"`
}

// PersonalConfig contains the entrant's identity and contact fields
type PersonalConfig struct {
	Email      string `yaml:"email"`
	FirstName  string `yaml:"first_name"`
	LastName   string `yaml:"last_name"`
	Address1   string `yaml:"address1"`
	Address2   string `yaml:"address2"`
	City       string `yaml:"city"`
	State      string `yaml:"state"`
	Zip        string `yaml:"zip"`
	Phone      string `yaml:"phone"`
	BirthMonth string `yaml:"birth_month"`
	BirthDay   string `yaml:"birth_day"`
	BirthYear  string `yaml:"birth_year"`
	Gender     string `yaml:"gender"`
}

// BrowserConfig contains browser launch options
type BrowserConfig struct {
	Headless      bool   `yaml:"headless"`
	SlowMotionMs  int    `yaml:"slow_motion_ms"`
	ScreenshotDir string `yaml:"screenshot_dir"`
}

// LedgerConfig contains submission ledger settings
type LedgerConfig struct {
	Path      string `yaml:"path"`
	Retention int    `yaml:"retention"`
	Timezone  string `yaml:"timezone"`
}

// ChallengeConfig contains bot-challenge handling settings
type ChallengeConfig struct {
	WaitSeconds  int    `yaml:"wait_seconds"`
	SolverAPIKey string `yaml:"solver_api_key"`
}

// HistoryConfig contains attempt-history database settings
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level    string `yaml:"level"`
	ToFile   bool   `yaml:"to_file"`
	FilePath string `yaml:"file_path"`
}

var (
	// Global configuration instance
	globalConfig *Config
)

// Load loads configuration from YAML file and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors if not present)
	_ = godotenv.Load()

	// Read config file
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in YAML
	expandedData := expandEnvVars(string(data))

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Get returns the global configuration instance
func Get() *Config {
	if globalConfig == nil {
		panic("configuration not loaded, call Load() first")
	}
	return globalConfig
}

func (c *Config) applyDefaults() {
	if c.Ledger.Path == "" {
		c.Ledger.Path = "./data/ledger.json"
	}
	if c.Ledger.Retention == 0 {
		c.Ledger.Retention = 100
	}
	if c.Ledger.Timezone == "" {
		c.Ledger.Timezone = "America/New_York"
	}
	if c.Challenge.WaitSeconds == 0 {
		c.Challenge.WaitSeconds = 60
	}
	if c.History.Path == "" {
		c.History.Path = "./data/history.db"
	}
	if c.Browser.ScreenshotDir == "" {
		c.Browser.ScreenshotDir = "./screenshots"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Sites) == 0 {
		return fmt.Errorf("at least one site must be configured")
	}

	seen := make(map[string]bool)
	for i, site := range c.Sites {
		if site.Name == "" {
			return fmt.Errorf("site %d: name is required", i)
		}
		if seen[site.Name] {
			return fmt.Errorf("duplicate site name: %s", site.Name)
		}
		seen[site.Name] = true
		if site.Enabled && site.EntryURL == "" {
			return fmt.Errorf("site %s: entry_url is required", site.Name)
		}
	}

	// Validate personal info
	if c.Personal.Email == "" {
		return fmt.Errorf("personal email is required")
	}
	if c.Personal.FirstName == "" {
		return fmt.Errorf("personal first_name is required")
	}
	if c.Personal.LastName == "" {
		return fmt.Errorf("personal last_name is required")
	}

	// Validate ledger config
	if c.Ledger.Retention <= 0 {
		return fmt.Errorf("ledger retention must be positive")
	}
	if _, err := time.LoadLocation(c.Ledger.Timezone); err != nil {
		return fmt.Errorf("invalid ledger timezone %q: %w", c.Ledger.Timezone, err)
	}

	// Validate challenge config
	if c.Challenge.WaitSeconds < 0 {
		return fmt.Errorf("challenge wait_seconds must be non-negative")
	}

	// Validate logging config
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// EnabledSites returns the sites with the enable flag set
func (c *Config) EnabledSites() []SiteConfig {
	var enabled []SiteConfig
	for _, site := range c.Sites {
		if site.Enabled {
			enabled = append(enabled, site)
		}
	}
	return enabled
}

// ChallengeWait returns the manual challenge wait as a duration
func (c *Config) ChallengeWait() time.Duration {
	return time.Duration(c.Challenge.WaitSeconds) * time.Second
}

// SlowMotion returns the per-action browser delay as a duration
func (c *Config) SlowMotion() time.Duration {
	return time.Duration(c.Browser.SlowMotionMs) * time.Millisecond
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(s string) string {
	// Pattern matches ${VAR} or ${VAR:default}
	pattern := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return pattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name and default value
		parts := pattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultValue := ""
		if len(parts) > 2 {
			defaultValue = parts[2]
		}

		// Get environment variable value
		value := os.Getenv(varName)
		if value == "" {
			return defaultValue
		}
		return value
	})
}
