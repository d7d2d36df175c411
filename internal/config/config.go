// Package config provides configuration management for the coaching application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Gateway     GatewayConfig    `mapstructure:"gateway"`
	Workflow    WorkflowConfig   `mapstructure:"workflow"`
	Session     SessionConfig    `mapstructure:"session"`
	Monitoring  MonitoringConfig `mapstructure:"monitoring"`
	Logging     LoggingConfig    `mapstructure:"logging"`
	UI          UIConfig         `mapstructure:"ui"`
	Credentials Credentials      `mapstructure:"-" json:"-"` // Loaded separately, never serialized
}

// GatewayConfig holds coach API connection configuration.
type GatewayConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// WorkflowConfig holds the hard gating thresholds of the methodology.
type WorkflowConfig struct {
	MinConfluenceScore float64 `mapstructure:"min_confluence_score"`
	MinRiskReward      float64 `mapstructure:"min_risk_reward"`
	TargetRiskReward   float64 `mapstructure:"target_risk_reward"`
}

// SessionConfig holds the optimal trading session window. The window is
// fixed by the methodology; overrides exist for testing only.
type SessionConfig struct {
	Timezone    string `mapstructure:"timezone"`
	StartHour   int    `mapstructure:"start_hour"`
	StartMinute int    `mapstructure:"start_minute"`
	EndHour     int    `mapstructure:"end_hour"`
	EndMinute   int    `mapstructure:"end_minute"`
}

// MonitoringConfig holds AOI monitoring and weekly report configuration.
type MonitoringConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	PollSchedule   string `mapstructure:"poll_schedule"`   // cron spec
	ReportSchedule string `mapstructure:"report_schedule"` // cron spec
	WeeklyReport   bool   `mapstructure:"weekly_report"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
	TimeFormat   string `mapstructure:"time_format"`
}

// Credentials holds coach API credentials.
type Credentials struct {
	Coach CoachCredentials `mapstructure:"coach"`
}

// CoachCredentials holds the bearer token for the coach API.
type CoachCredentials struct {
	Token  string `mapstructure:"token"`
	UserID string `mapstructure:"user_id"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/confluence-coach"
	}
	return filepath.Join(home, ".config", "confluence-coach")
}

// DefaultDBPath returns the default SQLite database path.
func DefaultDBPath() string {
	return filepath.Join(DefaultConfigDir(), "coach.db")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	// Load main config
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	// Load credentials
	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("gateway.base_url", "https://api.confluence-coach.app/agents")
	v.SetDefault("gateway.timeout", "30s")
	v.SetDefault("workflow.min_confluence_score", 60.0)
	v.SetDefault("workflow.min_risk_reward", 2.0)
	v.SetDefault("workflow.target_risk_reward", 4.0)
	v.SetDefault("session.timezone", "America/New_York")
	v.SetDefault("session.start_hour", 1)
	v.SetDefault("session.start_minute", 0)
	v.SetDefault("session.end_hour", 10)
	v.SetDefault("session.end_minute", 30)
	v.SetDefault("monitoring.enabled", false)
	v.SetDefault("monitoring.poll_schedule", "*/5 * * * *")
	v.SetDefault("monitoring.report_schedule", "0 8 * * 6")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", false)
	v.SetDefault("logging.file", true)
	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "02-Jan-2006")
	v.SetDefault("ui.time_format", "15:04:05")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create template and continue with defaults
			if terr := createTemplateConfig(configDir); terr != nil {
				return terr
			}
			return v.Unmarshal(target)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("COACH_API_URL"); v != "" {
		cfg.Gateway.BaseURL = v
	}
	if v := os.Getenv("COACH_API_TOKEN"); v != "" {
		cfg.Credentials.Coach.Token = v
	}
	if v := os.Getenv("COACH_USER_ID"); v != "" {
		cfg.Credentials.Coach.UserID = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Gateway.Timeout <= 0 {
		cfg.Gateway.Timeout = 30 * time.Second
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway.base_url must not be empty")
	}

	if c.Workflow.MinConfluenceScore < 0 || c.Workflow.MinConfluenceScore > 100 {
		return fmt.Errorf("min_confluence_score must be between 0 and 100")
	}
	if c.Workflow.MinRiskReward < 0 {
		return fmt.Errorf("min_risk_reward must be non-negative")
	}
	if c.Workflow.TargetRiskReward < c.Workflow.MinRiskReward {
		return fmt.Errorf("target_risk_reward must be >= min_risk_reward")
	}

	if c.Session.StartHour < 0 || c.Session.StartHour > 23 {
		return fmt.Errorf("session.start_hour must be between 0 and 23")
	}
	if c.Session.EndHour < 0 || c.Session.EndHour > 23 {
		return fmt.Errorf("session.end_hour must be between 0 and 23")
	}
	if c.Session.StartMinute < 0 || c.Session.StartMinute > 59 ||
		c.Session.EndMinute < 0 || c.Session.EndMinute > 59 {
		return fmt.Errorf("session minutes must be between 0 and 59")
	}

	return nil
}
