package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Confluence Coach Configuration

[gateway]
# Coach API base URL
base_url = "https://api.confluence-coach.app/agents"
# Request timeout (e.g., "30s")
timeout = "30s"

[workflow]
# Minimum confluence score required by the final checklist
min_confluence_score = 60.0
# Minimum risk-reward ratio (1:2)
min_risk_reward = 2.0
# Aspirational risk-reward target (1:4), tracked in journal analytics
target_risk_reward = 4.0

[session]
# Reference timezone for the optimal trading session window.
# The window itself is fixed by the methodology; do not change these
# outside of tests.
timezone = "America/New_York"
start_hour = 1
start_minute = 0
end_hour = 10
end_minute = 30

[monitoring]
# Enable background AOI monitoring and notification polling
enabled = false
# Cron schedule for notification polling
poll_schedule = "*/5 * * * *"
# Cron schedule for the weekly report fetch (Saturday 08:00)
report_schedule = "0 8 * * 6"
weekly_report = false

[logging]
# Log level: debug, info, warn, error
level = "info"
# Mirror log lines to stdout (noisy for interactive use)
console = false
# Write rotated log files under the config directory
file = true

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "02-Jan-2006"
# Time format
time_format = "15:04:05"
`

const credentialsTemplate = `# Confluence Coach Credentials
# Obtain a token from your coach API account settings.

[coach]
token = ""
user_id = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil // Already exists
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	if _, err := os.Stat(path); err == nil {
		return nil // Already exists
	}

	// Credentials are restricted to the owner
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	return nil
}
