package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load reads, expands and defaults a configuration from a TOML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	expandEnvVars(&cfg)

	return &cfg, nil
}

// Validate checks the configuration and returns all problems found.
func (c *Config) Validate() []error {
	var errors []error

	if c.Database.Host == "" {
		errors = append(errors, fmt.Errorf("database.host is required"))
	}
	if c.Database.User == "" {
		errors = append(errors, fmt.Errorf("database.user is required"))
	}
	if c.Database.Database == "" {
		errors = append(errors, fmt.Errorf("database.database is required"))
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errors = append(errors, fmt.Errorf("database.port is invalid: %d", c.Database.Port))
	}

	switch c.LLM.Provider {
	case "openai":
		if c.LLM.OpenAI.APIKey == "" {
			errors = append(errors, fmt.Errorf("llm.openai.api_key is required when provider is 'openai'"))
		} else if err := validateAPIKey(c.LLM.OpenAI.APIKey, "llm.openai.api_key"); err != nil {
			errors = append(errors, err)
		}
	case "mock":
		// No credentials needed; used for tests and dry runs.
	default:
		errors = append(errors, fmt.Errorf("invalid llm.provider: %s (expected: openai, mock)", c.LLM.Provider))
	}

	if c.Agent.MaxSteps <= 0 {
		errors = append(errors, fmt.Errorf("agent.max_steps must be positive"))
	}

	if c.Logging.Level == "" {
		errors = append(errors, fmt.Errorf("logging.level is required"))
	} else {
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[strings.ToLower(c.Logging.Level)] {
			errors = append(errors, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
		}
	}

	if c.Logging.Format == "" {
		errors = append(errors, fmt.Errorf("logging.format is required"))
	} else {
		validFormats := map[string]bool{"json": true, "text": true}
		if !validFormats[strings.ToLower(c.Logging.Format)] {
			errors = append(errors, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
		}
	}

	if c.Logging.Output == "" {
		errors = append(errors, fmt.Errorf("logging.output is required"))
	}

	if c.API.ListenAddr == "" {
		errors = append(errors, fmt.Errorf("api.listen_addr is required"))
	}

	if c.Tools.Email.SMTPHost != "" && c.Tools.Email.FromAddress == "" {
		errors = append(errors, fmt.Errorf("tools.email.from_address is required when smtp_host is set"))
	}

	return errors
}

func validateAPIKey(key, fieldName string) error {
	if len(key) < 10 {
		return fmt.Errorf("%s is too short (minimum 10 characters, got %d)", fieldName, len(key))
	}
	return nil
}

// applyDefaults fills in default values for unset fields.
func applyDefaults(c *Config) {
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.MaxConnections == 0 {
		c.Database.MaxConnections = 10
	}
	if c.Database.MaxIdleConnections == 0 {
		c.Database.MaxIdleConnections = 5
	}
	if c.Database.ConnMaxLifetimeSeconds == 0 {
		c.Database.ConnMaxLifetimeSeconds = 3600
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.OpenAI.BaseURL == "" {
		c.LLM.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.OpenAI.Model == "" {
		c.LLM.OpenAI.Model = "gpt-4o-mini"
	}
	if c.LLM.OpenAI.TimeoutSeconds == 0 {
		c.LLM.OpenAI.TimeoutSeconds = 60
	}

	if c.Agent.Model == "" {
		c.Agent.Model = c.LLM.OpenAI.Model
	}
	if c.Agent.MaxTokens == 0 {
		c.Agent.MaxTokens = 4096
	}
	if c.Agent.MaxSteps == 0 {
		c.Agent.MaxSteps = 15
	}
	if c.Agent.Temperature == 0 {
		c.Agent.Temperature = 0.7
	}
	if c.Agent.TimeoutSeconds == 0 {
		c.Agent.TimeoutSeconds = 600
	}

	if c.Parser.CacheSize == 0 {
		c.Parser.CacheSize = 1000
	}
	if c.Parser.Temperature == 0 {
		c.Parser.Temperature = 0.3
	}
	if c.Parser.MaxTokens == 0 {
		c.Parser.MaxTokens = 500
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8080"
	}

	if c.Tools.WebSearch.TimeoutSeconds == 0 {
		c.Tools.WebSearch.TimeoutSeconds = 30
	}
	if c.Tools.Email.SMTPPort == 0 {
		c.Tools.Email.SMTPPort = 587
	}
	if c.Tools.Notion.BaseURL == "" {
		c.Tools.Notion.BaseURL = "https://api.notion.com/v1"
	}
}
