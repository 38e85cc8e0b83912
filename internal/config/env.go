package config

import (
	"os"
	"strings"
)

// expandEnvVars replaces ${VAR} and ${VAR:default} references in string
// fields of the configuration with values from the environment.
func expandEnvVars(c *Config) {
	c.Database.Host = expandString(c.Database.Host)
	c.Database.User = expandString(c.Database.User)
	c.Database.Password = expandString(c.Database.Password)
	c.Database.Database = expandString(c.Database.Database)

	c.LLM.OpenAI.APIKey = expandString(c.LLM.OpenAI.APIKey)
	c.LLM.OpenAI.BaseURL = expandString(c.LLM.OpenAI.BaseURL)

	c.Tools.WebSearch.SerpAPIKey = expandString(c.Tools.WebSearch.SerpAPIKey)
	c.Tools.Email.SMTPHost = expandString(c.Tools.Email.SMTPHost)
	c.Tools.Email.SMTPUser = expandString(c.Tools.Email.SMTPUser)
	c.Tools.Email.SMTPPassword = expandString(c.Tools.Email.SMTPPassword)
	c.Tools.Email.FromAddress = expandString(c.Tools.Email.FromAddress)
	c.Tools.Notion.APIKey = expandString(c.Tools.Notion.APIKey)
}

// expandString expands a single ${VAR} or ${VAR:default} reference.
// Strings without references are returned unchanged.
func expandString(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}

	return os.Expand(s, func(name string) string {
		// Support ${VAR:default} syntax
		if idx := strings.Index(name, ":"); idx >= 0 {
			varName := name[:idx]
			def := name[idx+1:]
			if val, ok := os.LookupEnv(varName); ok {
				return val
			}
			return def
		}
		return os.Getenv(name)
	})
}

// LoadEnvOptional loads KEY=VALUE pairs from a .env file into the process
// environment if the file exists. A missing file is not an error.
func LoadEnvOptional(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key != "" {
			os.Setenv(key, value)
		}
	}

	return nil
}
