// Package config provides configuration loading and validation for TimerOS.
// It supports TOML configuration files with environment variable expansion,
// default values, and comprehensive validation.
//
// Configuration structure:
//   - [database]: MySQL connection settings for the job store
//   - [agent]: agent model and decision loop configuration
//   - [llm]: LLM provider configuration (OpenAI-compatible, mock)
//   - [parser]: natural-language task parser settings
//   - [logging]: logging level, format, and output
//   - [api]: HTTP API listen address and CORS settings
//   - [tools]: tool configurations (web search, email, notion)
//
// Environment variables can be referenced using ${VAR} or ${VAR:default}
// syntax. For example: api_key = "${OPENAI_API_KEY}"
package config

// Config represents the main application configuration.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Agent    AgentConfig    `toml:"agent"`
	LLM      LLMConfig      `toml:"llm"`
	Parser   ParserConfig   `toml:"parser"`
	Logging  LoggingConfig  `toml:"logging"`
	API      APIConfig      `toml:"api"`
	Tools    ToolsConfig    `toml:"tools"`
}

// DatabaseConfig holds MySQL connection settings for the job store.
type DatabaseConfig struct {
	Host                   string `toml:"host"`
	Port                   int    `toml:"port"`
	User                   string `toml:"user"`
	Password               string `toml:"password"`
	Database               string `toml:"database"`
	MaxConnections         int    `toml:"max_connections"`
	MaxIdleConnections     int    `toml:"max_idle_connections"`
	ConnMaxLifetimeSeconds int    `toml:"conn_max_lifetime_seconds"`
}

// AgentConfig holds decision loop settings.
type AgentConfig struct {
	Model          string  `toml:"model"`
	MaxTokens      int     `toml:"max_tokens"`
	MaxSteps       int     `toml:"max_steps"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// LLMConfig holds LLM provider settings.
type LLMConfig struct {
	Provider string       `toml:"provider"` // openai, mock
	OpenAI   OpenAIConfig `toml:"openai"`
}

// OpenAIConfig holds settings for the OpenAI-compatible provider.
type OpenAIConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ParserConfig holds natural-language parser settings.
type ParserConfig struct {
	CacheSize   int     `toml:"cache_size"`
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Output string `toml:"output"`
}

// APIConfig holds HTTP API settings.
type APIConfig struct {
	ListenAddr  string   `toml:"listen_addr"`
	CORSOrigins []string `toml:"cors_origins"`
}

// ToolsConfig holds per-tool settings.
type ToolsConfig struct {
	WebSearch WebSearchConfig `toml:"web_search"`
	Email     EmailConfig     `toml:"email"`
	Notion    NotionConfig    `toml:"notion"`
}

// WebSearchConfig holds web search tool settings.
type WebSearchConfig struct {
	SerpAPIKey     string `toml:"serpapi_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// EmailConfig holds SMTP settings for the email tools.
type EmailConfig struct {
	SMTPHost     string `toml:"smtp_host"`
	SMTPPort     int    `toml:"smtp_port"`
	SMTPUser     string `toml:"smtp_user"`
	SMTPPassword string `toml:"smtp_password"`
	FromAddress  string `toml:"from_address"`
}

// NotionConfig holds Notion API settings for the page publishing tools.
type NotionConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}
