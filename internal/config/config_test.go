package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

const minimalConfig = `
[database]
host = "localhost"
user = "timeros"
password = "secret"
database = "timeros"

[llm]
provider = "mock"
`

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Port != 3306 {
		t.Errorf("database.port = %d, want 3306", cfg.Database.Port)
	}
	if cfg.Agent.MaxSteps != 15 {
		t.Errorf("agent.max_steps = %d, want 15", cfg.Agent.MaxSteps)
	}
	if cfg.Agent.MaxTokens != 4096 {
		t.Errorf("agent.max_tokens = %d, want 4096", cfg.Agent.MaxTokens)
	}
	if cfg.Parser.CacheSize != 1000 {
		t.Errorf("parser.cache_size = %d, want 1000", cfg.Parser.CacheSize)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("logging.level = %q, want info", cfg.Logging.Level)
	}
	if cfg.API.ListenAddr != ":8080" {
		t.Errorf("api.listen_addr = %q, want :8080", cfg.API.ListenAddr)
	}
	if cfg.LLM.OpenAI.Model != "gpt-4o-mini" {
		t.Errorf("llm.openai.model = %q", cfg.LLM.OpenAI.Model)
	}
	if cfg.Tools.Email.SMTPPort != 587 {
		t.Errorf("tools.email.smtp_port = %d, want 587", cfg.Tools.Email.SMTPPort)
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("TIMEROS_TEST_DB_PASSWORD", "from-env")

	cfg, err := Load(writeConfig(t, `
[database]
host = "localhost"
user = "timeros"
password = "${TIMEROS_TEST_DB_PASSWORD}"
database = "timeros"

[llm]
provider = "openai"

[llm.openai]
api_key = "${TIMEROS_TEST_MISSING_KEY:fallback-key}"
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Password != "from-env" {
		t.Errorf("database.password = %q, want from-env", cfg.Database.Password)
	}
	if cfg.LLM.OpenAI.APIKey != "fallback-key" {
		t.Errorf("llm.openai.api_key = %q, want fallback-key", cfg.LLM.OpenAI.APIKey)
	}
}

func TestLoad_EnvVarOverridesDefault(t *testing.T) {
	t.Setenv("TIMEROS_TEST_SET_KEY", "real-value")

	cfg, err := Load(writeConfig(t, minimalConfig+`
[tools.web_search]
serpapi_key = "${TIMEROS_TEST_SET_KEY:unused-default}"
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Tools.WebSearch.SerpAPIKey != "real-value" {
		t.Errorf("serpapi_key = %q, want real-value", cfg.Tools.WebSearch.SerpAPIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("Expected error for missing config file")
	}
}

func TestValidate_MinimalMockConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Validate() = %v, want no errors", errs)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.LLM.Provider = "openai" // without an API key

	errs := cfg.Validate()
	if len(errs) == 0 {
		t.Fatal("Expected validation errors for empty database settings")
	}

	var messages []string
	for _, err := range errs {
		messages = append(messages, err.Error())
	}
	joined := strings.Join(messages, "; ")

	for _, want := range []string{"database.host", "database.user", "database.database", "llm.openai.api_key"} {
		if !strings.Contains(joined, want) {
			t.Errorf("Validation errors missing %q: %v", want, joined)
		}
	}
}

func TestValidate_ShortAPIKey(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[database]
host = "localhost"
user = "timeros"
database = "timeros"

[llm]
provider = "openai"

[llm.openai]
api_key = "short"
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	errs := cfg.Validate()
	found := false
	for _, e := range errs {
		if strings.Contains(e.Error(), "too short") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected short api key error, got %v", errs)
	}
}

func TestValidate_UnknownProvider(t *testing.T) {
	cfg, err := Load(writeConfig(t, strings.Replace(minimalConfig, `provider = "mock"`, `provider = "carrier-pigeon"`, 1)))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	errs := cfg.Validate()
	found := false
	for _, e := range errs {
		if strings.Contains(e.Error(), "invalid llm.provider") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected provider error, got %v", errs)
	}
}

func TestValidate_EmailNeedsFromAddress(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
[tools.email]
smtp_host = "mail.example.com"
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	errs := cfg.Validate()
	found := false
	for _, e := range errs {
		if strings.Contains(e.Error(), "from_address") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected from_address error, got %v", errs)
	}
}

func TestLoadEnvOptional(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment line\nTIMEROS_TEST_ENV_FILE_VAR=loaded\n\nbroken-line\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}
	t.Setenv("TIMEROS_TEST_ENV_FILE_VAR", "")

	if err := LoadEnvOptional(path); err != nil {
		t.Fatalf("LoadEnvOptional() error = %v", err)
	}
	if got := os.Getenv("TIMEROS_TEST_ENV_FILE_VAR"); got != "loaded" {
		t.Errorf("Env var = %q, want loaded", got)
	}
}

func TestLoadEnvOptional_MissingFile(t *testing.T) {
	if err := LoadEnvOptional(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("LoadEnvOptional() error = %v, want nil for missing file", err)
	}
}
