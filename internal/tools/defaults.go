package tools

import (
	"github.com/timeros/timeros/internal/config"
	"github.com/timeros/timeros/internal/logger"
)

// NewDefaultRegistry builds a registry with every shipped tool, configured
// from the application config.
func NewDefaultRegistry(cfg config.ToolsConfig, log *logger.Logger) (*Registry, error) {
	registry := NewRegistry()

	searchCfg := WebSearchConfig{
		SerpAPIKey:     cfg.WebSearch.SerpAPIKey,
		TimeoutSeconds: cfg.WebSearch.TimeoutSeconds,
	}
	emailCfg := EmailConfig{
		SMTPHost:     cfg.Email.SMTPHost,
		SMTPPort:     cfg.Email.SMTPPort,
		SMTPUser:     cfg.Email.SMTPUser,
		SMTPPassword: cfg.Email.SMTPPassword,
		FromAddress:  cfg.Email.FromAddress,
	}
	notionCfg := NotionConfig{
		APIKey:  cfg.Notion.APIKey,
		BaseURL: cfg.Notion.BaseURL,
	}

	all := []Tool{
		NewWebSearchTool(searchCfg, log),
		NewSearchNewsTool(searchCfg, log),
		NewSendEmailTool(emailCfg, log),
		NewSendTaskResultEmailTool(emailCfg, log),
		NewCreateNotionPageTool(notionCfg, log),
		NewUpdateNotionPageTool(notionCfg, log),
		NewAnalyzeDataTool(),
		NewGenerateDataSummaryTool(),
	}

	for _, tool := range all {
		if err := registry.Register(tool); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
