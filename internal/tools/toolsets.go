package tools

// Tool names as exposed to the model.
const (
	ToolWebSearch           = "web_search"
	ToolSearchNews          = "search_news"
	ToolSendEmail           = "send_email"
	ToolSendTaskResultEmail = "send_task_result_email"
	ToolCreateNotionPage    = "create_notion_page"
	ToolUpdateNotionPage    = "update_notion_page"
	ToolAnalyzeData         = "analyze_data"
	ToolGenerateDataSummary = "generate_data_summary"
)

// AllToolNames lists every tool the system ships, in registration order.
var AllToolNames = []string{
	ToolWebSearch,
	ToolSearchNews,
	ToolSendEmail,
	ToolSendTaskResultEmail,
	ToolCreateNotionPage,
	ToolUpdateNotionPage,
	ToolAnalyzeData,
	ToolGenerateDataSummary,
}

// toolsByTaskType maps a task type to the tools its runs may call.
var toolsByTaskType = map[string][]string{
	"research_task": {
		ToolWebSearch,
		ToolSearchNews,
		ToolSendEmail,
		ToolSendTaskResultEmail,
	},
	"analysis_task": {
		ToolAnalyzeData,
		ToolGenerateDataSummary,
		ToolSendEmail,
	},
	"report_task": {
		ToolWebSearch,
		ToolSearchNews,
		ToolAnalyzeData,
		ToolGenerateDataSummary,
		ToolCreateNotionPage,
		ToolUpdateNotionPage,
		ToolSendEmail,
	},
}

// ForTaskType returns the registry subset a task of the given type may use.
// Unknown task types get the full registry.
func (r *Registry) ForTaskType(taskType string) *Registry {
	names, ok := toolsByTaskType[taskType]
	if !ok {
		return r.Subset(AllToolNames...)
	}
	return r.Subset(names...)
}
