package executor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/timeros/timeros/internal/store"
)

// buildPrompt renders the task into the instruction the agent receives.
// Each task type gets its own framing; params the template does not name are
// appended as JSON so nothing the user specified is lost.
func buildPrompt(task *store.Task) string {
	var sb strings.Builder

	switch task.TaskType {
	case store.TaskTypeResearch:
		buildResearchPrompt(&sb, task)
	case store.TaskTypeAnalysis:
		buildAnalysisPrompt(&sb, task)
	case store.TaskTypeReport:
		buildReportPrompt(&sb, task)
	default:
		fmt.Fprintf(&sb, "Complete the following task: %s\n", task.Description)
	}

	if extra := extraParams(task); extra != "" {
		fmt.Fprintf(&sb, "\nAdditional parameters:\n%s\n", extra)
	}

	return strings.TrimSpace(sb.String())
}

func buildResearchPrompt(sb *strings.Builder, task *store.Task) {
	fmt.Fprintf(sb, "Research task: %s\n\n", task.Name)
	fmt.Fprintf(sb, "Description: %s\n", task.Description)

	if topic := stringParam(task, "topic"); topic != "" {
		fmt.Fprintf(sb, "Topic: %s\n", topic)
	}
	if timeRange := stringParam(task, "time_range"); timeRange != "" {
		fmt.Fprintf(sb, "Time range: %s\n", timeRange)
	}

	sb.WriteString("\nUse web and news search to gather current information. ")
	sb.WriteString("Summarize your findings with sources.\n")

	if boolParam(task, "send_email") {
		recipients := recipientsParam(task)
		if recipients != "" {
			fmt.Fprintf(sb, "When done, send the result by email to: %s\n", recipients)
		} else {
			sb.WriteString("When done, send the result by email to the configured recipients.\n")
		}
	}
}

func buildAnalysisPrompt(sb *strings.Builder, task *store.Task) {
	fmt.Fprintf(sb, "Analysis task: %s\n\n", task.Name)
	fmt.Fprintf(sb, "Description: %s\n", task.Description)

	if target := stringParam(task, "target"); target != "" {
		fmt.Fprintf(sb, "Analysis target: %s\n", target)
	}
	if count := stringParam(task, "count"); count != "" {
		fmt.Fprintf(sb, "Expected record count: %s\n", count)
	}

	sb.WriteString("\nAnalyze the data using the statistics tools and report ")
	sb.WriteString("the key figures and what they mean.\n")
}

func buildReportPrompt(sb *strings.Builder, task *store.Task) {
	fmt.Fprintf(sb, "Report task: %s\n\n", task.Name)
	fmt.Fprintf(sb, "Description: %s\n", task.Description)

	if reportType := stringParam(task, "report_type"); reportType != "" {
		fmt.Fprintf(sb, "Report type: %s\n", reportType)
	}

	sb.WriteString("\nGather the needed information, analyze it, and compile a structured report.\n")

	if boolParam(task, "publish_to_notion") {
		if dbID := stringParam(task, "notion_database_id"); dbID != "" {
			fmt.Fprintf(sb, "Publish the report as a Notion page in database %s.\n", dbID)
		} else {
			sb.WriteString("Publish the report as a Notion page.\n")
		}
	}
}

// stringParam reads a string param, tolerating numbers.
func stringParam(task *store.Task, key string) string {
	value, ok := task.Params[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%v", v)
	default:
		return ""
	}
}

func boolParam(task *store.Task, key string) bool {
	value, ok := task.Params[key].(bool)
	return ok && value
}

// recipientsParam renders the email_addresses param, which may be a string or
// an array.
func recipientsParam(task *store.Task) string {
	value, ok := task.Params["email_addresses"]
	if !ok {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case []any:
		var addrs []string
		for _, item := range v {
			if addr, ok := item.(string); ok {
				addrs = append(addrs, addr)
			}
		}
		return strings.Join(addrs, ", ")
	default:
		return ""
	}
}

// templateParams are the params the prompt templates consume directly.
var templateParams = map[string]struct{}{
	"topic":              {},
	"time_range":         {},
	"send_email":         {},
	"email_addresses":    {},
	"target":             {},
	"count":              {},
	"report_type":        {},
	"publish_to_notion":  {},
	"notion_database_id": {},
}

func extraParams(task *store.Task) string {
	rest := make(map[string]any)
	for key, value := range task.Params {
		if _, ok := templateParams[key]; !ok {
			rest[key] = value
		}
	}
	if len(rest) == 0 {
		return ""
	}
	data, err := json.MarshalIndent(rest, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}
