package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// AnalyzeDataTool implements the analyze_data tool. It computes descriptive
// statistics over a set of JSON records without calling out anywhere, so the
// model can reason about data it gathered in earlier steps.
type AnalyzeDataTool struct{}

// NewAnalyzeDataTool creates a new AnalyzeDataTool instance.
func NewAnalyzeDataTool() *AnalyzeDataTool {
	return &AnalyzeDataTool{}
}

type analyzeDataArgs struct {
	Data    []map[string]any `json:"data"`
	Field   string           `json:"field"`
	GroupBy string           `json:"group_by"`
}

func (t *AnalyzeDataTool) Name() string {
	return ToolAnalyzeData
}

func (t *AnalyzeDataTool) Description() string {
	return "Compute statistics (count, min, max, mean, sum) over a list of JSON records, optionally grouped by a field."
}

func (t *AnalyzeDataTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"data": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "object"},
				"description": "The records to analyze",
			},
			"field": map[string]interface{}{
				"type":        "string",
				"description": "Numeric field to compute statistics for (optional, all numeric fields when omitted)",
			},
			"group_by": map[string]interface{}{
				"type":        "string",
				"description": "Field to group record counts by (optional)",
			},
		},
		"required": []string{"data"},
	}
}

func (t *AnalyzeDataTool) Execute(args string) (string, error) {
	var parsed analyzeDataArgs
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		return "", fmt.Errorf("failed to parse arguments: %w", err)
	}
	if len(parsed.Data) == 0 {
		return "No records to analyze.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Records: %d\n", len(parsed.Data))

	fields := numericFields(parsed.Data)
	if parsed.Field != "" {
		if _, ok := fields[parsed.Field]; !ok {
			return "", fmt.Errorf("field %q is not numeric or not present", parsed.Field)
		}
		fields = map[string][]float64{parsed.Field: fields[parsed.Field]}
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		st := computeStats(fields[name])
		fmt.Fprintf(&sb, "%s: count=%d min=%s max=%s mean=%s sum=%s\n",
			name, st.count, formatNumber(st.min), formatNumber(st.max),
			formatNumber(st.mean), formatNumber(st.sum))
	}

	if parsed.GroupBy != "" {
		groups := groupCounts(parsed.Data, parsed.GroupBy)
		if len(groups) > 0 {
			fmt.Fprintf(&sb, "Groups by %s:\n", parsed.GroupBy)
			keys := make([]string, 0, len(groups))
			for key := range groups {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			for _, key := range keys {
				fmt.Fprintf(&sb, "  %s: %d\n", key, groups[key])
			}
		}
	}

	return strings.TrimSpace(sb.String()), nil
}

// GenerateDataSummaryTool implements the generate_data_summary tool. It
// renders a Markdown overview of a data set for inclusion in reports.
type GenerateDataSummaryTool struct{}

// NewGenerateDataSummaryTool creates a new GenerateDataSummaryTool instance.
func NewGenerateDataSummaryTool() *GenerateDataSummaryTool {
	return &GenerateDataSummaryTool{}
}

type generateDataSummaryArgs struct {
	Data  []map[string]any `json:"data"`
	Title string           `json:"title"`
}

func (t *GenerateDataSummaryTool) Name() string {
	return ToolGenerateDataSummary
}

func (t *GenerateDataSummaryTool) Description() string {
	return "Generate a Markdown summary of a list of JSON records: field inventory, numeric ranges, sample rows."
}

func (t *GenerateDataSummaryTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"data": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "object"},
				"description": "The records to summarize",
			},
			"title": map[string]interface{}{
				"type":        "string",
				"description": "Summary heading (optional)",
			},
		},
		"required": []string{"data"},
	}
}

func (t *GenerateDataSummaryTool) Execute(args string) (string, error) {
	var parsed generateDataSummaryArgs
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		return "", fmt.Errorf("failed to parse arguments: %w", err)
	}

	var sb strings.Builder
	title := parsed.Title
	if title == "" {
		title = "Data summary"
	}
	fmt.Fprintf(&sb, "## %s\n\n", title)
	fmt.Fprintf(&sb, "Total records: %d\n\n", len(parsed.Data))

	if len(parsed.Data) == 0 {
		return strings.TrimSpace(sb.String()), nil
	}

	fieldSet := make(map[string]struct{})
	for _, record := range parsed.Data {
		for key := range record {
			fieldSet[key] = struct{}{}
		}
	}
	allFields := make([]string, 0, len(fieldSet))
	for key := range fieldSet {
		allFields = append(allFields, key)
	}
	sort.Strings(allFields)
	fmt.Fprintf(&sb, "Fields: %s\n\n", strings.Join(allFields, ", "))

	numeric := numericFields(parsed.Data)
	if len(numeric) > 0 {
		sb.WriteString("| field | count | min | max | mean |\n")
		sb.WriteString("|-------|-------|-----|-----|------|\n")
		names := make([]string, 0, len(numeric))
		for name := range numeric {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			st := computeStats(numeric[name])
			fmt.Fprintf(&sb, "| %s | %d | %s | %s | %s |\n",
				name, st.count, formatNumber(st.min), formatNumber(st.max), formatNumber(st.mean))
		}
		sb.WriteString("\n")
	}

	sample := parsed.Data
	if len(sample) > 3 {
		sample = sample[:3]
	}
	sampleJSON, err := json.MarshalIndent(sample, "", "  ")
	if err == nil {
		fmt.Fprintf(&sb, "Sample records:\n```json\n%s\n```", string(sampleJSON))
	}

	return strings.TrimSpace(sb.String()), nil
}

type stats struct {
	count int
	min   float64
	max   float64
	mean  float64
	sum   float64
}

// numericFields collects per-field numeric values across all records.
func numericFields(data []map[string]any) map[string][]float64 {
	fields := make(map[string][]float64)
	for _, record := range data {
		for key, value := range record {
			if num, ok := value.(float64); ok {
				fields[key] = append(fields[key], num)
			}
		}
	}
	return fields
}

// groupCounts counts records per value of the group-by field. Non-string
// values are rendered with %v so numeric group keys still count.
func groupCounts(data []map[string]any, key string) map[string]int {
	groups := make(map[string]int)
	for _, record := range data {
		value, ok := record[key]
		if !ok || value == nil {
			continue
		}
		groups[fmt.Sprintf("%v", value)]++
	}
	return groups
}

func computeStats(values []float64) stats {
	st := stats{
		count: len(values),
		min:   math.Inf(1),
		max:   math.Inf(-1),
	}
	for _, v := range values {
		st.sum += v
		if v < st.min {
			st.min = v
		}
		if v > st.max {
			st.max = v
		}
	}
	if st.count > 0 {
		st.mean = st.sum / float64(st.count)
	}
	return st
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
