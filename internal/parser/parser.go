// Package parser turns natural-language task descriptions into structured
// task definitions using an LLM. Identical descriptions are served from an
// LRU cache so repeated submissions do not burn model calls.
package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/wasilibs/go-re2"

	"github.com/timeros/timeros/internal/llm"
	"github.com/timeros/timeros/internal/logger"
	"github.com/timeros/timeros/internal/metrics"
	"github.com/timeros/timeros/internal/store"
)

const defaultCacheSize = 1000

// Parse outcomes reported to metrics.
const (
	parseResultOK       = "ok"
	parseResultCacheHit = "cache_hit"
	parseResultError    = "error"
)

// jsonObjectRe extracts the first JSON object from the model's reply, which
// often arrives wrapped in prose or a code fence. (?s) makes . match newlines.
var jsonObjectRe = re2.MustCompile(`(?s)\{.*\}`)

// codeFenceRe strips Markdown code fences before JSON extraction.
var codeFenceRe = re2.MustCompile("(?s)```(?:json)?(.*?)```")

// ParsedTask is the structured definition extracted from a description.
type ParsedTask struct {
	Name           string
	TaskType       store.TaskType
	Schedule       time.Time
	IsRecurring    bool
	CronExpression string
	Params         store.JSONMap
}

// rawParse mirrors the JSON shape the model is asked to produce.
type rawParse struct {
	Name           string         `json:"name"`
	TaskType       string         `json:"task_type"`
	Schedule       string         `json:"schedule"`
	IsRecurring    bool           `json:"is_recurring"`
	CronExpression string         `json:"cron_expression"`
	Params         map[string]any `json:"params"`
}

// Config holds parser settings.
type Config struct {
	Provider    llm.Provider
	Logger      *logger.Logger
	Metrics     *metrics.PrometheusMetrics
	CacheSize   int
	Temperature float64
	MaxTokens   int

	// Now supplies the wall clock for the prompt. Defaults to time.Now.
	Now func() time.Time
}

// Parser extracts task definitions from free-form text.
type Parser struct {
	provider llm.Provider
	logger   *logger.Logger
	metrics  *metrics.PrometheusMetrics
	cache    *lru.Cache
	config   Config
	now      func() time.Time
}

// New creates a parser with an LRU result cache.
func New(cfg Config) (*Parser, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("LLM provider cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	cache, err := lru.New(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create parser cache: %w", err)
	}

	return &Parser{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		cache:    cache,
		config:   cfg,
		now:      cfg.Now,
	}, nil
}

// Parse turns a description into a task definition. Results are cached by
// normalized description text.
func (p *Parser) Parse(ctx context.Context, description string) (*ParsedTask, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is empty", ErrParse)
	}

	cacheKey := normalizeDescription(description)
	if cached, ok := p.cache.Get(cacheKey); ok {
		p.recordParse(parseResultCacheHit)
		p.logger.DebugCtx(ctx, "Parser cache hit",
			logger.Field{Key: "description_length", Value: len(description)})
		result := cached.(ParsedTask)
		return &result, nil
	}

	resp, err := p.provider.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: p.systemPrompt()},
			{Role: llm.RoleUser, Content: description},
		},
		Temperature: p.config.Temperature,
		MaxTokens:   p.config.MaxTokens,
	})
	if err != nil {
		p.recordParse(parseResultError)
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	parsed, err := p.extract(resp.Content)
	if err != nil {
		p.recordParse(parseResultError)
		p.logger.WarnCtx(ctx, "Failed to extract task definition from model output",
			logger.Field{Key: "error", Value: err.Error()},
			logger.Field{Key: "content_length", Value: len(resp.Content)})
		return nil, err
	}

	result, err := p.validate(ctx, parsed)
	if err != nil {
		p.recordParse(parseResultError)
		return nil, err
	}

	p.cache.Add(cacheKey, *result)
	p.recordParse(parseResultOK)
	return result, nil
}

// extract pulls the first JSON object out of the model's reply.
func (p *Parser) extract(content string) (*rawParse, error) {
	if m := codeFenceRe.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}

	match := jsonObjectRe.FindString(content)
	if match == "" {
		return nil, fmt.Errorf("%w: no JSON object in model output", ErrParse)
	}

	var parsed rawParse
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed JSON: %v", ErrParse, err)
	}
	return &parsed, nil
}

// validate enforces required fields and normalizes the task type. Unknown
// task types fall back to research_task with a warning; a recurring task
// without a cron expression is rejected outright.
func (p *Parser) validate(ctx context.Context, raw *rawParse) (*ParsedTask, error) {
	if raw.TaskType == "" {
		return nil, fmt.Errorf("%w: task_type is required", ErrParse)
	}
	if raw.Schedule == "" {
		return nil, fmt.Errorf("%w: schedule is required", ErrParse)
	}

	schedule, err := parseTime(raw.Schedule)
	if err != nil {
		return nil, fmt.Errorf("%w: bad schedule %q: %v", ErrParse, raw.Schedule, err)
	}

	taskType := store.TaskType(raw.TaskType)
	switch taskType {
	case store.TaskTypeResearch, store.TaskTypeAnalysis, store.TaskTypeReport:
	default:
		p.logger.WarnCtx(ctx, "Unknown task type, falling back to research_task",
			logger.Field{Key: "task_type", Value: raw.TaskType})
		taskType = store.TaskTypeResearch
	}

	if raw.IsRecurring && strings.TrimSpace(raw.CronExpression) == "" {
		return nil, fmt.Errorf("%w: recurring task needs a cron expression", ErrParse)
	}

	name := strings.TrimSpace(raw.Name)
	if name == "" {
		name = "Untitled task"
	}

	params := store.JSONMap(raw.Params)
	if params == nil {
		params = store.JSONMap{}
	}

	return &ParsedTask{
		Name:           name,
		TaskType:       taskType,
		Schedule:       schedule.UTC(),
		IsRecurring:    raw.IsRecurring,
		CronExpression: strings.TrimSpace(raw.CronExpression),
		Params:         params,
	}, nil
}

// systemPrompt is rebuilt per call so relative dates ("tomorrow", "every
// Friday") resolve against the real current time.
func (p *Parser) systemPrompt() string {
	now := p.now()
	return fmt.Sprintf(`You convert task descriptions into JSON task definitions.

Current time: %s
Today is %s.

Reply with a single JSON object and nothing else:
{
  "name": "short task name",
  "task_type": "research_task" | "analysis_task" | "report_task",
  "schedule": "first execution time, RFC 3339, e.g. 2026-01-15T09:00:00Z",
  "is_recurring": true | false,
  "cron_expression": "5-field cron, only when is_recurring is true",
  "params": { "any extra structured parameters mentioned in the description" }
}

Rules:
- research_task gathers information from the web or news.
- analysis_task computes statistics over data.
- report_task compiles findings into a document or page.
- Resolve relative times against the current time given above.
- If the description says to repeat, set is_recurring and a cron_expression.
- Put email addresses, topics, time ranges and similar details into params.`,
		now.Format(time.RFC3339), now.Format("Monday, 02 January 2006"))
}

func (p *Parser) recordParse(result string) {
	if p.metrics != nil {
		p.metrics.RecordParse(result)
	}
}

// parseTime accepts RFC 3339 plus the space-separated variant models like to
// produce.
func parseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format")
}

// normalizeDescription collapses whitespace and case so trivially different
// spellings of the same description share a cache entry.
func normalizeDescription(description string) string {
	return strings.Join(strings.Fields(strings.ToLower(description)), " ")
}
