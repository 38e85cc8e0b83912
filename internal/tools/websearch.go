package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/timeros/timeros/internal/logger"
)

const serpAPIEndpoint = "https://serpapi.com/search.json"

// WebSearchConfig configures the search tools.
type WebSearchConfig struct {
	SerpAPIKey     string // API key for serpapi.com
	TimeoutSeconds int    // HTTP timeout for search and page fetches
}

// searchClient is shared by the web_search and search_news tools.
type searchClient struct {
	client *http.Client
	apiKey string
	apiURL string
	logger *logger.Logger
}

func newSearchClient(cfg WebSearchConfig, log *logger.Logger) *searchClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &searchClient{
		client: &http.Client{Timeout: timeout},
		apiKey: cfg.SerpAPIKey,
		apiURL: serpAPIEndpoint,
		logger: log,
	}
}

// serpResult is the slice of a SerpAPI response we care about.
type serpResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date,omitempty"`
	Source  string `json:"source,omitempty"`
}

type serpResponse struct {
	OrganicResults []serpResult `json:"organic_results"`
	NewsResults    []serpResult `json:"news_results"`
	Error          string       `json:"error,omitempty"`
}

// search runs a SerpAPI query with the given engine and returns the raw results.
func (c *searchClient) search(ctx context.Context, engine, query string, limit int) ([]serpResult, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("search is not configured: missing SerpAPI key")
	}

	params := url.Values{}
	params.Set("engine", engine)
	params.Set("q", query)
	params.Set("api_key", c.apiKey)
	params.Set("num", fmt.Sprintf("%d", limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned status=%d, body=%s", resp.StatusCode, string(body))
	}

	var parsed serpResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("search API error: %s", parsed.Error)
	}

	results := parsed.OrganicResults
	if engine == "google_news" {
		results = parsed.NewsResults
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// fetchAsMarkdown downloads a page and converts its HTML to compact Markdown.
// Used to enrich the top search hit so the model sees real content, not just
// a snippet. Errors are reported to the caller as an empty string.
func (c *searchClient) fetchAsMarkdown(ctx context.Context, pageURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "timeros/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.DebugCtx(ctx, "Failed to fetch search hit",
			logger.Field{Key: "url", Value: pageURL},
			logger.Field{Key: "error", Value: err.Error()})
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return ""
	}

	return htmlToMarkdown(string(body), c.logger)
}

func htmlToMarkdown(html string, log *logger.Logger) string {
	opts := &md.Options{
		HeadingStyle:    "atx",
		CodeBlockStyle:  "fenced",
		EmDelimiter:     "*",
		StrongDelimiter: "**",
	}

	converter := md.NewConverter("", true, opts)
	converter.AddRules(md.Rule{
		Filter: []string{"nav", "footer", "aside", "script", "style"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			empty := ""
			return &empty
		},
	})

	markdown, err := converter.ConvertString(html)
	if err != nil {
		log.Error("Failed to convert HTML to Markdown", err)
		return ""
	}

	reCleanNewlines := regexp.MustCompile(`\n{3,}`)
	markdown = reCleanNewlines.ReplaceAllString(markdown, "\n\n")

	return strings.TrimSpace(markdown)
}

// formatResults renders search results as a numbered Markdown list.
func formatResults(results []serpResult) string {
	if len(results) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. **%s**\n   %s\n", i+1, r.Title, r.Link)
		if r.Source != "" || r.Date != "" {
			fmt.Fprintf(&sb, "   %s %s\n", r.Source, r.Date)
		}
		if r.Snippet != "" {
			fmt.Fprintf(&sb, "   %s\n", r.Snippet)
		}
	}
	return strings.TrimSpace(sb.String())
}

// WebSearchTool implements the web_search tool backed by SerpAPI.
type WebSearchTool struct {
	client *searchClient
}

// NewWebSearchTool creates a new WebSearchTool instance.
func NewWebSearchTool(cfg WebSearchConfig, log *logger.Logger) *WebSearchTool {
	return &WebSearchTool{client: newSearchClient(cfg, log)}
}

type webSearchArgs struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	FetchTop   bool   `json:"fetch_top"`
}

func (t *WebSearchTool) Name() string {
	return ToolWebSearch
}

func (t *WebSearchTool) Description() string {
	return "Search the web for current information. Returns titles, links and snippets of the top results."
}

func (t *WebSearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "The search query",
			},
			"max_results": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of results to return (default 5, max 10)",
			},
			"fetch_top": map[string]interface{}{
				"type":        "boolean",
				"description": "If true, also fetch the top result page and include its content as Markdown",
			},
		},
		"required": []string{"query"},
	}
}

func (t *WebSearchTool) Execute(args string) (string, error) {
	return t.ExecuteWithContext(context.Background(), args)
}

func (t *WebSearchTool) ExecuteWithContext(ctx context.Context, args string) (string, error) {
	var parsed webSearchArgs
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		return "", fmt.Errorf("failed to parse arguments: %w", err)
	}
	limit := clampLimit(parsed.MaxResults)

	results, err := t.client.search(ctx, "google", parsed.Query, limit)
	if err != nil {
		return "", err
	}

	output := formatResults(results)
	if parsed.FetchTop && len(results) > 0 {
		if content := t.client.fetchAsMarkdown(ctx, results[0].Link); content != "" {
			output += "\n\n---\nTop result content:\n" + truncate(content, 4000)
		}
	}
	return output, nil
}

// SearchNewsTool implements the search_news tool backed by SerpAPI's news engine.
type SearchNewsTool struct {
	client *searchClient
}

// NewSearchNewsTool creates a new SearchNewsTool instance.
func NewSearchNewsTool(cfg WebSearchConfig, log *logger.Logger) *SearchNewsTool {
	return &SearchNewsTool{client: newSearchClient(cfg, log)}
}

type searchNewsArgs struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

func (t *SearchNewsTool) Name() string {
	return ToolSearchNews
}

func (t *SearchNewsTool) Description() string {
	return "Search recent news articles. Returns titles, sources, dates and links of the top stories."
}

func (t *SearchNewsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "The news search query",
			},
			"max_results": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of stories to return (default 5, max 10)",
			},
		},
		"required": []string{"query"},
	}
}

func (t *SearchNewsTool) Execute(args string) (string, error) {
	return t.ExecuteWithContext(context.Background(), args)
}

func (t *SearchNewsTool) ExecuteWithContext(ctx context.Context, args string) (string, error) {
	var parsed searchNewsArgs
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		return "", fmt.Errorf("failed to parse arguments: %w", err)
	}

	results, err := t.client.search(ctx, "google_news", parsed.Query, clampLimit(parsed.MaxResults))
	if err != nil {
		return "", err
	}
	return formatResults(results), nil
}

func clampLimit(n int) int {
	if n <= 0 {
		return 5
	}
	if n > 10 {
		return 10
	}
	return n
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n[truncated]"
}
