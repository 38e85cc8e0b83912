package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/timeros/timeros/internal/logger"
)

const (
	notionDefaultBaseURL = "https://api.notion.com"
	notionAPIVersion     = "2022-06-28"
)

// NotionConfig configures the Notion page tools.
type NotionConfig struct {
	APIKey  string
	BaseURL string // Overridable for tests
}

// notionClient issues authenticated requests against the Notion API.
type notionClient struct {
	client  *http.Client
	apiKey  string
	baseURL string
	logger  *logger.Logger
}

func newNotionClient(cfg NotionConfig, log *logger.Logger) *notionClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = notionDefaultBaseURL
	}
	return &notionClient{
		client:  &http.Client{Timeout: 30 * time.Second},
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log,
	}
}

func (c *notionClient) do(ctx context.Context, method, path string, payload any) (map[string]any, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("notion is not configured: missing API key")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Notion-Version", notionAPIVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notion request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read notion response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.ErrorCtx(ctx, "Notion API returned error status", nil,
			logger.Field{Key: "status_code", Value: resp.StatusCode},
			logger.Field{Key: "response_body", Value: string(respBody)})
		return nil, fmt.Errorf("notion API returned status=%d, body=%s", resp.StatusCode, string(respBody))
	}

	var parsed map[string]any
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse notion response: %w", err)
	}
	return parsed, nil
}

// contentToBlocks splits plain text into paragraph blocks, one per non-empty line.
func contentToBlocks(content string) []map[string]any {
	var blocks []map[string]any
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		blocks = append(blocks, map[string]any{
			"object": "block",
			"type":   "paragraph",
			"paragraph": map[string]any{
				"rich_text": []map[string]any{
					{"type": "text", "text": map[string]any{"content": line}},
				},
			},
		})
	}
	return blocks
}

// CreateNotionPageTool implements the create_notion_page tool.
type CreateNotionPageTool struct {
	client *notionClient
}

// NewCreateNotionPageTool creates a new CreateNotionPageTool instance.
func NewCreateNotionPageTool(cfg NotionConfig, log *logger.Logger) *CreateNotionPageTool {
	return &CreateNotionPageTool{client: newNotionClient(cfg, log)}
}

type createNotionPageArgs struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	DatabaseID string `json:"database_id"`
	ParentID   string `json:"parent_page_id"`
}

func (t *CreateNotionPageTool) Name() string {
	return ToolCreateNotionPage
}

func (t *CreateNotionPageTool) Description() string {
	return "Create a new Notion page with the given title and content, under a database or a parent page."
}

func (t *CreateNotionPageTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"title": map[string]interface{}{
				"type":        "string",
				"description": "Page title",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "Page content as plain text, one paragraph per line",
			},
			"database_id": map[string]interface{}{
				"type":        "string",
				"description": "Notion database to create the page in",
			},
			"parent_page_id": map[string]interface{}{
				"type":        "string",
				"description": "Parent page to create the page under (used when database_id is absent)",
			},
		},
		"required": []string{"title", "content"},
	}
}

func (t *CreateNotionPageTool) Execute(args string) (string, error) {
	return t.ExecuteWithContext(context.Background(), args)
}

func (t *CreateNotionPageTool) ExecuteWithContext(ctx context.Context, args string) (string, error) {
	var parsed createNotionPageArgs
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		return "", fmt.Errorf("failed to parse arguments: %w", err)
	}

	var parent map[string]any
	switch {
	case parsed.DatabaseID != "":
		parent = map[string]any{"database_id": parsed.DatabaseID}
	case parsed.ParentID != "":
		parent = map[string]any{"page_id": parsed.ParentID}
	default:
		return "", fmt.Errorf("either database_id or parent_page_id is required")
	}

	payload := map[string]any{
		"parent": parent,
		"properties": map[string]any{
			"title": map[string]any{
				"title": []map[string]any{
					{"type": "text", "text": map[string]any{"content": parsed.Title}},
				},
			},
		},
		"children": contentToBlocks(parsed.Content),
	}

	resp, err := t.client.do(ctx, http.MethodPost, "/v1/pages", payload)
	if err != nil {
		return "", err
	}

	pageID, _ := resp["id"].(string)
	pageURL, _ := resp["url"].(string)
	return fmt.Sprintf("Created Notion page %s (%s)", pageID, pageURL), nil
}

// UpdateNotionPageTool implements the update_notion_page tool. It appends
// content blocks to an existing page and optionally renames it.
type UpdateNotionPageTool struct {
	client *notionClient
}

// NewUpdateNotionPageTool creates a new UpdateNotionPageTool instance.
func NewUpdateNotionPageTool(cfg NotionConfig, log *logger.Logger) *UpdateNotionPageTool {
	return &UpdateNotionPageTool{client: newNotionClient(cfg, log)}
}

type updateNotionPageArgs struct {
	PageID  string `json:"page_id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (t *UpdateNotionPageTool) Name() string {
	return ToolUpdateNotionPage
}

func (t *UpdateNotionPageTool) Description() string {
	return "Append content to an existing Notion page, optionally changing its title."
}

func (t *UpdateNotionPageTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"page_id": map[string]interface{}{
				"type":        "string",
				"description": "ID of the page to update",
			},
			"title": map[string]interface{}{
				"type":        "string",
				"description": "New page title (optional)",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "Content to append as plain text, one paragraph per line",
			},
		},
		"required": []string{"page_id", "content"},
	}
}

func (t *UpdateNotionPageTool) Execute(args string) (string, error) {
	return t.ExecuteWithContext(context.Background(), args)
}

func (t *UpdateNotionPageTool) ExecuteWithContext(ctx context.Context, args string) (string, error) {
	var parsed updateNotionPageArgs
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		return "", fmt.Errorf("failed to parse arguments: %w", err)
	}
	if parsed.PageID == "" {
		return "", fmt.Errorf("page_id is required")
	}

	if parsed.Title != "" {
		payload := map[string]any{
			"properties": map[string]any{
				"title": map[string]any{
					"title": []map[string]any{
						{"type": "text", "text": map[string]any{"content": parsed.Title}},
					},
				},
			},
		}
		if _, err := t.client.do(ctx, http.MethodPatch, "/v1/pages/"+parsed.PageID, payload); err != nil {
			return "", err
		}
	}

	payload := map[string]any{
		"children": contentToBlocks(parsed.Content),
	}
	if _, err := t.client.do(ctx, http.MethodPatch, "/v1/blocks/"+parsed.PageID+"/children", payload); err != nil {
		return "", err
	}

	return fmt.Sprintf("Updated Notion page %s", parsed.PageID), nil
}
