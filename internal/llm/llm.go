package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/siteqa/siteqa/internal/models"
)

// Client wraps the Anthropic API for summarizing stored test reports.
// Script generation and execution are never done here — those belong to the
// test engine; this client only ever reads persisted results.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// buildSummaryPrompt constructs the system and user prompts for report
// summarization.
func buildSummaryPrompt(r *models.TestResult) (system string, user string) {
	system = `You summarize automated website test reports for non-technical readers. Given a test report, write a short plain-language summary:

- One sentence on the overall outcome (passed or failed, and what was tested)
- Up to three bullet points on the most important bugs, ordered by severity
- Up to three bullet points on the highest-impact recommendations

Rules:
- Plain text only, no markdown fencing or headers
- Never invent bugs or recommendations that are not in the report
- Keep the whole summary under 150 words`

	var sb strings.Builder
	fmt.Fprintf(&sb, "Website: %s\n", r.WebsiteURL)
	fmt.Fprintf(&sb, "Status: %s\n", r.Status)
	fmt.Fprintf(&sb, "Duration: %s (browser: %s)\n", r.Duration, r.Browser)

	if len(r.Bugs) > 0 {
		sb.WriteString("\nBugs:\n")
		for _, b := range r.Bugs {
			fmt.Fprintf(&sb, "- [%s] %s: %s\n", b.Severity, b.Title, b.Description)
		}
	}
	if len(r.Recommendations) > 0 {
		sb.WriteString("\nRecommendations:\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&sb, "- [%s/%s] %s: %s\n", rec.Impact, rec.Category, rec.Title, rec.Description)
		}
	}
	if len(r.Logs) > 0 {
		sb.WriteString("\nExecution log:\n")
		for _, line := range r.Logs {
			fmt.Fprintf(&sb, "  %s\n", line)
		}
	}

	user = sb.String()
	return
}

// SummarizeResult sends a stored test report to the LLM and returns a short
// plain-language summary.
func (c *Client) SummarizeResult(ctx context.Context, r *models.TestResult) (string, error) {
	systemPrompt, userPrompt := buildSummaryPrompt(r)

	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	// Extract text from response
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	if text == "" {
		return "", fmt.Errorf("no text content in API response")
	}

	// Strip markdown fencing if present
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	return text, nil
}
