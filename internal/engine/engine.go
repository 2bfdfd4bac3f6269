// Package engine is the HTTP client for the AI test engine, the external
// service that generates Playwright scripts and executes them in a browser.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Credentials are optional login credentials for the site under test.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TestRequest describes one website test run.
type TestRequest struct {
	URL              string         `json:"url"`
	TestRequirements map[string]any `json:"test_requirements,omitempty"`
	Credentials      *Credentials   `json:"credentials,omitempty"`
}

// Client calls the engine's generation and execution endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an engine client for the given base URL.
// A zero timeout leaves requests bounded only by the caller's context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	URL              string         `json:"url"`
	TestRequirements map[string]any `json:"test_requirements"`
	Credentials      *Credentials   `json:"credentials"`
}

type generateResponse struct {
	Success    bool   `json:"success"`
	TestScript string `json:"test_script"`
	Error      string `json:"error"`
}

// GenerateScript asks the engine to produce a test script for the request.
// Any failure — transport, non-2xx status, or an engine-reported error — is
// returned as an error; the script string is only valid when err is nil.
func (c *Client) GenerateScript(ctx context.Context, req TestRequest) (string, error) {
	body := generateRequest{
		URL:              req.URL,
		TestRequirements: req.TestRequirements,
		Credentials:      req.Credentials,
	}

	var resp generateResponse
	if err := c.post(ctx, "/generate-tests", body, &resp); err != nil {
		return "", fmt.Errorf("generation service: %w", err)
	}

	if !resp.Success {
		if resp.Error != "" {
			return "", fmt.Errorf("generation failed: %s", resp.Error)
		}
		return "", fmt.Errorf("generation failed")
	}
	if resp.TestScript == "" {
		return "", fmt.Errorf("generation returned no script")
	}
	return resp.TestScript, nil
}

// ReportBug is a bug entry as reported by the engine. Fields are pointers so
// an absent field can be told apart from a present-but-empty one.
type ReportBug struct {
	BugID       *string `json:"bugId"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Severity    *string `json:"severity"`
}

// ReportRecommendation is a recommendation entry as reported by the engine.
type ReportRecommendation struct {
	RecommendationID string `json:"recommendationId"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	Impact           string `json:"impact"`
	Category         string `json:"category"`
}

// ReportScreenshot is a base64-encoded screenshot entry. A nil B64 means the
// engine sent no payload for this entry.
type ReportScreenshot struct {
	Filename string  `json:"filename"`
	B64      *string `json:"b64"`
}

// ExecutionReport is the engine's execution response. Every field is
// optional; the report package applies defaults. Logs stays raw so a
// malformed (non-list) value degrades to an empty log list instead of
// failing the whole decode.
type ExecutionReport struct {
	Success         *bool                  `json:"success"`
	Status          string                 `json:"status"`
	Logs            json.RawMessage        `json:"logs"`
	Duration        string                 `json:"duration"`
	Browser         string                 `json:"browser"`
	Bugs            []ReportBug            `json:"bugs"`
	Recommendations []ReportRecommendation `json:"recommendations"`
	Screenshots     []ReportScreenshot     `json:"screenshots"`
	Error           string                 `json:"error"`
}

type executeRequest struct {
	TestScript string `json:"test_script"`
	URL        string `json:"url"`
}

// ExecuteScript runs the generated script against the target URL and returns
// the raw execution report. Only transport and HTTP-level failures produce an
// error; the report content itself is validated downstream.
func (c *Client) ExecuteScript(ctx context.Context, script, url string) (*ExecutionReport, error) {
	var report ExecutionReport
	if err := c.post(ctx, "/execute-tests", executeRequest{TestScript: script, URL: url}, &report); err != nil {
		return nil, fmt.Errorf("execution service: %w", err)
	}
	return &report, nil
}

// post sends a JSON POST to the engine and decodes a JSON response into out.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
