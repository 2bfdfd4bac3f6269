package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateScript_Success(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/generate-tests", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":     true,
			"test_script": "const { test } = require('@playwright/test');",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	script, err := c.GenerateScript(context.Background(), TestRequest{
		URL:              "https://example.com",
		TestRequirements: map[string]any{"focus": "login"},
		Credentials:      &Credentials{Username: "u", Password: "p"},
	})
	require.NoError(t, err)
	assert.Contains(t, script, "playwright")

	assert.Equal(t, "https://example.com", gotBody["url"])
	creds, ok := gotBody["credentials"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "u", creds["username"])
}

func TestGenerateScript_EngineError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   "model overloaded",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.GenerateScript(context.Background(), TestRequest{URL: "https://example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestGenerateScript_EmptyScript(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "test_script": ""})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.GenerateScript(context.Background(), TestRequest{URL: "https://example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no script")
}

func TestGenerateScript_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.GenerateScript(context.Background(), TestRequest{URL: "https://example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}

func TestGenerateScript_TransportError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", time.Second)
	_, err := c.GenerateScript(context.Background(), TestRequest{URL: "https://example.com"})
	require.Error(t, err)
}

func TestExecuteScript_FullReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/execute-tests", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "the-script", req["test_script"])
		assert.Equal(t, "https://example.com", req["url"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":  true,
			"status":   "passed",
			"duration": "8.1s",
			"browser":  "firefox",
			"logs":     []string{"step 1", "step 2"},
			"bugs": []map[string]any{
				{"title": "Slow page", "severity": "low"},
			},
			"recommendations": []map[string]any{
				{"title": "Add alt text", "impact": "high", "category": "accessibility"},
			},
			"screenshots": []map[string]any{
				{"filename": "home.png", "b64": "aGVsbG8="},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	rep, err := c.ExecuteScript(context.Background(), "the-script", "https://example.com")
	require.NoError(t, err)

	require.NotNil(t, rep.Success)
	assert.True(t, *rep.Success)
	assert.Equal(t, "passed", rep.Status)
	assert.Equal(t, "8.1s", rep.Duration)
	assert.Equal(t, "firefox", rep.Browser)

	require.Len(t, rep.Bugs, 1)
	require.NotNil(t, rep.Bugs[0].Title)
	assert.Equal(t, "Slow page", *rep.Bugs[0].Title)
	assert.Nil(t, rep.Bugs[0].Description)

	require.Len(t, rep.Recommendations, 1)
	assert.Equal(t, "accessibility", rep.Recommendations[0].Category)

	require.Len(t, rep.Screenshots, 1)
	assert.Equal(t, "home.png", rep.Screenshots[0].Filename)
	require.NotNil(t, rep.Screenshots[0].B64)
}

func TestExecuteScript_MalformedLogsStillDecodes(t *testing.T) {
	// A non-list logs shape must not fail the report decode.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"passed","logs":{"weird":"shape"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	rep, err := c.ExecuteScript(context.Background(), "s", "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, "passed", rep.Status)
	assert.NotEmpty(t, rep.Logs)
}

func TestExecuteScript_TransportError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", time.Second)
	rep, err := c.ExecuteScript(context.Background(), "s", "https://example.com")
	require.Error(t, err)
	assert.Nil(t, rep)
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/generate-tests", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "test_script": "x"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", 5*time.Second)
	_, err := c.GenerateScript(context.Background(), TestRequest{URL: "https://example.com"})
	require.NoError(t, err)
}
