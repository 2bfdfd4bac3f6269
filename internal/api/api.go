// Package api provides the REST surface: submitting test runs, querying and
// deleting stored results, aggregate status, and screenshot serving.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/siteqa/siteqa/internal/engine"
	"github.com/siteqa/siteqa/internal/models"
	"github.com/siteqa/siteqa/internal/stats"
	"github.com/siteqa/siteqa/internal/store"
)

// maxRequestBodySize limits POST body sizes to prevent DoS.
const maxRequestBodySize = 1 << 20 // 1 MB

// TestRunner runs one website test end to end and returns the persisted
// result.
type TestRunner interface {
	Run(ctx context.Context, req engine.TestRequest) (*models.TestResult, error)
}

// Server provides the REST API handlers.
type Server struct {
	store  store.Store
	runner TestRunner

	screenshotDir    string
	screenshotPrefix string
}

// NewServer creates a new API server. screenshotDir is served under
// screenshotPrefix so stored screenshot URLs resolve.
func NewServer(s store.Store, r TestRunner, screenshotDir, screenshotPrefix string) *Server {
	return &Server{
		store:            s,
		runner:           r,
		screenshotDir:    screenshotDir,
		screenshotPrefix: strings.TrimSuffix(screenshotPrefix, "/"),
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/tests", s.runTest)
	mux.HandleFunc("GET /api/v1/tests", s.listTests)
	mux.HandleFunc("GET /api/v1/tests/{id}", s.getTest)
	mux.HandleFunc("DELETE /api/v1/tests/{id}", s.deleteTest)

	mux.HandleFunc("GET /api/v1/status", s.statusOverview)

	// Stored screenshots, under the same prefix their URLs are built from.
	mux.Handle("GET "+s.screenshotPrefix+"/",
		http.StripPrefix(s.screenshotPrefix+"/", http.FileServer(http.Dir(s.screenshotDir))))

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- Tests ---

// runTestRequest is the request body for POST /api/v1/tests.
type runTestRequest struct {
	URL              string              `json:"url"`
	Credentials      *engine.Credentials `json:"credentials"`
	TestRequirements map[string]any      `json:"test_requirements"`
}

func (s *Server) runTest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req runTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	result, err := s.runner.Run(r.Context(), engine.TestRequest{
		URL:              req.URL,
		Credentials:      req.Credentials,
		TestRequirements: req.TestRequirements,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) listTests(w http.ResponseWriter, r *http.Request) {
	results, err := s.store.ListResults(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []*models.TestResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) getTest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	result, err := s.store.GetResult(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) deleteTest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteResult(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Status ---

func (s *Server) statusOverview(w http.ResponseWriter, r *http.Request) {
	results, err := s.store.ListResults(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats.Summarize(results))
}
