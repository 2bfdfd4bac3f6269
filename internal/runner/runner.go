// Package runner sequences one website test end to end: generate a script,
// execute it, normalize the report, persist artifacts, and save the result.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/siteqa/siteqa/internal/artifacts"
	"github.com/siteqa/siteqa/internal/engine"
	"github.com/siteqa/siteqa/internal/models"
	"github.com/siteqa/siteqa/internal/report"
	"github.com/siteqa/siteqa/internal/store"
)

// Engine is the subset of the engine client the runner needs.
type Engine interface {
	GenerateScript(ctx context.Context, req engine.TestRequest) (string, error)
	ExecuteScript(ctx context.Context, script, url string) (*engine.ExecutionReport, error)
}

// Runner orchestrates the generate-and-execute pipeline. Every invocation
// ends with a persisted result: engine failures at any stage degrade into a
// failed record rather than an aborted run. Only a storage failure surfaces
// as an error.
type Runner struct {
	engine Engine
	store  store.Store
	shots  *artifacts.Saver
}

// New creates a Runner.
func New(e Engine, s store.Store, a *artifacts.Saver) *Runner {
	return &Runner{engine: e, store: s, shots: a}
}

// Run executes the full pipeline for one request and returns the persisted
// result.
func (r *Runner) Run(ctx context.Context, req engine.TestRequest) (*models.TestResult, error) {
	now := time.Now().UTC()
	result := &models.TestResult{
		// The id is assigned up front so screenshot storage keys can be
		// derived from it before the record is saved.
		ID:              models.NewID(),
		WebsiteURL:      req.URL,
		ExecutionTime:   now,
		CreatedAt:       now,
		Duration:        models.DefaultDuration,
		Browser:         models.DefaultBrowser,
		Logs:            []string{},
		Bugs:            []models.Bug{},
		Recommendations: []models.Recommendation{},
		Screenshots:     []models.Screenshot{},
	}

	script, err := r.engine.GenerateScript(ctx, req)
	if err != nil {
		// Generation failed: persist immediately, never call execute.
		result.Status = models.TestStatusFailed
		result.Script = "// script generation failed: " + err.Error()
		result.Logs = []string{"Script generation failed"}
		result.Bugs = []models.Bug{{
			BugID:       models.NewBugID(),
			Title:       "General Failure",
			Description: err.Error(),
			Severity:    "high",
		}}
		return r.persist(ctx, result)
	}
	result.Script = script

	rep, execErr := r.engine.ExecuteScript(ctx, script, req.URL)
	// Normalization proceeds on a nil report: a transport failure yields a
	// fully-defaulted failed record instead of a lost run.
	n := report.Normalize(rep)

	result.Status = n.Status
	result.Duration = n.Duration
	result.Browser = n.Browser
	result.Logs = n.Logs
	result.Bugs = n.Bugs
	result.Recommendations = n.Recommendations

	if execErr != nil {
		result.Logs = append(result.Logs, "execution request failed: "+execErr.Error())
	}

	var shots []engine.ReportScreenshot
	if rep != nil {
		shots = rep.Screenshots
	}
	saved, shotLogs := r.shots.Save(result.ID, shots)
	result.Logs = append(result.Logs, shotLogs...)
	if saved != nil {
		result.Screenshots = saved
	}

	completed := time.Now().UTC()
	result.CompletedAt = &completed

	return r.persist(ctx, result)
}

func (r *Runner) persist(ctx context.Context, result *models.TestResult) (*models.TestResult, error) {
	if err := r.store.CreateResult(ctx, result); err != nil {
		return nil, fmt.Errorf("save test result: %w", err)
	}
	return result, nil
}
