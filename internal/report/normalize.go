// Package report validates and defaults the engine's loosely-typed execution
// report into the canonical result fields.
package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/siteqa/siteqa/internal/engine"
	"github.com/siteqa/siteqa/internal/models"
)

// Normalized holds the canonical fields derived from an execution report.
type Normalized struct {
	Status          models.TestStatus
	Duration        string
	Browser         string
	Logs            []string
	Bugs            []models.Bug
	Recommendations []models.Recommendation
}

// Normalize converts a raw execution report into canonical fields. A nil
// report (transport failure) yields all defaults and a failed status. The
// result always satisfies: status == failed implies at least one bug.
func Normalize(rep *engine.ExecutionReport) Normalized {
	n := Normalized{
		Status:          models.TestStatusFailed,
		Duration:        models.DefaultDuration,
		Browser:         models.DefaultBrowser,
		Logs:            []string{},
		Bugs:            []models.Bug{},
		Recommendations: []models.Recommendation{},
	}

	errMsg := "Unknown Error"
	if rep != nil {
		n.Status = deriveStatus(rep)
		if rep.Duration != "" {
			n.Duration = rep.Duration
		}
		if rep.Browser != "" {
			n.Browser = rep.Browser
		}
		n.Logs = coerceLogs(rep.Logs)
		for _, b := range rep.Bugs {
			n.Bugs = append(n.Bugs, normalizeBug(b))
		}
		for _, r := range rep.Recommendations {
			n.Recommendations = append(n.Recommendations, normalizeRecommendation(r))
		}
		if rep.Error != "" {
			errMsg = rep.Error
		}
	}

	// A failed run with no reported bugs still gets one, so the record
	// explains its own status.
	if n.Status == models.TestStatusFailed && len(n.Bugs) == 0 {
		n.Bugs = append(n.Bugs, models.Bug{
			BugID:       models.NewBugID(),
			Title:       "General Failure",
			Description: errMsg,
			Severity:    "high",
		})
	}

	return n
}

// deriveStatus prefers the explicit status field, falls back to the success
// flag, and defaults to failed when neither is present.
func deriveStatus(rep *engine.ExecutionReport) models.TestStatus {
	if rep.Status != "" {
		return models.TestStatus(rep.Status)
	}
	if rep.Success != nil && *rep.Success {
		return models.TestStatusPassed
	}
	return models.TestStatusFailed
}

// coerceLogs turns any JSON list into string log lines. Non-list shapes
// (absent, object, scalar) yield an empty list rather than an error.
func coerceLogs(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{}
	}
	logs := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			logs = append(logs, s)
			continue
		}
		logs = append(logs, fmt.Sprint(item))
	}
	return logs
}

func normalizeBug(b engine.ReportBug) models.Bug {
	bug := models.Bug{
		BugID:       orDefault(b.BugID, ""),
		Title:       orDefault(b.Title, "Unknown Bug"),
		Description: orDefault(b.Description, ""),
		// Severity is deliberately not validated against an enum;
		// it is stored exactly as reported when present.
		Severity: orDefault(b.Severity, "medium"),
	}
	if bug.BugID == "" {
		bug.BugID = models.NewBugID()
	}
	return bug
}

func normalizeRecommendation(r engine.ReportRecommendation) models.Recommendation {
	rec := models.Recommendation{
		RecommendationID: r.RecommendationID,
		Title:            r.Title,
		Description:      r.Description,
		Impact:           r.Impact,
		Category:         r.Category,
	}
	if rec.RecommendationID == "" {
		rec.RecommendationID = models.NewRecommendationID()
	}
	if rec.Title == "" {
		rec.Title = "AI Recommendation"
	}
	if rec.Description == "" {
		rec.Description = "No description provided"
	}
	if !models.ValidImpact(rec.Impact) {
		rec.Impact = string(models.ImpactMedium)
	} else {
		rec.Impact = strings.ToLower(rec.Impact)
	}
	if !models.ValidCategory(rec.Category) {
		rec.Category = string(models.CategoryUX)
	} else {
		rec.Category = strings.ToLower(rec.Category)
	}
	return rec
}

func orDefault(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
