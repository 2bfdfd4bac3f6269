// Package stats aggregates pass/fail statistics over stored test results.
package stats

import (
	"time"

	"github.com/siteqa/siteqa/internal/models"
)

// Summary holds aggregate counts over a set of test results.
type Summary struct {
	Total      int `json:"total"`
	Passed     int `json:"passed"`
	Failed     int `json:"failed"`
	Processing int `json:"processing"`
	PassRate   int `json:"passRate"` // 0-100, over passed+failed runs

	Bugs            int `json:"bugs"`
	Recommendations int `json:"recommendations"`
	Screenshots     int `json:"screenshots"`

	ByCategory map[string]int `json:"byCategory"`

	LastRun *time.Time `json:"lastRun,omitempty"`
}

// Summarize computes aggregate statistics from results.
func Summarize(results []*models.TestResult) *Summary {
	s := &Summary{ByCategory: map[string]int{}}

	for _, r := range results {
		s.Total++
		switch r.Status {
		case models.TestStatusPassed:
			s.Passed++
		case models.TestStatusProcessing:
			s.Processing++
		default:
			// Any non-passed terminal status counts as a failure.
			s.Failed++
		}

		s.Bugs += len(r.Bugs)
		s.Recommendations += len(r.Recommendations)
		s.Screenshots += len(r.Screenshots)

		for _, rec := range r.Recommendations {
			s.ByCategory[rec.Category]++
		}

		if s.LastRun == nil || r.CreatedAt.After(*s.LastRun) {
			t := r.CreatedAt
			s.LastRun = &t
		}
	}

	if done := s.Passed + s.Failed; done > 0 {
		s.PassRate = s.Passed * 100 / done
	}
	return s
}
