package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteqa/siteqa/internal/models"
)

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)

	assert.Zero(t, s.Total)
	assert.Zero(t, s.PassRate)
	assert.Nil(t, s.LastRun)
	assert.NotNil(t, s.ByCategory)
}

func TestSummarize_Counts(t *testing.T) {
	results := []*models.TestResult{
		{
			Status:    models.TestStatusPassed,
			CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Bugs:      []models.Bug{{Title: "a"}},
			Recommendations: []models.Recommendation{
				{Category: "performance"},
				{Category: "ux"},
			},
			Screenshots: []models.Screenshot{{URL: "x"}},
		},
		{
			Status:    models.TestStatusFailed,
			CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			Bugs:      []models.Bug{{Title: "b"}, {Title: "c"}},
			Recommendations: []models.Recommendation{
				{Category: "performance"},
			},
		},
		{
			Status:    models.TestStatusProcessing,
			CreatedAt: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		},
	}

	s := Summarize(results)

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Processing)
	assert.Equal(t, 3, s.Bugs)
	assert.Equal(t, 3, s.Recommendations)
	assert.Equal(t, 1, s.Screenshots)

	assert.Equal(t, 2, s.ByCategory["performance"])
	assert.Equal(t, 1, s.ByCategory["ux"])

	require.NotNil(t, s.LastRun)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), *s.LastRun)
}

func TestSummarize_PassRate(t *testing.T) {
	tests := []struct {
		name   string
		passed int
		failed int
		want   int
	}{
		{"all passed", 4, 0, 100},
		{"half", 2, 2, 50},
		{"one third", 1, 2, 33},
		{"none finished", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var results []*models.TestResult
			for i := 0; i < tt.passed; i++ {
				results = append(results, &models.TestResult{Status: models.TestStatusPassed})
			}
			for i := 0; i < tt.failed; i++ {
				results = append(results, &models.TestResult{Status: models.TestStatusFailed})
			}
			assert.Equal(t, tt.want, Summarize(results).PassRate)
		})
	}
}

func TestSummarize_ProcessingExcludedFromPassRate(t *testing.T) {
	results := []*models.TestResult{
		{Status: models.TestStatusPassed},
		{Status: models.TestStatusProcessing},
		{Status: models.TestStatusProcessing},
	}
	assert.Equal(t, 100, Summarize(results).PassRate)
}
