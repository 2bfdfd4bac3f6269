package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siteqa/siteqa/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	err = s.Migrate(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult(url string) *models.TestResult {
	completed := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)
	return &models.TestResult{
		WebsiteURL: url,
		Status:     models.TestStatusPassed,
		Duration:   "12.4s",
		Browser:    "chromium",
		Script:     "// generated script",
		Logs:       []string{"navigating", "clicking login"},
		Bugs: []models.Bug{
			{BugID: "bug_aaaaaaaaaaaa", Title: "Broken link", Description: "404 on /about", Severity: "low"},
		},
		Recommendations: []models.Recommendation{
			{RecommendationID: "rec_bbbbbbbbbbbb", Title: "Compress images", Description: "Large hero image", Impact: "medium", Category: "performance"},
		},
		Screenshots: []models.Screenshot{
			{URL: "/uploads/screenshots/x_0.png", Caption: "homepage.png"},
		},
		ExecutionTime: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		CreatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		CompletedAt:   &completed,
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "subdir", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(filepath.Join(dir, "subdir"))
	assert.NoError(t, err, "should create parent directory")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Running migrate again should be a no-op
	err := s.Migrate(ctx)
	assert.NoError(t, err)
}

func TestResultCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := sampleResult("https://example.com")
	err := s.CreateResult(ctx, r)
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)

	got, err := s.GetResult(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.WebsiteURL, got.WebsiteURL)
	assert.Equal(t, models.TestStatusPassed, got.Status)
	assert.Equal(t, "12.4s", got.Duration)
	assert.Equal(t, "chromium", got.Browser)
	assert.Equal(t, r.Script, got.Script)
	assert.Equal(t, r.Logs, got.Logs)
	assert.Equal(t, r.Bugs, got.Bugs)
	assert.Equal(t, r.Recommendations, got.Recommendations)
	assert.Equal(t, r.Screenshots, got.Screenshots)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(*r.CompletedAt))

	exists, err := s.ResultExists(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	err = s.DeleteResult(ctx, r.ID)
	require.NoError(t, err)

	exists, err = s.ResultExists(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateResult_AssignsIDAndCreatedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := &models.TestResult{
		WebsiteURL: "https://example.com",
		Status:     models.TestStatusFailed,
		Duration:   "0s",
		Browser:    "chromium",
	}
	err := s.CreateResult(ctx, r)
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
	assert.False(t, r.CreatedAt.IsZero())
}

func TestCreateResult_KeepsCallerID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := sampleResult("https://example.com")
	r.ID = models.NewID()
	want := r.ID

	err := s.CreateResult(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, want, r.ID)

	got, err := s.GetResult(ctx, want)
	require.NoError(t, err)
	assert.Equal(t, want, got.ID)
}

func TestGetResult_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetResult(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetResult_EmptyCollections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := &models.TestResult{
		WebsiteURL: "https://example.com",
		Status:     models.TestStatusPassed,
		Duration:   "1s",
		Browser:    "chromium",
	}
	require.NoError(t, s.CreateResult(ctx, r))

	got, err := s.GetResult(ctx, r.ID)
	require.NoError(t, err)

	// Collections come back empty, never nil
	assert.NotNil(t, got.Logs)
	assert.NotNil(t, got.Bugs)
	assert.NotNil(t, got.Recommendations)
	assert.NotNil(t, got.Screenshots)
	assert.Empty(t, got.Logs)
	assert.Nil(t, got.CompletedAt)
}

func TestListResults_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := sampleResult("https://old.example.com")
	old.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateResult(ctx, old))

	recent := sampleResult("https://new.example.com")
	recent.CreatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateResult(ctx, recent))

	results, err := s.ListResults(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://new.example.com", results[0].WebsiteURL)
	assert.Equal(t, "https://old.example.com", results[1].WebsiteURL)

	// Children are loaded for every listed result
	assert.Len(t, results[0].Bugs, 1)
	assert.Len(t, results[1].Bugs, 1)
}

func TestDeleteResult_NotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.DeleteResult(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteResult_CascadesChildren(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := sampleResult("https://example.com")
	require.NoError(t, s.CreateResult(ctx, r))
	require.NoError(t, s.DeleteResult(ctx, r.ID))

	for _, table := range []string{"test_result_logs", "test_result_bugs", "test_result_recommendations", "test_result_screenshots"} {
		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE result_id = ?", r.ID).Scan(&count)
		require.NoError(t, err)
		assert.Zero(t, count, "%s rows should cascade on delete", table)
	}
}

func TestChildOrder_Preserved(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := sampleResult("https://example.com")
	r.Logs = []string{"first", "second", "third", "fourth"}
	require.NoError(t, s.CreateResult(ctx, r))

	got, err := s.GetResult(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third", "fourth"}, got.Logs)
}
