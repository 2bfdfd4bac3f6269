package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/siteqa/siteqa/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single connection
	// serializes all DB access through Go's connection pool, preventing
	// "database is locked" errors from concurrent HTTP requests.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Enable foreign keys so child rows cascade on delete
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	// Create migrations tracking table
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Check if already applied
		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Test results ---

// CreateResult persists a result and its ordered child collections in one
// transaction. The id is assigned here unless the caller supplied one.
func (s *SQLiteStore) CreateResult(ctx context.Context, r *models.TestResult) error {
	if r.ID == "" {
		r.ID = models.NewID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var completedAt any
	if r.CompletedAt != nil {
		completedAt = *r.CompletedAt
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO test_results (id, website_url, status, duration, browser, script, execution_time, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.WebsiteURL, string(r.Status), r.Duration, r.Browser, r.Script,
		r.ExecutionTime, r.CreatedAt, completedAt,
	)
	if err != nil {
		return fmt.Errorf("create test result: %w", err)
	}

	for i, line := range r.Logs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO test_result_logs (result_id, position, line) VALUES (?, ?, ?)`,
			r.ID, i, line,
		); err != nil {
			return fmt.Errorf("insert log %d: %w", i, err)
		}
	}

	for i, b := range r.Bugs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO test_result_bugs (result_id, position, bug_id, title, description, severity)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, i, b.BugID, b.Title, b.Description, b.Severity,
		); err != nil {
			return fmt.Errorf("insert bug %d: %w", i, err)
		}
	}

	for i, rec := range r.Recommendations {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO test_result_recommendations (result_id, position, recommendation_id, title, description, impact, category)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.ID, i, rec.RecommendationID, rec.Title, rec.Description, rec.Impact, rec.Category,
		); err != nil {
			return fmt.Errorf("insert recommendation %d: %w", i, err)
		}
	}

	for i, sc := range r.Screenshots {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO test_result_screenshots (result_id, position, url, caption)
			VALUES (?, ?, ?, ?)`,
			r.ID, i, sc.URL, sc.Caption,
		); err != nil {
			return fmt.Errorf("insert screenshot %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit test result: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetResult(ctx context.Context, id string) (*models.TestResult, error) {
	r := &models.TestResult{}
	var status string
	var completedAt sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT id, website_url, status, duration, browser, script, execution_time, created_at, completed_at
		FROM test_results WHERE id = ?`, id,
	).Scan(&r.ID, &r.WebsiteURL, &status, &r.Duration, &r.Browser, &r.Script,
		&r.ExecutionTime, &r.CreatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get test result: %w", err)
	}

	r.Status = models.TestStatus(status)
	if completedAt.Valid {
		r.CompletedAt = &completedAt.Time
	}

	if err := s.loadChildren(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ListResults returns all results ordered by creation time, newest first.
func (s *SQLiteStore) ListResults(ctx context.Context) ([]*models.TestResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, website_url, status, duration, browser, script, execution_time, created_at, completed_at
		FROM test_results ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list test results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*models.TestResult
	for rows.Next() {
		r := &models.TestResult{}
		var status string
		var completedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.WebsiteURL, &status, &r.Duration, &r.Browser, &r.Script,
			&r.ExecutionTime, &r.CreatedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scan test result: %w", err)
		}
		r.Status = models.TestStatus(status)
		if completedAt.Valid {
			r.CompletedAt = &completedAt.Time
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, r := range results {
		if err := s.loadChildren(ctx, r); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (s *SQLiteStore) ResultExists(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM test_results WHERE id = ?", id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check test result: %w", err)
	}
	return count > 0, nil
}

func (s *SQLiteStore) DeleteResult(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM test_results WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete test result: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// loadChildren fills the ordered child collections of a result.
func (s *SQLiteStore) loadChildren(ctx context.Context, r *models.TestResult) error {
	logRows, err := s.db.QueryContext(ctx,
		`SELECT line FROM test_result_logs WHERE result_id = ? ORDER BY position`, r.ID)
	if err != nil {
		return fmt.Errorf("load logs: %w", err)
	}
	defer func() { _ = logRows.Close() }()
	r.Logs = []string{}
	for logRows.Next() {
		var line string
		if err := logRows.Scan(&line); err != nil {
			return fmt.Errorf("scan log: %w", err)
		}
		r.Logs = append(r.Logs, line)
	}
	if err := logRows.Err(); err != nil {
		return err
	}

	bugRows, err := s.db.QueryContext(ctx,
		`SELECT bug_id, title, description, severity
		FROM test_result_bugs WHERE result_id = ? ORDER BY position`, r.ID)
	if err != nil {
		return fmt.Errorf("load bugs: %w", err)
	}
	defer func() { _ = bugRows.Close() }()
	r.Bugs = []models.Bug{}
	for bugRows.Next() {
		var b models.Bug
		if err := bugRows.Scan(&b.BugID, &b.Title, &b.Description, &b.Severity); err != nil {
			return fmt.Errorf("scan bug: %w", err)
		}
		r.Bugs = append(r.Bugs, b)
	}
	if err := bugRows.Err(); err != nil {
		return err
	}

	recRows, err := s.db.QueryContext(ctx,
		`SELECT recommendation_id, title, description, impact, category
		FROM test_result_recommendations WHERE result_id = ? ORDER BY position`, r.ID)
	if err != nil {
		return fmt.Errorf("load recommendations: %w", err)
	}
	defer func() { _ = recRows.Close() }()
	r.Recommendations = []models.Recommendation{}
	for recRows.Next() {
		var rec models.Recommendation
		if err := recRows.Scan(&rec.RecommendationID, &rec.Title, &rec.Description, &rec.Impact, &rec.Category); err != nil {
			return fmt.Errorf("scan recommendation: %w", err)
		}
		r.Recommendations = append(r.Recommendations, rec)
	}
	if err := recRows.Err(); err != nil {
		return err
	}

	scRows, err := s.db.QueryContext(ctx,
		`SELECT url, caption FROM test_result_screenshots WHERE result_id = ? ORDER BY position`, r.ID)
	if err != nil {
		return fmt.Errorf("load screenshots: %w", err)
	}
	defer func() { _ = scRows.Close() }()
	r.Screenshots = []models.Screenshot{}
	for scRows.Next() {
		var sc models.Screenshot
		if err := scRows.Scan(&sc.URL, &sc.Caption); err != nil {
			return fmt.Errorf("scan screenshot: %w", err)
		}
		r.Screenshots = append(r.Screenshots, sc)
	}
	return scRows.Err()
}
