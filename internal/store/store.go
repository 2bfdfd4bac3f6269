package store

import (
	"context"
	"errors"

	"github.com/siteqa/siteqa/internal/models"
)

// ErrNotFound is returned when no test result exists for the given id.
var ErrNotFound = errors.New("test result not found")

// Store defines the persistence interface for test results.
// Results are created once and thereafter only read or deleted.
type Store interface {
	CreateResult(ctx context.Context, r *models.TestResult) error
	GetResult(ctx context.Context, id string) (*models.TestResult, error)
	ListResults(ctx context.Context) ([]*models.TestResult, error)
	ResultExists(ctx context.Context, id string) (bool, error)
	DeleteResult(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
