package models

import (
	"math/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// TestStatus represents the final state of a test run.
type TestStatus string

const (
	TestStatusProcessing TestStatus = "processing"
	TestStatusPassed     TestStatus = "passed"
	TestStatusFailed     TestStatus = "failed"
)

// Impact represents the expected benefit of a recommendation.
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// Category classifies a recommendation.
type Category string

const (
	CategoryPerformance   Category = "performance"
	CategorySecurity      Category = "security"
	CategoryAccessibility Category = "accessibility"
	CategorySEO           Category = "seo"
	CategoryUX            Category = "ux"
)

// Defaults applied when the execution engine omits a field.
const (
	DefaultDuration = "0s"
	DefaultBrowser  = "chromium"
)

// ValidImpact reports whether s is one of low, medium, high (case-insensitive).
func ValidImpact(s string) bool {
	switch Impact(strings.ToLower(s)) {
	case ImpactLow, ImpactMedium, ImpactHigh:
		return true
	}
	return false
}

// ValidCategory reports whether s is a known category (case-insensitive).
func ValidCategory(s string) bool {
	switch Category(strings.ToLower(s)) {
	case CategoryPerformance, CategorySecurity, CategoryAccessibility, CategorySEO, CategoryUX:
		return true
	}
	return false
}

// Bug is a single defect found during test execution.
// Severity is stored exactly as the engine reported it; unlike impact and
// category on recommendations it is not checked against an enumerated set.
type Bug struct {
	BugID       string `json:"bugId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// Recommendation is an improvement suggestion produced by the engine.
type Recommendation struct {
	RecommendationID string `json:"recommendationId"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	Impact           string `json:"impact"`
	Category         string `json:"category"`
}

// Screenshot is a stored screenshot artifact with its retrieval URL.
type Screenshot struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

// TestResult is the persisted record of one generate-and-execute run.
// Once saved it is only ever read or deleted, never updated.
type TestResult struct {
	ID              string           `json:"id"`
	WebsiteURL      string           `json:"websiteUrl"`
	Status          TestStatus       `json:"status"`
	Duration        string           `json:"duration"`
	Browser         string           `json:"browser"`
	Script          string           `json:"script"`
	Logs            []string         `json:"logs"`
	Bugs            []Bug            `json:"bugs"`
	Recommendations []Recommendation `json:"recommendations"`
	Screenshots     []Screenshot     `json:"screenshots"`
	ExecutionTime   time.Time        `json:"executionTime"`
	CreatedAt       time.Time        `json:"createdAt"`
	CompletedAt     *time.Time       `json:"completedAt,omitempty"`
}

// NewID generates a new ULID string.
func NewID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// NewBugID generates a fresh bug identifier.
func NewBugID() string {
	return "bug_" + shortSuffix()
}

// NewRecommendationID generates a fresh recommendation identifier.
func NewRecommendationID() string {
	return "rec_" + shortSuffix()
}

// shortSuffix returns a 12-character lowercase id suffix.
func shortSuffix() string {
	return strings.ToLower(NewID())[:12]
}
