package store

import (
	"context"
	"errors"

	"github.com/joescharf/crv/internal/models"
)

// ErrNotFound is wrapped by every lookup that matches no row.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for crv. Results are append-only;
// the Latest* lookups return the most recently inserted row.
type Store interface {
	// Sessions
	CreateSession(ctx context.Context, s *models.ReviewSession) error
	GetSession(ctx context.Context, id string) (*models.ReviewSession, error)
	ListSessions(ctx context.Context, limit int) ([]*models.ReviewSession, error)
	TouchSession(ctx context.Context, id string) error

	// Documents
	CreateDocument(ctx context.Context, d *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	FindDocument(ctx context.Context, sessionID, name string, kind models.DocumentKind) (*models.Document, error)
	ListDocuments(ctx context.Context, sessionID string, kind models.DocumentKind) ([]*models.Document, error)

	// Analyses
	CreateAnalysis(ctx context.Context, a *models.AnalysisResult) error
	LatestAnalysis(ctx context.Context, sessionID string) (*models.AnalysisResult, error)
	SetChecklistItemChecked(ctx context.Context, sessionID, itemID string, checked bool) (*models.ChecklistItem, error)

	// Modified files
	CreateModifiedFile(ctx context.Context, m *models.ModifiedFile) error
	ListModifiedFiles(ctx context.Context, sessionID string) ([]*models.ModifiedFile, error)
	UpdateReviewStatus(ctx context.Context, sessionID, fileName string, status models.ReviewStatus) (int64, error)

	// Comprehensive runs
	CreateComprehensiveRun(ctx context.Context, r *models.ComprehensiveRun) error
	LatestComprehensiveRun(ctx context.Context, sessionID string) (*models.ComprehensiveRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
