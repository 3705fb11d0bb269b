package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/crv/internal/models"
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

func newTestSession(t *testing.T, s *SQLiteStore) *models.ReviewSession {
	t.Helper()
	rs := &models.ReviewSession{SelectedModel: "gpt-4o"}
	require.NoError(t, s.CreateSession(context.Background(), rs))
	return rs
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

// --- Sessions ---

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rs := newTestSession(t, s)
	assert.Len(t, rs.ID, 36, "session ids are UUIDs")
	assert.Equal(t, models.SessionStatusActive, rs.Status)
	assert.False(t, rs.CreatedAt.IsZero())

	got, err := s.GetSession(ctx, rs.ID)
	require.NoError(t, err)
	assert.Equal(t, rs.ID, got.ID)
	assert.Equal(t, "gpt-4o", got.SelectedModel)
	assert.Empty(t, got.DocumentIDs)

	require.NoError(t, s.TouchSession(ctx, rs.ID))

	list, err := s.ListSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, rs.ID, list[0].ID)
}

func TestGetSession_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.TouchSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// --- Documents ---

func TestDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rs := newTestSession(t, s)

	code := &models.Document{SessionID: rs.ID, Name: "main.py", Kind: models.DocumentKindCode, Size: 12, MediaType: "text/x-python", Content: "print('hi')"}
	srs := &models.Document{SessionID: rs.ID, Name: "srs.md", Kind: models.DocumentKindSRS, Size: 20, MediaType: "text/markdown", Content: "# Requirements"}
	require.NoError(t, s.CreateDocument(ctx, code))
	require.NoError(t, s.CreateDocument(ctx, srs))
	assert.NotEmpty(t, code.ID)

	got, err := s.GetDocument(ctx, code.ID)
	require.NoError(t, err)
	assert.Equal(t, "print('hi')", got.Content)
	assert.Equal(t, models.DocumentKindCode, got.Kind)

	all, err := s.ListDocuments(ctx, rs.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "main.py", all[0].Name, "upload order is preserved")

	codes, err := s.ListDocuments(ctx, rs.ID, models.DocumentKindCode)
	require.NoError(t, err)
	require.Len(t, codes, 1)

	found, err := s.FindDocument(ctx, rs.ID, "srs.md", models.DocumentKindSRS)
	require.NoError(t, err)
	assert.Equal(t, srs.ID, found.ID)

	_, err = s.FindDocument(ctx, rs.ID, "srs.md", models.DocumentKindCode)
	assert.ErrorIs(t, err, ErrNotFound)

	sess, err := s.GetSession(ctx, rs.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{code.ID, srs.ID}, sess.DocumentIDs)
	assert.Equal(t, 2, sess.DocumentCount)
}

func TestCreateDocument_UnknownSession(t *testing.T) {
	s := newTestStore(t)

	err := s.CreateDocument(context.Background(), &models.Document{SessionID: "nope", Name: "a.py", Kind: models.DocumentKindCode})
	assert.Error(t, err, "foreign key should reject documents without a session")
}

// --- Analyses ---

func TestLatestAnalysis_ReturnsMostRecent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rs := newTestSession(t, s)

	_, err := s.LatestAnalysis(ctx, rs.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	first := &models.AnalysisResult{
		SessionID: rs.ID,
		ModelUsed: "gpt-4o",
		Status:    models.AnalysisStatusCompleted,
		Summary:   models.Summary{TotalFiles: 1, TotalIssues: 3, OverallScore: 85},
	}
	require.NoError(t, s.CreateAnalysis(ctx, first))

	second := &models.AnalysisResult{
		SessionID: rs.ID,
		ModelUsed: "claude-haiku-4-5",
		Status:    models.AnalysisStatusCompleted,
		Summary:   models.Summary{TotalFiles: 2, TotalIssues: 1, OverallScore: 98},
		FileAnalyses: []models.FileAnalysis{{
			FileName: "a.py",
			Language: "python",
			Status:   models.AnalysisStatusCompleted,
			Issues:   []models.Issue{{Line: 3, Type: "Security", Severity: models.SeverityHigh, Message: "eval"}},
		}},
		Checklist: []models.ChecklistItem{{Category: "Security", Title: "Input Validation", Severity: models.SeverityCritical, Items: []string{"validate"}}},
	}
	require.NoError(t, s.CreateAnalysis(ctx, second))

	got, err := s.LatestAnalysis(ctx, rs.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, 98, got.Summary.OverallScore)
	require.Len(t, got.FileAnalyses, 1)
	assert.Equal(t, models.SeverityHigh, got.FileAnalyses[0].Issues[0].Severity)
	require.Len(t, got.Checklist, 1)
	assert.Equal(t, []string{"validate"}, got.Checklist[0].Items)
}

func TestSetChecklistItemChecked(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rs := newTestSession(t, s)

	_, err := s.SetChecklistItemChecked(ctx, rs.ID, "c1", true)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.CreateAnalysis(ctx, &models.AnalysisResult{
		SessionID: rs.ID,
		Status:    models.AnalysisStatusCompleted,
		Checklist: []models.ChecklistItem{
			{ID: "c1", Title: "Input Validation", Severity: models.SeverityHigh},
			{ID: "c2", Title: "Error Handling", Severity: models.SeverityMedium},
		},
	}))

	item, err := s.SetChecklistItemChecked(ctx, rs.ID, "c2", true)
	require.NoError(t, err)
	assert.Equal(t, "Error Handling", item.Title)
	assert.True(t, item.Checked)

	got, err := s.LatestAnalysis(ctx, rs.ID)
	require.NoError(t, err)
	assert.False(t, got.Checklist[0].Checked)
	assert.True(t, got.Checklist[1].Checked)

	_, err = s.SetChecklistItemChecked(ctx, rs.ID, "c2", false)
	require.NoError(t, err)
	got, err = s.LatestAnalysis(ctx, rs.ID)
	require.NoError(t, err)
	assert.False(t, got.Checklist[1].Checked)

	_, err = s.SetChecklistItemChecked(ctx, rs.ID, "missing", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

// --- Modified Files ---

func TestModifiedFiles_ReviewStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rs := newTestSession(t, s)

	for range 2 {
		require.NoError(t, s.CreateModifiedFile(ctx, &models.ModifiedFile{
			SessionID:       rs.ID,
			FileName:        "a.py",
			OriginalContent: "x = 1",
			ModifiedContent: "x = 2",
			Changes:         []models.Change{{Type: "modification", Line: 1, Content: "x = 2"}},
			IssuesFixed:     []string{"bad value"},
		}))
	}
	require.NoError(t, s.CreateModifiedFile(ctx, &models.ModifiedFile{SessionID: rs.ID, FileName: "b.py"}))

	files, err := s.ListModifiedFiles(ctx, rs.ID)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, models.ReviewStatusPending, files[0].ReviewStatus)
	assert.Equal(t, []string{"bad value"}, files[0].IssuesFixed)

	n, err := s.UpdateReviewStatus(ctx, rs.ID, "a.py", models.ReviewStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	files, err = s.ListModifiedFiles(ctx, rs.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewStatusAccepted, files[0].ReviewStatus)
	assert.Equal(t, models.ReviewStatusPending, files[2].ReviewStatus)

	n, err = s.UpdateReviewStatus(ctx, rs.ID, "missing.py", models.ReviewStatusRejected)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// --- Comprehensive Runs ---

func TestComprehensiveRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rs := newTestSession(t, s)

	_, err := s.LatestComprehensiveRun(ctx, rs.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	run := &models.ComprehensiveRun{
		SessionID: rs.ID,
		Model:     "gpt-4o",
		Mappings: []models.TraceabilityMapping{
			{RequirementID: "REQ-001", CodeElement: "login", FilePath: "auth.py", ConfidenceScore: 0.9},
		},
		HealthMetrics: []models.HealthMetric{
			{FilePath: "auth.py", MaintainabilityIndex: 80, SecurityRiskLevel: models.SeverityLow},
		},
		Summary: models.ComprehensiveSummary{
			Summary:          models.Summary{TotalFiles: 1},
			HealthScore:      80,
			ComplianceStatus: models.ComplianceCompliant,
		},
	}
	require.NoError(t, s.CreateComprehensiveRun(ctx, run))

	got, err := s.LatestComprehensiveRun(ctx, rs.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	require.Len(t, got.Mappings, 1)
	assert.InDelta(t, 0.9, got.Mappings[0].ConfidenceScore, 1e-9)
	assert.Equal(t, models.ComplianceCompliant, got.Summary.ComplianceStatus)
	assert.Equal(t, 1, got.Summary.TotalFiles)
	assert.Equal(t, 80.0, got.HealthMetrics[0].MaintainabilityIndex)
}
