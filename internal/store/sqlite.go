package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/joescharf/crv/internal/models"

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

	// SQLite only supports one concurrent writer; analysis runs and HTTP
	// handlers all go through this single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// encodeJSON marshals v for a TEXT column, storing empty instead of null.
func encodeJSON(v any, empty string) string {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return empty
	}
	return string(data)
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
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

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

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

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Sessions ---

func (s *SQLiteStore) CreateSession(ctx context.Context, rs *models.ReviewSession) error {
	if rs.ID == "" {
		rs.ID = uuid.NewString()
	}
	if rs.Status == "" {
		rs.Status = models.SessionStatusActive
	}
	now := time.Now().UTC()
	rs.CreatedAt = now
	rs.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, status, selected_model, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		rs.ID, rs.Status, rs.SelectedModel, rs.CreatedAt, rs.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*models.ReviewSession, error) {
	rs := &models.ReviewSession{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, status, selected_model, created_at, updated_at FROM sessions WHERE id = ?`, id,
	).Scan(&rs.ID, &rs.Status, &rs.SelectedModel, &rs.CreatedAt, &rs.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM documents WHERE session_id = ? ORDER BY uploaded_at, rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("list session documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	rs.DocumentIDs = []string{}
	for rows.Next() {
		var docID string
		if err := rows.Scan(&docID); err != nil {
			return nil, fmt.Errorf("scan document id: %w", err)
		}
		rs.DocumentIDs = append(rs.DocumentIDs, docID)
	}
	rs.DocumentCount = len(rs.DocumentIDs)
	return rs, rows.Err()
}

func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]*models.ReviewSession, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.status, s.selected_model, s.created_at, s.updated_at,
			(SELECT COUNT(*) FROM documents d WHERE d.session_id = s.id)
		FROM sessions s ORDER BY s.updated_at DESC, s.rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*models.ReviewSession
	for rows.Next() {
		rs := &models.ReviewSession{}
		if err := rows.Scan(&rs.ID, &rs.Status, &rs.SelectedModel, &rs.CreatedAt, &rs.UpdatedAt, &rs.DocumentCount); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, rs)
	}
	return sessions, rows.Err()
}

func (s *SQLiteStore) TouchSession(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

// --- Documents ---

const documentColumns = `id, session_id, name, kind, size, media_type, content, uploaded_at`

func scanDocument(row interface{ Scan(...any) error }) (*models.Document, error) {
	d := &models.Document{}
	err := row.Scan(&d.ID, &d.SessionID, &d.Name, &d.Kind, &d.Size, &d.MediaType, &d.Content, &d.UploadedAt)
	return d, err
}

func (s *SQLiteStore) CreateDocument(ctx context.Context, d *models.Document) error {
	if d.ID == "" {
		d.ID = newULID()
	}
	d.UploadedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.SessionID, d.Name, string(d.Kind), d.Size, d.MediaType, d.Content, d.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return s.TouchSession(ctx, d.SessionID)
}

func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	d, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

// FindDocument returns the latest document with the given name and kind.
func (s *SQLiteStore) FindDocument(ctx context.Context, sessionID, name string, kind models.DocumentKind) (*models.Document, error) {
	d, err := scanDocument(s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents
		WHERE session_id = ? AND name = ? AND kind = ?
		ORDER BY uploaded_at DESC, rowid DESC LIMIT 1`, sessionID, name, string(kind)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	return d, nil
}

// ListDocuments returns a session's documents in upload order. An empty kind
// lists every document.
func (s *SQLiteStore) ListDocuments(ctx context.Context, sessionID string, kind models.DocumentKind) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE session_id = ?`
	args := []any{sessionID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY uploaded_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []*models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// --- Analyses ---

func (s *SQLiteStore) CreateAnalysis(ctx context.Context, a *models.AnalysisResult) error {
	if a.ID == "" {
		a.ID = newULID()
	}
	a.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, session_id, model_used, status, summary, file_analyses, checklist, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SessionID, a.ModelUsed, string(a.Status),
		encodeJSON(a.Summary, "{}"), encodeJSON(a.FileAnalyses, "[]"), encodeJSON(a.Checklist, "[]"),
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create analysis: %w", err)
	}
	return s.TouchSession(ctx, a.SessionID)
}

func (s *SQLiteStore) LatestAnalysis(ctx context.Context, sessionID string) (*models.AnalysisResult, error) {
	a := &models.AnalysisResult{}
	var summaryJSON, filesJSON, checklistJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, model_used, status, summary, file_analyses, checklist, created_at
		FROM analyses WHERE session_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, sessionID,
	).Scan(&a.ID, &a.SessionID, &a.ModelUsed, &a.Status, &summaryJSON, &filesJSON, &checklistJSON, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis for session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest analysis: %w", err)
	}
	if err := json.Unmarshal([]byte(summaryJSON), &a.Summary); err != nil {
		return nil, fmt.Errorf("decode analysis summary: %w", err)
	}
	if err := json.Unmarshal([]byte(filesJSON), &a.FileAnalyses); err != nil {
		return nil, fmt.Errorf("decode file analyses: %w", err)
	}
	if err := json.Unmarshal([]byte(checklistJSON), &a.Checklist); err != nil {
		return nil, fmt.Errorf("decode checklist: %w", err)
	}
	return a, nil
}

// SetChecklistItemChecked sets the checked flag of one item of the latest
// analysis checklist and returns the updated item.
func (s *SQLiteStore) SetChecklistItemChecked(ctx context.Context, sessionID, itemID string, checked bool) (*models.ChecklistItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin checklist update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id, checklistJSON string
	err = tx.QueryRowContext(ctx,
		`SELECT id, checklist FROM analyses WHERE session_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, sessionID,
	).Scan(&id, &checklistJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis for session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load checklist: %w", err)
	}

	var items []models.ChecklistItem
	if err := json.Unmarshal([]byte(checklistJSON), &items); err != nil {
		return nil, fmt.Errorf("decode checklist: %w", err)
	}
	i := slices.IndexFunc(items, func(it models.ChecklistItem) bool { return it.ID == itemID })
	if i < 0 {
		return nil, fmt.Errorf("checklist item %s: %w", itemID, ErrNotFound)
	}
	items[i].Checked = checked

	if _, err := tx.ExecContext(ctx, `UPDATE analyses SET checklist = ? WHERE id = ?`, encodeJSON(items, "[]"), id); err != nil {
		return nil, fmt.Errorf("update checklist: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit checklist update: %w", err)
	}
	item := items[i]
	return &item, nil
}

// --- Modified Files ---

func (s *SQLiteStore) CreateModifiedFile(ctx context.Context, m *models.ModifiedFile) error {
	if m.ID == "" {
		m.ID = newULID()
	}
	if m.ReviewStatus == "" {
		m.ReviewStatus = models.ReviewStatusPending
	}
	m.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO modified_files (id, session_id, file_name, original_content, modified_content, changes, issues_fixed, review_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.SessionID, m.FileName, m.OriginalContent, m.ModifiedContent,
		encodeJSON(m.Changes, "[]"), encodeJSON(m.IssuesFixed, "[]"),
		string(m.ReviewStatus), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create modified file: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListModifiedFiles(ctx context.Context, sessionID string) ([]*models.ModifiedFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, file_name, original_content, modified_content, changes, issues_fixed, review_status, created_at
		FROM modified_files WHERE session_id = ? ORDER BY created_at, rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list modified files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var files []*models.ModifiedFile
	for rows.Next() {
		m := &models.ModifiedFile{}
		var changesJSON, fixedJSON string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.FileName, &m.OriginalContent, &m.ModifiedContent,
			&changesJSON, &fixedJSON, &m.ReviewStatus, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan modified file: %w", err)
		}
		_ = json.Unmarshal([]byte(changesJSON), &m.Changes)
		_ = json.Unmarshal([]byte(fixedJSON), &m.IssuesFixed)
		files = append(files, m)
	}
	return files, rows.Err()
}

// UpdateReviewStatus sets the review status of every modified record for a
// file and reports how many rows changed.
func (s *SQLiteStore) UpdateReviewStatus(ctx context.Context, sessionID, fileName string, status models.ReviewStatus) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE modified_files SET review_status = ? WHERE session_id = ? AND file_name = ?`,
		string(status), sessionID, fileName)
	if err != nil {
		return 0, fmt.Errorf("update review status: %w", err)
	}
	return result.RowsAffected()
}

// --- Comprehensive Runs ---

func (s *SQLiteStore) CreateComprehensiveRun(ctx context.Context, r *models.ComprehensiveRun) error {
	if r.ID == "" {
		r.ID = newULID()
	}
	r.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comprehensive_runs (id, session_id, model, checklist, mappings, file_analyses, health_metrics, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SessionID, r.Model,
		encodeJSON(r.Checklist, "[]"), encodeJSON(r.Mappings, "[]"),
		encodeJSON(r.FileAnalyses, "[]"), encodeJSON(r.HealthMetrics, "[]"),
		encodeJSON(r.Summary, "{}"), r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create comprehensive run: %w", err)
	}
	return s.TouchSession(ctx, r.SessionID)
}

func (s *SQLiteStore) LatestComprehensiveRun(ctx context.Context, sessionID string) (*models.ComprehensiveRun, error) {
	r := &models.ComprehensiveRun{}
	var checklistJSON, mappingsJSON, filesJSON, healthJSON, summaryJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, model, checklist, mappings, file_analyses, health_metrics, summary, created_at
		FROM comprehensive_runs WHERE session_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, sessionID,
	).Scan(&r.ID, &r.SessionID, &r.Model, &checklistJSON, &mappingsJSON, &filesJSON, &healthJSON, &summaryJSON, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("comprehensive run for session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest comprehensive run: %w", err)
	}

	for _, col := range []struct {
		name string
		data string
		dst  any
	}{
		{"checklist", checklistJSON, &r.Checklist},
		{"mappings", mappingsJSON, &r.Mappings},
		{"file analyses", filesJSON, &r.FileAnalyses},
		{"health metrics", healthJSON, &r.HealthMetrics},
		{"summary", summaryJSON, &r.Summary},
	} {
		if err := json.Unmarshal([]byte(col.data), col.dst); err != nil {
			return nil, fmt.Errorf("decode %s: %w", col.name, err)
		}
	}
	return r, nil
}
