package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/joescharf/crv/internal/models"
	"github.com/joescharf/crv/internal/pipeline"
	"github.com/joescharf/crv/internal/store"
)

// --- Analysis ---

func (s *Server) generateChecklist(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx := detached(r)
	in, err := s.sessionInput(ctx, q.Get("session_id"), q.Get("model"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	checklist, err := s.runner.GenerateChecklist(ctx, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"checklist": checklist,
		"message":   "Checklist generated successfully",
	})
}

type checklistUpdateRequest struct {
	SessionID string `json:"session_id"`
	ItemID    string `json:"item_id"`
	Checked   *bool  `json:"checked"`
}

// updateChecklistItem ticks or clears one item of the latest checklist.
func (s *Server) updateChecklistItem(w http.ResponseWriter, r *http.Request) {
	var req checklistUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ItemID == "" || req.Checked == nil {
		writeError(w, http.StatusBadRequest, "item_id and checked are required")
		return
	}
	item, err := s.store.SetChecklistItemChecked(r.Context(), req.SessionID, req.ItemID, *req.Checked)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"item":    item,
		"message": "Checklist item updated successfully",
	})
}

type analysisRequest struct {
	SessionID string `json:"session_id"`
	Model     string `json:"model"`
}

func (s *Server) analyzeCode(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := detached(r)
	in, err := s.sessionInput(ctx, req.SessionID, req.Model)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	result, err := s.runner.AnalyzeCode(ctx, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.store.CreateAnalysis(ctx, result); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"analysis_id": result.ID,
		"status":      result.Status,
		"message":     "Code analysis completed successfully",
		"summary":     result.Summary,
	})
}

func (s *Server) analysisResults(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.LatestAnalysis(r.Context(), r.PathValue("session_id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgNoAnalysis)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// --- Code fixes and review ---

type fixRequest struct {
	SessionID string `json:"session_id"`
	FileName  string `json:"file_name"`
	IssueID   string `json:"issue_id"`
	FixAll    bool   `json:"fix_all"`
	Model     string `json:"model"`
}

type fixResponse struct {
	FileName        string          `json:"file_name"`
	ModifiedContent string          `json:"modified_content"`
	Changes         []models.Change `json:"changes"`
	IssuesFixed     []string        `json:"issues_fixed"`
}

func (s *Server) fixCode(w http.ResponseWriter, r *http.Request) {
	var req fixRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := detached(r)

	analysis, err := s.store.LatestAnalysis(ctx, req.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgNoAnalysis)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var fa *models.FileAnalysis
	for i := range analysis.FileAnalyses {
		if analysis.FileAnalyses[i].FileName == req.FileName {
			fa = &analysis.FileAnalyses[i]
			break
		}
	}
	if fa == nil {
		writeError(w, http.StatusNotFound, "File not found in analysis")
		return
	}

	doc, err := s.store.FindDocument(ctx, req.SessionID, req.FileName, models.DocumentKindCode)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Original file not found")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	issues := fa.Issues
	if req.IssueID != "" {
		issues = nil
		for _, is := range fa.Issues {
			if is.ID == req.IssueID {
				issues = append(issues, is)
			}
		}
	}

	out := s.runner.Fix(ctx, pipeline.FixRequest{
		SessionID: req.SessionID,
		Model:     s.model(req.Model),
		Document:  doc,
		Issues:    issues,
	})
	mf := &models.ModifiedFile{
		SessionID:       req.SessionID,
		FileName:        req.FileName,
		OriginalContent: doc.Content,
		ModifiedContent: out.Content,
		Changes:         out.Changes,
		IssuesFixed:     out.IssuesFixed,
	}
	if err := s.store.CreateModifiedFile(ctx, mf); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fixResponse{
		FileName:        req.FileName,
		ModifiedContent: out.Content,
		Changes:         out.Changes,
		IssuesFixed:     out.IssuesFixed,
	})
}

func (s *Server) modifiedFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.store.ListModifiedFiles(r.Context(), r.PathValue("session_id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if files == nil {
		files = []*models.ModifiedFile{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"modified_files": files})
}

type reviewRequest struct {
	SessionID string              `json:"session_id"`
	FileName  string              `json:"file_name"`
	ChangeID  string              `json:"change_id"`
	Status    models.ReviewStatus `json:"status"`
	AcceptAll bool                `json:"accept_all"`
}

type reviewResponse struct {
	Message        string `json:"message"`
	UpdatedChanges int64  `json:"updated_changes"`
	SessionStatus  string `json:"session_status"`
}

// updateReview applies a status to every fix of a file when accept_all is
// set. Per-change review is not tracked, so a change_id alone updates
// nothing.
func (s *Server) updateReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !decode(w, r, &req) {
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid review status: "+string(req.Status))
		return
	}
	var updated int64
	if req.AcceptAll {
		n, err := s.store.UpdateReviewStatus(r.Context(), req.SessionID, req.FileName, req.Status)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		updated = n
	}
	writeJSON(w, http.StatusOK, reviewResponse{
		Message:        "Review status updated successfully",
		UpdatedChanges: updated,
		SessionStatus:  models.SessionStatusActive,
	})
}

// --- Reports ---

type modifiedSummary struct {
	FileName     string              `json:"file_name"`
	IssuesFixed  []string            `json:"issues_fixed"`
	ReviewStatus models.ReviewStatus `json:"review_status"`
}

type reportData struct {
	SessionID      string            `json:"session_id"`
	GeneratedAt    string            `json:"generated_at"`
	Summary        models.Summary    `json:"summary"`
	FilesAnalyzed  int               `json:"files_analyzed"`
	IssuesFound    int               `json:"issues_found"`
	FilesModified  int               `json:"files_modified"`
	ChecklistItems int               `json:"checklist_items"`
	ModelUsed      string            `json:"model_used"`
	ModifiedFiles  []modifiedSummary `json:"modified_files,omitempty"`
}

func (s *Server) generateReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID := q.Get("session_id")
	includeCode := true
	if v := q.Get("include_code"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "include_code must be a boolean")
			return
		}
		includeCode = b
	}

	ctx := r.Context()
	_, sessErr := s.store.GetSession(ctx, sessionID)
	analysis, analysisErr := s.store.LatestAnalysis(ctx, sessionID)
	if errors.Is(sessErr, store.ErrNotFound) || errors.Is(analysisErr, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Session or analysis not found")
		return
	}
	if err := errors.Join(sessErr, analysisErr); err != nil {
		s.fail(w, r, err)
		return
	}
	modified, err := s.store.ListModifiedFiles(ctx, sessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	data := reportData{
		SessionID:      sessionID,
		GeneratedAt:    s.now().UTC().Format("2006-01-02T15:04:05.000000"),
		Summary:        analysis.Summary,
		FilesAnalyzed:  len(analysis.FileAnalyses),
		IssuesFound:    analysis.Summary.TotalIssues,
		FilesModified:  len(modified),
		ChecklistItems: len(analysis.Checklist),
		ModelUsed:      analysis.ModelUsed,
	}
	if includeCode {
		data.ModifiedFiles = make([]modifiedSummary, 0, len(modified))
		for _, m := range modified {
			data.ModifiedFiles = append(data.ModifiedFiles, modifiedSummary{
				FileName:     m.FileName,
				IssuesFixed:  m.IssuesFixed,
				ReviewStatus: m.ReviewStatus,
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"report_data": data, "download_url": nil})
}
