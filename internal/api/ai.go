package api

import (
	"errors"
	"net/http"

	"github.com/joescharf/crv/internal/chat"
	"github.com/joescharf/crv/internal/docs"
	"github.com/joescharf/crv/internal/models"
	"github.com/joescharf/crv/internal/pipeline"
	"github.com/joescharf/crv/internal/score"
	"github.com/joescharf/crv/internal/store"
)

func (s *Server) comprehensiveAnalysis(w http.ResponseWriter, r *http.Request) {
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
	run, err := s.runner.Comprehensive(ctx, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.store.CreateComprehensiveRun(ctx, run); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"analysis_id":     run.ID,
		"session_id":      run.SessionID,
		"status":          models.AnalysisStatusCompleted,
		"message":         "Comprehensive analysis completed successfully",
		"summary":         run.Summary,
		"checklist_items": len(run.Checklist),
		"mappings":        len(run.Mappings),
		"files_analyzed":  len(run.FileAnalyses),
	})
}

// latestRun answers 404 itself when the session has no comprehensive run.
func (s *Server) latestRun(w http.ResponseWriter, r *http.Request, sessionID string) (*models.ComprehensiveRun, bool) {
	run, err := s.store.LatestComprehensiveRun(r.Context(), sessionID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgNoComprehensive)
		return nil, false
	}
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return run, true
}

func (s *Server) traceabilityMatrix(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	run, ok := s.latestRun(w, r, sessionID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":          sessionID,
		"traceability_matrix": run.Mappings,
		"statistics":          s.runner.Scorer().TraceabilityStats(run.Mappings),
	})
}

func (s *Server) healthMetrics(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	run, ok := s.latestRun(w, r, sessionID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":     sessionID,
		"health_metrics": run.HealthMetrics,
		"summary":        score.HealthOverview(run.HealthMetrics),
		"health_score":   score.HealthScore(run.HealthMetrics),
	})
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Model     string `json:"model"`
}

func (s *Server) chatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	ctx := detached(r)
	documents, err := s.store.ListDocuments(ctx, req.SessionID, "")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var summary *models.Summary
	if a, err := s.store.LatestAnalysis(ctx, req.SessionID); err == nil {
		summary = &a.Summary
	} else if !errors.Is(err, store.ErrNotFound) {
		s.fail(w, r, err)
		return
	}

	resp := s.chat.Send(ctx, chat.Request{
		SessionID: req.SessionID,
		Model:     s.model(req.Model),
		Message:   req.Message,
		Documents: documents,
		Summary:   summary,
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) comprehensiveReport(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if !decode(w, r, &req) {
		return
	}
	run, ok := s.latestRun(w, r, req.SessionID)
	if !ok {
		return
	}
	ctx := detached(r)
	session, err := s.store.GetSession(ctx, req.SessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	report := s.runner.Report(ctx, pipeline.ReportInput{
		SessionID:    req.SessionID,
		Model:        s.model(req.Model),
		Session:      session,
		Summary:      run.Summary,
		FileAnalyses: run.FileAnalyses,
		Mappings:     run.Mappings,
		Health:       run.HealthMetrics,
	})
	writeJSON(w, http.StatusOK, report)
}

type dashboardView struct {
	Session       *models.ReviewSession        `json:"session"`
	Files         models.DocumentStats         `json:"files"`
	Analysis      *models.Summary              `json:"analysis,omitempty"`
	Comprehensive *models.ComprehensiveSummary `json:"comprehensive,omitempty"`
	Traceability  *models.TraceabilityStats    `json:"traceability,omitempty"`
	Health        *models.HealthOverview       `json:"health,omitempty"`
	ModifiedFiles int                          `json:"modified_files"`
	PendingReview int                          `json:"pending_review"`
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	ctx := r.Context()
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	documents, err := s.store.ListDocuments(ctx, sessionID, "")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view := dashboardView{Session: session, Files: docs.Stats(values(documents))}

	if a, err := s.store.LatestAnalysis(ctx, sessionID); err == nil {
		view.Analysis = &a.Summary
	} else if !errors.Is(err, store.ErrNotFound) {
		s.fail(w, r, err)
		return
	}
	if run, err := s.store.LatestComprehensiveRun(ctx, sessionID); err == nil {
		stats := s.runner.Scorer().TraceabilityStats(run.Mappings)
		overview := score.HealthOverview(run.HealthMetrics)
		view.Comprehensive = &run.Summary
		view.Traceability = &stats
		view.Health = &overview
	} else if !errors.Is(err, store.ErrNotFound) {
		s.fail(w, r, err)
		return
	}

	modified, err := s.store.ListModifiedFiles(ctx, sessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view.ModifiedFiles = len(modified)
	for _, m := range modified {
		if m.ReviewStatus == models.ReviewStatusPending {
			view.PendingReview++
		}
	}
	writeJSON(w, http.StatusOK, view)
}

type suggestionsRequest struct {
	SessionID      string         `json:"session_id"`
	FileName       string         `json:"file_name"`
	Code           string         `json:"code"`
	CursorPosition int            `json:"cursor_position"`
	Context        map[string]any `json:"context"`
	Model          string         `json:"model"`
}

func (s *Server) codeSuggestions(w http.ResponseWriter, r *http.Request) {
	var req suggestionsRequest
	if !decode(w, r, &req) {
		return
	}
	suggestions := s.runner.Suggestions(detached(r), pipeline.SuggestRequest{
		SessionID: req.SessionID,
		Model:     s.model(req.Model),
		FileName:  req.FileName,
		Code:      req.Code,
		Cursor:    req.CursorPosition,
		Context:   req.Context,
	})
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (s *Server) enhancedChecklist(w http.ResponseWriter, r *http.Request) {
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
	checklist, err := s.runner.EnhancedChecklist(ctx, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"checklist": checklist,
		"message":   "Enhanced checklist generated successfully",
	})
}
