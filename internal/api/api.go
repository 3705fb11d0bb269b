package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joescharf/crv/internal/chat"
	"github.com/joescharf/crv/internal/config"
	"github.com/joescharf/crv/internal/docs"
	"github.com/joescharf/crv/internal/llm"
	"github.com/joescharf/crv/internal/models"
	"github.com/joescharf/crv/internal/pipeline"
	"github.com/joescharf/crv/internal/store"
)

// Banner is the body of GET /api/.
const Banner = "CodeReview AI Backend - Ready for action! 🚀"

const (
	msgNoSRS           = "No SRS files found for this session"
	msgNoCode          = "No code files found for this session"
	msgNoAnalysis      = "No analysis found for this session"
	msgNoFiles         = "No files found for this session"
	msgNoComprehensive = "No comprehensive analysis found for this session"
	msgInternal        = "internal server error"
)

// ModelCatalog lists the oracle models the server can route to.
type ModelCatalog interface {
	Models() []llm.ModelInfo
	DefaultModel() string
}

// Options configures a Server.
type Options struct {
	Store   store.Store
	Runner  *pipeline.Runner
	Chat    *chat.Service
	Catalog ModelCatalog
	Upload  config.UploadSettings
	Auth    config.AuthSettings
	Logger  *slog.Logger
}

// Server provides the REST API handlers.
type Server struct {
	store   store.Store
	runner  *pipeline.Runner
	chat    *chat.Service
	catalog ModelCatalog
	upload  config.UploadSettings
	auth    config.AuthSettings
	logger  *slog.Logger
	now     func() time.Time
}

// NewServer creates a new API server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	upload := opts.Upload
	if upload.MaxFileSize <= 0 {
		upload.MaxFileSize = docs.DefaultMaxFileSize
	}
	if upload.MaxZipFiles <= 0 {
		upload.MaxZipFiles = 100
	}
	return &Server{
		store:   opts.Store,
		runner:  opts.Runner,
		chat:    opts.Chat,
		catalog: opts.Catalog,
		upload:  upload,
		auth:    opts.Auth,
		logger:  logger,
		now:     time.Now,
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() (http.Handler, error) {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/{$}", s.banner)
	mux.HandleFunc("GET /api/health", s.health)
	mux.HandleFunc("GET /api/models", s.listModels)

	mux.HandleFunc("POST /api/session/create", s.createSession)
	mux.HandleFunc("GET /api/sessions", s.listSessions)
	mux.HandleFunc("GET /api/session/{id}", s.getSession)

	mux.HandleFunc("POST /api/files/upload", s.uploadFile)
	mux.HandleFunc("POST /api/files/upload-zip", s.uploadZip)
	mux.HandleFunc("POST /api/files/validate-srs", s.validateSRS)
	mux.HandleFunc("GET /api/files/download-zip/{session_id}", s.downloadZip)
	mux.HandleFunc("GET /api/files/session/{session_id}", s.sessionFiles)

	mux.HandleFunc("POST /api/analysis/generate-checklist", s.generateChecklist)
	mux.HandleFunc("POST /api/analysis/analyze-code", s.analyzeCode)
	mux.HandleFunc("GET /api/analysis/results/{session_id}", s.analysisResults)
	mux.HandleFunc("POST /api/analysis/checklist/update", s.updateChecklistItem)

	mux.HandleFunc("POST /api/code/fix", s.fixCode)
	mux.HandleFunc("GET /api/code/modified/{session_id}", s.modifiedFiles)
	mux.HandleFunc("POST /api/review/update", s.updateReview)
	mux.HandleFunc("POST /api/report/generate", s.generateReport)

	mux.HandleFunc("POST /api/ai/comprehensive-analysis", s.comprehensiveAnalysis)
	mux.HandleFunc("GET /api/ai/traceability-matrix/{session_id}", s.traceabilityMatrix)
	mux.HandleFunc("GET /api/ai/health-metrics/{session_id}", s.healthMetrics)
	mux.HandleFunc("POST /api/ai/chat", s.chatMessage)
	mux.HandleFunc("POST /api/ai/comprehensive-report", s.comprehensiveReport)
	mux.HandleFunc("GET /api/ai/dashboard/{session_id}", s.dashboard)
	mux.HandleFunc("POST /api/ai/code-suggestions", s.codeSuggestions)
	mux.HandleFunc("POST /api/ai/enhanced-checklist", s.enhancedChecklist)

	auth, err := newAuthMiddleware(s.auth)
	if err != nil {
		return nil, err
	}
	return corsMiddleware(auth(mux)), nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// fail maps err onto the error taxonomy: invalid uploads and missing
// documents are client errors, missing rows are not found, and anything
// else is logged and reported generically.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, docs.ErrInvalidUpload):
		writeError(w, http.StatusBadRequest, reason(err))
	case errors.Is(err, pipeline.ErrNoCodeFiles):
		writeError(w, http.StatusBadRequest, msgNoCode)
	case errors.Is(err, pipeline.ErrNoSRSFiles):
		writeError(w, http.StatusBadRequest, msgNoSRS)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

// reason strips the sentinel prefix from an upload validation error.
func reason(err error) string {
	msg := err.Error()
	prefix := docs.ErrInvalidUpload.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}

// detached keeps oracle work running when the client goes away; an
// abandoned run still completes and persists its result.
func detached(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

func (s *Server) model(requested string) string {
	if requested != "" {
		return requested
	}
	if s.catalog != nil {
		return s.catalog.DefaultModel()
	}
	return ""
}

// sessionInput loads the code and SRS documents of a session.
func (s *Server) sessionInput(ctx context.Context, sessionID, model string) (pipeline.Input, error) {
	code, err := s.store.ListDocuments(ctx, sessionID, models.DocumentKindCode)
	if err != nil {
		return pipeline.Input{}, err
	}
	srs, err := s.store.ListDocuments(ctx, sessionID, models.DocumentKindSRS)
	if err != nil {
		return pipeline.Input{}, err
	}
	return pipeline.Input{SessionID: sessionID, Model: s.model(model), SRS: srs, Code: code}, nil
}

func values(ds []*models.Document) []models.Document {
	out := make([]models.Document, 0, len(ds))
	for _, d := range ds {
		out = append(out, *d)
	}
	return out
}

// --- Meta ---

func (s *Server) banner(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": Banner})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": s.now().UTC()})
}

func (s *Server) listModels(w http.ResponseWriter, _ *http.Request) {
	if s.catalog == nil {
		writeJSON(w, http.StatusOK, []llm.ModelInfo{})
		return
	}
	writeJSON(w, http.StatusOK, s.catalog.Models())
}

// --- Sessions ---

type createSessionRequest struct {
	Model string `json:"model"`
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength > 0 && !decode(w, r, &req) {
		return
	}
	rs := &models.ReviewSession{SelectedModel: s.model(req.Model)}
	if err := s.store.CreateSession(r.Context(), rs); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": rs.ID,
		"message":    "Session created successfully",
	})
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.ListSessions(r.Context(), 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []*models.ReviewSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	rs, err := s.store.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}
