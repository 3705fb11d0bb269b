package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/crv/internal/docs"
	"github.com/joescharf/crv/internal/models"
	"github.com/joescharf/crv/internal/pipeline"
	"github.com/joescharf/crv/internal/score"
	"github.com/joescharf/crv/internal/store"
)

// Server wraps the crv data layer and orchestrator and exposes them as MCP tools.
type Server struct {
	store        store.Store
	runner       *pipeline.Runner
	defaultModel string
	maxFileSize  int64
}

// NewServer creates the MCP server wrapper with all required dependencies.
func NewServer(s store.Store, runner *pipeline.Runner, defaultModel string, maxFileSize int64) *Server {
	return &Server{
		store:        s,
		runner:       runner,
		defaultModel: defaultModel,
		maxFileSize:  maxFileSize,
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("crv", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.createSessionTool())
	srv.AddTool(s.uploadDocumentTool())
	srv.AddTool(s.analyzeCodeTool())
	srv.AddTool(s.getResultsTool())
	srv.AddTool(s.comprehensiveAnalysisTool())
	srv.AddTool(s.dashboardTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// crv_create_session
func (s *Server) createSessionTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("crv_create_session",
		mcp.WithDescription("Create a new code review session. Returns the session id used by every other crv tool."),
		mcp.WithString("model", mcp.Description("Model id to use for the session's analyses (defaults to the server default)")),
	)
	return tool, s.handleCreateSession
}

func (s *Server) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rs := &models.ReviewSession{SelectedModel: request.GetString("model", s.defaultModel)}
	if err := s.store.CreateSession(ctx, rs); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create session: %v", err)), nil
	}
	return jsonResult(map[string]string{"session_id": rs.ID, "message": "Session created successfully"})
}

// crv_upload_document
func (s *Server) uploadDocumentTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("crv_upload_document",
		mcp.WithDescription("Upload one plain-text document into a session. Use type 'code' for source files and 'srs' for requirements documents."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("name", mcp.Required(), mcp.Description("File name including extension, e.g. app.py or srs.md")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Document type"), mcp.Enum("code", "srs")),
		mcp.WithString("content", mcp.Required(), mcp.Description("File content as plain text")),
	)
	return tool, s.handleUploadDocument
}

func (s *Server) handleUploadDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: session_id"), nil
	}
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: name"), nil
	}
	kind := models.DocumentKind(request.GetString("type", ""))
	content := request.GetString("content", "")

	if err := docs.Validate(name, int64(len(content)), kind, s.maxFileSize); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("session not found: %s", sessionID)), nil
	}

	d := &models.Document{
		SessionID: sessionID,
		Name:      name,
		Kind:      kind,
		Size:      int64(len(content)),
		MediaType: "text/plain",
		Content:   content,
	}
	if err := s.store.CreateDocument(ctx, d); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to store document: %v", err)), nil
	}
	return jsonResult(map[string]string{"file_id": d.ID, "message": "File uploaded successfully", "session_id": sessionID})
}

// crv_analyze_code
func (s *Server) analyzeCodeTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("crv_analyze_code",
		mcp.WithDescription("Generate a checklist from the session's SRS documents and review every code document against it. Stores and returns the summary."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("model", mcp.Description("Model id (defaults to the server default)")),
	)
	return tool, s.handleAnalyzeCode
}

func (s *Server) handleAnalyzeCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in, errResult := s.input(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	result, err := s.runner.AnalyzeCode(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(runError(err)), nil
	}
	if err := s.store.CreateAnalysis(ctx, result); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to store analysis: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"analysis_id": result.ID,
		"status":      result.Status,
		"summary":     result.Summary,
	})
}

// crv_get_results
func (s *Server) getResultsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("crv_get_results",
		mcp.WithDescription("Get the most recent code analysis of a session, including every file's issues and the checklist."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	)
	return tool, s.handleGetResults
}

func (s *Server) handleGetResults(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: session_id"), nil
	}
	a, err := s.store.LatestAnalysis(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError("No analysis found for this session"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load analysis: %v", err)), nil
	}
	return jsonResult(a)
}

// crv_comprehensive_analysis
func (s *Server) comprehensiveAnalysisTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("crv_comprehensive_analysis",
		mcp.WithDescription("Run the full analysis: enhanced checklist, requirement traceability, semantic validation and code health. Returns the compliance summary."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		mcp.WithString("model", mcp.Description("Model id (defaults to the server default)")),
	)
	return tool, s.handleComprehensive
}

func (s *Server) handleComprehensive(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in, errResult := s.input(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	run, err := s.runner.Comprehensive(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(runError(err)), nil
	}
	if err := s.store.CreateComprehensiveRun(ctx, run); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to store analysis: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"analysis_id": run.ID,
		"summary":     run.Summary,
	})
}

// crv_dashboard
func (s *Server) dashboardTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("crv_dashboard",
		mcp.WithDescription("Summarize a session: document counts, latest analysis scores, traceability coverage and health grade."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
	)
	return tool, s.handleDashboard
}

func (s *Server) handleDashboard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: session_id"), nil
	}
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("session not found: %s", sessionID)), nil
	}
	documents, err := s.store.ListDocuments(ctx, sessionID, "")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list documents: %v", err)), nil
	}
	values := make([]models.Document, 0, len(documents))
	for _, d := range documents {
		values = append(values, *d)
	}

	type dashboardOut struct {
		SessionID     string                       `json:"session_id"`
		Files         models.DocumentStats         `json:"files"`
		Analysis      *models.Summary              `json:"analysis,omitempty"`
		Comprehensive *models.ComprehensiveSummary `json:"comprehensive,omitempty"`
		Traceability  *models.TraceabilityStats    `json:"traceability,omitempty"`
		Health        *models.HealthOverview       `json:"health,omitempty"`
	}
	out := dashboardOut{SessionID: sessionID, Files: docs.Stats(values)}

	// Results are optional; a session without analyses still has a dashboard.
	if a, err := s.store.LatestAnalysis(ctx, sessionID); err == nil {
		out.Analysis = &a.Summary
	}
	if run, err := s.store.LatestComprehensiveRun(ctx, sessionID); err == nil {
		stats := s.runner.Scorer().TraceabilityStats(run.Mappings)
		overview := score.HealthOverview(run.HealthMetrics)
		out.Comprehensive = &run.Summary
		out.Traceability = &stats
		out.Health = &overview
	}
	return jsonResult(out)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *Server) input(ctx context.Context, request mcp.CallToolRequest) (pipeline.Input, *mcp.CallToolResult) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return pipeline.Input{}, mcp.NewToolResultError("missing required parameter: session_id")
	}
	code, err := s.store.ListDocuments(ctx, sessionID, models.DocumentKindCode)
	if err != nil {
		return pipeline.Input{}, mcp.NewToolResultError(fmt.Sprintf("failed to list documents: %v", err))
	}
	srs, err := s.store.ListDocuments(ctx, sessionID, models.DocumentKindSRS)
	if err != nil {
		return pipeline.Input{}, mcp.NewToolResultError(fmt.Sprintf("failed to list documents: %v", err))
	}
	return pipeline.Input{
		SessionID: sessionID,
		Model:     request.GetString("model", s.defaultModel),
		SRS:       srs,
		Code:      code,
	}, nil
}

func runError(err error) string {
	switch {
	case errors.Is(err, pipeline.ErrNoCodeFiles):
		return "No code files found for this session"
	case errors.Is(err, pipeline.ErrNoSRSFiles):
		return "No SRS files found for this session"
	}
	return fmt.Sprintf("analysis failed: %v", err)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
