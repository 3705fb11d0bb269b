package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joescharf/crv/internal/models"
	"github.com/joescharf/crv/internal/prompt"
)

const (
	recentTurns     = 3
	previewChars    = 100
	excerptLimit    = 3
	excerptChars    = 500
	analysisPrefix  = "\n\nCurrent Analysis Summary: "
	recentHeader    = "\n\nRecent conversation context:\n"
	analysisPresent = "Yes"
	analysisMissing = "No"
)

var issueKeywords = []string{"issue", "problem", "analysis", "error", "bug"}

// Replier produces one assistant reply. ok is false when the reply is a
// fallback and the turn should not be remembered.
type Replier interface {
	Chat(ctx context.Context, sessionID, model, message string, notes []string) (reply string, ok bool)
}

// Request is one user message in a session.
type Request struct {
	SessionID string
	Model     string
	Message   string
	Documents []*models.Document
	Summary   *models.Summary
}

// Response is the assistant reply.
type Response struct {
	Reply     string    `json:"response"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Service answers chat messages with session context and remembers the
// conversation.
type Service struct {
	replier Replier
	history *History
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a chat Service.
func NewService(replier Replier, history *History, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{replier: replier, history: history, logger: logger, now: time.Now}
}

// History returns the service's conversation memory.
func (s *Service) History() *History { return s.history }

// Send enhances the message with recent turns and analysis context, asks
// the replier and records the exchange when it succeeds.
func (s *Service) Send(ctx context.Context, req Request) Response {
	turns := s.history.Turns(req.SessionID)
	message := Enhance(req.Message, turns, req.Summary)
	notes := s.notes(req)

	reply, ok := s.replier.Chat(ctx, req.SessionID, req.Model, message, notes)
	now := s.now().UTC()
	if ok {
		s.history.Append(req.SessionID, models.ChatTurn{User: req.Message, Assistant: reply, Timestamp: now})
	}
	return Response{Reply: reply, SessionID: req.SessionID, Timestamp: now}
}

func (s *Service) notes(req Request) []string {
	names := make([]string, 0, len(req.Documents))
	for _, d := range req.Documents {
		names = append(names, d.Name)
	}
	available := analysisMissing
	if req.Summary != nil {
		available = analysisPresent
	}
	notes := []string{
		"Session Context:",
		"- Session ID: " + req.SessionID,
		"- Uploaded Files: " + strings.Join(names, ", "),
		"- Analysis Results Available: " + available,
	}

	excerpts, err := Retrieve(req.Documents, req.Message, excerptLimit, excerptChars)
	if err != nil {
		s.logger.Warn("document retrieval failed", "session", req.SessionID, "error", err)
		return notes
	}
	if len(excerpts) > 0 {
		notes = append(notes, "Relevant document excerpts:")
		for _, e := range excerpts {
			notes = append(notes, fmt.Sprintf("=== %s ===\n%s", e.Name, e.Text))
		}
	}
	return notes
}

// Enhance appends the last few turns and, for questions about issues, the
// current analysis totals to message.
func Enhance(message string, history []models.ChatTurn, summary *models.Summary) string {
	var b strings.Builder
	b.WriteString(message)

	if len(history) > 0 {
		b.WriteString(recentHeader)
		start := max(0, len(history)-recentTurns)
		for _, t := range history[start:] {
			fmt.Fprintf(&b, "Previous: %s -> %s...\n", t.User, prompt.Truncate(t.Assistant, previewChars))
		}
	}

	if summary != nil && mentionsIssues(message) {
		fmt.Fprintf(&b, "%s%d issues found across %d files", analysisPrefix, summary.TotalIssues, summary.TotalFiles)
	}
	return b.String()
}

func mentionsIssues(message string) bool {
	lower := strings.ToLower(message)
	for _, k := range issueKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
