package pipeline

import (
	"context"

	"github.com/joescharf/crv/internal/models"
	"github.com/joescharf/crv/internal/prompt"
	"github.com/joescharf/crv/internal/validate"
)

// SuggestRequest asks for editing suggestions at a cursor position.
type SuggestRequest struct {
	SessionID string
	Model     string
	FileName  string
	Code      string
	Cursor    int
	Context   map[string]any
}

// Suggestions returns up to Limits.Suggestions editing suggestions. Any
// failure yields an empty list.
func (r *Runner) Suggestions(ctx context.Context, req SuggestRequest) []models.Suggestion {
	doc := codeDocument(&models.Document{Name: req.FileName, Content: req.Code, Size: int64(len(req.Code))})
	var sections []prompt.Section
	if len(req.Context) > 0 {
		sections = append(sections, prompt.Section{Title: "Context", Body: asJSON(req.Context), Cap: prompt.SuggestionContextCap})
	}
	raw, err := r.ask(ctx, prompt.Request{
		Kind:      prompt.KindSuggestions,
		Documents: []prompt.Document{doc},
		Sections:  sections,
		Cursor:    req.Cursor,
	}, req.Model)
	if err != nil {
		r.logger.Warn("suggestions failed", "session", req.SessionID, "document", req.FileName, "task", prompt.KindSuggestions, "error", err)
		return []models.Suggestion{}
	}
	return validate.Suggestions(raw, r.cfg.Limits.Suggestions)
}

// Chat sends one enhanced chat message. notes extend the system prompt with
// session facts. When the oracle fails the reply is FallbackChatReply and ok
// is false.
func (r *Runner) Chat(ctx context.Context, sessionID, model, message string, notes []string) (reply string, ok bool) {
	text, err := r.complete(ctx, prompt.Request{Kind: prompt.KindChat, Message: message, Notes: notes}, model)
	if err != nil {
		r.logger.Warn("chat failed", "session", sessionID, "task", prompt.KindChat, "error", err)
		return FallbackChatReply, false
	}
	return text, true
}
