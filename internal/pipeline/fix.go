package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/joescharf/crv/internal/models"
	"github.com/joescharf/crv/internal/prompt"
	"github.com/joescharf/crv/internal/validate"
)

// FixRequest asks for one document to be rewritten.
type FixRequest struct {
	SessionID string
	Model     string
	Document  *models.Document
	Issues    []models.Issue
}

// FixOutcome is the rewritten document. When the oracle fails Content is
// the original text and Changes is empty.
type FixOutcome struct {
	Content     string
	Changes     []models.Change
	IssuesFixed []string
	Summary     string
	Fixed       bool
}

// Fix asks the oracle to resolve the auto-fixable issues in a document and
// diffs the answer against the original.
func (r *Runner) Fix(ctx context.Context, req FixRequest) FixOutcome {
	original := req.Document.Content
	out := FixOutcome{
		Content:     original,
		Changes:     []models.Change{},
		IssuesFixed: make([]string, 0, len(req.Issues)),
	}
	for _, is := range req.Issues {
		out.IssuesFixed = append(out.IssuesFixed, is.Message)
	}

	var lines []string
	for _, is := range req.Issues {
		if is.AutoFixable {
			lines = append(lines, fmt.Sprintf("Line %d: %s - %s", is.Line, is.Message, is.Suggestion))
		}
	}

	raw, err := r.ask(ctx, prompt.Request{
		Kind:      prompt.KindFix,
		Documents: []prompt.Document{codeDocument(req.Document)},
		Sections:  []prompt.Section{{Title: "Issues to fix", Body: strings.Join(lines, "\n")}},
	}, req.Model)
	if err != nil {
		r.logger.Warn("fix failed, keeping original", "session", req.SessionID, "document", req.Document.Name, "task", prompt.KindFix, "error", err)
		return out
	}
	fix, ok := validate.FixResult(raw)
	if !ok {
		r.logger.Warn("fix reply had no code, keeping original", "session", req.SessionID, "document", req.Document.Name, "task", prompt.KindFix)
		return out
	}

	out.Content = fix.FixedCode
	out.Summary = fix.Summary
	out.Changes = Changes(original, fix.FixedCode, fix.Summary)
	out.Fixed = true
	return out
}

// Changes describes the line-level edits turning before into after. Line
// numbers are 1-based and refer to after, except for deletions which refer
// to before.
func Changes(before, after, description string) []models.Change {
	if description == "" {
		description = FallbackFixSummary
	}
	a := difflib.SplitLines(before)
	b := difflib.SplitLines(after)
	changes := []models.Change{}
	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		c := models.Change{ID: uuid.NewString(), Description: description}
		switch op.Tag {
		case 'r':
			c.Type = "modification"
			c.Line = op.J1 + 1
			c.OldContent = joinLines(a[op.I1:op.I2])
			c.Content = joinLines(b[op.J1:op.J2])
		case 'd':
			c.Type = "deletion"
			c.Line = op.I1 + 1
			c.OldContent = joinLines(a[op.I1:op.I2])
		case 'i':
			c.Type = "addition"
			c.Line = op.J1 + 1
			c.Content = joinLines(b[op.J1:op.J2])
		default:
			continue
		}
		changes = append(changes, c)
	}
	return changes
}

func joinLines(lines []string) string {
	return strings.TrimSuffix(strings.Join(lines, ""), "\n")
}
