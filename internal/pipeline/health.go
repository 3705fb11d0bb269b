package pipeline

import (
	"context"

	"github.com/joescharf/crv/internal/models"
	"github.com/joescharf/crv/internal/prompt"
	"github.com/joescharf/crv/internal/validate"
)

// knownIssueContext is how many prior issues accompany a health request.
const knownIssueContext = 10

type knownIssue struct {
	Type     string          `json:"type"`
	Severity models.Severity `json:"severity"`
	Message  string          `json:"message"`
}

// Health asks for quality estimates of every code document. Prior analyses,
// when given, are passed along as context. A file whose answer is unusable
// gets validate.DefaultHealth, flagged as a fallback.
func (r *Runner) Health(ctx context.Context, in Input, analyses []models.FileAnalysis) ([]models.HealthMetric, error) {
	if len(in.Code) == 0 {
		return nil, ErrNoCodeFiles
	}
	release, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return r.health(ctx, in, analyses), nil
}

func (r *Runner) health(ctx context.Context, in Input, analyses []models.FileAnalysis) []models.HealthMetric {
	metrics := []models.HealthMetric{}
	for _, d := range first(in.Code, r.cfg.Pacing.MaxCodeFiles) {
		metrics = append(metrics, r.fileHealth(ctx, in, d, issuesOf(analyses, d.Name)))
		pause(ctx, r.cfg.Pacing.HealthCallDelay)
	}
	return metrics
}

func (r *Runner) fileHealth(ctx context.Context, in Input, d *models.Document, issues []models.Issue) models.HealthMetric {
	known := make([]knownIssue, 0, min(len(issues), knownIssueContext))
	for i, is := range issues {
		if i == knownIssueContext {
			break
		}
		known = append(known, knownIssue{Type: is.Type, Severity: is.Severity, Message: is.Message})
	}

	raw, err := r.ask(ctx, prompt.Request{
		Kind:      prompt.KindHealth,
		Documents: []prompt.Document{codeDocument(d)},
		Sections:  []prompt.Section{{Title: "Existing Issues Found", Body: asJSON(known)}},
	}, in.Model)
	if err != nil {
		r.logger.Warn("health analysis failed, using defaults", "session", in.SessionID, "document", d.Name, "task", prompt.KindHealth, "error", err)
		return validate.DefaultHealth(d.Name)
	}
	m, ok := validate.Health(raw, d.Name)
	if !ok {
		r.logger.Warn("health reply unusable, using defaults", "session", in.SessionID, "document", d.Name, "task", prompt.KindHealth)
	}
	return m
}
