package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/joescharf/crv/internal/docs"
	"github.com/joescharf/crv/internal/models"
	"github.com/joescharf/crv/internal/prompt"
	"github.com/joescharf/crv/internal/validate"
)

// Local requirement extraction bounds.
const (
	localRequirementFiles = 5
	localRequirementChars = 2000
	contextItems          = 10
)

// AnalyzeCode generates a checklist from the SRS documents, then reviews
// each code document against it. Every reviewed document yields exactly one
// FileAnalysis, completed or failed.
func (r *Runner) AnalyzeCode(ctx context.Context, in Input) (*models.AnalysisResult, error) {
	if len(in.Code) == 0 {
		return nil, ErrNoCodeFiles
	}
	if len(in.SRS) == 0 {
		return nil, ErrNoSRSFiles
	}
	release, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	checklist := r.checklist(ctx, in)
	pause(ctx, r.cfg.Pacing.CallDelay)

	analyses := []models.FileAnalysis{}
	for _, d := range first(in.Code, r.cfg.Pacing.MaxCodeFiles) {
		analyses = append(analyses, r.reviewFile(ctx, in, d, prompt.Request{
			Kind:      prompt.KindCodeAnalysis,
			Documents: []prompt.Document{codeDocument(d)},
			Sections:  []prompt.Section{{Title: "Checklist Context", Body: checklistContext(checklist, 0, true)}},
		}, validate.CodeIssues(r.cfg.Limits.IssuesPerFile)))
		pause(ctx, r.cfg.Pacing.CallDelay)
	}

	return &models.AnalysisResult{
		SessionID:    in.SessionID,
		Summary:      r.scorer.Summarize(analyses),
		FileAnalyses: analyses,
		Checklist:    checklist,
		ModelUsed:    in.Model,
		Status:       models.AnalysisStatusCompleted,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// ValidateSemantics reviews code documents for logic and requirement gaps,
// using the given requirements and checklist as context.
func (r *Runner) ValidateSemantics(ctx context.Context, in Input, reqs []models.Requirement, checklist []models.ChecklistItem) ([]models.FileAnalysis, error) {
	if len(in.Code) == 0 {
		return nil, ErrNoCodeFiles
	}
	release, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return r.validateSemantics(ctx, in, reqs, checklist), nil
}

func (r *Runner) validateSemantics(ctx context.Context, in Input, reqs []models.Requirement, checklist []models.ChecklistItem) []models.FileAnalysis {
	sections := []prompt.Section{
		{Title: "Requirements Context", Body: requirementsContext(reqs, contextItems)},
		{Title: "Validation Checklist", Body: checklistContext(checklist, contextItems, false)},
	}
	analyses := []models.FileAnalysis{}
	for _, d := range first(in.Code, r.cfg.Pacing.MaxValidationFiles) {
		analyses = append(analyses, r.reviewFile(ctx, in, d, prompt.Request{
			Kind:      prompt.KindSemanticValidation,
			Documents: []prompt.Document{codeDocument(d)},
			Sections:  sections,
		}, validate.SemanticIssues(r.cfg.Limits.ValidationIssuesPerFile)))
		pause(ctx, r.cfg.Pacing.CallDelay)
	}
	return analyses
}

// reviewFile runs one issue-finding request for d. It walks the document
// through pending, in_progress and then completed or failed. An empty issues
// array completes the file; a non-empty batch with no valid issue fails it.
func (r *Runner) reviewFile(ctx context.Context, in Input, d *models.Document, req prompt.Request, defaults validate.IssueDefaults) models.FileAnalysis {
	log := r.logger.With("session", in.SessionID, "document", d.Name, "task", req.Kind)
	fa := models.FileAnalysis{
		FileName: d.Name,
		Language: codeDocument(d).Language,
		Size:     d.Size,
		Issues:   []models.Issue{},
		Status:   models.AnalysisStatusPending,
	}
	log.Debug("document pending")

	fa.Status = models.AnalysisStatusInProgress
	log.Debug("document in progress")
	raw, err := r.ask(ctx, req, in.Model)
	if err == nil && !hasIssues(raw) {
		err = errors.New("reply has no issues array")
	}
	if err != nil {
		log.Warn("document analysis failed", "error", err)
		return failedAnalysis(d)
	}

	batch := raw.Get("issues")
	fa.Issues = validate.Issues(batch, defaults)
	if len(fa.Issues) == 0 && len(batch.Array()) > 0 {
		log.Warn("document analysis failed", "error", "no valid issues in reply", "dropped", len(batch.Array()))
		return failedAnalysis(d)
	}
	fa.IssueCount = len(fa.Issues)
	fa.Status = models.AnalysisStatusCompleted
	log.Debug("document completed", "issues", fa.IssueCount)
	return fa
}

// LocalRequirements derives coarse requirements from the SRS documents
// without asking the oracle: one per document, carrying its leading text.
func LocalRequirements(srs []*models.Document) []models.Requirement {
	reqs := []models.Requirement{}
	for i, d := range first(srs, localRequirementFiles) {
		reqs = append(reqs, models.Requirement{
			ID:          fmt.Sprintf("SRS-%d", i+1),
			Description: "Requirements from " + d.Name,
			Category:    validate.DefaultRequirementCat,
			Content:     prompt.Truncate(docs.ExtractSRSText(*d), localRequirementChars),
		})
	}
	return reqs
}

func requirementsContext(reqs []models.Requirement, n int) string {
	lines := make([]string, 0, len(reqs))
	for i, req := range reqs {
		if i == n {
			break
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", req.ID, req.Description))
	}
	return strings.Join(lines, "\n")
}

// issuesOf returns the issues recorded for file in analyses.
func issuesOf(analyses []models.FileAnalysis, file string) []models.Issue {
	for _, fa := range analyses {
		if fa.FileName == file {
			return fa.Issues
		}
	}
	return nil
}

// hasIssues reports whether raw carries an issues array.
func hasIssues(raw gjson.Result) bool {
	return raw.Get("issues").IsArray()
}
