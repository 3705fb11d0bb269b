package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joescharf/crv/internal/models"
	"github.com/joescharf/crv/internal/prompt"
	"github.com/joescharf/crv/internal/validate"
)

// techSampleFiles is how many code files DetectTechStack looks at.
const techSampleFiles = 10

// frameworkMarkers maps a lowercase content marker to the framework it
// reveals.
var frameworkMarkers = []struct {
	marker    string
	framework string
}{
	{"fastapi", "FastAPI"},
	{"react", "React"},
	{"mongoose", "MongoDB"},
	{"mongodb", "MongoDB"},
	{"express", "Express"},
	{"django", "Django"},
	{"spring", "Spring"},
}

// GenerateChecklist derives a review checklist from the session's SRS
// documents. Any failure yields DefaultChecklist.
func (r *Runner) GenerateChecklist(ctx context.Context, in Input) ([]models.ChecklistItem, error) {
	if len(in.SRS) == 0 {
		return nil, ErrNoSRSFiles
	}
	return r.checklist(ctx, in), nil
}

func (r *Runner) checklist(ctx context.Context, in Input) []models.ChecklistItem {
	log := r.logger.With("session", in.SessionID, "task", prompt.KindChecklist)

	raw, err := r.ask(ctx, prompt.Request{Kind: prompt.KindChecklist, Documents: srsDocuments(in.SRS)}, in.Model)
	if err != nil {
		log.Warn("checklist generation failed, using default", "error", err)
		return DefaultChecklist()
	}
	items := validate.Checklist(raw, r.cfg.Limits.ChecklistItems)
	if len(items) == 0 {
		log.Warn("checklist reply had no usable items, using default")
		return DefaultChecklist()
	}
	for i := range items {
		if items[i].RelevantRequirement == "" {
			items[i].RelevantRequirement = validate.InferRequirement(items[i].Title)
		}
	}
	log.Debug("checklist generated", "items", len(items))
	return items
}

// EnhancedChecklist builds a checklist tailored to the SRS domain and the
// technology stack of the code. Any failure yields FallbackEnhancedChecklist.
func (r *Runner) EnhancedChecklist(ctx context.Context, in Input) ([]models.ChecklistItem, error) {
	if len(in.SRS) == 0 {
		return nil, ErrNoSRSFiles
	}
	release, err := r.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return r.enhancedChecklist(ctx, in), nil
}

func (r *Runner) enhancedChecklist(ctx context.Context, in Input) []models.ChecklistItem {
	log := r.logger.With("session", in.SessionID, "task", prompt.KindEnhancedChecklist)

	domain := r.domain(ctx, in)
	pause(ctx, r.cfg.Pacing.CallDelay)
	stack := DetectTechStack(in.Code)

	raw, err := r.ask(ctx, prompt.Request{
		Kind: prompt.KindEnhancedChecklist,
		Sections: []prompt.Section{
			{Title: "Domain Context", Body: asJSON(domain)},
			{Title: "Technology Stack", Body: asJSON(stack)},
		},
	}, in.Model)
	if err != nil {
		log.Warn("enhanced checklist failed, using fallback", "error", err)
		return FallbackEnhancedChecklist()
	}
	items := validate.Checklist(raw, r.cfg.Limits.EnhancedChecklistItems)
	if len(items) == 0 {
		log.Warn("enhanced checklist reply had no usable items, using fallback")
		return FallbackEnhancedChecklist()
	}
	log.Debug("enhanced checklist generated", "items", len(items), "domain", domain.Domain)
	return items
}

// domain asks the oracle for the SRS domain context.
func (r *Runner) domain(ctx context.Context, in Input) models.DomainContext {
	raw, err := r.ask(ctx, prompt.Request{Kind: prompt.KindSRSContext, Documents: srsDocuments(in.SRS)}, in.Model)
	if err != nil {
		r.logger.Warn("srs context analysis failed", "session", in.SessionID, "error", err)
		return validate.DefaultDomain()
	}
	return validate.Domain(raw)
}

// DetectTechStack guesses languages and frameworks from the first code files
// without asking the oracle. Languages are file extensions in first-seen
// order; frameworks come from content markers.
func DetectTechStack(code []*models.Document) models.TechStack {
	stack := models.TechStack{Languages: []string{}, Frameworks: []string{}, Architecture: "web_application"}
	for _, d := range first(code, techSampleFiles) {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(d.Name)), ".")
		if ext != "" && !slices.Contains(stack.Languages, ext) {
			stack.Languages = append(stack.Languages, ext)
		}
		content := strings.ToLower(d.Content)
		for _, fm := range frameworkMarkers {
			if strings.Contains(content, fm.marker) && !slices.Contains(stack.Frameworks, fm.framework) {
				stack.Frameworks = append(stack.Frameworks, fm.framework)
			}
		}
	}
	return stack
}

// checklistContext renders checklist items as prompt context lines.
func checklistContext(items []models.ChecklistItem, n int, detailed bool) string {
	lines := make([]string, 0, len(items))
	for i, it := range items {
		if n > 0 && i == n {
			break
		}
		if detailed {
			lines = append(lines, fmt.Sprintf("- %s: %s (%s) - %s", it.Category, it.Title, it.Severity, it.Description))
		} else {
			lines = append(lines, fmt.Sprintf("- %s: %s", it.Category, it.Title))
		}
	}
	return strings.Join(lines, "\n")
}

// asJSON renders v indented for prompt context. Values here always marshal.
func asJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
