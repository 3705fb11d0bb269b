package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/joescharf/crv/internal/models"
	"github.com/joescharf/crv/internal/prompt"
	"github.com/joescharf/crv/internal/validate"
)

// structureSnippetChars is how much of each file travels with its outline.
const structureSnippetChars = 2000

// Traceability extracts requirements from the SRS documents, outlines the
// code, and asks for the code elements implementing each requirement.
// Requirements or files that fail are skipped.
func (r *Runner) Traceability(ctx context.Context, in Input) ([]models.TraceabilityMapping, error) {
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
	return r.traceability(ctx, in), nil
}

func (r *Runner) traceability(ctx context.Context, in Input) []models.TraceabilityMapping {
	log := r.logger.With("session", in.SessionID)
	mappings := []models.TraceabilityMapping{}

	reqs := r.requirements(ctx, in)
	pause(ctx, r.cfg.Pacing.CallDelay)
	if len(reqs) == 0 {
		log.Warn("no requirements extracted, traceability is empty")
		return mappings
	}

	structures := r.structures(ctx, in)
	outline := asJSON(structures)

	for _, req := range reqs {
		raw, err := r.ask(ctx, prompt.Request{
			Kind:     prompt.KindMapping,
			Message:  requirementMessage(req),
			Sections: []prompt.Section{{Title: "Available Code Structure", Body: outline, Cap: prompt.StructureContextCap}},
		}, in.Model)
		pause(ctx, r.cfg.Pacing.CallDelay)
		if err != nil {
			log.Warn("requirement mapping failed", "requirement", req.ID, "task", prompt.KindMapping, "error", err)
			continue
		}
		found := validate.Mappings(raw.Get("mappings"), req, r.cfg.Policy.MinMappingConfidence)
		log.Debug("requirement mapped", "requirement", req.ID, "mappings", len(found))
		mappings = append(mappings, found...)
	}
	return mappings
}

// requirements asks the oracle for the structured requirement list.
func (r *Runner) requirements(ctx context.Context, in Input) []models.Requirement {
	raw, err := r.ask(ctx, prompt.Request{Kind: prompt.KindRequirements, Documents: srsDocuments(in.SRS)}, in.Model)
	if err != nil {
		r.logger.Warn("requirement extraction failed", "session", in.SessionID, "task", prompt.KindRequirements, "error", err)
		return nil
	}
	return validate.Requirements(raw, r.cfg.Limits.Requirements)
}

// structures outlines up to MaxStructureFiles code documents. Files whose
// outline fails are left out.
func (r *Runner) structures(ctx context.Context, in Input) []models.CodeStructure {
	out := []models.CodeStructure{}
	for _, d := range first(in.Code, r.cfg.Pacing.MaxStructureFiles) {
		doc := codeDocument(d)
		raw, err := r.ask(ctx, prompt.Request{Kind: prompt.KindCodeStructure, Documents: []prompt.Document{doc}}, in.Model)
		pause(ctx, r.cfg.Pacing.CallDelay)
		if err != nil {
			r.logger.Warn("code structure failed", "session", in.SessionID, "document", d.Name, "task", prompt.KindCodeStructure, "error", err)
			continue
		}
		cs := validate.Structure(raw, d.Name, doc.Language)
		cs.Snippet = prompt.Truncate(d.Content, structureSnippetChars)
		out = append(out, cs)
	}
	return out
}

func requirementMessage(req models.Requirement) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Requirement: %s - %s\n", req.ID, req.Description)
	fmt.Fprintf(&sb, "Category: %s", req.Category)
	if len(req.ImplementationHints) > 0 {
		fmt.Fprintf(&sb, "\nImplementation hints: %s", strings.Join(req.ImplementationHints, ", "))
	}
	return sb.String()
}
