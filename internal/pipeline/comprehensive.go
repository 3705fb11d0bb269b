package pipeline

import (
	"context"
	"time"

	"github.com/joescharf/crv/internal/models"
)

// Comprehensive runs every sub-pipeline in order: enhanced checklist,
// traceability, semantic validation against locally derived requirements,
// and health, then aggregates the lot. It holds one run slot throughout.
func (r *Runner) Comprehensive(ctx context.Context, in Input) (*models.ComprehensiveRun, error) {
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

	log := r.logger.With("session", in.SessionID)
	started := time.Now()

	log.Debug("generating enhanced checklist")
	checklist := r.enhancedChecklist(ctx, in)
	pause(ctx, r.cfg.Pacing.CallDelay)

	log.Debug("building traceability matrix")
	mappings := r.traceability(ctx, in)

	log.Debug("validating semantics")
	analyses := r.validateSemantics(ctx, in, LocalRequirements(in.SRS), checklist)

	log.Debug("analyzing health")
	metrics := r.health(ctx, in, analyses)

	run := &models.ComprehensiveRun{
		SessionID:     in.SessionID,
		Model:         in.Model,
		Checklist:     checklist,
		Mappings:      mappings,
		FileAnalyses:  analyses,
		HealthMetrics: metrics,
		Summary:       r.scorer.Comprehensive(analyses, mappings, metrics),
		CreatedAt:     time.Now().UTC(),
	}
	log.Info("comprehensive analysis finished",
		"files", len(analyses),
		"mappings", len(mappings),
		"score", run.Summary.WeightedScore,
		"compliance", run.Summary.ComplianceStatus,
		"elapsed", time.Since(started).Round(time.Millisecond))
	return run, nil
}
