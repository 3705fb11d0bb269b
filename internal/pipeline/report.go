package pipeline

import (
	"context"
	"time"

	"github.com/joescharf/crv/internal/models"
	"github.com/joescharf/crv/internal/prompt"
	"github.com/joescharf/crv/internal/score"
)

// ReportInput is the material a report is written from.
type ReportInput struct {
	SessionID    string
	Model        string
	Session      *models.ReviewSession
	Summary      models.ComprehensiveSummary
	FileAnalyses []models.FileAnalysis
	Mappings     []models.TraceabilityMapping
	Health       []models.HealthMetric
}

type reportData struct {
	SessionInfo          *models.ReviewSession       `json:"session_info,omitempty"`
	AnalysisSummary      models.ComprehensiveSummary `json:"analysis_summary"`
	FileAnalyses         []models.FileAnalysis       `json:"file_analyses"`
	TraceabilityCoverage int                         `json:"traceability_coverage"`
	HealthOverview       models.HealthOverview       `json:"health_overview"`
	ComplianceStatus     models.ComplianceStatus     `json:"compliance_status"`
}

// Report writes the three free-text report sections. If any section fails
// the whole report falls back to the stock texts and is flagged as an
// error; the metrics are local and always present.
func (r *Runner) Report(ctx context.Context, in ReportInput) models.Report {
	overview := score.HealthOverview(in.Health)
	data := reportData{
		SessionInfo:          in.Session,
		AnalysisSummary:      in.Summary,
		FileAnalyses:         in.FileAnalyses,
		TraceabilityCoverage: len(in.Mappings),
		HealthOverview:       overview,
		ComplianceStatus:     in.Summary.ComplianceStatus,
	}
	rep := models.Report{
		SessionID: in.SessionID,
		Metrics: models.ReportMetrics{
			AnalysisSummary:      in.Summary,
			TraceabilityCoverage: len(in.Mappings),
			HealthOverview:       overview,
			ComplianceStatus:     in.Summary.ComplianceStatus,
		},
		GeneratedAt: time.Now().UTC(),
	}
	body := asJSON(data)

	sections := []struct {
		kind prompt.Kind
		cap  int
		dst  *string
	}{
		{prompt.KindExecutiveSummary, prompt.SummaryDataCap, &rep.ExecutiveSummary},
		{prompt.KindDetailedFindings, prompt.FindingsDataCap, &rep.DetailedFindings},
		{prompt.KindRecommendations, prompt.RecommendDataCap, &rep.Recommendations},
	}
	for i, s := range sections {
		if i > 0 {
			pause(ctx, r.cfg.Pacing.CallDelay)
		}
		text, err := r.complete(ctx, prompt.Request{
			Kind:     s.kind,
			Sections: []prompt.Section{{Title: "Analysis Data", Body: body, Cap: s.cap}},
		}, in.Model)
		if err != nil {
			r.logger.Warn("report section failed, using fallback report", "session", in.SessionID, "task", s.kind, "error", err)
			rep.ExecutiveSummary = FallbackExecutiveSummary
			rep.DetailedFindings = FallbackDetailedFindings
			rep.Recommendations = FallbackRecommendations
			rep.Error = true
			return rep
		}
		*s.dst = text
	}
	return rep
}
