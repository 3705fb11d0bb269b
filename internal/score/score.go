// Package score computes deterministic summaries from validated results.
// Every function is pure: the same batch always yields the same summary.
package score

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/joescharf/crv/internal/models"
)

// Weights are the per-item deductions of the weighted score.
type Weights struct {
	Critical     int `mapstructure:"critical"`
	High         int `mapstructure:"high"`
	Medium       int `mapstructure:"medium"`
	Low          int `mapstructure:"low"`
	HighRiskFile int `mapstructure:"high_risk_file"`
}

// Policy holds the thresholds behind every verdict. Comparisons are strict
// (>) where the field name says "more than".
type Policy struct {
	IssuesPerFileBudget       int     `mapstructure:"issues_per_file_budget"`
	HighConfidence            float64 `mapstructure:"high_confidence"`
	MinMappingConfidence      float64 `mapstructure:"min_mapping_confidence"`
	NonCompliantHighRiskFiles int     `mapstructure:"noncompliant_high_risk_files"`
	ConditionalHighIssues     int     `mapstructure:"conditional_high_issues"`
	Weights                   Weights `mapstructure:"weights"`
}

// DefaultPolicy returns the stock thresholds.
func DefaultPolicy() Policy {
	return Policy{
		IssuesPerFileBudget:       20,
		HighConfidence:            0.8,
		MinMappingConfidence:      0.5,
		NonCompliantHighRiskFiles: 2,
		ConditionalHighIssues:     5,
		Weights: Weights{
			Critical:     20,
			High:         10,
			Medium:       5,
			Low:          2,
			HighRiskFile: 15,
		},
	}
}

// Scorer computes summaries under a fixed policy.
type Scorer struct {
	policy Policy
}

// NewScorer returns a Scorer for the given policy.
func NewScorer(p Policy) *Scorer {
	return &Scorer{policy: p}
}

// Policy returns the scorer's policy.
func (s *Scorer) Policy() Policy {
	return s.policy
}

// Summarize counts issues by severity and computes the count-based overall
// score, treating IssuesPerFileBudget issues per file as a zero score.
func (s *Scorer) Summarize(analyses []models.FileAnalysis) models.Summary {
	sum := models.Summary{TotalFiles: len(analyses)}
	for _, fa := range analyses {
		if len(fa.Issues) > 0 {
			sum.FilesWithIssues++
		}
		for _, issue := range fa.Issues {
			sum.TotalIssues++
			switch issue.Severity {
			case models.SeverityCritical:
				sum.CriticalIssues++
			case models.SeverityHigh:
				sum.HighIssues++
			case models.SeverityMedium:
				sum.MediumIssues++
			case models.SeverityLow:
				sum.LowIssues++
			}
		}
	}
	sum.OverallScore = s.OverallScore(sum.TotalIssues, sum.TotalFiles)
	return sum
}

// OverallScore is 100 minus the share of the issue budget used, in [0,100].
func (s *Scorer) OverallScore(totalIssues, fileCount int) int {
	budget := max(1, fileCount*s.policy.IssuesPerFileBudget)
	used := int(math.Round(100 * float64(totalIssues) / float64(budget)))
	return clampScore(100 - used)
}

// WeightedScore starts at 100 and deducts per issue severity and per high
// risk file, clamped to [0,100].
func (s *Scorer) WeightedScore(sum models.Summary, highRiskFiles int) int {
	w := s.policy.Weights
	deductions := sum.CriticalIssues*w.Critical +
		sum.HighIssues*w.High +
		sum.MediumIssues*w.Medium +
		sum.LowIssues*w.Low +
		highRiskFiles*w.HighRiskFile
	return clampScore(100 - deductions)
}

// Compliance applies the compliance policy. Any critical issue is
// non-compliant regardless of the other inputs.
func (s *Scorer) Compliance(criticalIssues, highIssues, highRiskFiles int) models.ComplianceStatus {
	switch {
	case criticalIssues > 0 || highRiskFiles > s.policy.NonCompliantHighRiskFiles:
		return models.ComplianceNonCompliant
	case highIssues > s.policy.ConditionalHighIssues || highRiskFiles > 0:
		return models.ComplianceConditional
	default:
		return models.ComplianceCompliant
	}
}

// RecommendedAction maps the weighted score to a follow-up.
func (s *Scorer) RecommendedAction(weightedScore, criticalIssues int) models.RecommendedAction {
	switch {
	case criticalIssues > 0:
		return models.ActionImmediate
	case weightedScore < 50:
		return models.ActionMajor
	case weightedScore < 75:
		return models.ActionImprovements
	default:
		return models.ActionMinor
	}
}

// Comprehensive combines the issue, traceability and health aggregates.
func (s *Scorer) Comprehensive(analyses []models.FileAnalysis, mappings []models.TraceabilityMapping, metrics []models.HealthMetric) models.ComprehensiveSummary {
	sum := s.Summarize(analyses)
	trace := s.TraceabilityStats(mappings)
	health := HealthOverview(metrics)

	weighted := s.WeightedScore(sum, health.HighRiskFiles)
	return models.ComprehensiveSummary{
		Summary:                sum,
		WeightedScore:          weighted,
		TraceabilityCoverage:   trace.TotalMappings,
		HighConfidenceMappings: trace.HighConfidenceMappings,
		TraceabilityScore:      trace.CoveragePercentage,
		AverageComplexity:      health.AverageComplexity,
		AverageMaintainability: health.AverageMaintainability,
		HighRiskFiles:          health.HighRiskFiles,
		HealthScore:            HealthScore(metrics),
		ComplianceStatus:       s.Compliance(sum.CriticalIssues, sum.HighIssues, health.HighRiskFiles),
		RecommendedAction:      s.RecommendedAction(weighted, sum.CriticalIssues),
	}
}

// TraceabilityStats counts mappings, distinct requirements and the share of
// mappings above the high-confidence threshold.
func (s *Scorer) TraceabilityStats(mappings []models.TraceabilityMapping) models.TraceabilityStats {
	reqs := make(map[string]struct{}, len(mappings))
	high := 0
	for _, m := range mappings {
		reqs[m.RequirementID] = struct{}{}
		if m.ConfidenceScore > s.policy.HighConfidence {
			high++
		}
	}
	return models.TraceabilityStats{
		TotalMappings:          len(mappings),
		UniqueRequirements:     len(reqs),
		CoveragePercentage:     100 * float64(high) / float64(max(1, len(mappings))),
		HighConfidenceMappings: high,
	}
}

// HealthScore is the mean maintainability index, rounded to one decimal,
// or 0 without metrics.
func HealthScore(metrics []models.HealthMetric) float64 {
	if len(metrics) == 0 {
		return 0
	}
	return round1(stat.Mean(collect(metrics, func(m models.HealthMetric) float64 { return m.MaintainabilityIndex }), nil))
}

// HealthOverview averages the health metrics and grades the mean
// maintainability.
func HealthOverview(metrics []models.HealthMetric) models.HealthOverview {
	if len(metrics) == 0 {
		return models.HealthOverview{OverallHealthGrade: "N/A"}
	}
	highRisk := 0
	for _, m := range metrics {
		if m.SecurityRiskLevel == models.SeverityHigh || m.SecurityRiskLevel == models.SeverityCritical {
			highRisk++
		}
	}
	maintainability := stat.Mean(collect(metrics, func(m models.HealthMetric) float64 { return m.MaintainabilityIndex }), nil)
	return models.HealthOverview{
		TotalFiles:             len(metrics),
		AverageComplexity:      round1(stat.Mean(collect(metrics, func(m models.HealthMetric) float64 { return float64(m.ComplexityScore) }), nil)),
		AverageMaintainability: round1(maintainability),
		AverageTestCoverage:    round1(stat.Mean(collect(metrics, func(m models.HealthMetric) float64 { return m.TestCoverage }), nil)),
		HighRiskFiles:          highRisk,
		OverallHealthGrade:     Grade(maintainability),
	}
}

// Grade converts a 0-100 score to a letter grade.
func Grade(v float64) string {
	switch {
	case v >= 90:
		return "A"
	case v >= 80:
		return "B"
	case v >= 70:
		return "C"
	case v >= 60:
		return "D"
	default:
		return "F"
	}
}

func collect(metrics []models.HealthMetric, f func(models.HealthMetric) float64) []float64 {
	xs := make([]float64, len(metrics))
	for i, m := range metrics {
		xs[i] = f(m)
	}
	return xs
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clampScore(v int) int {
	return max(0, min(100, v))
}
