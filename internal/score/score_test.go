package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/crv/internal/models"
)

func issues(sevs ...models.Severity) []models.Issue {
	out := make([]models.Issue, len(sevs))
	for i, s := range sevs {
		out[i] = models.Issue{Severity: s}
	}
	return out
}

func repeat(s models.Severity, n int) []models.Severity {
	out := make([]models.Severity, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func TestSummarize_Counts(t *testing.T) {
	s := NewScorer(DefaultPolicy())

	analyses := []models.FileAnalysis{
		{FileName: "a.py", Issues: issues(models.SeverityCritical, models.SeverityHigh, models.SeverityLow)},
		{FileName: "b.py", Issues: issues(models.SeverityMedium)},
		{FileName: "c.py", Status: models.AnalysisStatusFailed},
	}

	sum := s.Summarize(analyses)
	assert.Equal(t, 3, sum.TotalFiles)
	assert.Equal(t, 4, sum.TotalIssues)
	assert.Equal(t, 1, sum.CriticalIssues)
	assert.Equal(t, 1, sum.HighIssues)
	assert.Equal(t, 1, sum.MediumIssues)
	assert.Equal(t, 1, sum.LowIssues)
	assert.Equal(t, 2, sum.FilesWithIssues)
	// 100 - round(100*4/60) = 100 - 7
	assert.Equal(t, 93, sum.OverallScore)
}

func TestOverallScore_BoundsAndMonotonic(t *testing.T) {
	s := NewScorer(DefaultPolicy())

	for files := 0; files <= 5; files++ {
		prev := 101
		for total := 0; total <= 250; total++ {
			got := s.OverallScore(total, files)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
			assert.LessOrEqual(t, got, prev, "score must not increase with more issues (files=%d total=%d)", files, total)
			prev = got
		}
	}

	assert.Equal(t, 100, s.OverallScore(0, 3))
	assert.Equal(t, 0, s.OverallScore(20, 1))
	assert.Equal(t, 0, s.OverallScore(500, 1))
	assert.Equal(t, 50, s.OverallScore(10, 1))
}

func TestWeightedScore(t *testing.T) {
	s := NewScorer(DefaultPolicy())

	sum := models.Summary{CriticalIssues: 1, HighIssues: 2, MediumIssues: 1, LowIssues: 3}
	// 100 - (20 + 20 + 5 + 6 + 15)
	assert.Equal(t, 34, s.WeightedScore(sum, 1))
	assert.Equal(t, 0, s.WeightedScore(models.Summary{CriticalIssues: 10}, 0))
	assert.Equal(t, 100, s.WeightedScore(models.Summary{}, 0))
}

func TestCompliance(t *testing.T) {
	s := NewScorer(DefaultPolicy())

	tests := []struct {
		name                     string
		critical, high, highRisk int
		want                     models.ComplianceStatus
	}{
		{"clean", 0, 0, 0, models.ComplianceCompliant},
		{"five high is still compliant", 0, 5, 0, models.ComplianceCompliant},
		{"six high", 0, 6, 0, models.ComplianceConditional},
		{"one high risk file", 0, 0, 1, models.ComplianceConditional},
		{"two high risk files", 0, 0, 2, models.ComplianceConditional},
		{"three high risk files", 0, 0, 3, models.ComplianceNonCompliant},
		{"critical", 1, 0, 0, models.ComplianceNonCompliant},
		{"critical beats everything", 4, 100, 0, models.ComplianceNonCompliant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Compliance(tt.critical, tt.high, tt.highRisk))
		})
	}
}

func TestCompliance_ConfigurableThresholds(t *testing.T) {
	p := DefaultPolicy()
	p.ConditionalHighIssues = 0
	s := NewScorer(p)

	assert.Equal(t, models.ComplianceConditional, s.Compliance(0, 1, 0))
}

func TestRecommendedAction(t *testing.T) {
	s := NewScorer(DefaultPolicy())

	assert.Equal(t, models.ActionImmediate, s.RecommendedAction(100, 1))
	assert.Equal(t, models.ActionMajor, s.RecommendedAction(49, 0))
	assert.Equal(t, models.ActionImprovements, s.RecommendedAction(50, 0))
	assert.Equal(t, models.ActionImprovements, s.RecommendedAction(74, 0))
	assert.Equal(t, models.ActionMinor, s.RecommendedAction(75, 0))
}

func TestHealthScore_Mean(t *testing.T) {
	metrics := []models.HealthMetric{
		{FilePath: "a.py", MaintainabilityIndex: 90},
		{FilePath: "b.py", MaintainabilityIndex: 70},
	}
	assert.Equal(t, 80.0, HealthScore(metrics))
	assert.Equal(t, 0.0, HealthScore(nil))
}

func TestHealthOverview(t *testing.T) {
	metrics := []models.HealthMetric{
		{ComplexityScore: 20, MaintainabilityIndex: 85, TestCoverage: 60, SecurityRiskLevel: models.SeverityHigh},
		{ComplexityScore: 35, MaintainabilityIndex: 80, TestCoverage: 30, SecurityRiskLevel: models.SeverityCritical},
		{ComplexityScore: 50, MaintainabilityIndex: 78, TestCoverage: 0, SecurityRiskLevel: models.SeverityLow},
	}

	o := HealthOverview(metrics)
	assert.Equal(t, 3, o.TotalFiles)
	assert.Equal(t, 35.0, o.AverageComplexity)
	assert.Equal(t, 81.0, o.AverageMaintainability)
	assert.Equal(t, 30.0, o.AverageTestCoverage)
	assert.Equal(t, 2, o.HighRiskFiles)
	assert.Equal(t, "B", o.OverallHealthGrade)

	empty := HealthOverview(nil)
	assert.Equal(t, "N/A", empty.OverallHealthGrade)
	assert.Zero(t, empty.TotalFiles)
}

func TestGrade(t *testing.T) {
	assert.Equal(t, "A", Grade(90))
	assert.Equal(t, "B", Grade(89.9))
	assert.Equal(t, "C", Grade(70))
	assert.Equal(t, "D", Grade(60))
	assert.Equal(t, "F", Grade(59.9))
}

func TestTraceabilityStats(t *testing.T) {
	s := NewScorer(DefaultPolicy())

	mappings := []models.TraceabilityMapping{
		{RequirementID: "REQ-001", ConfidenceScore: 0.9},
		{RequirementID: "REQ-001", ConfidenceScore: 0.8},
		{RequirementID: "REQ-002", ConfidenceScore: 0.95},
		{RequirementID: "REQ-003", ConfidenceScore: 0.6},
	}

	stats := s.TraceabilityStats(mappings)
	assert.Equal(t, 4, stats.TotalMappings)
	assert.Equal(t, 3, stats.UniqueRequirements)
	assert.Equal(t, 2, stats.HighConfidenceMappings, "0.8 is not above the threshold")
	assert.Equal(t, 50.0, stats.CoveragePercentage)

	assert.Equal(t, 0.0, s.TraceabilityStats(nil).CoveragePercentage)
}

func TestComprehensive(t *testing.T) {
	s := NewScorer(DefaultPolicy())

	analyses := []models.FileAnalysis{
		{FileName: "a.py", Issues: issues(repeat(models.SeverityHigh, 2)...)},
		{FileName: "b.py", Issues: issues(models.SeverityLow)},
	}
	mappings := []models.TraceabilityMapping{{RequirementID: "REQ-001", ConfidenceScore: 0.9}}
	metrics := []models.HealthMetric{
		{MaintainabilityIndex: 90, ComplexityScore: 10, SecurityRiskLevel: models.SeverityLow},
		{MaintainabilityIndex: 70, ComplexityScore: 30, SecurityRiskLevel: models.SeverityHigh},
	}

	sum := s.Comprehensive(analyses, mappings, metrics)
	assert.Equal(t, 3, sum.TotalIssues)
	// count-based: 100 - round(100*3/40)
	assert.Equal(t, 92, sum.OverallScore)
	// weighted: 100 - (2*10 + 1*2 + 1*15)
	assert.Equal(t, 63, sum.WeightedScore)
	assert.Equal(t, 80.0, sum.HealthScore)
	assert.Equal(t, 20.0, sum.AverageComplexity)
	assert.Equal(t, 1, sum.HighRiskFiles)
	assert.Equal(t, 100.0, sum.TraceabilityScore)
	assert.Equal(t, models.ComplianceConditional, sum.ComplianceStatus)
	assert.Equal(t, models.ActionImprovements, sum.RecommendedAction)
}

func TestComprehensive_Idempotent(t *testing.T) {
	s := NewScorer(DefaultPolicy())
	analyses := []models.FileAnalysis{{Issues: issues(models.SeverityCritical, models.SeverityMedium)}}
	metrics := []models.HealthMetric{{MaintainabilityIndex: 66.6, SecurityRiskLevel: models.SeverityMedium}}

	first := s.Comprehensive(analyses, nil, metrics)
	second := s.Comprehensive(analyses, nil, metrics)
	require.Equal(t, first, second)
	assert.Equal(t, models.ComplianceNonCompliant, first.ComplianceStatus)
}
