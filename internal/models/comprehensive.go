package models

import "time"

// ComplianceStatus is the policy verdict of a comprehensive run.
type ComplianceStatus string

const (
	ComplianceCompliant    ComplianceStatus = "COMPLIANT"
	ComplianceConditional  ComplianceStatus = "CONDITIONAL_COMPLIANCE"
	ComplianceNonCompliant ComplianceStatus = "NON_COMPLIANT"
)

// RecommendedAction is the follow-up suggested by a comprehensive run.
type RecommendedAction string

const (
	ActionImmediate    RecommendedAction = "IMMEDIATE_ACTION_REQUIRED"
	ActionMajor        RecommendedAction = "MAJOR_REVISION_NEEDED"
	ActionImprovements RecommendedAction = "IMPROVEMENTS_RECOMMENDED"
	ActionMinor        RecommendedAction = "MINOR_ADJUSTMENTS_ONLY"
)

// ComprehensiveSummary extends the count-based summary with traceability,
// health and the weighted severity score. OverallScore keeps its
// count-based meaning; WeightedScore is the severity-weighted variant.
type ComprehensiveSummary struct {
	Summary
	WeightedScore          int               `json:"weightedScore"`
	TraceabilityCoverage   int               `json:"traceabilityCoverage"`
	HighConfidenceMappings int               `json:"highConfidenceMappings"`
	TraceabilityScore      float64           `json:"traceabilityScore"`
	AverageComplexity      float64           `json:"averageComplexity"`
	AverageMaintainability float64           `json:"averageMaintainability"`
	HighRiskFiles          int               `json:"highRiskFiles"`
	HealthScore            float64           `json:"healthScore"`
	ComplianceStatus       ComplianceStatus  `json:"complianceStatus"`
	RecommendedAction      RecommendedAction `json:"recommendedAction"`
}

// ComprehensiveRun is the stored outcome of a comprehensive analysis.
type ComprehensiveRun struct {
	ID            string                `json:"id"`
	SessionID     string                `json:"session_id"`
	Model         string                `json:"model"`
	Checklist     []ChecklistItem       `json:"checklist"`
	Mappings      []TraceabilityMapping `json:"traceability_matrix"`
	FileAnalyses  []FileAnalysis        `json:"file_analyses"`
	HealthMetrics []HealthMetric        `json:"health_metrics"`
	Summary       ComprehensiveSummary  `json:"summary"`
	CreatedAt     time.Time             `json:"created_at"`
}

// ReportMetrics is the data a comprehensive report is written from.
type ReportMetrics struct {
	AnalysisSummary      ComprehensiveSummary `json:"analysis_summary"`
	TraceabilityCoverage int                  `json:"traceability_coverage"`
	HealthOverview       HealthOverview       `json:"health_overview"`
	ComplianceStatus     ComplianceStatus     `json:"compliance_status"`
}

// Report is an audit-ready narrative built from a comprehensive run.
type Report struct {
	SessionID        string        `json:"session_id"`
	ExecutiveSummary string        `json:"executive_summary"`
	DetailedFindings string        `json:"detailed_findings"`
	Recommendations  string        `json:"recommendations"`
	Metrics          ReportMetrics `json:"metrics"`
	GeneratedAt      time.Time     `json:"generated_at"`
	Error            bool          `json:"error,omitempty"`
}

// Suggestion is one editor-time code suggestion.
type Suggestion struct {
	Type        string `json:"type"`
	Suggestion  string `json:"suggestion"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// ChatTurn is one exchange in a session's conversation.
type ChatTurn struct {
	User      string    `json:"user"`
	Assistant string    `json:"assistant"`
	Timestamp time.Time `json:"timestamp"`
}
