package models

import "strings"

// Severity ranks checklist items and code issues. Health metrics reuse it
// as their security risk level.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Severities lists every valid severity, most severe first.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// ParseSeverity matches s case-insensitively against the four severities.
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityCritical:
		return SeverityCritical, true
	case SeverityHigh:
		return SeverityHigh, true
	case SeverityMedium:
		return SeverityMedium, true
	case SeverityLow:
		return SeverityLow, true
	}
	return "", false
}

// Valid reports whether s is one of the four severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Issue is a single problem the oracle reported for one code document.
type Issue struct {
	ID             string   `json:"id"`
	Line           int      `json:"line"`
	Type           string   `json:"type"`
	Severity       Severity `json:"severity"`
	Message        string   `json:"message"`
	Description    string   `json:"description"`
	Suggestion     string   `json:"suggestion"`
	AutoFixable    bool     `json:"auto_fixable"`
	OriginalCode   string   `json:"original_code,omitempty"`
	FixedCode      string   `json:"fixed_code,omitempty"`
	BusinessImpact string   `json:"business_impact,omitempty"`
}

// AnalysisStatus tracks one document through a pipeline run.
type AnalysisStatus string

const (
	AnalysisStatusPending    AnalysisStatus = "pending"
	AnalysisStatusInProgress AnalysisStatus = "in_progress"
	AnalysisStatusCompleted  AnalysisStatus = "completed"
	AnalysisStatusFailed     AnalysisStatus = "failed"
)

// FileAnalysis holds the issues found in one code document.
type FileAnalysis struct {
	FileName   string         `json:"file_name"`
	Language   string         `json:"language"`
	Size       int64          `json:"size"`
	Issues     []Issue        `json:"issues"`
	IssueCount int            `json:"issue_count"`
	Status     AnalysisStatus `json:"status"`
}
