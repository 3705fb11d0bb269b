package models

import "time"

// ChecklistItem is one reviewer-facing rule derived from SRS content.
type ChecklistItem struct {
	ID                  string   `json:"id"`
	Category            string   `json:"category"`
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	Severity            Severity `json:"severity"`
	Checked             bool     `json:"checked"`
	Automated           bool     `json:"automated"`
	Items               []string `json:"items"`
	RelevantRequirement string   `json:"relevant_requirement,omitempty"`
}

// Summary is the count-based aggregate of one analysis run.
type Summary struct {
	TotalFiles      int `json:"totalFiles"`
	TotalIssues     int `json:"totalIssues"`
	CriticalIssues  int `json:"criticalIssues"`
	HighIssues      int `json:"highIssues"`
	MediumIssues    int `json:"mediumIssues"`
	LowIssues       int `json:"lowIssues"`
	FilesWithIssues int `json:"filesWithIssues"`
	OverallScore    int `json:"overallScore"`
}

// AnalysisResult is one appended analyze-code run. The latest result of a
// session supersedes earlier ones.
type AnalysisResult struct {
	ID           string          `json:"id"`
	SessionID    string          `json:"session_id"`
	Summary      Summary         `json:"summary"`
	FileAnalyses []FileAnalysis  `json:"file_analyses"`
	Checklist    []ChecklistItem `json:"checklist"`
	ModelUsed    string          `json:"model_used"`
	Status       AnalysisStatus  `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}
