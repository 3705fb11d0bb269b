package models

// Requirement is a structured requirement extracted from SRS documents.
type Requirement struct {
	ID                  string   `json:"id"`
	Description         string   `json:"description"`
	Category            string   `json:"category"`
	Priority            string   `json:"priority,omitempty"`
	ImplementationHints []string `json:"implementation_hints,omitempty"`
	Content             string   `json:"content,omitempty"`
}

// CodeSymbol is a function or class reported in a file's structure.
type CodeSymbol struct {
	Name       string   `json:"name"`
	Line       int      `json:"line"`
	Purpose    string   `json:"purpose,omitempty"`
	Parameters []string `json:"parameters,omitempty"`
}

// Endpoint is an API route reported in a file's structure.
type Endpoint struct {
	Path    string `json:"path"`
	Method  string `json:"method"`
	Line    int    `json:"line"`
	Purpose string `json:"purpose,omitempty"`
}

// CodeStructure is the oracle's outline of one code document.
type CodeStructure struct {
	File      string       `json:"file"`
	Language  string       `json:"language"`
	Functions []CodeSymbol `json:"functions"`
	Classes   []CodeSymbol `json:"classes"`
	Endpoints []Endpoint   `json:"endpoints"`
	Snippet   string       `json:"snippet,omitempty"`
}

// TraceabilityMapping links a requirement to a code element.
type TraceabilityMapping struct {
	RequirementID   string  `json:"requirement_id"`
	RequirementText string  `json:"requirement_text"`
	CodeElement     string  `json:"code_element"`
	FilePath        string  `json:"file_path"`
	LineNumber      int     `json:"line_number"`
	ConfidenceScore float64 `json:"confidence_score"`
	ElementType     string  `json:"element_type"`
	Reasoning       string  `json:"reasoning,omitempty"`
}

// TraceabilityStats summarizes a set of mappings.
type TraceabilityStats struct {
	TotalMappings          int     `json:"total_mappings"`
	UniqueRequirements     int     `json:"unique_requirements"`
	CoveragePercentage     float64 `json:"coverage_percentage"`
	HighConfidenceMappings int     `json:"high_confidence_mappings"`
}

// HealthMetric holds oracle-reported quality figures for one code document.
// Fallback marks metrics substituted because the oracle gave no usable answer.
type HealthMetric struct {
	FilePath             string   `json:"file_path"`
	ComplexityScore      int      `json:"complexity_score"`
	MaintainabilityIndex float64  `json:"maintainability_index"`
	TestCoverage         float64  `json:"test_coverage"`
	CodeDuplication      int      `json:"code_duplication"`
	SecurityRiskLevel    Severity `json:"security_risk_level"`
	PerformanceIssues    int      `json:"performance_issues"`
	TechnicalDebtHours   float64  `json:"technical_debt_hours,omitempty"`
	KeyConcerns          []string `json:"key_concerns,omitempty"`
	Fallback             bool     `json:"fallback,omitempty"`
}

// HealthOverview summarizes a set of health metrics.
type HealthOverview struct {
	TotalFiles             int     `json:"total_files"`
	AverageComplexity      float64 `json:"average_complexity"`
	AverageMaintainability float64 `json:"average_maintainability"`
	AverageTestCoverage    float64 `json:"average_test_coverage"`
	HighRiskFiles          int     `json:"high_risk_files"`
	OverallHealthGrade     string  `json:"overall_health_grade"`
}
