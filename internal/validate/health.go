package validate

import (
	"math"

	"github.com/tidwall/gjson"

	"github.com/joescharf/crv/internal/models"
)

// DefaultHealth is the metric substituted when the oracle gives no usable
// health answer for a file.
func DefaultHealth(file string) models.HealthMetric {
	return models.HealthMetric{
		FilePath:             file,
		ComplexityScore:      DefaultComplexity,
		MaintainabilityIndex: DefaultMaintainability,
		TestCoverage:         DefaultTestCoverage,
		CodeDuplication:      DefaultDuplication,
		SecurityRiskLevel:    DefaultRiskLevel,
		PerformanceIssues:    DefaultPerfIssues,
		Fallback:             true,
	}
}

// Health validates one file's health object. An out-of-enum risk level or a
// non-object input yields DefaultHealth and false.
func Health(raw gjson.Result, file string) (models.HealthMetric, bool) {
	if !raw.IsObject() {
		return DefaultHealth(file), false
	}
	risk, ok := severity(raw, "security_risk_level")
	if !ok {
		return DefaultHealth(file), false
	}
	return models.HealthMetric{
		FilePath:             file,
		ComplexityScore:      clampInt(integer(raw, "complexity_score", DefaultComplexity), 0, 100),
		MaintainabilityIndex: Clamp(float(raw, "maintainability_index", DefaultMaintainability), 0, 100),
		TestCoverage:         Clamp(float(raw, "test_coverage", DefaultTestCoverage), 0, 100),
		CodeDuplication:      clampInt(integer(raw, "code_duplication", DefaultDuplication), 0, 100),
		SecurityRiskLevel:    risk,
		PerformanceIssues:    max(0, integer(raw, "performance_issues", DefaultPerfIssues)),
		TechnicalDebtHours:   math.Max(0, float(raw, "technical_debt_hours", 0)),
		KeyConcerns:          stringList(raw, "key_concerns"),
	}, true
}

// Fix is the validated answer to a fix request.
type Fix struct {
	FixedCode   string
	Summary     string
	IssuesFixed []string
}

// FixResult validates a fix object. A missing or empty fixed_code reports
// false so the caller keeps the original content.
func FixResult(raw gjson.Result) (Fix, bool) {
	if !raw.IsObject() {
		return Fix{}, false
	}
	code := raw.Get("fixed_code")
	if code.Type != gjson.String || code.Str == "" {
		return Fix{}, false
	}
	return Fix{
		FixedCode:   code.Str,
		Summary:     str(raw, "changes_summary", "Applied automated fixes"),
		IssuesFixed: stringList(raw, "issues_fixed"),
	}, true
}

// DefaultDomain is the context assumed when SRS analysis yields nothing.
func DefaultDomain() models.DomainContext {
	return models.DomainContext{Domain: "general", SecurityLevel: string(models.SeverityMedium)}
}

// Domain validates an SRS domain analysis object.
func Domain(raw gjson.Result) models.DomainContext {
	if !raw.IsObject() {
		return DefaultDomain()
	}
	level := string(models.SeverityMedium)
	if s, ok := models.ParseSeverity(str(raw, "security_level", "")); ok {
		level = string(s)
	}
	return models.DomainContext{
		Domain:                  str(raw, "domain", "general"),
		Compliance:              stringList(raw, "compliance"),
		SecurityLevel:           level,
		PerformanceRequirements: stringList(raw, "performance_requirements"),
		Integrations:            stringList(raw, "integrations"),
		UserTypes:               stringList(raw, "user_types"),
		DataSensitivity:         str(raw, "data_sensitivity", ""),
	}
}
