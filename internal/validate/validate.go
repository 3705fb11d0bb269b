// Package validate maps parsed oracle output onto typed results. Missing
// fields get the defaults declared below, items with an out-of-enum severity
// are dropped, and batches are cut to their ceiling before any item is
// inspected. Nothing here returns an error: unusable input yields an empty
// result and the caller picks the fallback.
package validate

import (
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/joescharf/crv/internal/models"
)

// Field defaults.
const (
	DefaultCategory        = "General"
	DefaultChecklistTitle  = "Code Review Item"
	DefaultIssueType       = "Code Quality"
	DefaultIssueMessage    = "Code issue detected"
	DefaultSemanticType    = "Semantic Issue"
	DefaultSemanticMessage = "Semantic issue detected"
	DefaultSeverity        = models.SeverityMedium
	DefaultLine            = 1
	DefaultElementType     = "unknown"
	DefaultRequirementCat  = "general"
	DefaultSuggestionType  = "improvement"
	DefaultPriority        = "medium"
)

// Health defaults, used field by field and for whole fallback metrics.
const (
	DefaultComplexity      = 50
	DefaultMaintainability = 70.0
	DefaultTestCoverage    = 0.0
	DefaultDuplication     = 0
	DefaultRiskLevel       = models.SeverityMedium
	DefaultPerfIssues      = 0
)

// firstN returns at most n elements of a JSON array in encounter order.
func firstN(arr gjson.Result, n int) []gjson.Result {
	if !arr.IsArray() {
		return nil
	}
	items := arr.Array()
	if n >= 0 && len(items) > n {
		items = items[:n]
	}
	return items
}

func present(v gjson.Result) bool {
	return v.Exists() && v.Type != gjson.Null
}

func str(obj gjson.Result, key, def string) string {
	v := obj.Get(key)
	if !present(v) {
		return def
	}
	s := strings.TrimSpace(v.String())
	if s == "" {
		return def
	}
	return s
}

func integer(obj gjson.Result, key string, def int) int {
	v := obj.Get(key)
	switch v.Type {
	case gjson.Number:
		return int(math.Round(v.Float()))
	case gjson.String:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64); err == nil {
			return int(math.Round(f))
		}
	}
	return def
}

func float(obj gjson.Result, key string, def float64) float64 {
	v := obj.Get(key)
	switch v.Type {
	case gjson.Number:
		return v.Float()
	case gjson.String:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64); err == nil {
			return f
		}
	}
	return def
}

func boolean(obj gjson.Result, key string, def bool) bool {
	v := obj.Get(key)
	switch v.Type {
	case gjson.True:
		return true
	case gjson.False:
		return false
	}
	return def
}

func stringList(obj gjson.Result, key string) []string {
	out := []string{}
	for _, v := range obj.Get(key).Array() {
		if s := strings.TrimSpace(v.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// severity reads a severity field. A missing field yields the default; a
// present field outside the enum reports false so the item can be dropped.
func severity(obj gjson.Result, key string) (models.Severity, bool) {
	v := obj.Get(key)
	if !present(v) {
		return DefaultSeverity, true
	}
	if v.Type != gjson.String {
		return "", false
	}
	return models.ParseSeverity(v.Str)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

// Checklist validates a raw checklist array, keeping at most limit items.
func Checklist(raw gjson.Result, limit int) []models.ChecklistItem {
	items := []models.ChecklistItem{}
	for _, obj := range firstN(raw, limit) {
		if !obj.IsObject() {
			continue
		}
		sev, ok := severity(obj, "severity")
		if !ok {
			continue
		}
		items = append(items, models.ChecklistItem{
			ID:                  uuid.NewString(),
			Category:            str(obj, "category", DefaultCategory),
			Title:               str(obj, "title", DefaultChecklistTitle),
			Description:         str(obj, "description", ""),
			Severity:            sev,
			Automated:           boolean(obj, "automated", true),
			Items:               stringList(obj, "items"),
			RelevantRequirement: str(obj, "relevant_requirement", ""),
		})
	}
	return items
}

// baselineRequirements are matched against checklist titles when the oracle
// names no requirement.
var baselineRequirements = []string{
	"User authentication and authorization",
	"Data validation and security",
	"Performance optimization",
	"Error handling and logging",
	"Database operations and integrity",
	"API documentation and testing",
}

// InferRequirement picks the baseline requirement sharing a word with title,
// falling back to the first one.
func InferRequirement(title string) string {
	words := strings.Fields(strings.ToLower(title))
	for _, req := range baselineRequirements {
		lower := strings.ToLower(req)
		for _, w := range words {
			if strings.Contains(lower, w) {
				return req
			}
		}
	}
	return baselineRequirements[0]
}

// IssueDefaults configures Issues for a particular analysis kind.
type IssueDefaults struct {
	Limit   int
	Type    string
	Message string
}

// CodeIssues returns the defaults for code analysis issues.
func CodeIssues(limit int) IssueDefaults {
	return IssueDefaults{Limit: limit, Type: DefaultIssueType, Message: DefaultIssueMessage}
}

// SemanticIssues returns the defaults for semantic validation issues.
func SemanticIssues(limit int) IssueDefaults {
	return IssueDefaults{Limit: limit, Type: DefaultSemanticType, Message: DefaultSemanticMessage}
}

// Issues validates a raw issues array.
func Issues(raw gjson.Result, d IssueDefaults) []models.Issue {
	issues := []models.Issue{}
	for _, obj := range firstN(raw, d.Limit) {
		if !obj.IsObject() {
			continue
		}
		sev, ok := severity(obj, "severity")
		if !ok {
			continue
		}
		line := integer(obj, "line", DefaultLine)
		if line <= 0 {
			line = DefaultLine
		}
		issues = append(issues, models.Issue{
			ID:             uuid.NewString(),
			Line:           line,
			Type:           str(obj, "type", d.Type),
			Severity:       sev,
			Message:        str(obj, "message", d.Message),
			Description:    str(obj, "description", ""),
			Suggestion:     str(obj, "suggestion", ""),
			AutoFixable:    boolean(obj, "auto_fixable", false),
			OriginalCode:   str(obj, "original_code", ""),
			FixedCode:      str(obj, "fixed_code", ""),
			BusinessImpact: str(obj, "business_impact", ""),
		})
	}
	return issues
}

// Suggestions validates a raw suggestions array. Entries without suggestion
// text are dropped.
func Suggestions(raw gjson.Result, limit int) []models.Suggestion {
	out := []models.Suggestion{}
	for _, obj := range firstN(raw, limit) {
		if !obj.IsObject() {
			continue
		}
		text := str(obj, "suggestion", "")
		if text == "" {
			continue
		}
		priority := DefaultPriority
		if p, ok := models.ParseSeverity(str(obj, "priority", "")); ok {
			priority = string(p)
		}
		out = append(out, models.Suggestion{
			Type:        str(obj, "type", DefaultSuggestionType),
			Suggestion:  text,
			Description: str(obj, "description", ""),
			Priority:    priority,
		})
	}
	return out
}
