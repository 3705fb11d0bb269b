package pipeline

import (
	"github.com/google/uuid"

	"github.com/joescharf/crv/internal/models"
)

// Fallback texts used when the oracle gives nothing usable.
const (
	FallbackExecutiveSummary = "Report generation encountered an error. Manual review recommended."
	FallbackDetailedFindings = "Technical analysis could not be completed automatically."
	FallbackRecommendations  = "Please review uploaded files manually and re-run analysis."
	FallbackChatReply        = "I apologize, but I encountered an error processing your request. Please try again."
	FallbackFixSummary       = "Applied automated fixes"
)

// DefaultChecklist is returned when checklist generation fails.
func DefaultChecklist() []models.ChecklistItem {
	return withIDs([]models.ChecklistItem{
		{
			Category:    "Security",
			Title:       "Input Validation",
			Description: "All user inputs must be properly validated and sanitized",
			Severity:    models.SeverityCritical,
			Automated:   true,
			Items: []string{
				"Validate all API endpoint inputs",
				"Sanitize data before database operations",
				"Implement proper authentication checks",
			},
		},
		{
			Category:    "Code Quality",
			Title:       "Function Complexity",
			Description: "Functions should be concise and focused",
			Severity:    models.SeverityMedium,
			Automated:   true,
			Items: []string{
				"Functions should not exceed 50 lines",
				"Cyclomatic complexity should be below 10",
				"Avoid deeply nested code structures",
			},
		},
		{
			Category:    "Performance",
			Title:       "Database Optimization",
			Description: "Ensure efficient database queries and proper indexing",
			Severity:    models.SeverityHigh,
			Automated:   true,
			Items: []string{
				"Use proper database indexes",
				"Avoid N+1 query problems",
				"Implement query result caching",
			},
		},
	})
}

// FallbackEnhancedChecklist is returned when context-aware checklist
// generation fails.
func FallbackEnhancedChecklist() []models.ChecklistItem {
	return withIDs([]models.ChecklistItem{
		{
			Category:    "Security",
			Title:       "Input Validation",
			Description: "All user inputs must be properly validated",
			Severity:    models.SeverityCritical,
			Automated:   true,
			Items:       []string{"Validate API inputs", "Sanitize database queries"},
		},
		{
			Category:    "Performance",
			Title:       "Database Efficiency",
			Description: "Optimize database queries and indexing",
			Severity:    models.SeverityHigh,
			Automated:   true,
			Items:       []string{"Check query performance", "Verify proper indexing"},
		},
	})
}

func withIDs(items []models.ChecklistItem) []models.ChecklistItem {
	for i := range items {
		items[i].ID = uuid.NewString()
	}
	return items
}

// failedAnalysis is the placeholder recorded for a document whose analysis
// failed.
func failedAnalysis(d *models.Document) models.FileAnalysis {
	return models.FileAnalysis{
		FileName: d.Name,
		Language: codeDocument(d).Language,
		Size:     d.Size,
		Issues:   []models.Issue{},
		Status:   models.AnalysisStatusFailed,
	}
}
