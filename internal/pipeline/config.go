package pipeline

import (
	"time"

	"github.com/joescharf/crv/internal/prompt"
	"github.com/joescharf/crv/internal/score"
)

// Pacing controls how fast a run talks to the oracle and how much of a
// session it looks at. Documents past a cap are skipped, not queued.
type Pacing struct {
	CallDelay          time.Duration `mapstructure:"call_delay"`
	HealthCallDelay    time.Duration `mapstructure:"health_call_delay"`
	MaxConcurrentRuns  int           `mapstructure:"max_concurrent_runs"`
	MaxCodeFiles       int           `mapstructure:"max_code_files"`
	MaxStructureFiles  int           `mapstructure:"max_structure_files"`
	MaxValidationFiles int           `mapstructure:"max_validation_files"`
}

// DefaultPacing returns the stock pacing.
func DefaultPacing() Pacing {
	return Pacing{
		CallDelay:          500 * time.Millisecond,
		HealthCallDelay:    300 * time.Millisecond,
		MaxConcurrentRuns:  4,
		MaxCodeFiles:       100,
		MaxStructureFiles:  20,
		MaxValidationFiles: 15,
	}
}

// Limits are the batch ceilings applied to validated oracle output.
type Limits struct {
	ChecklistItems          int `mapstructure:"checklist_items"`
	EnhancedChecklistItems  int `mapstructure:"enhanced_checklist_items"`
	IssuesPerFile           int `mapstructure:"issues_per_file"`
	ValidationIssuesPerFile int `mapstructure:"validation_issues_per_file"`
	Requirements            int `mapstructure:"requirements"`
	Suggestions             int `mapstructure:"suggestions"`
}

// DefaultLimits returns the stock ceilings.
func DefaultLimits() Limits {
	return Limits{
		ChecklistItems:          20,
		EnhancedChecklistItems:  25,
		IssuesPerFile:           50,
		ValidationIssuesPerFile: 30,
		Requirements:            50,
		Suggestions:             5,
	}
}

// Config is everything a Runner needs besides the oracle. It is read-only
// once the Runner is built.
type Config struct {
	Pacing Pacing
	Limits Limits
	Policy score.Policy
	Caps   prompt.Caps
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Pacing: DefaultPacing(),
		Limits: DefaultLimits(),
		Policy: score.DefaultPolicy(),
		Caps:   prompt.DefaultCaps(),
	}
}
