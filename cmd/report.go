package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/crv/internal/models"
	"github.com/joescharf/crv/internal/pipeline"
	"github.com/joescharf/crv/internal/score"
	"github.com/joescharf/crv/internal/store"
)

var (
	reportFormat    string
	reportNarrative bool
	reportModel     string
)

var reportCmd = &cobra.Command{
	Use:   "report <session-id>",
	Short: "Export the results of a session",
	Long: `Export the latest analysis of a session as JSON, CSV or Markdown.

With --narrative the latest comprehensive analysis is also turned into an
executive summary, detailed findings and recommendations by the model.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportRun(cmd.Context(), args[0])
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "markdown", "Output format: json, csv, markdown")
	reportCmd.Flags().BoolVar(&reportNarrative, "narrative", false, "Generate the model-written comprehensive report")
	reportCmd.Flags().StringVar(&reportModel, "model", "", "Model id for --narrative (default: the session's model)")
	rootCmd.AddCommand(reportCmd)
}

// sessionReport is everything stored for one session.
type sessionReport struct {
	Session       *models.ReviewSession    `json:"session"`
	Analysis      *models.AnalysisResult   `json:"analysis,omitempty"`
	Comprehensive *models.ComprehensiveRun `json:"comprehensive,omitempty"`
	ModifiedFiles []*models.ModifiedFile   `json:"modified_files"`
	Narrative     *models.Report           `json:"narrative,omitempty"`
}

func reportRun(ctx context.Context, sessionID string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := getStore()
	if err != nil {
		return err
	}

	rep, err := loadReport(ctx, s, sessionID)
	if err != nil {
		return err
	}
	if rep.Analysis == nil && rep.Comprehensive == nil {
		return fmt.Errorf("no analysis found for session %s", sessionID)
	}

	if reportNarrative {
		if rep.Comprehensive == nil {
			return fmt.Errorf("no comprehensive analysis found for session %s (run 'crv analyze --comprehensive')", sessionID)
		}
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		runner, _, cleanup, err := runnerFactory(ctx, settings)
		if err != nil {
			return err
		}
		defer cleanup()

		model := reportModel
		if model == "" {
			model = rep.Session.SelectedModel
		}
		run := rep.Comprehensive
		narrative := runner.Report(ctx, pipeline.ReportInput{
			SessionID:    sessionID,
			Model:        model,
			Session:      rep.Session,
			Summary:      run.Summary,
			FileAnalyses: run.FileAnalyses,
			Mappings:     run.Mappings,
			Health:       run.HealthMetrics,
		})
		if narrative.Error {
			ui.Warning("Model report unavailable, using the built-in summary")
		}
		rep.Narrative = &narrative
	}

	switch reportFormat {
	case "json":
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "csv":
		return writeReportCSV(ui.Out, rep)
	case "markdown":
		writeReportMarkdown(ui.Out, rep)
		return nil
	default:
		return fmt.Errorf("unknown format: %s", reportFormat)
	}
}

func loadReport(ctx context.Context, s store.Store, sessionID string) (*sessionReport, error) {
	session, err := s.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	if err != nil {
		return nil, err
	}
	rep := &sessionReport{Session: session}

	if a, err := s.LatestAnalysis(ctx, sessionID); err == nil {
		rep.Analysis = a
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if run, err := s.LatestComprehensiveRun(ctx, sessionID); err == nil {
		rep.Comprehensive = run
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	rep.ModifiedFiles, err = s.ListModifiedFiles(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// fileAnalyses prefers the comprehensive run, which carries the semantic
// validation issues.
func (r *sessionReport) fileAnalyses() []models.FileAnalysis {
	if r.Comprehensive != nil {
		return r.Comprehensive.FileAnalyses
	}
	return r.Analysis.FileAnalyses
}

func (r *sessionReport) summary() models.Summary {
	if r.Comprehensive != nil {
		return r.Comprehensive.Summary.Summary
	}
	return r.Analysis.Summary
}

func writeReportCSV(w io.Writer, rep *sessionReport) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"File", "Line", "Severity", "Type", "Message", "Suggestion"})
	for _, fa := range rep.fileAnalyses() {
		for _, is := range fa.Issues {
			_ = cw.Write([]string{fa.FileName, strconv.Itoa(is.Line), string(is.Severity), is.Type, is.Message, is.Suggestion})
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeReportMarkdown(w io.Writer, rep *sessionReport) {
	sum := rep.summary()
	fmt.Fprintf(w, "# Code Review Report\n\n")
	fmt.Fprintf(w, "- Session: `%s`\n", rep.Session.ID)
	fmt.Fprintf(w, "- Model: %s\n", rep.Session.SelectedModel)
	fmt.Fprintf(w, "- Generated: %s\n\n", time.Now().UTC().Format(time.RFC3339))

	fmt.Fprintln(w, "## Summary")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Files | Issues | Critical | High | Medium | Low | Score |")
	fmt.Fprintln(w, "|-------|--------|----------|------|--------|-----|-------|")
	fmt.Fprintf(w, "| %d | %d | %d | %d | %d | %d | %d |\n\n",
		sum.TotalFiles, sum.TotalIssues, sum.CriticalIssues, sum.HighIssues, sum.MediumIssues, sum.LowIssues, sum.OverallScore)

	if run := rep.Comprehensive; run != nil {
		overview := score.HealthOverview(run.HealthMetrics)
		fmt.Fprintln(w, "## Compliance")
		fmt.Fprintln(w)
		fmt.Fprintf(w, "- Status: **%s**\n", run.Summary.ComplianceStatus)
		fmt.Fprintf(w, "- Recommended action: %s\n", run.Summary.RecommendedAction)
		fmt.Fprintf(w, "- Weighted score: %d\n", run.Summary.WeightedScore)
		fmt.Fprintf(w, "- Traceability coverage: %d%% (%d requirements mapped)\n", run.Summary.TraceabilityCoverage, len(run.Mappings))
		fmt.Fprintf(w, "- Health grade: %s (%d high-risk files)\n\n", overview.OverallHealthGrade, overview.HighRiskFiles)
	}

	if n := rep.Narrative; n != nil {
		fmt.Fprintf(w, "## Executive Summary\n\n%s\n\n", n.ExecutiveSummary)
		fmt.Fprintf(w, "## Detailed Findings\n\n%s\n\n", n.DetailedFindings)
		fmt.Fprintf(w, "## Recommendations\n\n%s\n\n", n.Recommendations)
	}

	fmt.Fprintln(w, "## Issues")
	fmt.Fprintln(w)
	for _, fa := range rep.fileAnalyses() {
		if len(fa.Issues) == 0 {
			continue
		}
		fmt.Fprintf(w, "### %s\n\n", fa.FileName)
		fmt.Fprintln(w, "| Line | Severity | Message |")
		fmt.Fprintln(w, "|------|----------|---------|")
		for _, is := range fa.Issues {
			fmt.Fprintf(w, "| %d | %s | %s |\n", is.Line, is.Severity, escapeCell(is.Message))
		}
		fmt.Fprintln(w)
	}

	if len(rep.ModifiedFiles) > 0 {
		fmt.Fprintln(w, "## Proposed Fixes")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "| File | Changes | Issues Fixed | Review |")
		fmt.Fprintln(w, "|------|---------|--------------|--------|")
		for _, m := range rep.ModifiedFiles {
			fmt.Fprintf(w, "| %s | %d | %d | %s |\n", m.FileName, len(m.Changes), len(m.IssuesFixed), m.ReviewStatus)
		}
	}
}

func escapeCell(s string) string {
	return strings.NewReplacer("|", "\\|", "\n", " ").Replace(s)
}
