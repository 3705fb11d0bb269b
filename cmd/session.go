package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joescharf/crv/internal/docs"
	"github.com/joescharf/crv/internal/models"
	"github.com/joescharf/crv/internal/output"
	"github.com/joescharf/crv/internal/store"
)

var (
	sessionLimit int
	sessionModel string
)

var sessionCmd = &cobra.Command{
	Use:     "session",
	Aliases: []string{"sessions"},
	Short:   "Manage review sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionListRun()
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List review sessions, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionListRun()
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show documents and results of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionShowRun(args[0])
	},
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an empty review session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionCreateRun()
	},
}

func init() {
	sessionListCmd.Flags().IntVar(&sessionLimit, "limit", 20, "Maximum number of sessions to list")
	sessionCreateCmd.Flags().StringVar(&sessionModel, "model", "", "Model for the session (default: oracle.default_model)")
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionCreateCmd)
	rootCmd.AddCommand(sessionCmd)
}

func sessionListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	sessions, err := s.ListSessions(context.Background(), sessionLimit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		ui.Info("No sessions yet. Use 'crv analyze <dir> --srs <file>' to get started.")
		return nil
	}

	table := ui.Table([]string{"ID", "Status", "Model", "Documents", "Updated"})
	for _, rs := range sessions {
		_ = table.Append([]string{
			rs.ID,
			output.StatusColor(rs.Status),
			rs.SelectedModel,
			strconv.Itoa(rs.DocumentCount),
			rs.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return table.Render()
}

func sessionShowRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	rs, err := s.GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("session not found: %s", id)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "Session:  %s\n", output.Cyan(rs.ID))
	fmt.Fprintf(ui.Out, "Status:   %s\n", output.StatusColor(rs.Status))
	fmt.Fprintf(ui.Out, "Model:    %s\n", rs.SelectedModel)
	fmt.Fprintf(ui.Out, "Created:  %s\n", rs.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintln(ui.Out)

	documents, err := s.ListDocuments(ctx, id, "")
	if err != nil {
		return err
	}
	if len(documents) > 0 {
		table := ui.Table([]string{"File", "Type", "Language", "Size"})
		for _, d := range documents {
			lang := ""
			if d.Kind == models.DocumentKindCode {
				lang = docs.DetectLanguage(d.Name)
			}
			_ = table.Append([]string{d.Name, string(d.Kind), lang, strconv.FormatInt(d.Size, 10)})
		}
		if err := table.Render(); err != nil {
			return err
		}
		fmt.Fprintln(ui.Out)
	}

	if a, err := s.LatestAnalysis(ctx, id); err == nil {
		printSummary(a.Summary)
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if run, err := s.LatestComprehensiveRun(ctx, id); err == nil {
		printCompliance(run.Summary)
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

func sessionCreateRun() error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	model := sessionModel
	if model == "" {
		model = settings.Oracle.DefaultModel
	}

	if dryRun {
		ui.DryRunMsg("Would create session with model %s", model)
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	rs := &models.ReviewSession{SelectedModel: model}
	if err := s.CreateSession(context.Background(), rs); err != nil {
		return err
	}
	ui.Success("Session created: %s", rs.ID)
	return nil
}

// printSummary renders an analyze-code summary.
func printSummary(sum models.Summary) {
	fmt.Fprintf(ui.Out, "Analysis: %d issues in %d of %d files (score %s)\n",
		sum.TotalIssues, sum.FilesWithIssues, sum.TotalFiles, output.ScoreColor(sum.OverallScore))
	fmt.Fprintf(ui.Out, "          %s %d  %s %d  %s %d  %s %d\n",
		output.SeverityColor(string(models.SeverityCritical)), sum.CriticalIssues,
		output.SeverityColor(string(models.SeverityHigh)), sum.HighIssues,
		output.SeverityColor(string(models.SeverityMedium)), sum.MediumIssues,
		output.SeverityColor(string(models.SeverityLow)), sum.LowIssues)
}

// printCompliance renders a comprehensive summary.
func printCompliance(sum models.ComprehensiveSummary) {
	fmt.Fprintf(ui.Out, "Compliance: %s (weighted score %s, action %s)\n",
		output.ComplianceColor(string(sum.ComplianceStatus)), output.ScoreColor(sum.WeightedScore), sum.RecommendedAction)
	fmt.Fprintf(ui.Out, "            traceability %d%%, health %.1f, high-risk files %d\n",
		sum.TraceabilityCoverage, sum.HealthScore, sum.HighRiskFiles)
}
