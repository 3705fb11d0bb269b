package cmd

import (
	"context"
	"encoding/base64"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/crv/internal/docs"
	"github.com/joescharf/crv/internal/git"
	"github.com/joescharf/crv/internal/models"
	"github.com/joescharf/crv/internal/output"
	"github.com/joescharf/crv/internal/pipeline"
	"github.com/joescharf/crv/internal/store"
)

var (
	analyzeSRS           []string
	analyzeModel         string
	analyzeComprehensive bool
	analyzeSince         string
)

// gitClient reads repository state, replaceable in tests.
var gitClient git.Client = git.NewClient()

// runnerFactory builds the orchestrator, replaceable in tests.
var runnerFactory = newRunner

// skippedDirs are never walked.
var skippedDirs = []string{"node_modules", "vendor", "__pycache__", "dist", "build"}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <dir>",
	Short: "Review a source tree against SRS documents",
	Long: `Create a session from a source tree and one or more SRS documents, then
generate a checklist and review every code file against it.

Files with a code extension are uploaded as code. Requirement documents must
be named with --srs. With --comprehensive the run also builds the
traceability matrix, semantic validation and code health metrics.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return analyzeRun(cmd.Context(), args[0])
	},
}

func init() {
	analyzeCmd.Flags().StringSliceVar(&analyzeSRS, "srs", nil, "SRS document (repeatable)")
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "", "Model id (default: oracle.default_model)")
	analyzeCmd.Flags().BoolVar(&analyzeComprehensive, "comprehensive", false, "Run the comprehensive analysis")
	analyzeCmd.Flags().StringVar(&analyzeSince, "changed-since", "", "Only review code files changed since this git ref")
	rootCmd.AddCommand(analyzeCmd)
}

func analyzeRun(ctx context.Context, dir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	documents, err := collectDocuments(dir, analyzeSRS, settings.Upload.MaxFileSize)
	if err != nil {
		return err
	}
	if analyzeSince != "" {
		changed, err := gitClient.ChangedFiles(dir, analyzeSince)
		if err != nil {
			return err
		}
		documents = onlyChanged(documents, changed)
		if branch, err := gitClient.CurrentBranch(dir); err == nil {
			head, _ := gitClient.HeadCommit(dir)
			ui.VerboseLog("Reviewing %s@%s changes since %s", branch, head, analyzeSince)
		}
	}
	code, srs := splitDocuments(documents)
	ui.VerboseLog("Collected %d code and %d SRS documents from %s", len(code), len(srs), dir)
	if len(code) == 0 {
		return fmt.Errorf("no code files found in %s", dir)
	}
	if len(srs) == 0 {
		return fmt.Errorf("no SRS documents given (use --srs)")
	}

	model := analyzeModel
	if model == "" {
		model = settings.Oracle.DefaultModel
	}
	if dryRun {
		ui.DryRunMsg("Would analyze %d code files against %d SRS documents with %s", len(code), len(srs), model)
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	sessionID, err := storeDocuments(ctx, s, model, documents)
	if err != nil {
		return err
	}
	ui.Info("Session %s: %d code files, %d SRS documents", sessionID, len(code), len(srs))

	runner, _, cleanup, err := runnerFactory(ctx, settings)
	if err != nil {
		return err
	}
	defer cleanup()

	in := pipeline.Input{SessionID: sessionID, Model: model, SRS: srs, Code: code}
	if analyzeComprehensive {
		return runComprehensive(ctx, s, runner, in)
	}
	return runAnalysis(ctx, s, runner, in)
}

func runAnalysis(ctx context.Context, s store.Store, runner *pipeline.Runner, in pipeline.Input) error {
	ui.Info("Analyzing with %s ...", in.Model)
	result, err := runner.AnalyzeCode(ctx, in)
	if err != nil {
		return err
	}
	if err := s.CreateAnalysis(ctx, result); err != nil {
		return err
	}

	if err := printFileAnalyses(result.FileAnalyses); err != nil {
		return err
	}
	fmt.Fprintln(ui.Out)
	printSummary(result.Summary)
	ui.Success("Analysis %s stored for session %s", result.ID, in.SessionID)
	return nil
}

func runComprehensive(ctx context.Context, s store.Store, runner *pipeline.Runner, in pipeline.Input) error {
	ui.Info("Running comprehensive analysis with %s ...", in.Model)
	run, err := runner.Comprehensive(ctx, in)
	if err != nil {
		return err
	}
	if err := s.CreateComprehensiveRun(ctx, run); err != nil {
		return err
	}

	if err := printFileAnalyses(run.FileAnalyses); err != nil {
		return err
	}
	fmt.Fprintln(ui.Out)
	printSummary(run.Summary.Summary)
	printCompliance(run.Summary)
	ui.Success("Comprehensive analysis %s stored for session %s", run.ID, in.SessionID)
	return nil
}

func printFileAnalyses(analyses []models.FileAnalysis) error {
	table := ui.Table([]string{"File", "Language", "Issues", "Worst", "Status"})
	for _, fa := range analyses {
		_ = table.Append([]string{
			fa.FileName,
			fa.Language,
			strconv.Itoa(fa.IssueCount),
			output.SeverityColor(string(worstSeverity(fa.Issues))),
			output.StatusColor(string(fa.Status)),
		})
	}
	return table.Render()
}

func worstSeverity(issues []models.Issue) models.Severity {
	for _, sev := range models.Severities {
		if slices.ContainsFunc(issues, func(is models.Issue) bool { return is.Severity == sev }) {
			return sev
		}
	}
	return ""
}

// collectDocuments walks dir for code files and reads each SRS path. Code
// files are named relative to dir. Extensions shared by both kinds (.md,
// .txt) count as code only when they are not given as SRS.
func collectDocuments(dir string, srsPaths []string, maxSize int64) ([]*models.Document, error) {
	var out []*models.Document
	srsAbs := make(map[string]bool, len(srsPaths))

	for _, p := range srsPaths {
		d, err := readDocument(p, filepath.Base(p), models.DocumentKindSRS, maxSize)
		if err != nil {
			return nil, err
		}
		if abs, err := filepath.Abs(p); err == nil {
			srsAbs[abs] = true
		}
		out = append(out, d)
	}

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if entry.IsDir() {
			if rel != "." && (docs.Ignored(rel) || slices.Contains(skippedDirs, entry.Name())) {
				return filepath.SkipDir
			}
			return nil
		}
		if docs.Ignored(rel) || !slices.Contains(docs.CodeExtensions, docs.Ext(rel)) {
			return nil
		}
		if abs, err := filepath.Abs(path); err == nil && srsAbs[abs] {
			return nil
		}

		d, err := readDocument(path, rel, models.DocumentKindCode, maxSize)
		if err != nil {
			ui.Warning("Skipping %s: %v", rel, err)
			return nil
		}
		out = append(out, d)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	return out, nil
}

// readDocument loads one file in its stored form. Text is stored as is;
// binary SRS formats keep their base64 payload for later extraction.
func readDocument(path, name string, kind models.DocumentKind, maxSize int64) (*models.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if err := docs.Validate(name, info.Size(), kind, maxSize); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	mediaType := http.DetectContentType(raw)
	content := string(raw)
	if !strings.HasPrefix(mediaType, "text/") && kind == models.DocumentKindSRS {
		content = base64.StdEncoding.EncodeToString(raw)
	}
	return &models.Document{
		Name:      name,
		Kind:      kind,
		Size:      info.Size(),
		MediaType: mediaType,
		Content:   content,
	}, nil
}

// onlyChanged drops code documents whose path is not in changed. SRS
// documents are always kept.
func onlyChanged(documents []*models.Document, changed []string) []*models.Document {
	out := documents[:0]
	for _, d := range documents {
		if d.Kind != models.DocumentKindCode || slices.Contains(changed, d.Name) {
			out = append(out, d)
		}
	}
	return out
}

func splitDocuments(documents []*models.Document) (code, srs []*models.Document) {
	for _, d := range documents {
		switch d.Kind {
		case models.DocumentKindCode:
			code = append(code, d)
		case models.DocumentKindSRS:
			srs = append(srs, d)
		}
	}
	return code, srs
}

// storeDocuments creates a session holding documents and returns its id.
func storeDocuments(ctx context.Context, s store.Store, model string, documents []*models.Document) (string, error) {
	rs := &models.ReviewSession{SelectedModel: model}
	if err := s.CreateSession(ctx, rs); err != nil {
		return "", err
	}
	for _, d := range documents {
		d.SessionID = rs.ID
		if err := s.CreateDocument(ctx, d); err != nil {
			return "", fmt.Errorf("store %s: %w", d.Name, err)
		}
	}
	return rs.ID, nil
}
