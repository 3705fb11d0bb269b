package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/crv/internal/config"
	"github.com/joescharf/crv/internal/llm"
	"github.com/joescharf/crv/internal/output"
	"github.com/joescharf/crv/internal/pipeline"
	"github.com/joescharf/crv/internal/store"
)

// Build metadata, set from main.
var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	logger    *slog.Logger
	dataStore store.Store

	verbose bool
	dryRun  bool
)

var rootCmd = &cobra.Command{
	Use:   "crv",
	Short: "Code review backend - SRS-driven checklists, analysis and fixes",
	Long: `crv reviews source code against a Software Requirements Specification.
It stores review sessions, generates checklists from SRS documents, analyzes
code with a language model, proposes fixes and serves the whole workflow
over HTTP and MCP.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", buildVersion, buildCommit, buildDate)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/crv/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDirFunc()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	config.SetDefaults(viper.GetViper())

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun
	logger = newLogger(os.Stderr, verbose)

	// Initialize store lazily; only commands that need it open the db.
}

// newLogger builds the process logger. Logs go to stderr so stdout stays
// clean for command output and the MCP stdio transport.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadSettings reads and validates the effective settings.
func loadSettings() (*config.Settings, error) {
	return config.Load(viper.GetViper())
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(settings.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	s, err := store.NewSQLiteStore(settings.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(context.Background()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// newRunner builds the orchestrator over the configured oracle. The returned
// cleanup releases the response cache when one is enabled.
func newRunner(ctx context.Context, settings *config.Settings) (*pipeline.Runner, *llm.Registry, func(), error) {
	registry, err := newRegistry(ctx, settings)
	if err != nil {
		return nil, nil, nil, err
	}

	var oracle llm.Oracle = registry
	cleanup := func() {}
	if settings.Oracle.CacheTTL > 0 {
		cached, err := llm.NewCachedOracle(registry, settings.Oracle.CacheTTL, settings.Oracle.CacheMaxCost)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("oracle cache: %w", err)
		}
		oracle = cached
		cleanup = cached.Close
	}

	cfg := pipeline.DefaultConfig()
	cfg.Pacing = settings.Pipeline
	cfg.Limits = settings.Limits
	cfg.Policy = settings.Policy
	return pipeline.New(oracle, cfg, logger), registry, cleanup, nil
}

// newRegistry registers every provider that has an API key.
func newRegistry(ctx context.Context, settings *config.Settings) (*llm.Registry, error) {
	registry := llm.NewRegistry(settings.Oracle.DefaultModel, settings.Oracle.Timeout, logger)

	if key := firstNonEmpty(settings.Anthropic.APIKey, os.Getenv("ANTHROPIC_API_KEY")); key != "" {
		registry.Register(llm.ProviderAnthropic, llm.NewAnthropic(key, settings.Oracle.MaxTokens))
	}
	if key := firstNonEmpty(settings.OpenAI.APIKey, os.Getenv("OPENAI_API_KEY")); key != "" {
		registry.Register(llm.ProviderOpenAI, llm.NewOpenAI(key, settings.OpenAI.BaseURL, settings.Oracle.MaxTokens))
	}
	if key := firstNonEmpty(settings.Gemini.APIKey, os.Getenv("GEMINI_API_KEY")); key != "" {
		g, err := llm.NewGemini(ctx, key, settings.Oracle.MaxTokens)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		registry.Register(llm.ProviderGemini, g)
	}
	return registry, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
