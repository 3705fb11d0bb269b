package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "crv"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage crv configuration.

Running bare 'crv config' is the same as 'crv config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# crv configuration
# See: crv config show (for effective values and sources)

# SQLite database path (default: ~/.config/crv/crv.db)
db_path: "{{ .DBPath }}"

# HTTP API
server:
  host: "{{ .Host }}"
  port: {{ .Port }}
  auth:
    # "none" or "apikey" (clients send X-API-Key)
    type: "{{ .AuthType }}"
    # api_keys: ["change-me"]

# Language model selection
oracle:
  # Model used when a request names none or an unknown one (see: crv models)
  default_model: "{{ .DefaultModel }}"
  max_tokens: {{ .MaxTokens }}
  timeout: {{ .Timeout }}
  # Cache identical prompts for this long (0 disables the cache)
  cache_ttl: {{ .CacheTTL }}

# Provider credentials (env: CRV_ANTHROPIC_API_KEY, CRV_OPENAI_API_KEY, CRV_GEMINI_API_KEY)
anthropic:
  api_key: ""
openai:
  api_key: ""
  # base_url: "https://api.deepseek.com/v1"
gemini:
  api_key: ""

# Upload limits
upload:
  max_file_size: {{ .MaxFileSize }}
  max_zip_files: {{ .MaxZipFiles }}

# Oracle pacing
pipeline:
  call_delay: {{ .CallDelay }}
  max_concurrent_runs: {{ .MaxConcurrentRuns }}
`

type configTemplateData struct {
	DBPath            string
	Host              string
	Port              int
	AuthType          string
	DefaultModel      string
	MaxTokens         int64
	Timeout           string
	CacheTTL          string
	MaxFileSize       int64
	MaxZipFiles       int
	CallDelay         string
	MaxConcurrentRuns int
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		DBPath:            viper.GetString("db_path"),
		Host:              viper.GetString("server.host"),
		Port:              viper.GetInt("server.port"),
		AuthType:          viper.GetString("server.auth.type"),
		DefaultModel:      viper.GetString("oracle.default_model"),
		MaxTokens:         viper.GetInt64("oracle.max_tokens"),
		Timeout:           viper.GetDuration("oracle.timeout").String(),
		CacheTTL:          viper.GetDuration("oracle.cache_ttl").String(),
		MaxFileSize:       viper.GetInt64("upload.max_file_size"),
		MaxZipFiles:       viper.GetInt("upload.max_zip_files"),
		CallDelay:         viper.GetDuration("pipeline.call_delay").String(),
		MaxConcurrentRuns: viper.GetInt("pipeline.max_concurrent_runs"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
	Secret bool
}

var configKeys = []configKeyInfo{
	{Key: "db_path", EnvVar: "CRV_DB_PATH"},
	{Key: "server.host", EnvVar: "CRV_SERVER_HOST"},
	{Key: "server.port", EnvVar: "CRV_SERVER_PORT"},
	{Key: "server.auth.type", EnvVar: "CRV_SERVER_AUTH_TYPE"},
	{Key: "oracle.default_model", EnvVar: "CRV_ORACLE_DEFAULT_MODEL"},
	{Key: "oracle.max_tokens", EnvVar: "CRV_ORACLE_MAX_TOKENS"},
	{Key: "oracle.timeout", EnvVar: "CRV_ORACLE_TIMEOUT"},
	{Key: "oracle.cache_ttl", EnvVar: "CRV_ORACLE_CACHE_TTL"},
	{Key: "anthropic.api_key", EnvVar: "CRV_ANTHROPIC_API_KEY", Secret: true},
	{Key: "openai.api_key", EnvVar: "CRV_OPENAI_API_KEY", Secret: true},
	{Key: "openai.base_url", EnvVar: "CRV_OPENAI_BASE_URL"},
	{Key: "gemini.api_key", EnvVar: "CRV_GEMINI_API_KEY", Secret: true},
	{Key: "upload.max_file_size", EnvVar: "CRV_UPLOAD_MAX_FILE_SIZE"},
	{Key: "upload.max_zip_files", EnvVar: "CRV_UPLOAD_MAX_ZIP_FILES"},
	{Key: "pipeline.call_delay", EnvVar: "CRV_PIPELINE_CALL_DELAY"},
	{Key: "pipeline.max_concurrent_runs", EnvVar: "CRV_PIPELINE_MAX_CONCURRENT_RUNS"},
	{Key: "chat.max_history", EnvVar: "CRV_CHAT_MAX_HISTORY"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		if k.Secret && viper.GetString(k.Key) != "" {
			val = "****"
		}
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-30s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'crv config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
