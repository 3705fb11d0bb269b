// Package config loads the process-wide settings from viper once at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/joescharf/crv/internal/pipeline"
	"github.com/joescharf/crv/internal/score"
)

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeAPIKey = "apikey"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "CRV"

// AuthSettings configures the HTTP authentication middleware.
type AuthSettings struct {
	Type    string   `mapstructure:"type"`
	APIKeys []string `mapstructure:"api_keys"`
}

// ServerSettings configures the HTTP listener.
type ServerSettings struct {
	Host string       `mapstructure:"host"`
	Port int          `mapstructure:"port"`
	Auth AuthSettings `mapstructure:"auth"`
}

// OracleSettings configures model selection and the response cache.
type OracleSettings struct {
	DefaultModel string        `mapstructure:"default_model"`
	MaxTokens    int64         `mapstructure:"max_tokens"`
	Timeout      time.Duration `mapstructure:"timeout"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	CacheMaxCost int64         `mapstructure:"cache_max_cost"`
}

// ProviderSettings holds one provider's credentials.
type ProviderSettings struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// UploadSettings bounds accepted uploads.
type UploadSettings struct {
	MaxFileSize int64 `mapstructure:"max_file_size"`
	MaxZipFiles int   `mapstructure:"max_zip_files"`
}

// ChatSettings bounds per-session chat memory.
type ChatSettings struct {
	MaxSessions int `mapstructure:"max_sessions"`
	MaxHistory  int `mapstructure:"max_history"`
	TrimTo      int `mapstructure:"trim_to"`
}

// Settings application settings
type Settings struct {
	DBPath    string           `mapstructure:"db_path"`
	Server    ServerSettings   `mapstructure:"server"`
	Oracle    OracleSettings   `mapstructure:"oracle"`
	Anthropic ProviderSettings `mapstructure:"anthropic"`
	OpenAI    ProviderSettings `mapstructure:"openai"`
	Gemini    ProviderSettings `mapstructure:"gemini"`
	Upload    UploadSettings   `mapstructure:"upload"`
	Pipeline  pipeline.Pacing  `mapstructure:"pipeline"`
	Limits    pipeline.Limits  `mapstructure:"limits"`
	Policy    score.Policy     `mapstructure:"policy"`
	Chat      ChatSettings     `mapstructure:"chat"`
}

// DefaultDir returns ~/.config/crv, or .crv when the home directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".crv"
	}
	return filepath.Join(home, ".config", "crv")
}

// SetDefaults registers every default on v. Env overrides use the CRV_
// prefix with dots replaced by underscores (CRV_SERVER_PORT).
func SetDefaults(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("db_path", filepath.Join(DefaultDir(), "crv.db"))

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8001)
	v.SetDefault("server.auth.type", AuthTypeNone)
	v.SetDefault("server.auth.api_keys", []string{})

	v.SetDefault("oracle.default_model", "claude-haiku-4-5")
	v.SetDefault("oracle.max_tokens", 8192)
	v.SetDefault("oracle.timeout", 2*time.Minute)
	v.SetDefault("oracle.cache_ttl", time.Duration(0))
	v.SetDefault("oracle.cache_max_cost", int64(64<<20))

	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("gemini.api_key", "")

	v.SetDefault("upload.max_file_size", int64(50<<20))
	v.SetDefault("upload.max_zip_files", 100)

	pacing := pipeline.DefaultPacing()
	v.SetDefault("pipeline.call_delay", pacing.CallDelay)
	v.SetDefault("pipeline.health_call_delay", pacing.HealthCallDelay)
	v.SetDefault("pipeline.max_concurrent_runs", pacing.MaxConcurrentRuns)
	v.SetDefault("pipeline.max_code_files", pacing.MaxCodeFiles)
	v.SetDefault("pipeline.max_structure_files", pacing.MaxStructureFiles)
	v.SetDefault("pipeline.max_validation_files", pacing.MaxValidationFiles)

	limits := pipeline.DefaultLimits()
	v.SetDefault("limits.checklist_items", limits.ChecklistItems)
	v.SetDefault("limits.enhanced_checklist_items", limits.EnhancedChecklistItems)
	v.SetDefault("limits.issues_per_file", limits.IssuesPerFile)
	v.SetDefault("limits.validation_issues_per_file", limits.ValidationIssuesPerFile)
	v.SetDefault("limits.requirements", limits.Requirements)
	v.SetDefault("limits.suggestions", limits.Suggestions)

	policy := score.DefaultPolicy()
	v.SetDefault("policy.issues_per_file_budget", policy.IssuesPerFileBudget)
	v.SetDefault("policy.high_confidence", policy.HighConfidence)
	v.SetDefault("policy.min_mapping_confidence", policy.MinMappingConfidence)
	v.SetDefault("policy.noncompliant_high_risk_files", policy.NonCompliantHighRiskFiles)
	v.SetDefault("policy.conditional_high_issues", policy.ConditionalHighIssues)
	v.SetDefault("policy.weights.critical", policy.Weights.Critical)
	v.SetDefault("policy.weights.high", policy.Weights.High)
	v.SetDefault("policy.weights.medium", policy.Weights.Medium)
	v.SetDefault("policy.weights.low", policy.Weights.Low)
	v.SetDefault("policy.weights.high_risk_file", policy.Weights.HighRiskFile)

	v.SetDefault("chat.max_sessions", 256)
	v.SetDefault("chat.max_history", 20)
	v.SetDefault("chat.trim_to", 15)
}

// Load unmarshals v into Settings and validates the result.
func Load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	// CRV_SERVER_AUTH_API_KEYS arrives as one comma-separated string.
	if len(s.Server.Auth.APIKeys) == 1 && strings.Contains(s.Server.Auth.APIKeys[0], ",") {
		s.Server.Auth.APIKeys = strings.Split(s.Server.Auth.APIKeys[0], ",")
	}
	keys := s.Server.Auth.APIKeys[:0]
	for _, k := range s.Server.Auth.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	s.Server.Auth.APIKeys = keys
	s.DBPath = expandHomeDir(s.DBPath)

	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate rejects settings the server cannot run with.
func Validate(s *Settings) error {
	switch s.Server.Auth.Type {
	case AuthTypeNone, "":
		if len(s.Server.Auth.APIKeys) > 0 {
			return errors.New("auth type 'none' is incompatible with api keys")
		}
	case AuthTypeAPIKey:
		if len(s.Server.Auth.APIKeys) == 0 {
			return errors.New("auth type 'apikey' requires at least one api key")
		}
	default:
		return errors.New("unknown auth type: " + s.Server.Auth.Type)
	}

	if s.Server.Port <= 0 || s.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", s.Server.Port)
	}
	if s.Upload.MaxFileSize <= 0 {
		return errors.New("upload.max_file_size must be positive")
	}
	if s.Pipeline.MaxConcurrentRuns <= 0 {
		return errors.New("pipeline.max_concurrent_runs must be positive")
	}
	if s.Pipeline.CallDelay < 0 || s.Pipeline.HealthCallDelay < 0 {
		return errors.New("pipeline call delays cannot be negative")
	}
	if s.Limits.ChecklistItems <= 0 || s.Limits.EnhancedChecklistItems <= 0 || s.Limits.IssuesPerFile <= 0 {
		return errors.New("limits must be positive")
	}
	if s.Policy.HighConfidence < 0 || s.Policy.HighConfidence > 1 ||
		s.Policy.MinMappingConfidence < 0 || s.Policy.MinMappingConfidence > 1 {
		return errors.New("confidence thresholds must be within [0,1]")
	}
	if s.Chat.TrimTo > s.Chat.MaxHistory {
		return errors.New("chat.trim_to cannot exceed chat.max_history")
	}
	return nil
}

// expandHomeDir expands a leading ~ to the user's home directory.
func expandHomeDir(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}
