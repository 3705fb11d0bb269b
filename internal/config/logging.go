package config

import (
	"log/slog"
)

const masked = "****"

// LogValue implements slog.LogValuer with every credential masked.
func (s Settings) LogValue() slog.Value {
	keys := make([]string, len(s.Server.Auth.APIKeys))
	for i := range keys {
		keys[i] = masked
	}
	return slog.GroupValue(
		slog.String("db_path", s.DBPath),
		slog.Group("server",
			slog.String("host", s.Server.Host),
			slog.Int("port", s.Server.Port),
			slog.String("auth_type", s.Server.Auth.Type),
			slog.Any("api_keys", keys),
		),
		slog.Group("oracle",
			slog.String("default_model", s.Oracle.DefaultModel),
			slog.Int64("max_tokens", s.Oracle.MaxTokens),
			slog.Duration("cache_ttl", s.Oracle.CacheTTL),
		),
		slog.String("anthropic_api_key", mask(s.Anthropic.APIKey)),
		slog.String("openai_api_key", mask(s.OpenAI.APIKey)),
		slog.String("openai_base_url", s.OpenAI.BaseURL),
		slog.String("gemini_api_key", mask(s.Gemini.APIKey)),
		slog.Group("pipeline",
			slog.Duration("call_delay", s.Pipeline.CallDelay),
			slog.Int("max_concurrent_runs", s.Pipeline.MaxConcurrentRuns),
			slog.Int("max_code_files", s.Pipeline.MaxCodeFiles),
		),
	)
}

// mask hides a secret while still showing whether it is set.
func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return masked
}
