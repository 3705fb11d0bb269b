package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Provider names an oracle backend.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
)

// ModelSpec maps a public model id to the provider and provider model name.
type ModelSpec struct {
	ID       string   `json:"id"`
	Provider Provider `json:"provider"`
	Name     string   `json:"name"`
}

// Catalog lists the selectable model ids.
var Catalog = []ModelSpec{
	{ID: "gpt-4o", Provider: ProviderOpenAI, Name: "gpt-4o"},
	{ID: "gpt-4o-mini", Provider: ProviderOpenAI, Name: "gpt-4o-mini"},
	{ID: "deepseek-coder", Provider: ProviderOpenAI, Name: "deepseek-coder"},
	{ID: "claude-3-5-sonnet", Provider: ProviderAnthropic, Name: "claude-3-5-sonnet-20241022"},
	{ID: "claude-haiku-4-5", Provider: ProviderAnthropic, Name: "claude-haiku-4-5-20251001"},
	{ID: "claude-sonnet-4-5", Provider: ProviderAnthropic, Name: "claude-sonnet-4-5"},
	{ID: "gemini-2.0-flash", Provider: ProviderGemini, Name: "gemini-2.0-flash"},
	{ID: "gemini-2.5-flash", Provider: ProviderGemini, Name: "gemini-2.5-flash"},
}

// Lookup finds a catalog entry by id.
func Lookup(id string) (ModelSpec, bool) {
	for _, m := range Catalog {
		if m.ID == id {
			return m, true
		}
	}
	return ModelSpec{}, false
}

// ModelInfo reports a catalog entry and whether its provider is configured.
type ModelInfo struct {
	ModelSpec
	Available bool `json:"available"`
	Default   bool `json:"default"`
}

// Registry routes public model ids to registered providers. Unknown ids and
// ids whose provider is not registered fall back to the default model.
type Registry struct {
	mu sync.RWMutex

	providers    map[Provider]Oracle
	defaultModel string
	timeout      time.Duration
	logger       *slog.Logger
}

// NewRegistry creates an empty registry. A zero timeout disables the
// per-call deadline.
func NewRegistry(defaultModel string, timeout time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		providers:    make(map[Provider]Oracle),
		defaultModel: defaultModel,
		timeout:      timeout,
		logger:       logger,
	}
}

// Register adds or replaces the oracle for a provider.
func (r *Registry) Register(p Provider, o Oracle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p] = o
}

// DefaultModel returns the fallback model id.
func (r *Registry) DefaultModel() string {
	return r.defaultModel
}

// Resolve picks the catalog entry and oracle that will serve model.
func (r *Registry) Resolve(model string) (ModelSpec, Oracle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if spec, ok := Lookup(model); ok {
		if o, ok := r.providers[spec.Provider]; ok {
			return spec, o, nil
		}
	}
	spec, ok := Lookup(r.defaultModel)
	if !ok {
		return ModelSpec{}, nil, fmt.Errorf("%w: default model %q is not in the catalog", ErrOracleUnavailable, r.defaultModel)
	}
	o, ok := r.providers[spec.Provider]
	if !ok {
		return ModelSpec{}, nil, fmt.Errorf("%w: provider %s is not configured", ErrOracleUnavailable, spec.Provider)
	}
	if model != "" && model != spec.ID {
		r.logger.Debug("model fallback", "requested", model, "using", spec.ID)
	}
	return spec, o, nil
}

// Complete resolves model and forwards the prompt to its provider.
func (r *Registry) Complete(ctx context.Context, system, user, model string) (string, error) {
	spec, o, err := r.Resolve(model)
	if err != nil {
		return "", err
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	text, err := o.Complete(ctx, system, user, spec.Name)
	if err != nil {
		return "", unavailable(string(spec.Provider), err)
	}
	return text, nil
}

// Models lists the catalog with availability, sorted by id.
func (r *Registry) Models() []ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ModelInfo, 0, len(Catalog))
	for _, m := range Catalog {
		_, ok := r.providers[m.Provider]
		out = append(out, ModelInfo{ModelSpec: m, Available: ok, Default: m.ID == r.defaultModel})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
