// Package pipeline sequences review tasks: render a prompt, ask the oracle,
// extract and validate the reply, then aggregate. Documents in a run are
// handled one at a time with a fixed pause between oracle calls. A failure
// on one document degrades that document to a documented fallback and the
// run carries on; nothing here is retried.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/semaphore"

	"github.com/joescharf/crv/internal/docs"
	"github.com/joescharf/crv/internal/extract"
	"github.com/joescharf/crv/internal/llm"
	"github.com/joescharf/crv/internal/models"
	"github.com/joescharf/crv/internal/prompt"
	"github.com/joescharf/crv/internal/score"
)

var (
	// ErrNoCodeFiles is returned when a run needs code documents and the
	// session has none.
	ErrNoCodeFiles = errors.New("no code files found")
	// ErrNoSRSFiles is returned when a run needs SRS documents and the
	// session has none.
	ErrNoSRSFiles = errors.New("no SRS files found")

	errNoMatch = errors.New("no JSON payload in reply")
)

// Input is the document batch a run works on.
type Input struct {
	SessionID string
	Model     string
	SRS       []*models.Document
	Code      []*models.Document
}

// Runner executes review tasks against one oracle.
type Runner struct {
	oracle llm.Oracle
	cfg    Config
	scorer *score.Scorer
	runs   *semaphore.Weighted
	logger *slog.Logger
}

// New builds a Runner. A nil logger discards output.
func New(oracle llm.Oracle, cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Caps == nil {
		cfg.Caps = prompt.DefaultCaps()
	}
	runs := int64(cfg.Pacing.MaxConcurrentRuns)
	if runs <= 0 {
		runs = 1
	}
	return &Runner{
		oracle: oracle,
		cfg:    cfg,
		scorer: score.NewScorer(cfg.Policy),
		runs:   semaphore.NewWeighted(runs),
		logger: logger,
	}
}

// Scorer returns the scorer built from the runner's policy.
func (r *Runner) Scorer() *score.Scorer {
	return r.scorer
}

// Config returns the runner's configuration.
func (r *Runner) Config() Config {
	return r.cfg
}

// acquire takes a run slot, blocking until one frees up or ctx ends.
func (r *Runner) acquire(ctx context.Context) (func(), error) {
	if err := r.runs.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for run slot: %w", err)
	}
	return func() { r.runs.Release(1) }, nil
}

// pause waits d between oracle calls. It returns early when ctx ends.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// complete renders req and returns the oracle's raw reply.
func (r *Runner) complete(ctx context.Context, req prompt.Request, model string) (string, error) {
	p := prompt.Build(req, r.cfg.Caps)
	return r.oracle.Complete(ctx, p.System, p.User, model)
}

// ask renders req, calls the oracle and extracts the JSON shape the kind
// expects.
func (r *Runner) ask(ctx context.Context, req prompt.Request, model string) (gjson.Result, error) {
	text, err := r.complete(ctx, req, model)
	if err != nil {
		return gjson.Result{}, err
	}
	shape, ok := req.Kind.Expects()
	if !ok {
		return gjson.Result{}, fmt.Errorf("%s: free-text kind", req.Kind)
	}
	raw, ok := extract.Extract(text, shape)
	if !ok {
		return gjson.Result{}, errNoMatch
	}
	return raw, nil
}

// first returns at most n documents. A non-positive n keeps all.
func first(ds []*models.Document, n int) []*models.Document {
	if n > 0 && len(ds) > n {
		return ds[:n]
	}
	return ds
}

func codeDocument(d *models.Document) prompt.Document {
	return prompt.Document{
		Name:     d.Name,
		Language: docs.DetectLanguage(d.Name),
		Size:     d.Size,
		Content:  d.Content,
	}
}

func srsDocuments(ds []*models.Document) []prompt.Document {
	out := make([]prompt.Document, 0, len(ds))
	for _, d := range ds {
		out = append(out, prompt.Document{Name: d.Name, Size: d.Size, Content: docs.ExtractSRSText(*d)})
	}
	return out
}
