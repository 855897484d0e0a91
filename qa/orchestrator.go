package qa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/c360studio/semreport/brand"
	"github.com/c360studio/semreport/composer"
	"github.com/c360studio/semreport/document"
	"github.com/c360studio/semreport/llm"
	"github.com/c360studio/semreport/model"
)

// completer is the subset of the LLM client used by the orchestrator.
type completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Config controls the reasoning call.
type Config struct {
	// Capability selects the model chain. Empty means reviewing.
	Capability string `yaml:"capability" json:"capability"`

	// Timeout bounds each attempt.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// ExcerptLimit is the number of characters sent for review.
	ExcerptLimit int `yaml:"excerpt_limit" json:"excerpt_limit"`

	// MaxTokens caps the verdict length.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens"`

	// Temperature for the reasoning call.
	Temperature float64 `yaml:"temperature" json:"temperature"`

	// RetryTransient allows one retry after a transient network failure.
	RetryTransient bool `yaml:"retry_transient" json:"retry_transient"`
}

// DefaultConfig returns the QA defaults.
func DefaultConfig() Config {
	return Config{
		Capability:     string(model.CapabilityReviewing),
		Timeout:        120 * time.Second,
		ExcerptLimit:   DefaultExcerptLimit,
		MaxTokens:      1024,
		Temperature:    0,
		RetryTransient: true,
	}
}

// ClientRetryConfig is the llm.Client retry setting for a client used by an
// Orchestrator: one attempt per endpoint, since the orchestrator owns the
// single transient retry.
func ClientRetryConfig() llm.RetryConfig {
	return llm.RetryConfig{MaxAttempts: 1, BackoffMultiplier: 1}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Capability != "" && model.ParseCapability(c.Capability) == "" {
		return fmt.Errorf("unknown capability %q", c.Capability)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.ExcerptLimit < 0 {
		return fmt.Errorf("excerpt_limit must not be negative")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must not be negative")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	return nil
}

// Orchestrator runs QA passes. It is safe for concurrent use.
type Orchestrator struct {
	client  completer
	config  Config
	rules   *brand.Ruleset
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		o.config = cfg
	}
}

// WithRuleset sets the brand rules for the local compliance check.
func WithRuleset(rs *brand.Ruleset) Option {
	return func(o *Orchestrator) {
		o.rules = rs
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records pass outcomes.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// New creates an orchestrator over an LLM client.
func New(client completer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client: client,
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.rules == nil {
		o.rules = brand.Default()
	}
	if o.config.Capability == "" {
		o.config.Capability = string(model.CapabilityReviewing)
	}
	return o
}

// Run judges text and returns the combined verdict. The reasoning service's
// checks are ANDed with the local brand check (BrandCompliance) and the
// template structure check (Formatting); local findings are appended to
// Issues. Any service failure returns a *ServiceError and no result.
func (o *Orchestrator) Run(ctx context.Context, text string, meta *document.Metadata) (*CheckResult, error) {
	if meta == nil {
		return nil, fmt.Errorf("qa: metadata is required")
	}

	start := time.Now()
	result, err := o.run(ctx, text, meta)
	o.metrics.record(result, err, time.Since(start))

	if err != nil {
		o.logger.Warn("QA pass failed",
			"document_id", meta.ID,
			"error", err)
		return nil, err
	}

	o.logger.Info("QA pass complete",
		"document_id", meta.ID,
		"passed", result.Passed,
		"failed_checks", result.FailedChecks(),
		"issues", len(result.Issues),
		"defaulted_checks", result.DefaultedChecks)
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, text string, meta *document.Metadata) (*CheckResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ServiceError{Kind: KindCancelled, Err: err}
	}

	excerpt, truncated := Excerpt(text, o.config.ExcerptLimit)
	temperature := o.config.Temperature
	req := llm.Request{
		Capability: o.config.Capability,
		Messages: []llm.Message{
			{Role: "system", Content: SystemPrompt()},
			{Role: "user", Content: UserPrompt(excerpt, truncated, meta)},
		},
		Temperature:    &temperature,
		MaxTokens:      o.config.MaxTokens,
		ResponseSchema: ResponseSchema(),
	}

	maxAttempts := 1
	if o.config.RetryTransient {
		maxAttempts = 2
	}

	var resp *llm.Response
	attempts := 0
	for {
		attempts++
		var err error
		resp, err = o.complete(ctx, req)
		if err == nil {
			break
		}

		serr := o.classify(ctx, err, attempts)
		if serr.Kind != KindUnreachable || !llm.IsTransient(err) || attempts >= maxAttempts {
			return nil, serr
		}
		o.logger.Debug("Transient QA failure, retrying",
			"document_id", meta.ID,
			"attempt", attempts,
			"error", err)
	}

	// Malformed replies are not retried.
	result, err := parseVerdict(resp.Content)
	if err != nil {
		return nil, &ServiceError{Kind: KindMalformed, Attempts: attempts, Err: err}
	}

	o.applyLocalChecks(result, text, meta)
	result.Recompute()
	return result, nil
}

// complete makes one bounded reasoning call.
func (o *Orchestrator) complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.config.Timeout)
	defer cancel()

	resp, err := o.client.Complete(callCtx, req)
	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("no verdict within %s: %w", o.config.Timeout, context.DeadlineExceeded)
		}
		return nil, err
	}
	return resp, nil
}

// classify maps a call failure onto a ServiceError kind. The caller's own
// context wins over whatever the client reported.
func (o *Orchestrator) classify(ctx context.Context, err error, attempts int) *ServiceError {
	kind := KindUnreachable
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		kind = KindCancelled
	case ctx.Err() != nil, errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(err, context.Canceled):
		kind = KindCancelled
	}
	return &ServiceError{Kind: kind, Attempts: attempts, Err: err}
}

// applyLocalChecks folds deterministic checks into the verdict. The
// document ID is excluded from the brand check since generated IDs are
// hyphenated by construction.
func (o *Orchestrator) applyLocalChecks(result *CheckResult, text string, meta *document.Metadata) {
	prose := text
	if meta.ID != "" {
		prose = strings.ReplaceAll(text, meta.ID, "")
	}

	report := o.rules.Check(prose)
	if !report.Compliant {
		result.BrandCompliance = false
		for _, issue := range report.Issues {
			result.Issues = append(result.Issues, "brand: "+issue)
		}
	}

	structure := composer.Validate(text, meta.Type)
	if !structure.Valid {
		result.Formatting = false
		for _, missing := range structure.MissingSections {
			result.Issues = append(result.Issues, fmt.Sprintf("structure: missing or empty section %q", missing))
		}
	}
	for _, warning := range structure.Warnings {
		result.Recommendations = append(result.Recommendations, "structure: "+warning)
	}
}
