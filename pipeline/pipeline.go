// Package pipeline runs document generation end to end: compose, QA,
// sign-off, then persist and announce the artifact.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/semreport/composer"
	"github.com/c360studio/semreport/content"
	"github.com/c360studio/semreport/document"
	"github.com/c360studio/semreport/qa"
	"github.com/c360studio/semreport/scoring"
	"github.com/c360studio/semreport/signoff"
)

// reviewer is the QA step.
type reviewer interface {
	Run(ctx context.Context, text string, meta *document.Metadata) (*qa.CheckResult, error)
}

// Result is everything one generation produced.
type Result struct {
	Text      string                     `json:"text"`
	Metadata  *document.Metadata         `json:"metadata"`
	Scoring   *scoring.Summary           `json:"scoring,omitempty"`
	Structure *composer.ValidationResult `json:"structure"`
	QA        *qa.CheckResult            `json:"qa_result"`
	SignOff   *signoff.Block             `json:"sign_off"`

	// Artifact is nil when no writer is configured
	Artifact *Artifact `json:"artifact,omitempty"`
}

// Pipeline generates documents. Concurrent calls share only the composer,
// reviewer, tracker, writer and notifier, all of which are safe for
// concurrent use.
type Pipeline struct {
	composer *composer.Composer
	reviewer reviewer
	tracker  *signoff.Tracker
	writer   Writer
	notifier Notifier
	clock    func() time.Time
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWriter persists each generated document.
func WithWriter(w Writer) Option {
	return func(p *Pipeline) {
		p.writer = w
	}
}

// WithNotifier announces each persisted document.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) {
		p.notifier = n
	}
}

// WithClock overrides the time source used for status changes.
func WithClock(clock func() time.Time) Option {
	return func(p *Pipeline) {
		p.clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Pipeline.
func New(c *composer.Composer, r reviewer, t *signoff.Tracker, opts ...Option) *Pipeline {
	p := &Pipeline{
		composer: c,
		reviewer: r,
		tracker:  t,
		clock:    time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Generate composes payload, runs QA and signs the document off at the
// requested status. Any error before sign-off leaves nothing recorded or
// written. An empty status means final and an empty classification means
// internal.
func (p *Pipeline) Generate(ctx context.Context, payload content.Payload) (*Result, error) {
	target, class, err := normalize(payload)
	if err != nil {
		return nil, err
	}

	doc, err := p.composer.Compose(payload.Type, payload.Content, payload.Scoring, class)
	if err != nil {
		return nil, err
	}
	meta := doc.Metadata

	if err := meta.Advance(document.StatusPendingReview, p.clock()); err != nil {
		return nil, err
	}
	text := composer.StampStatus(doc.Text, meta.Status)

	p.logger.Debug("Document composed, starting QA",
		"document_id", meta.ID,
		"type", meta.Type,
		"target_status", target)

	verdict, err := p.reviewer.Run(ctx, text, meta)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", meta.ID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("generate %s: %w", meta.ID, err)
	}

	// Fail on the gate before the metadata moves.
	if err := p.tracker.CheckGate(target, verdict); err != nil {
		return nil, fmt.Errorf("generate %s: %w", meta.ID, err)
	}
	if err := meta.AdvanceTo(target, p.clock()); err != nil {
		return nil, fmt.Errorf("generate %s: %w", meta.ID, err)
	}
	text = composer.StampStatus(text, meta.Status)

	block, err := p.tracker.Record(ctx, meta, verdict)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", meta.ID, err)
	}

	result := &Result{
		Text:      text,
		Metadata:  meta,
		Scoring:   doc.Scoring,
		Structure: composer.Validate(text, meta.Type),
		QA:        verdict,
		SignOff:   block,
	}

	if p.writer != nil {
		artifact, err := p.writer.Write(ctx, result)
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", meta.ID, err)
		}
		result.Artifact = artifact
	}

	if p.notifier != nil {
		if err := p.notifier.Notify(ctx, NewEvent(result)); err != nil {
			p.logger.Warn("Failed to publish generated notification",
				"document_id", meta.ID,
				"error", err)
		}
	}

	p.logger.Info("Document generated",
		"document_id", meta.ID,
		"status", meta.Status,
		"qa", verdict.Summary())
	return result, nil
}

func normalize(payload content.Payload) (document.Status, document.Classification, error) {
	target := payload.Status
	if target == "" {
		target = document.StatusFinal
	}
	if !target.IsValid() {
		return "", "", fmt.Errorf("generate: unknown status %q", target)
	}
	// QA runs at pending_review, so a document cannot be signed off as draft.
	if !document.StatusPendingReview.Reaches(target) {
		return "", "", fmt.Errorf("generate: status %s precedes review: %w", target, document.ErrInvalidTransition)
	}

	class := payload.Classification
	if class == "" {
		class = document.ClassificationInternal
	}
	return target, class, nil
}
