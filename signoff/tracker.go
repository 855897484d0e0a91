package signoff

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/c360studio/semreport/composer"
	"github.com/c360studio/semreport/document"
	"github.com/c360studio/semreport/qa"
)

// Tracker stamps sign-off blocks and records them in a Store. It is safe
// for concurrent use when its Store is.
type Tracker struct {
	preparedBy          string
	reviewedBy          string
	locale              language.Tag
	clock               func() time.Time
	newID               func() string
	requirePassForFinal bool
	store               Store
	metrics             *Metrics
	logger              *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithIdentity sets the prepared-by and reviewed-by names. Empty values
// keep the defaults.
func WithIdentity(preparedBy, reviewedBy string) Option {
	return func(t *Tracker) {
		if preparedBy != "" {
			t.preparedBy = preparedBy
		}
		if reviewedBy != "" {
			t.reviewedBy = reviewedBy
		}
	}
}

// WithLocale sets the locale of the sign-off date.
func WithLocale(tag language.Tag) Option {
	return func(t *Tracker) {
		t.locale = tag
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) {
		t.clock = clock
	}
}

// WithIDFunc overrides block ID generation.
func WithIDFunc(fn func() string) Option {
	return func(t *Tracker) {
		t.newID = fn
	}
}

// RequirePassForFinal refuses final sign-offs for failed QA passes. When
// off, a failed pass still produces a final block that records the failure.
func RequirePassForFinal(on bool) Option {
	return func(t *Tracker) {
		t.requirePassForFinal = on
	}
}

// WithStore sets the history store.
func WithStore(s Store) Option {
	return func(t *Tracker) {
		t.store = s
	}
}

// WithMetrics counts recorded blocks.
func WithMetrics(m *Metrics) Option {
	return func(t *Tracker) {
		t.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTracker creates a Tracker. Without WithStore history is kept in memory.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		preparedBy: document.DefaultPreparedBy,
		reviewedBy: document.DefaultReviewedBy,
		locale:     language.AmericanEnglish,
		clock:      time.Now,
		newID:      uuid.NewString,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.store == nil {
		t.store = NewMemoryStore()
	}
	return t
}

// SignOff builds a block for a QA pass. It does not touch the store.
func (t *Tracker) SignOff(documentID string, status document.Status, class document.Classification, result *qa.CheckResult) (*Block, error) {
	if documentID == "" {
		return nil, fmt.Errorf("sign off: document id is required")
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("sign off %s: unknown status %q", documentID, status)
	}
	if !class.IsValid() {
		return nil, fmt.Errorf("sign off %s: unknown classification %q", documentID, class)
	}
	if result == nil {
		return nil, fmt.Errorf("sign off %s: qa result is required", documentID)
	}
	if err := t.CheckGate(status, result); err != nil {
		t.metrics.rejected()
		return nil, fmt.Errorf("sign off %s: %w", documentID, err)
	}

	// Passed is derived, never trusted from the caller's copy.
	verdict := result.Clone()
	verdict.Recompute()

	now := t.clock()
	return &Block{
		ID:             t.newID(),
		DocumentID:     documentID,
		PreparedBy:     t.preparedBy,
		ReviewedBy:     t.reviewedBy,
		Date:           composer.FormatDate(now, t.locale),
		Status:         status,
		Classification: class,
		QAResult:       verdict,
		Completed:      status == document.StatusFinal,
		Passed:         verdict.Passed,
		SignedAt:       now,
	}, nil
}

// CheckGate reports whether a block with status may be produced for result.
func (t *Tracker) CheckGate(status document.Status, result *qa.CheckResult) error {
	if !t.requirePassForFinal || status != document.StatusFinal {
		return nil
	}
	verdict := result.Clone()
	verdict.Recompute()
	if !verdict.Passed {
		return ErrQAGate
	}
	return nil
}

// Record signs off meta at its current status and appends the block to
// history.
func (t *Tracker) Record(ctx context.Context, meta *document.Metadata, result *qa.CheckResult) (*Block, error) {
	if meta == nil {
		return nil, fmt.Errorf("sign off: metadata is required")
	}
	b, err := t.SignOff(meta.ID, meta.Status, meta.Classification, result)
	if err != nil {
		t.logger.Warn("Sign-off refused",
			"document_id", meta.ID,
			"status", meta.Status,
			"error", err)
		return nil, err
	}

	// A cancelled pass must not leave a record behind.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sign off %s: %w", meta.ID, err)
	}
	if err := t.store.Append(ctx, b); err != nil {
		return nil, fmt.Errorf("record sign-off: %w", err)
	}
	t.metrics.recorded(b)

	t.logger.Info("Sign-off recorded",
		"document_id", b.DocumentID,
		"signoff_id", b.ID,
		"status", b.Status,
		"passed", b.Passed,
		"completed", b.Completed)
	return b, nil
}

// History returns every block recorded for documentID, oldest first.
func (t *Tracker) History(ctx context.Context, documentID string) ([]*Block, error) {
	return t.store.History(ctx, documentID)
}

// Latest returns the most recent block for documentID.
func (t *Tracker) Latest(ctx context.Context, documentID string) (*Block, error) {
	return t.store.Latest(ctx, documentID)
}
