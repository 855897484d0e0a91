// Package composer assembles structured content into the canonical markdown
// form of a business document, using a per-type section template.
//
// Composition is pure apart from ID and timestamp capture; both are
// injectable for reproducible output.
package composer

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/c360studio/semreport/document"
	"github.com/c360studio/semreport/scoring"
)

// Document is the output of one composition.
type Document struct {
	// Text is the rendered markdown
	Text string `json:"text"`

	// Metadata is the draft record for the document
	Metadata *document.Metadata `json:"metadata"`

	// Scoring is nil when no matrix was supplied
	Scoring *scoring.Summary `json:"scoring,omitempty"`

	// Structure is the template structure check of Text
	Structure *ValidationResult `json:"structure"`
}

// Composer renders documents. Safe for concurrent use.
type Composer struct {
	ids        document.IDSource
	clock      func() time.Time
	locale     language.Tag
	preparedBy string
	reviewedBy string
	prose      func(string) string
	html       *htmlConverter
	logger     *slog.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithIDSource sets the document ID source.
func WithIDSource(ids document.IDSource) Option {
	return func(c *Composer) {
		c.ids = ids
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(c *Composer) {
		c.clock = clock
	}
}

// WithLocale sets the locale used for dates and numbers.
func WithLocale(tag language.Tag) Option {
	return func(c *Composer) {
		c.locale = tag
	}
}

// WithIdentity sets the prepared-by and reviewed-by names. Empty values
// keep the defaults.
func WithIdentity(preparedBy, reviewedBy string) Option {
	return func(c *Composer) {
		if preparedBy != "" {
			c.preparedBy = preparedBy
		}
		if reviewedBy != "" {
			c.reviewedBy = reviewedBy
		}
	}
}

// WithProseFormatter applies fn to caller-supplied prose before rendering,
// typically brand.FormatForBrand. Generated text is never passed to fn.
func WithProseFormatter(fn func(string) string) Option {
	return func(c *Composer) {
		c.prose = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Composer) {
		c.logger = logger
	}
}

// New creates a Composer.
func New(opts ...Option) *Composer {
	c := &Composer{
		clock:      time.Now,
		locale:     language.AmericanEnglish,
		preparedBy: document.DefaultPreparedBy,
		reviewedBy: document.DefaultReviewedBy,
		html:       newHTMLConverter(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ids == nil {
		c.ids = document.NewIDGenerator(document.DefaultSystemPrefix, document.WithClock(c.clock))
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Compose builds a draft document. A nil matrix omits the scoring section;
// a non-nil empty matrix is an error.
func (c *Composer) Compose(t document.Type, content Content, matrix []scoring.Entry, class document.Classification) (*Document, error) {
	tmpl, ok := TemplateFor(t)
	if !ok {
		return nil, fmt.Errorf("compose: unknown document type %q", t)
	}
	if !class.IsValid() {
		return nil, fmt.Errorf("compose: unknown classification %q", class)
	}

	var summary *scoring.Summary
	if matrix != nil {
		for _, e := range matrix {
			if err := e.Validate(); err != nil {
				return nil, fmt.Errorf("compose scoring matrix: %w", err)
			}
		}
		s, err := scoring.Summarize(matrix)
		if err != nil {
			return nil, fmt.Errorf("compose scoring matrix: %w", err)
		}
		summary = s
	}

	content, err := c.prepare(content)
	if err != nil {
		return nil, fmt.Errorf("compose %s: %w", t, err)
	}

	title := oneLine(content.Title)
	if title == "" {
		title = t.Label()
	}

	now := c.clock()
	meta, err := document.NewMetadata(c.ids.NewID(t), title, t, class, now)
	if err != nil {
		return nil, fmt.Errorf("compose: %w", err)
	}

	text := render(renderInput{
		template:   tmpl,
		meta:       meta,
		content:    content,
		summary:    summary,
		date:       FormatDate(now, c.locale),
		numbers:    newNumberFormat(c.locale),
		preparedBy: c.preparedBy,
		reviewedBy: c.reviewedBy,
	})

	structure := Validate(text, t)
	c.logger.Debug("Composed document",
		"document_id", meta.ID,
		"type", t,
		"classification", class,
		"bytes", len(text),
		"structure_valid", structure.Valid)

	return &Document{
		Text:      text,
		Metadata:  meta,
		Scoring:   summary,
		Structure: structure,
	}, nil
}

// prepare normalises section bodies to markdown, then applies the prose
// formatter. Conversion runs first so the formatter never sees HTML markup.
func (c *Composer) prepare(content Content) (Content, error) {
	var convErr error
	toMarkdown := func(body string) string {
		if convErr != nil {
			return body
		}
		out, err := c.html.Body(body)
		if err != nil {
			convErr = err
			return body
		}
		return out
	}

	out := content
	out.Sections = mapSections(content.Sections, toMarkdown)
	out.Appendix = mapSections(content.Appendix, toMarkdown)
	if convErr != nil {
		return Content{}, convErr
	}

	if c.prose != nil {
		out = out.mapProse(c.prose)
	}
	out.Summary = strings.TrimSpace(out.Summary)
	return out, nil
}
