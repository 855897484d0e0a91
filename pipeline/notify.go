package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// EventGenerated is the type of Event published after a document is persisted.
const EventGenerated = "document.generated"

// DefaultSubject is the NATS subject for generated events.
const DefaultSubject = "semreport.document.generated"

// Notifier announces generated documents.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Event describes one generated document.
type Event struct {
	Type           string    `json:"type"`
	DocumentID     string    `json:"document_id"`
	Title          string    `json:"title"`
	DocumentType   string    `json:"document_type"`
	Classification string    `json:"classification"`
	Status         string    `json:"status"`
	SignOffID      string    `json:"signoff_id"`
	Passed         bool      `json:"passed"`
	Completed      bool      `json:"completed"`
	FailedChecks   []string  `json:"failed_checks,omitempty"`
	Overall        *float64  `json:"overall_score,omitempty"`
	Rating         string    `json:"rating,omitempty"`
	MarkdownPath   string    `json:"markdown_path,omitempty"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// NewEvent summarises r.
func NewEvent(r *Result) Event {
	e := Event{
		Type:           EventGenerated,
		DocumentID:     r.Metadata.ID,
		Title:          r.Metadata.Title,
		DocumentType:   string(r.Metadata.Type),
		Classification: string(r.Metadata.Classification),
		Status:         string(r.Metadata.Status),
		GeneratedAt:    r.Metadata.UpdatedAt,
	}
	if r.SignOff != nil {
		e.SignOffID = r.SignOff.ID
		e.Passed = r.SignOff.Passed
		e.Completed = r.SignOff.Completed
	}
	if r.QA != nil {
		e.FailedChecks = r.QA.FailedChecks()
	}
	if r.Scoring != nil {
		overall := r.Scoring.Overall
		e.Overall = &overall
		e.Rating = string(r.Scoring.Rating.Rating)
	}
	if r.Artifact != nil {
		e.MarkdownPath = r.Artifact.MarkdownPath
	}
	return e
}

// publisher is the subset of *nats.Conn used for notification.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes events as JSON on a core NATS subject.
type NATSNotifier struct {
	conn    publisher
	subject string
}

// NewNATSNotifier publishes on subject, or DefaultSubject when empty.
func NewNATSNotifier(nc *nats.Conn, subject string) *NATSNotifier {
	return newNATSNotifier(nc, subject)
}

func newNATSNotifier(conn publisher, subject string) *NATSNotifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSNotifier{conn: conn, subject: subject}
}

// Notify publishes e.
func (n *NATSNotifier) Notify(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", n.subject, err)
	}
	return nil
}

// Connect dials NATS for notification and the sign-off KV store.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("semreport"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return nc, nil
}
