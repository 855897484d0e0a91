package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semreport/document"
	"github.com/c360studio/semreport/qa"
	"github.com/c360studio/semreport/scoring"
	"github.com/c360studio/semreport/signoff"
)

type fakePublisher struct {
	subject string
	data    []byte
	err     error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.subject = subject
	f.data = data
	return f.err
}

func sampleResult(t *testing.T) *Result {
	t.Helper()
	meta, err := document.NewMetadata("BIZ-ES-LOYW3V28-AB121", "Weekly Review", document.TypeExecutiveSummary, document.ClassificationInternal, genTime)
	require.NoError(t, err)
	require.NoError(t, meta.AdvanceTo(document.StatusApproved, genTime))

	summary, err := scoring.Summarize([]scoring.Entry{{Dimension: "Market", Score: 80, Weight: 100}})
	require.NoError(t, err)

	verdict := &qa.CheckResult{
		BrandCompliance: true, ContentQuality: true, Accuracy: true,
		Completeness: false, Formatting: true, Classification: true,
		Issues: []string{"Next steps are missing owners."}, Recommendations: []string{},
	}
	verdict.Recompute()

	block, err := signoff.NewTracker().SignOff(meta.ID, meta.Status, meta.Classification, verdict)
	require.NoError(t, err)

	return &Result{
		Text:     "# Weekly Review\n",
		Metadata: meta,
		Scoring:  summary,
		QA:       verdict,
		SignOff:  block,
	}
}

func TestNewEvent(t *testing.T) {
	r := sampleResult(t)
	e := NewEvent(r)

	assert.Equal(t, EventGenerated, e.Type)
	assert.Equal(t, "BIZ-ES-LOYW3V28-AB121", e.DocumentID)
	assert.Equal(t, "executive_summary", e.DocumentType)
	assert.Equal(t, "approved", e.Status)
	assert.Equal(t, r.SignOff.ID, e.SignOffID)
	assert.False(t, e.Passed)
	assert.False(t, e.Completed)
	assert.Equal(t, []string{qa.CheckCompleteness}, e.FailedChecks)
	require.NotNil(t, e.Overall)
	assert.Equal(t, 80.0, *e.Overall)
	assert.Equal(t, "Good", e.Rating)
	assert.Empty(t, e.MarkdownPath)
}

func TestNATSNotifier_Publishes(t *testing.T) {
	pub := &fakePublisher{}
	n := newNATSNotifier(pub, "")

	e := NewEvent(sampleResult(t))
	require.NoError(t, n.Notify(context.Background(), e))

	assert.Equal(t, DefaultSubject, pub.subject)
	var got Event
	require.NoError(t, json.Unmarshal(pub.data, &got))
	assert.Equal(t, e.DocumentID, got.DocumentID)
	assert.Equal(t, e.FailedChecks, got.FailedChecks)
}

func TestNATSNotifier_Errors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("nats: connection closed")}
	n := newNATSNotifier(pub, "reports.generated")

	err := n.Notify(context.Background(), NewEvent(sampleResult(t)))
	assert.ErrorContains(t, err, "publish reports.generated")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, newNATSNotifier(&fakePublisher{}, "x").Notify(ctx, Event{}), context.Canceled)
}

func TestFileWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	w := NewFileWriter(dir)
	w.clock = func() time.Time { return genTime }

	r := sampleResult(t)
	artifact, err := w.Write(context.Background(), r)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "BIZ-ES-LOYW3V28-AB121.md"), artifact.MarkdownPath)
	assert.Equal(t, filepath.Join(dir, "BIZ-ES-LOYW3V28-AB121.json"), artifact.RecordPath)

	md, err := os.ReadFile(artifact.MarkdownPath)
	require.NoError(t, err)
	assert.Equal(t, r.Text, string(md))

	raw, err := os.ReadFile(artifact.RecordPath)
	require.NoError(t, err)
	var record Record
	require.NoError(t, json.Unmarshal(raw, &record))
	assert.Equal(t, document.StatusApproved, record.Metadata.Status)
	assert.Equal(t, r.SignOff.ID, record.SignOff.ID)
	assert.Equal(t, []string{"Next steps are missing owners."}, record.SignOff.QAResult.Issues)
	assert.True(t, record.WrittenAt.Equal(genTime))
}

func TestFileWriter_Errors(t *testing.T) {
	w := NewFileWriter(t.TempDir())

	_, err := w.Write(context.Background(), &Result{})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = w.Write(ctx, sampleResult(t))
	assert.ErrorIs(t, err, context.Canceled)
}
