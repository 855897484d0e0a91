package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semreport/brand"
	"github.com/c360studio/semreport/composer"
	"github.com/c360studio/semreport/content"
	"github.com/c360studio/semreport/document"
	"github.com/c360studio/semreport/llm"
	"github.com/c360studio/semreport/llm/testutil"
	"github.com/c360studio/semreport/qa"
	"github.com/c360studio/semreport/scoring"
	"github.com/c360studio/semreport/signoff"
)

var genTime = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

const verdictPass = `{"brand_compliance": true, "content_quality": true, "accuracy": true,
"completeness": true, "formatting": true, "classification": true,
"issues": [], "recommendations": []}`

const verdictInaccurate = `{"brand_compliance": true, "content_quality": true, "accuracy": false,
"completeness": true, "formatting": true, "classification": true,
"issues": ["Runway figure conflicts with the finance score."], "recommendations": []}`

func executivePayload() content.Payload {
	return content.Payload{
		Type:           document.TypeExecutiveSummary,
		Classification: document.ClassificationConfidential,
		Status:         document.StatusFinal,
		Content: composer.Content{
			Title:           "Northwind Quarterly Review",
			Summary:         "Northwind closed the quarter ahead of plan on bookings.",
			KeyFindings:     []string{"Bookings grew 18%.", "Churn fell to 2.1%."},
			Recommendations: []string{"Extend the pilot programme to two more regions."},
			NextSteps:       []string{"Confirm the regional budget by Friday."},
		},
		Scoring: []scoring.Entry{
			{Dimension: "Market", Score: 90, Weight: 50, Assessment: "Strong demand"},
			{Dimension: "Execution", Score: 60, Weight: 30, Assessment: "Hiring behind plan"},
			{Dimension: "Finance", Score: 40, Weight: 20, Assessment: "Runway under a year"},
		},
	}
}

type harness struct {
	llm      *testutil.MockLLMClient
	store    *signoff.MemoryStore
	notifier *recordingNotifier
	pipeline *Pipeline
}

func newHarness(t *testing.T, mock *testutil.MockLLMClient, opts ...Option) *harness {
	t.Helper()
	clock := func() time.Time { return genTime }

	cfg := qa.DefaultConfig()
	cfg.Timeout = time.Second

	h := &harness{
		llm:      mock,
		store:    signoff.NewMemoryStore(),
		notifier: &recordingNotifier{},
	}
	c := composer.New(
		composer.WithClock(clock),
		composer.WithProseFormatter(brand.FormatForBrand),
	)
	tracker := signoff.NewTracker(signoff.WithClock(clock), signoff.WithStore(h.store))
	base := []Option{WithClock(clock), WithNotifier(h.notifier)}
	h.pipeline = New(c, qa.New(mock, qa.WithConfig(cfg)), tracker, append(base, opts...)...)
	return h
}

func replies(contents ...string) *testutil.MockLLMClient {
	mock := &testutil.MockLLMClient{}
	for _, c := range contents {
		mock.Responses = append(mock.Responses, &llm.Response{Content: c, Model: "test-model"})
	}
	return mock
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, e Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.err
}

func (n *recordingNotifier) Events() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Event(nil), n.events...)
}

func TestGenerate_EndToEnd(t *testing.T) {
	h := newHarness(t, replies(verdictPass))

	result, err := h.pipeline.Generate(context.Background(), executivePayload())
	require.NoError(t, err)

	require.NotNil(t, result.Scoring)
	assert.InDelta(t, 71.0, result.Scoring.Overall, 1e-9)
	assert.Equal(t, scoring.RatingGood, result.Scoring.Rating.Rating)

	assert.Equal(t, document.StatusFinal, result.Metadata.Status)
	assert.True(t, result.QA.Passed, result.QA.Issues)
	assert.True(t, result.Structure.Valid)
	assert.Contains(t, result.Text, "- **Status:** Final\n")
	assert.Contains(t, result.Text, "| **Overall** | **71** |")

	require.NotNil(t, result.SignOff)
	assert.Equal(t, result.Metadata.ID, result.SignOff.DocumentID)
	assert.True(t, result.SignOff.Completed)
	assert.True(t, result.SignOff.Passed)
	assert.Equal(t, document.ClassificationConfidential, result.SignOff.Classification)

	history, err := h.store.History(context.Background(), result.Metadata.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	events := h.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventGenerated, events[0].Type)
	assert.Equal(t, result.Metadata.ID, events[0].DocumentID)
	assert.Equal(t, "Good", events[0].Rating)
}

func TestGenerate_QARunsAtPendingReview(t *testing.T) {
	var seen document.Status
	var text string
	mock := &testutil.MockLLMClient{Handler: func(_ context.Context, req llm.Request) (*llm.Response, error) {
		text = req.Messages[1].Content
		return &llm.Response{Content: verdictPass}, nil
	}}
	h := newHarness(t, mock)
	h.pipeline.reviewer = reviewerFunc(func(ctx context.Context, txt string, meta *document.Metadata) (*qa.CheckResult, error) {
		seen = meta.Status
		return qa.New(mock).Run(ctx, txt, meta)
	})

	_, err := h.pipeline.Generate(context.Background(), executivePayload())
	require.NoError(t, err)
	assert.Equal(t, document.StatusPendingReview, seen)
	assert.Contains(t, text, "- **Status:** Pending Review")
}

type reviewerFunc func(ctx context.Context, text string, meta *document.Metadata) (*qa.CheckResult, error)

func (f reviewerFunc) Run(ctx context.Context, text string, meta *document.Metadata) (*qa.CheckResult, error) {
	return f(ctx, text, meta)
}

func TestGenerate_FailingQAStillSignsOffByDefault(t *testing.T) {
	h := newHarness(t, replies(verdictInaccurate))

	result, err := h.pipeline.Generate(context.Background(), executivePayload())
	require.NoError(t, err)

	assert.Equal(t, document.StatusFinal, result.Metadata.Status)
	assert.False(t, result.SignOff.Passed)
	assert.True(t, result.SignOff.Completed)
	assert.Equal(t, []string{qa.CheckAccuracy}, result.QA.FailedChecks())
	assert.Equal(t, []string{qa.CheckAccuracy}, h.notifier.Events()[0].FailedChecks)
}

func TestGenerate_QAGate(t *testing.T) {
	mock := replies(verdictInaccurate)
	clock := func() time.Time { return genTime }
	store := signoff.NewMemoryStore()
	notifier := &recordingNotifier{}
	p := New(
		composer.New(composer.WithClock(clock)),
		qa.New(mock),
		signoff.NewTracker(signoff.WithStore(store), signoff.RequirePassForFinal(true)),
		WithNotifier(notifier),
		WithWriter(NewFileWriter(t.TempDir())),
	)

	_, err := p.Generate(context.Background(), executivePayload())
	require.ErrorIs(t, err, signoff.ErrQAGate)
	assert.Empty(t, notifier.Events())
}

func TestGenerate_ServiceErrorAbortsBeforeSignOff(t *testing.T) {
	tests := []struct {
		name string
		mock *testutil.MockLLMClient
		kind qa.ErrorKind
	}{
		{"malformed", replies("I cannot review this."), qa.KindMalformed},
		{"unreachable", &testutil.MockLLMClient{Err: llm.NewFatalError(errors.New("401 unauthorized"))}, qa.KindUnreachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			h := newHarness(t, tt.mock, WithWriter(NewFileWriter(dir)))

			_, err := h.pipeline.Generate(context.Background(), executivePayload())
			require.Error(t, err)
			assert.True(t, qa.IsServiceError(err, tt.kind), err)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
			assert.Empty(t, h.notifier.Events())
		})
	}
}

func TestGenerate_CancelledDuringQA(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mock := &testutil.MockLLMClient{Handler: func(ctx context.Context, _ llm.Request) (*llm.Response, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	h := newHarness(t, mock)

	_, err := h.pipeline.Generate(ctx, executivePayload())
	require.Error(t, err)
	assert.True(t, qa.IsServiceError(err, qa.KindCancelled))
	assert.Empty(t, h.notifier.Events())
}

func TestGenerate_CancelledAfterQA(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mock := &testutil.MockLLMClient{Handler: func(context.Context, llm.Request) (*llm.Response, error) {
		// The verdict arrives, but the caller gives up before sign-off.
		defer cancel()
		return &llm.Response{Content: verdictPass}, nil
	}}
	h := newHarness(t, mock)

	var docID string
	h.pipeline.reviewer = reviewerFunc(func(ctx context.Context, text string, meta *document.Metadata) (*qa.CheckResult, error) {
		docID = meta.ID
		return qa.New(mock).Run(ctx, text, meta)
	})

	_, err := h.pipeline.Generate(ctx, executivePayload())
	require.ErrorIs(t, err, context.Canceled)

	history, err := h.store.History(context.Background(), docID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestGenerate_StatusAndClassificationDefaults(t *testing.T) {
	payload := executivePayload()
	payload.Status = ""
	payload.Classification = ""

	result, err := newHarness(t, replies(verdictPass)).pipeline.Generate(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, document.StatusFinal, result.Metadata.Status)
	assert.Equal(t, document.ClassificationInternal, result.Metadata.Classification)
}

func TestGenerate_RequestedStatus(t *testing.T) {
	tests := []struct {
		status  document.Status
		wantErr bool
	}{
		{document.StatusPendingReview, false},
		{document.StatusApproved, false},
		{document.StatusFinal, false},
		{document.StatusDraft, true},
		{"published", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			mock := replies(verdictPass)
			payload := executivePayload()
			payload.Status = tt.status

			result, err := newHarness(t, mock).pipeline.Generate(context.Background(), payload)
			if tt.wantErr {
				require.Error(t, err)
				assert.Zero(t, mock.GetCallCount())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.status, result.Metadata.Status)
			assert.Equal(t, tt.status, result.SignOff.Status)
			assert.Equal(t, tt.status == document.StatusFinal, result.SignOff.Completed)
		})
	}
}

func TestGenerate_ComposeErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*content.Payload)
		target error
	}{
		{"empty matrix", func(p *content.Payload) { p.Scoring = []scoring.Entry{} }, scoring.ErrEmptyScoringMatrix},
		{"zero weights", func(p *content.Payload) {
			p.Scoring = []scoring.Entry{{Dimension: "Market", Score: 80, Weight: 0}}
		}, scoring.ErrDegenerateWeights},
		{"unknown type", func(p *content.Payload) { p.Type = "memo" }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := replies(verdictPass)
			payload := executivePayload()
			tt.mutate(&payload)

			_, err := newHarness(t, mock).pipeline.Generate(context.Background(), payload)
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			assert.Zero(t, mock.GetCallCount())
		})
	}
}

func TestGenerate_WritesArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	h := newHarness(t, replies(verdictPass), WithWriter(NewFileWriter(dir)))

	result, err := h.pipeline.Generate(context.Background(), executivePayload())
	require.NoError(t, err)
	require.NotNil(t, result.Artifact)

	md, err := os.ReadFile(result.Artifact.MarkdownPath)
	require.NoError(t, err)
	assert.Equal(t, result.Text, string(md))

	raw, err := os.ReadFile(result.Artifact.RecordPath)
	require.NoError(t, err)
	var record Record
	require.NoError(t, json.Unmarshal(raw, &record))
	assert.Equal(t, result.Metadata.ID, record.Metadata.ID)
	assert.Equal(t, result.SignOff.ID, record.SignOff.ID)
	assert.True(t, record.SignOff.QAResult.Passed)

	assert.Equal(t, result.Artifact.MarkdownPath, h.notifier.Events()[0].MarkdownPath)
}

func TestGenerate_NotifierFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, replies(verdictPass))
	h.notifier.err = errors.New("nats: connection closed")

	result, err := h.pipeline.Generate(context.Background(), executivePayload())
	require.NoError(t, err)
	assert.NotNil(t, result.SignOff)
}

func TestGenerate_Concurrent(t *testing.T) {
	mock := &testutil.MockLLMClient{Handler: func(context.Context, llm.Request) (*llm.Response, error) {
		return &llm.Response{Content: verdictPass}, nil
	}}
	h := newHarness(t, mock)

	var wg sync.WaitGroup
	ids := make([]string, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := h.pipeline.Generate(context.Background(), executivePayload())
			if assert.NoError(t, err) {
				ids[i] = result.Metadata.ID
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, h.notifier.Events(), len(ids))
}
