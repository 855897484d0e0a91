package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semreport/document"
	"github.com/c360studio/semreport/qa"
)

const (
	passVerdict = `{"brand_compliance": true, "content_quality": true, "accuracy": true,
"completeness": true, "formatting": true, "classification": true, "issues": [], "recommendations": []}`
	failVerdict = `{"brand_compliance": true, "content_quality": false, "accuracy": true,
"completeness": true, "formatting": true, "classification": true, "issues": ["Vague findings."], "recommendations": []}`
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadFixtures(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "executive_summary.2.json", passVerdict)
	writeFixture(t, dir, "executive_summary.1.json", failVerdict)
	writeFixture(t, dir, "executive_summary.json", strings.Replace(passVerdict, "[]", `["fallback"]`, 1))
	writeFixture(t, dir, "default.json", passVerdict)
	writeFixture(t, dir, "notes.txt", "ignored")

	fixtures, err := loadFixtures(dir)
	require.NoError(t, err)
	require.Len(t, fixtures, 2)

	seq := fixtures["executive_summary"]
	require.Len(t, seq, 3)
	assert.Contains(t, seq[0], "Vague findings.")
	assert.Equal(t, passVerdict, seq[1])
	assert.Contains(t, seq[2], "fallback")
	assert.Len(t, fixtures[defaultFixture], 1)
}

func TestLoadFixtures_Errors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{name: "empty directory", wantErr: "no verdict fixtures"},
		{name: "invalid JSON", files: map[string]string{"default.json": "{"}, wantErr: "invalid verdict JSON"},
		{
			name:    "missing check",
			files:   map[string]string{"default.json": `{"brand_compliance": true}`},
			wantErr: `verdict missing "content_quality"`,
		},
		{
			name:    "non boolean check",
			files:   map[string]string{"default.json": strings.Replace(passVerdict, `"accuracy": true`, `"accuracy": "yes"`, 1)},
			wantErr: `"accuracy" is not a boolean`,
		},
		{
			name:    "unknown type",
			files:   map[string]string{"memo.json": passVerdict},
			wantErr: `unknown document type "memo"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeFixture(t, dir, name, content)
			}
			_, err := loadFixtures(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func reviewRequest(t *testing.T, docType document.Type, id string) string {
	t.Helper()
	meta := &document.Metadata{
		ID:             id,
		Type:           docType,
		Classification: document.ClassificationInternal,
		Version:        "1.0",
	}
	body, err := json.Marshal(chatRequest{
		Model: "qa-reasoner",
		Messages: []chatMessage{
			{Role: "system", Content: qa.SystemPrompt()},
			{Role: "user", Content: qa.UserPrompt("# Title\n", false, meta)},
		},
	})
	require.NoError(t, err)
	return string(body)
}

func complete(t *testing.T, url, body string) (int, string) {
	t.Helper()
	resp, err := http.Post(url+"/v1/chat/completions", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, ""
	}
	var out chatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Choices, 1)
	assert.Equal(t, "qa-reasoner", out.Model)
	return resp.StatusCode, out.Choices[0].Message.Content
}

func TestServer_ServesVerdictsByType(t *testing.T) {
	fixtures := map[string][]string{
		"executive_summary": {failVerdict, passVerdict},
		defaultFixture:      {passVerdict},
	}
	srv := httptest.NewServer(newServer(fixtures, slog.New(slog.NewTextHandler(io.Discard, nil))).handler())
	defer srv.Close()

	es := reviewRequest(t, document.TypeExecutiveSummary, "BIZ-ES-20260302-0001")
	_, got := complete(t, srv.URL, es)
	assert.Equal(t, failVerdict, got)
	_, got = complete(t, srv.URL, es)
	assert.Equal(t, passVerdict, got)
	_, got = complete(t, srv.URL, es)
	assert.Equal(t, passVerdict, got, "last fixture repeats")

	_, got = complete(t, srv.URL, reviewRequest(t, document.TypeDailyBrief, "BIZ-DB-20260302-0001"))
	assert.Equal(t, passVerdict, got, "default fixture")

	resp, err := http.Get(srv.URL + "/reviews?type=executive_summary")
	require.NoError(t, err)
	defer resp.Body.Close()
	var reviews struct {
		Reviews []review `json:"reviews"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reviews))
	require.Len(t, reviews.Reviews, 3)
	assert.Equal(t, "BIZ-ES-20260302-0001", reviews.Reviews[0].DocumentID)
	assert.Equal(t, 3, reviews.Reviews[2].Index)
}

func TestServer_Errors(t *testing.T) {
	fixtures := map[string][]string{"executive_summary": {passVerdict}}
	srv := httptest.NewServer(newServer(fixtures, slog.New(slog.NewTextHandler(io.Discard, nil))).handler())
	defer srv.Close()

	status, _ := complete(t, srv.URL, reviewRequest(t, document.TypeFullReport, "BIZ-FR-20260302-0001"))
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = complete(t, srv.URL, "not json")
	assert.Equal(t, http.StatusBadRequest, status)

	resp, err := http.Get(srv.URL + "/v1/chat/completions")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestDocumentType(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantType document.Type
		wantID   string
	}{
		{
			name:     "label",
			content:  "- **Document ID:** BIZ-IB-1\n- **Type:** Innovation Brief\n",
			wantType: document.TypeInnovationBrief,
			wantID:   "BIZ-IB-1",
		},
		{
			name:     "type key",
			content:  "- **Type:** evening_review\n",
			wantType: document.TypeEveningReview,
		},
		{name: "no context", content: "Review this."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotID := documentType([]chatMessage{{Role: "user", Content: tt.content}})
			assert.Equal(t, tt.wantType, gotType)
			assert.Equal(t, tt.wantID, gotID)
		})
	}
}
