package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semreport/document"
)

const executiveYAML = `type: executive_summary
classification: confidential
title: Q1 Venture Review
summary: Northwind is on track.
key_findings:
  - Revenue grew 18%.
recommendations:
  - Extend runway.
next_steps:
  - Board review.
scoring:
  - dimension: Market
    score: 90
    weight: 50
    assessment: Strong demand
  - dimension: Execution
    score: 60
    weight: 30
  - dimension: Finance
    score: 40
    weight: 20
`

func TestParse_YAML(t *testing.T) {
	p, err := Parse([]byte(executiveYAML), "q1.yaml")
	require.NoError(t, err)

	assert.Equal(t, document.TypeExecutiveSummary, p.Type)
	assert.Equal(t, document.ClassificationConfidential, p.Classification)
	assert.Equal(t, document.StatusFinal, p.Status, "status defaults to final")
	assert.Equal(t, "Q1 Venture Review", p.Title)
	assert.Equal(t, []string{"Revenue grew 18%."}, p.KeyFindings)
	require.Len(t, p.Scoring, 3)
	assert.Equal(t, "Market", p.Scoring[0].Dimension)
	assert.InDelta(t, 90.0, p.Scoring[0].Score, 1e-9)
	assert.InDelta(t, 50.0, p.Scoring[0].Weight, 1e-9)
	assert.Equal(t, "Strong demand", p.Scoring[0].Assessment)
}

func TestParse_JSON(t *testing.T) {
	data := `{"type":"daily_brief","summary":"Quiet.","status":"approved"}`
	p, err := Parse([]byte(data), "brief.json")
	require.NoError(t, err)

	assert.Equal(t, document.TypeDailyBrief, p.Type)
	assert.Equal(t, document.ClassificationInternal, p.Classification, "classification defaults to internal")
	assert.Equal(t, document.StatusApproved, p.Status)
	assert.Nil(t, p.Scoring)
}

func TestParse_ScoringPresence(t *testing.T) {
	p, err := Parse([]byte("type: daily_brief\nscoring: []\n"), "x.yaml")
	require.NoError(t, err)
	assert.NotNil(t, p.Scoring, "explicit empty matrix must stay distinguishable from absent")
	assert.Empty(t, p.Scoring)
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "missing type", yaml: "summary: x\n"},
		{name: "unknown type", yaml: "type: memo\n"},
		{name: "unknown classification", yaml: "type: daily_brief\nclassification: secret\n"},
		{name: "score above 100", yaml: "type: daily_brief\nscoring:\n  - {dimension: a, score: 101, weight: 10}\n"},
		{name: "negative weight", yaml: "type: daily_brief\nscoring:\n  - {dimension: a, score: 50, weight: -1}\n"},
		{name: "unknown field", yaml: "type: daily_brief\nsumary: typo\n"},
		{name: "bad currency", yaml: "type: innovation_brief\ncurrency: dollars\n"},
		{name: "empty document", yaml: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml), tt.name+".yaml")
			require.Error(t, err)
			assert.True(t, IsValidationError(err), "got %v", err)
		})
	}
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := Parse([]byte("type: [unterminated"), "bad.yaml")
	require.Error(t, err)
	assert.False(t, IsValidationError(err))

	_, err = Parse([]byte("{"), "bad.json")
	require.Error(t, err)
	assert.False(t, IsValidationError(err))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "q1.yaml")
	require.NoError(t, os.WriteFile(path, []byte(executiveYAML), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, document.TypeExecutiveSummary, p.Type)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestGlob(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"a.yaml",
		"nested/b.yml",
		"nested/deeper/c.json",
		"notes.txt",
	}
	for _, f := range files {
		path := filepath.Join(dir, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("type: daily_brief\n"), 0o644))
	}

	t.Run("directory", func(t *testing.T) {
		got, err := Glob(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(dir, "a.yaml"),
			filepath.Join(dir, "nested", "b.yml"),
			filepath.Join(dir, "nested", "deeper", "c.json"),
		}, got)
	})

	t.Run("double star pattern", func(t *testing.T) {
		got, err := Glob(filepath.Join(dir, "**", "*.json"))
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(dir, "nested", "deeper", "c.json")}, got)
	})

	t.Run("single file", func(t *testing.T) {
		got, err := Glob(filepath.Join(dir, "a.yaml"))
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("no matches", func(t *testing.T) {
		_, err := Glob(filepath.Join(dir, "**", "*.toml"))
		assert.Error(t, err)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := Glob(filepath.Join(dir, "missing"))
		assert.Error(t, err)
	})
}
