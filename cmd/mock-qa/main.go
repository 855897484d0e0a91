// Package main implements a mock reasoning service for offline QA runs.
//
// It answers OpenAI-compatible /v1/chat/completions requests with canned QA
// verdicts read from a fixture directory. The verdict is picked by the
// document type named in the review prompt, so a semreport configuration
// pointing its reasoning endpoint at this server runs the whole pipeline
// without a real model.
//
// Usage:
//
//	mock-qa --fixtures ./testdata/verdicts --addr :11434
//
// Fixture files are named after a document type ("executive_summary.json")
// or "default.json" for any type without its own file. Numbered files
// ("executive_summary.1.json", "executive_summary.2.json") are served in
// order on successive reviews of that type; once exhausted the base file
// repeats. Every fixture must be a JSON object carrying the six check
// fields of a verdict.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/semreport/document"
	"github.com/c360studio/semreport/qa"
)

// defaultFixture is the fixture key used when no type-specific file exists.
const defaultFixture = "default"

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// review records one served verdict for the /reviews endpoint.
type review struct {
	DocumentID string `json:"document_id"`
	Type       string `json:"type"`
	Fixture    string `json:"fixture"`
	Index      int    `json:"index"`
}

type server struct {
	fixtures map[string][]string
	logger   *slog.Logger

	mu      sync.Mutex
	served  map[string]int
	reviews []review
}

func newServer(fixtures map[string][]string, logger *slog.Logger) *server {
	return &server{
		fixtures: fixtures,
		logger:   logger,
		served:   make(map[string]int),
	}
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var fixtureDir, addr string

	cmd := &cobra.Command{
		Use:          "mock-qa",
		Short:        "Serve canned QA verdicts on an OpenAI-compatible endpoint",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fixtureDir == "" {
				fixtureDir = os.Getenv("MOCK_QA_FIXTURES")
			}
			if fixtureDir == "" {
				return errors.New("--fixtures is required")
			}

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			fixtures, err := loadFixtures(fixtureDir)
			if err != nil {
				return fmt.Errorf("load fixtures from %s: %w", fixtureDir, err)
			}
			for key, seq := range fixtures {
				logger.Info("Loaded verdicts", "fixture", key, "count", len(seq))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:              addr,
				Handler:           newServer(fixtures, logger).handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()
			logger.Info("Mock QA service listening", "addr", addr)

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&fixtureDir, "fixtures", "", "Directory of verdict fixtures (env MOCK_QA_FIXTURES)")
	cmd.Flags().StringVar(&addr, "addr", ":11434", "Listen address")
	return cmd
}

func (s *server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("/reviews", s.handleReviews)
	return mux
}

var (
	typeLineRe = regexp.MustCompile(`(?m)^- \*\*Type:\*\* (.+)$`)
	idLineRe   = regexp.MustCompile(`(?m)^- \*\*Document ID:\*\* (\S+)$`)
)

// documentType finds the type named in the review prompt. Labels and type
// keys are both accepted.
func documentType(messages []chatMessage) (document.Type, string) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != "user" {
			continue
		}
		var id string
		if m := idLineRe.FindStringSubmatch(messages[i].Content); m != nil {
			id = m[1]
		}
		m := typeLineRe.FindStringSubmatch(messages[i].Content)
		if m == nil {
			return "", id
		}
		label := strings.TrimSpace(m[1])
		for _, t := range document.Types() {
			if t.Label() == label {
				return t, id
			}
		}
		if t, err := document.ParseType(label); err == nil {
			return t, id
		}
		return "", id
	}
	return "", ""
}

func (s *server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	docType, docID := documentType(req.Messages)
	key := docType.String()
	if _, ok := s.fixtures[key]; !ok {
		key = defaultFixture
	}
	seq, ok := s.fixtures[key]
	if !ok {
		s.logger.Warn("No verdict fixture", "type", docType, "document_id", docID)
		http.Error(w, fmt.Sprintf("no verdict fixture for type %q", docType), http.StatusNotFound)
		return
	}

	s.mu.Lock()
	index := s.served[key]
	s.served[key]++
	s.reviews = append(s.reviews, review{
		DocumentID: docID,
		Type:       docType.String(),
		Fixture:    key,
		Index:      index + 1,
	})
	s.mu.Unlock()

	verdict := seq[min(index, len(seq)-1)]
	s.logger.Info("Serving verdict", "document_id", docID, "fixture", key, "index", index+1)

	now := time.Now()
	writeJSON(w, http.StatusOK, chatResponse{
		ID:      fmt.Sprintf("mock-qa-%d", now.UnixNano()),
		Object:  "chat.completion",
		Created: now.Unix(),
		Model:   req.Model,
		Choices: []chatChoice{{
			Message:      chatMessage{Role: "assistant", Content: verdict},
			FinishReason: "stop",
		}},
		Usage: chatUsage{
			PromptTokens:     len(req.Messages) * 256,
			CompletionTokens: len(verdict) / 4,
			TotalTokens:      len(req.Messages)*256 + len(verdict)/4,
		},
	})
}

// handleReviews lists served verdicts, optionally filtered by ?type=.
func (s *server) handleReviews(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("type")

	s.mu.Lock()
	out := make([]review, 0, len(s.reviews))
	for _, rv := range s.reviews {
		if filter == "" || rv.Type == filter {
			out = append(out, rv)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"reviews": out})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var numberedFileRe = regexp.MustCompile(`^(.+)\.(\d+)\.json$`)

// loadFixtures reads the verdict fixtures under dir, keyed by document type
// or "default". Numbered files come first in numeric order, then the base
// file as the repeating fallback.
func loadFixtures(dir string) (map[string][]string, error) {
	base := make(map[string]string)
	numbered := make(map[string]map[int]string)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if err := validateVerdict(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		key := strings.TrimSuffix(e.Name(), ".json")
		if m := numberedFileRe.FindStringSubmatch(e.Name()); m != nil {
			key = m[1]
			n, _ := strconv.Atoi(m[2])
			if numbered[key] == nil {
				numbered[key] = make(map[int]string)
			}
			numbered[key][n] = string(data)
		} else {
			base[key] = string(data)
		}
		if key != defaultFixture && !document.Type(key).IsValid() {
			return nil, fmt.Errorf("%s: unknown document type %q", path, key)
		}
	}

	fixtures := make(map[string][]string)
	for key, byIndex := range numbered {
		indices := make([]int, 0, len(byIndex))
		for n := range byIndex {
			indices = append(indices, n)
		}
		sort.Ints(indices)
		for _, n := range indices {
			fixtures[key] = append(fixtures[key], byIndex[n])
		}
	}
	for key, content := range base {
		fixtures[key] = append(fixtures[key], content)
	}

	if len(fixtures) == 0 {
		return nil, fmt.Errorf("no verdict fixtures found in %s", dir)
	}
	return fixtures, nil
}

// validateVerdict requires a JSON object with a boolean for every check.
func validateVerdict(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("invalid verdict JSON: %w", err)
	}
	for _, name := range qa.CheckNames() {
		raw, ok := fields[name]
		if !ok {
			return fmt.Errorf("verdict missing %q", name)
		}
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return fmt.Errorf("verdict field %q is not a boolean", name)
		}
	}
	return nil
}
