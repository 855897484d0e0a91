package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/c360studio/semreport/brand"
	"github.com/c360studio/semreport/composer"
	"github.com/c360studio/semreport/content"
	"github.com/c360studio/semreport/document"
	"github.com/c360studio/semreport/qa"
	"github.com/c360studio/semreport/scoring"
	"github.com/c360studio/semreport/signoff"
)

// maxRequestBodySize limits POST body sizes.
const maxRequestBodySize = 1 << 20 // 1 MB

func newServeCmd(opts *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the document API and metrics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			if addr == "" {
				addr = app.cfg.Server.Addr
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           app.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()
			opts.logger.Info("Serving", "addr", addr)
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", addr)

			select {
			case err := <-errCh:
				return &ExitError{Code: ExitCommandError, Message: "serve", Err: err}
			case <-ctx.Done():
			}

			opts.logger.Info("Received shutdown signal")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				opts.logger.Error("Error stopping server", "error", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from server.addr)")
	return cmd
}

// Handler returns the HTTP API:
//
//	POST /v1/documents                 generate a document from a content payload
//	GET  /v1/documents/{id}/signoffs   sign-off history of a document
//	POST /v1/brand/check               brand compliance of a text
//	GET  /healthz                      liveness
//	GET  /metrics                      Prometheus metrics
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/documents", a.handleGenerate)
	mux.HandleFunc("/v1/documents/{id}/signoffs", a.handleSignOffs)
	mux.HandleFunc("/v1/brand/check", a.handleBrandCheck)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": Version})
	})
	mux.Handle("/metrics", promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{}))
	return mux
}

func (a *App) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err != nil {
		http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	payload, err := content.Parse(body, "request.json")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := a.Generate(r.Context(), *payload)
	if err != nil {
		a.logger.Warn("Generate request failed", "error", err)
		writeError(w, generateStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// generateStatus maps a pipeline error to an HTTP status.
func generateStatus(err error) int {
	switch {
	case content.IsValidationError(err),
		errors.Is(err, document.ErrInvalidTransition),
		errors.Is(err, scoring.ErrEmptyScoringMatrix),
		errors.Is(err, scoring.ErrDegenerateWeights),
		errors.Is(err, scoring.ErrScoreOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, signoff.ErrQAGate):
		return http.StatusUnprocessableEntity
	case qa.IsServiceError(err, qa.KindTimeout):
		return http.StatusGatewayTimeout
	case qa.IsServiceError(err, qa.KindCancelled), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case qa.IsServiceError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (a *App) handleSignOffs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	blocks, err := a.tracker.History(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, blocks)
}

// brandCheckRequest is the body of POST /v1/brand/check.
type brandCheckRequest struct {
	Text string `json:"text"`

	// Type, when set, adds the template structure check
	Type string `json:"type,omitempty"`
}

type brandCheckResponse struct {
	brand.Report
	Formatted string                     `json:"formatted"`
	Structure *composer.ValidationResult `json:"structure,omitempty"`
}

func (a *App) handleBrandCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req brandCheckRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp := brandCheckResponse{
		Report:    a.rules.Check(req.Text),
		Formatted: a.rules.Format(req.Text),
	}
	if req.Type != "" {
		t, err := document.ParseType(req.Type)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		resp.Structure = composer.Validate(req.Text, t)
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
