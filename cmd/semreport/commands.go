package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/semreport/composer"
	"github.com/c360studio/semreport/content"
	"github.com/c360studio/semreport/document"
	"github.com/c360studio/semreport/pipeline"
)

// generateFlags are shared by generate, batch and watch.
type generateFlags struct {
	status         string
	classification string
	failOnQA       bool
	noWrite        bool
	format         string
}

func (f *generateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.status, "status", "", "Override the target status (pending_review, approved, final)")
	cmd.Flags().StringVar(&f.classification, "classification", "", "Override the classification (public, internal, confidential, restricted)")
	cmd.Flags().BoolVar(&f.failOnQA, "fail-on-qa", false, "Exit with code 1 when a document fails QA")
	cmd.Flags().BoolVar(&f.noWrite, "no-write", false, "Do not write artifacts to the output directory")
	cmd.Flags().StringVar(&f.format, "format", "text", "Output format (text, json)")
}

// apply overrides the payload's status and classification from flags.
func (f *generateFlags) apply(p *content.Payload) error {
	if f.status != "" {
		s, err := document.ParseStatus(f.status)
		if err != nil {
			return err
		}
		p.Status = s
	}
	if f.classification != "" {
		c, err := document.ParseClassification(f.classification)
		if err != nil {
			return err
		}
		p.Classification = c
	}
	return nil
}

func (f *generateFlags) openApp(ctx context.Context, opts *globalOptions) (*App, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	if f.noWrite {
		cfg.Output.Dir = ""
	}
	app, err := opts.newApp(ctx, cfg, opts.logger)
	if err != nil {
		return nil, &ExitError{Code: ExitCommandError, Message: "initialize", Err: err}
	}
	return app, nil
}

// generateFile loads one payload file and runs it through the pipeline.
func (a *App) generateFile(ctx context.Context, path string, f *generateFlags) (*pipeline.Result, error) {
	payload, err := content.Load(path)
	if err != nil {
		return nil, err
	}
	if err := f.apply(payload); err != nil {
		return nil, err
	}
	return a.Generate(ctx, *payload)
}

// Generate runs one payload through the pipeline.
func (a *App) Generate(ctx context.Context, payload content.Payload) (*pipeline.Result, error) {
	return a.pipeline.Generate(ctx, payload)
}

func newGenerateCmd(opts *globalOptions) *cobra.Command {
	var flags generateFlags

	cmd := &cobra.Command{
		Use:   "generate <content-file>",
		Short: "Compose, review and sign off one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := flags.openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.generateFile(ctx, args[0], &flags)
			if err != nil {
				return &ExitError{Code: ExitCommandError, Message: "generate " + args[0], Err: err}
			}

			if err := printResult(cmd.OutOrStdout(), flags.format, result); err != nil {
				return err
			}
			if flags.failOnQA && !result.QA.Passed {
				return qaFailed(1)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func printResult(w io.Writer, format string, r *pipeline.Result) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Fprintf(w, "%s  %s\n", r.Metadata.ID, r.Metadata.Title)
	fmt.Fprintf(w, "  Status:  %s\n", r.Metadata.Status.Label())
	fmt.Fprintf(w, "  QA:      %s\n", r.QA.Summary())
	if r.Scoring != nil {
		fmt.Fprintf(w, "  Overall: %.0f (%s)\n", r.Scoring.Overall, r.Scoring.Rating.Rating)
	}
	for _, issue := range r.QA.Issues {
		fmt.Fprintf(w, "  - %s\n", issue)
	}
	if r.Artifact != nil {
		fmt.Fprintf(w, "  Written: %s\n", r.Artifact.MarkdownPath)
	}
	return nil
}

func newComposeCmd(opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "compose <content-file>",
		Short: "Render a draft document without QA or sign-off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := content.Load(args[0])
			if err != nil {
				return &ExitError{Code: ExitCommandError, Message: "compose", Err: err}
			}

			app, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			class := payload.Classification
			if class == "" {
				class = document.ClassificationInternal
			}
			doc, err := app.composer.Compose(payload.Type, payload.Content, payload.Scoring, class)
			if err != nil {
				return &ExitError{Code: ExitCommandError, Message: "compose", Err: err}
			}
			for _, w := range doc.Structure.Issues() {
				opts.logger.Warn("Structure check", "document_id", doc.Metadata.ID, "issue", w)
			}

			if output == "" {
				_, err = io.WriteString(cmd.OutOrStdout(), doc.Text)
				return err
			}
			return os.WriteFile(output, []byte(doc.Text), 0644)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write markdown to a file instead of stdout")
	return cmd
}

func newCheckCmd(opts *globalOptions) *cobra.Command {
	var (
		fix     bool
		docType string
	)

	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Check text against the brand rules",
		Long: `Check reads markdown from a file, or stdin when no file is given, and
reports brand rule violations. With --type the template structure is also
checked. With --fix the brand-formatted text is printed instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return &ExitError{Code: ExitCommandError, Message: "read input", Err: err}
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			rules, err := loadRules(cfg.Brand.RulesPath)
			if err != nil {
				return &ExitError{Code: ExitCommandError, Message: "check", Err: err}
			}

			out := cmd.OutOrStdout()
			text := string(data)
			if fix {
				_, err := io.WriteString(out, rules.Format(text))
				return err
			}

			issues := rules.Check(text).Issues
			if docType != "" {
				t, err := document.ParseType(docType)
				if err != nil {
					return &ExitError{Code: ExitCommandError, Message: "check", Err: err}
				}
				issues = append(issues, composer.Validate(text, t).Issues()...)
			}

			if len(issues) == 0 {
				fmt.Fprintln(out, "compliant")
				return nil
			}
			for _, issue := range issues {
				fmt.Fprintf(out, "- %s\n", issue)
			}
			return &ExitError{Code: ExitQAFailed, Message: fmt.Sprintf("%d issue(s) found", len(issues))}
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "Print the brand-formatted text")
	cmd.Flags().StringVar(&docType, "type", "", "Also check the template structure for this document type")
	return cmd
}

// batchOutcome is the result of one file in a batch.
type batchOutcome struct {
	Path   string           `json:"path"`
	Result *pipeline.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func newBatchCmd(opts *globalOptions) *cobra.Command {
	var (
		flags    generateFlags
		parallel int
	)

	cmd := &cobra.Command{
		Use:   "batch <pattern>",
		Short: "Generate every content file matching a path or ** pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := content.Glob(args[0])
			if err != nil {
				return &ExitError{Code: ExitCommandError, Message: "batch", Err: err}
			}

			ctx := cmd.Context()
			app, err := flags.openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			outcomes := app.runBatch(ctx, files, parallel, &flags)

			out := cmd.OutOrStdout()
			if flags.format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(outcomes); err != nil {
					return err
				}
			}

			var failed, qaFails int
			for _, o := range outcomes {
				switch {
				case o.Error != "":
					failed++
					if flags.format != "json" {
						fmt.Fprintf(out, "FAIL %s: %s\n", o.Path, o.Error)
					}
				case !o.Result.QA.Passed:
					qaFails++
					if flags.format != "json" {
						fmt.Fprintf(out, "QA   %s: %s %s\n", o.Path, o.Result.Metadata.ID, o.Result.QA.Summary())
					}
				default:
					if flags.format != "json" {
						fmt.Fprintf(out, "OK   %s: %s\n", o.Path, o.Result.Metadata.ID)
					}
				}
			}

			if failed > 0 {
				return &ExitError{Code: ExitCommandError, Message: fmt.Sprintf("%d of %d documents failed", failed, len(files))}
			}
			if flags.failOnQA && qaFails > 0 {
				return qaFailed(qaFails)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 4, "Documents generated concurrently")
	return cmd
}

// runBatch generates files concurrently. A failing file does not stop the
// others; outcomes keep the order of files.
func (a *App) runBatch(ctx context.Context, files []string, parallel int, f *generateFlags) []batchOutcome {
	if parallel < 1 {
		parallel = 1
	}
	outcomes := make([]batchOutcome, len(files))

	var g errgroup.Group
	g.SetLimit(parallel)

	for i, path := range files {
		g.Go(func() error {
			result, err := a.generateFile(ctx, path, f)
			o := batchOutcome{Path: path, Result: result}
			if err != nil {
				o.Error = err.Error()
				a.logger.Warn("Batch document failed", "path", path, "error", err)
			}
			outcomes[i] = o
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "history <document-id>",
		Short: "List the sign-off blocks recorded for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := opts.openApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			blocks, err := app.tracker.History(ctx, args[0])
			if err != nil {
				return &ExitError{Code: ExitCommandError, Message: "history", Err: err}
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(blocks)
			}
			if len(blocks) == 0 {
				fmt.Fprintf(out, "no sign-offs recorded for %s\n", args[0])
				return nil
			}
			for i, b := range blocks {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "<!-- %s %s -->\n", b.ID, b.SignedAt.UTC().Format("2006-01-02T15:04:05Z"))
				fmt.Fprint(out, b.Markdown())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format (text, json)")
	return cmd
}
