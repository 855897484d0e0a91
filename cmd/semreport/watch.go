package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/semreport/content"
)

func newWatchCmd(opts *globalOptions) *cobra.Command {
	var (
		flags    generateFlags
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Regenerate documents whenever a content file under dir changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := flags.openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer app.Close()

			w, err := content.NewWatcher(args[0], debounce, opts.logger)
			if err != nil {
				return &ExitError{Code: ExitCommandError, Message: "watch", Err: err}
			}
			defer w.Stop()

			if err := w.Start(ctx); err != nil {
				return &ExitError{Code: ExitCommandError, Message: "watch " + args[0], Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", args[0])

			app.watch(ctx, w.Events(), cmd.OutOrStdout(), &flags)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", content.DefaultDebounce, "How long changes settle before regenerating")
	return cmd
}

// watch generates each changed file until events closes or ctx is done.
// Failures are reported and watching continues.
func (a *App) watch(ctx context.Context, events <-chan string, out io.Writer, f *generateFlags) {
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-events:
			if !ok {
				return
			}
			result, err := a.generateFile(ctx, path, f)
			if err != nil {
				a.logger.Warn("Regeneration failed", "path", path, "error", err)
				fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
				continue
			}
			if err := printResult(out, f.format, result); err != nil {
				a.logger.Warn("Failed to print result", "path", path, "error", err)
			}
		}
	}
}
