// Package main provides the semreport binary entry point.
// Semreport composes branded business documents, reviews them with an LLM
// quality pass, and records an append-only sign-off history.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	// Register LLM providers via init()
	_ "github.com/c360studio/semreport/llm/providers"

	"github.com/c360studio/semreport/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semreport"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(ExitCommandError)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// globalOptions holds the persistent flags and the state derived from them.
type globalOptions struct {
	configPath string
	logLevel   string

	logger *slog.Logger

	// newApp builds the App; tests swap it to inject a fake LLM.
	newApp func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error)
}

func rootCmd() *cobra.Command {
	opts := &globalOptions{
		newApp: func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
			return NewApp(ctx, cfg, logger)
		},
	}
	return newRootCmd(opts)
}

func newRootCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Branded business document generator",
		Long: `Semreport composes branded business documents from content files,
runs an LLM quality review over each one, and signs it off.

It provides:
- Eight document templates with weighted scoring matrices
- Brand compliance checking and formatting
- QA review through a configurable model registry
- Append-only sign-off history (memory, SQLite or NATS KV)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.logger = newLogger(cmd.ErrOrStderr(), opts.logLevel)
			slog.SetDefault(opts.logger)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newGenerateCmd(opts),
		newComposeCmd(opts),
		newCheckCmd(opts),
		newBatchCmd(opts),
		newWatchCmd(opts),
		newHistoryCmd(opts),
		newServeCmd(opts),
		newConfigCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

// newLogger builds the text logger for a level name. Unknown names mean info.
func newLogger(w io.Writer, levelName string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(levelName) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig resolves the layered configuration.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.NewLoader(o.logger).Load(o.configPath)
	if err != nil {
		return nil, &ExitError{Code: ExitCommandError, Message: "load config", Err: err}
	}
	return cfg, nil
}

// openApp loads the configuration and builds the App from it.
func (o *globalOptions) openApp(ctx context.Context) (*App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	app, err := o.newApp(ctx, cfg, o.logger)
	if err != nil {
		return nil, &ExitError{Code: ExitCommandError, Message: "initialize", Err: err}
	}
	return app, nil
}

// wrapNATSError provides helpful guidance when NATS connection fails.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

To start NATS:
  docker run -p 4222:4222 nats -js

Or clear nats.url in semreport.yaml to run without notifications.`, err, url)
	}

	return fmt.Errorf("NATS connection failed: %w", err)
}

func newConfigCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default user config if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.NewLoader(opts.logger).EnsureUserConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	})

	return cmd
}
