package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/c360studio/semreport/brand"
	"github.com/c360studio/semreport/composer"
	"github.com/c360studio/semreport/config"
	"github.com/c360studio/semreport/document"
	"github.com/c360studio/semreport/llm"
	"github.com/c360studio/semreport/model"
	"github.com/c360studio/semreport/pipeline"
	"github.com/c360studio/semreport/qa"
	"github.com/c360studio/semreport/signoff"
)

// completer is the reasoning service the QA orchestrator calls.
type completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// App wires the configured components together.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	metrics  *prometheus.Registry
	rules    *brand.Ruleset
	composer *composer.Composer
	tracker  *signoff.Tracker
	pipeline *pipeline.Pipeline

	store    signoff.Store
	natsConn *nats.Conn
}

type appOptions struct {
	client completer
	clock  func() time.Time
}

// appOption configures NewApp.
type appOption func(*appOptions)

// withCompleter replaces the LLM client, for tests.
func withCompleter(c completer) appOption {
	return func(o *appOptions) {
		o.client = c
	}
}

// withClock fixes the time source.
func withClock(clock func() time.Time) appOption {
	return func(o *appOptions) {
		o.clock = clock
	}
}

// NewApp builds every component from cfg. An empty output directory
// disables artifact writing. The caller must Close the App.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...appOption) (*App, error) {
	o := appOptions{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		metrics: prometheus.NewRegistry(),
	}
	a.metrics.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rules, err := loadRules(cfg.Brand.RulesPath)
	if err != nil {
		return nil, err
	}
	a.rules = rules

	tag, err := cfg.Composer.Tag()
	if err != nil {
		return nil, err
	}

	client := o.client
	if client == nil {
		registry, err := cfg.Registry()
		if err != nil {
			return nil, err
		}
		if !model.InitGlobal(registry) {
			logger.Debug("Model registry already initialized, keeping existing")
		}
		client = llm.NewClient(model.Global(),
			llm.WithRetryConfig(qa.ClientRetryConfig()),
			llm.WithLogger(logger),
			llm.WithMetrics(llm.NewMetrics(a.metrics)))
	}

	reviewer := qa.New(client,
		qa.WithConfig(cfg.QA.ToQA()),
		qa.WithRuleset(rules),
		qa.WithLogger(logger),
		qa.WithMetrics(qa.NewMetrics(a.metrics)))

	composerOpts := []composer.Option{
		composer.WithIDSource(document.NewIDGenerator(cfg.Composer.SystemPrefix, document.WithClock(o.clock))),
		composer.WithClock(o.clock),
		composer.WithLocale(tag),
		composer.WithIdentity(cfg.Composer.PreparedBy, cfg.Composer.ReviewedBy),
		composer.WithLogger(logger),
	}
	if cfg.Brand.AutoFormatEnabled() {
		composerOpts = append(composerOpts, composer.WithProseFormatter(rules.Format))
	}
	a.composer = composer.New(composerOpts...)

	if cfg.NATS.URL != "" {
		logger.Info("Connecting to NATS", "url", cfg.NATS.URL)
		nc, err := pipeline.Connect(cfg.NATS.URL)
		if err != nil {
			return nil, wrapNATSError(err, cfg.NATS.URL)
		}
		a.natsConn = nc
	}

	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store

	a.tracker = signoff.NewTracker(
		signoff.WithIdentity(cfg.Composer.PreparedBy, cfg.Composer.ReviewedBy),
		signoff.WithLocale(tag),
		signoff.WithClock(o.clock),
		signoff.RequirePassForFinal(cfg.SignOff.PassRequiredForFinal()),
		signoff.WithStore(store),
		signoff.WithMetrics(signoff.NewMetrics(a.metrics)),
		signoff.WithLogger(logger))

	pipeOpts := []pipeline.Option{
		pipeline.WithClock(o.clock),
		pipeline.WithLogger(logger),
	}
	if cfg.Output.Dir != "" {
		pipeOpts = append(pipeOpts, pipeline.WithWriter(pipeline.NewFileWriter(cfg.Output.Dir)))
	}
	if a.natsConn != nil {
		pipeOpts = append(pipeOpts, pipeline.WithNotifier(pipeline.NewNATSNotifier(a.natsConn, cfg.NATS.Subject)))
	}
	a.pipeline = pipeline.New(a.composer, reviewer, a.tracker, pipeOpts...)

	logger.Debug("Components initialized",
		"store", cfg.Store.Driver,
		"output_dir", cfg.Output.Dir,
		"notify", a.natsConn != nil)
	return a, nil
}

// loadRules reads a brand rules file, or returns the embedded defaults when
// path is empty. A loaded ruleset also becomes the process-wide default.
func loadRules(path string) (*brand.Ruleset, error) {
	if path == "" {
		return brand.Default(), nil
	}
	rs, err := brand.LoadRules(path)
	if err != nil {
		return nil, fmt.Errorf("load brand rules: %w", err)
	}
	brand.InitDefault(rs)
	return rs, nil
}

func (a *App) openStore(ctx context.Context) (signoff.Store, error) {
	switch a.cfg.Store.Driver {
	case config.StoreSQLite:
		return signoff.OpenSQLite(a.cfg.Store.Path)
	case config.StoreNATS:
		if a.natsConn == nil {
			return nil, errors.New("store driver nats requires nats.url")
		}
		js, err := jetstream.New(a.natsConn)
		if err != nil {
			return nil, fmt.Errorf("create JetStream context: %w", err)
		}
		return signoff.NewKVStore(ctx, js, a.cfg.Store.Bucket)
	default:
		return signoff.NewMemoryStore(), nil
	}
}

// Close releases the store and the NATS connection.
func (a *App) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("Failed to close sign-off store", "error", err)
		}
	}
	if a.natsConn != nil {
		if err := a.natsConn.Drain(); err != nil {
			a.natsConn.Close()
		}
	}
}
