// Package app wires configuration, the warehouse and the run infrastructure
// into a pipeline for the command line binaries.
package app

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/sparkify-dwh/internal/ingest"
	"github.com/angelmondragon/sparkify-dwh/internal/pipeline"
	"github.com/angelmondragon/sparkify-dwh/internal/runlock"
	"github.com/angelmondragon/sparkify-dwh/internal/runlog"
	"github.com/angelmondragon/sparkify-dwh/internal/schema"
	"github.com/angelmondragon/sparkify-dwh/internal/verify"
	wh "github.com/angelmondragon/sparkify-dwh/internal/warehouse"
	"github.com/angelmondragon/sparkify-dwh/pkg/config"
	"github.com/angelmondragon/sparkify-dwh/pkg/logger"
	"github.com/angelmondragon/sparkify-dwh/pkg/metrics"
	"github.com/angelmondragon/sparkify-dwh/pkg/migrate"
	"github.com/angelmondragon/sparkify-dwh/pkg/pubsub"
)

// Options tune what a binary needs.
type Options struct {
	// Ingest builds the staging ingester.
	Ingest bool
	// Sequential disables concurrent waves regardless of configuration.
	Sequential bool
}

// Runtime owns every connection a binary opened.
type Runtime struct {
	Config   *config.Config
	Logger   *logger.Logger
	Store    wh.Store
	Pipeline *pipeline.Pipeline
	closers  []func() error
}

// LoadConfig reads .env (if present) and the environment, then builds the
// service logger.
func LoadConfig(service string) (*config.Config, *logger.Logger, error) {
	logg := logger.New(logger.Options{ServiceName: service})
	if err := godotenv.Load(); err != nil {
		logg.Debug(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logg = logger.New(logger.Options{
		ServiceName: service,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.IsDev(),
	})
	return cfg, logg, nil
}

// Build opens the warehouse and assembles the pipeline. Close the runtime
// when done, even after an error from a later call.
func Build(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts Options) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Logger: logg}

	store, err := wh.Open(ctx, cfg, logg)
	if err != nil {
		return nil, err
	}
	rt.Store = store
	rt.closers = append(rt.closers, store.Close)

	recorder, err := rt.recorder(ctx)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	lock, closeLock, err := runlock.Open(ctx, cfg, logg)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.closers = append(rt.closers, closeLock)

	params := pipeline.Params{
		Logger:     logg,
		Store:      store,
		Schema:     schema.NewManager(store, logg),
		Verifier:   verify.New(store, logg),
		Lock:       lock,
		Recorder:   recorder,
		Concurrent: cfg.Warehouse.ConcurrentDimensions && !opts.Sequential,
	}

	reg := prometheus.NewRegistry()
	stepMetrics := metrics.NewStepMetrics(reg)
	params.Metrics = stepMetrics
	if url := cfg.Metrics.PushgatewayURL; url != "" {
		params.Push = func(ctx context.Context, runID string) error {
			return stepMetrics.Push(ctx, url, cfg.Metrics.JobName, runID)
		}
	}

	if cfg.PubSub.RunEventsTopic != "" {
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "run events disabled")
		} else {
			rt.closers = append(rt.closers, client.Close)
			if publisher := client.RunEvents(); publisher != nil {
				params.Notifier = publisher
			}
		}
	}

	if opts.Ingest {
		ing, err := rt.ingester(ctx)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		params.Ingester = ing
	}

	p, err := pipeline.New(params)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Pipeline = p
	return rt, nil
}

func (rt *Runtime) recorder(ctx context.Context) (runlog.Recorder, error) {
	if !rt.Config.Ledger.Enabled {
		return runlog.Noop{}, nil
	}
	sqlStore, ok := rt.Store.(*wh.SQLStore)
	if !ok {
		rt.Logger.Info(ctx, "run ledger unavailable on this warehouse driver")
		return runlog.Noop{}, nil
	}
	if err := migrate.MaybeRun(ctx, rt.Config, rt.Logger, sqlStore.Client()); err != nil {
		return nil, fmt.Errorf("migrating run ledger: %w", err)
	}
	return runlog.NewService(runlog.NewRepository(sqlStore.Client().DB())), nil
}

func (rt *Runtime) ingester(ctx context.Context) (*ingest.Ingester, error) {
	var loader *ingest.Loader
	if rt.Config.Ingest.Mode == ingest.ModeLoad {
		stores, err := ingest.ObjectStores(ctx, rt.Config, rt.Logger)
		if err != nil {
			return nil, err
		}
		loader = ingest.NewLoader(rt.Store, stores, rt.Config.Ingest.BatchSize, rt.Logger)
	}
	return ingest.New(rt.Store, loader, rt.Config.Ingest, rt.Logger), nil
}

// Close releases connections in reverse order of opening.
func (rt *Runtime) Close() error {
	if rt == nil {
		return nil
	}
	var err error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, rt.closers[i]())
	}
	rt.closers = nil
	return err
}

// Execute builds the runtime and runs one plan.
func Execute(ctx context.Context, service string, plan pipeline.Plan, opts Options) error {
	cfg, logg, err := LoadConfig(service)
	if err != nil {
		return err
	}
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	rt, err := Build(ctx, cfg, logg, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil {
			logg.Error(ctx, "error closing connections", cerr)
		}
	}()

	_, err = rt.Pipeline.Run(ctx, plan)
	return err
}
