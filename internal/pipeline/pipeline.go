// Package pipeline runs the warehouse plans: schema reset, staging ingest,
// dimension and fact builds, and post-build verification.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/sparkify-dwh/internal/runlock"
	"github.com/angelmondragon/sparkify-dwh/internal/runlog"
	"github.com/angelmondragon/sparkify-dwh/internal/starschema"
	wh "github.com/angelmondragon/sparkify-dwh/internal/warehouse"
	pkgerrors "github.com/angelmondragon/sparkify-dwh/pkg/errors"
	"github.com/angelmondragon/sparkify-dwh/pkg/logger"
	"github.com/angelmondragon/sparkify-dwh/pkg/metrics"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const notifyTimeout = 10 * time.Second

type schemaManager interface {
	ResetSchema(ctx context.Context) error
	ClearTargets(ctx context.Context) error
}

type stagingIngester interface {
	Ingest(ctx context.Context, table string) (int64, error)
}

type integrityVerifier interface {
	Run(ctx context.Context) error
}

// Publisher delivers run events.
type Publisher interface {
	PublishJSON(ctx context.Context, v any, attrs map[string]string) (string, error)
}

// Pusher ships the run's metrics somewhere once the run ends.
type Pusher func(ctx context.Context, runID string) error

// Params configure a pipeline.
type Params struct {
	Logger   *logger.Logger
	Store    wh.Store
	Schema   schemaManager
	Ingester stagingIngester
	Verifier integrityVerifier
	Lock     runlock.Lock
	Recorder runlog.Recorder
	Metrics  *metrics.StepMetrics
	Push     Pusher
	Notifier Publisher
	// Concurrent runs the steps of a wave in parallel.
	Concurrent bool
	Now        func() time.Time
}

// Pipeline executes plans against one warehouse.
type Pipeline struct {
	logg       *logger.Logger
	store      wh.Store
	schema     schemaManager
	ingester   stagingIngester
	verifier   integrityVerifier
	lock       runlock.Lock
	recorder   runlog.Recorder
	metrics    *metrics.StepMetrics
	push       Pusher
	notifier   Publisher
	concurrent bool
	now        func() time.Time
}

// Result summarizes a finished run.
type Result struct {
	RunID    uuid.UUID
	Plan     Plan
	Rows     map[string]int64
	Duration time.Duration
}

// RunEvent is published when a run ends.
type RunEvent struct {
	RunID      string           `json:"run_id"`
	Plan       string           `json:"plan"`
	Status     string           `json:"status"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Rows       map[string]int64 `json:"rows,omitempty"`
	ErrorCode  string           `json:"error_code,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// New builds a pipeline.
func New(params Params) (*Pipeline, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if params.Schema == nil || params.Verifier == nil {
		return nil, fmt.Errorf("schema manager and verifier required")
	}
	lock := params.Lock
	if lock == nil {
		lock = runlock.NoopLock{}
	}
	recorder := params.Recorder
	if recorder == nil {
		recorder = runlog.Noop{}
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		logg:       params.Logger,
		store:      params.Store,
		schema:     params.Schema,
		ingester:   params.Ingester,
		verifier:   params.Verifier,
		lock:       lock,
		recorder:   recorder,
		metrics:    params.Metrics,
		push:       params.Push,
		notifier:   params.Notifier,
		concurrent: params.Concurrent,
		now:        now,
	}, nil
}

// Run executes a plan while holding the warehouse lock. The first failing
// step aborts the run and its error is returned unchanged.
func (p *Pipeline) Run(ctx context.Context, plan Plan) (Result, error) {
	result := Result{RunID: uuid.New(), Plan: plan, Rows: map[string]int64{}}
	ctx = p.logg.WithRunID(ctx, result.RunID.String())
	ctx = p.logg.WithField(ctx, "plan", string(plan))

	steps, edges, err := p.steps(plan)
	if err != nil {
		return result, err
	}
	waves, err := Waves(steps, edges)
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ordering steps")
	}

	if err := runlock.Acquire(ctx, p.lock); err != nil {
		p.logg.Error(ctx, "warehouse lock unavailable", err)
		return result, err
	}
	defer func() {
		if relErr := p.lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			p.logg.Error(ctx, "failed to release warehouse lock", relErr)
		}
	}()

	started := p.now()
	if err := p.recorder.Start(ctx, result.RunID, string(plan), started); err != nil {
		p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "run ledger start not recorded")
	}
	p.logg.Info(ctx, "run starting")

	runErr := p.execute(ctx, waves, result.Rows)
	finished := p.now()
	result.Duration = finished.Sub(started)

	p.finish(context.WithoutCancel(ctx), result, started, finished, runErr)
	return result, runErr
}

func (p *Pipeline) execute(ctx context.Context, waves [][]Step, rows map[string]int64) error {
	for _, wave := range waves {
		if err := ctx.Err(); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "run canceled")
		}
		counts := make([]int64, len(wave))
		if p.concurrent && len(wave) > 1 {
			p.logg.Debug(p.logg.WithField(ctx, "wave", waveNames(wave)), "running wave concurrently")
			g, gctx := errgroup.WithContext(ctx)
			for i, step := range wave {
				g.Go(func() error {
					n, err := p.runStep(gctx, step)
					counts[i] = n
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
		} else {
			for i, step := range wave {
				n, err := p.runStep(ctx, step)
				if err != nil {
					return err
				}
				counts[i] = n
			}
		}
		for i, step := range wave {
			if step.Table != "" {
				rows[step.Table] = counts[i]
			}
		}
	}
	return nil
}

func (p *Pipeline) runStep(ctx context.Context, step Step) (int64, error) {
	stepCtx := p.logg.WithStep(ctx, step.Name, string(step.Phase))
	p.logg.Info(stepCtx, "step start")

	start := time.Now()
	n, err := step.Run(stepCtx)
	duration := time.Since(start)
	p.metrics.ObserveDuration(step.Name, string(step.Phase), duration)

	stepCtx = p.logg.WithField(stepCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "step "+step.Name)
		}
		p.logg.Error(p.logg.WithField(stepCtx, "error_dump", pkgerrors.Dump(err)), "step failed", err)
		p.metrics.IncFailure(step.Name, string(pkgerrors.CodeOf(err)))
		return 0, err
	}
	if step.Table != "" {
		stepCtx = p.logg.WithField(stepCtx, "rows", n)
		p.metrics.SetRows(step.Table, n)
	}
	p.logg.Info(stepCtx, "step completed")
	p.metrics.IncSuccess(step.Name)
	return n, nil
}

func (p *Pipeline) finish(ctx context.Context, result Result, started, finished time.Time, runErr error) {
	outcome := runlog.Outcome{FinishedAt: finished, Err: runErr}
	if n, ok := result.Rows[starschema.SongplaysTable]; ok {
		outcome.Songplays = &n
	}
	if err := p.recorder.Finish(ctx, result.RunID, outcome); err != nil {
		p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "run ledger outcome not recorded")
	}

	if p.push != nil {
		if err := p.push(ctx, result.RunID.String()); err != nil {
			p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "metrics push failed")
		}
	}

	event := RunEvent{
		RunID:      result.RunID.String(),
		Plan:       string(result.Plan),
		Status:     "succeeded",
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
		Rows:       result.Rows,
	}
	doneCtx := p.logg.WithField(ctx, "duration_ms", finished.Sub(started).Milliseconds())
	if runErr != nil {
		event.Status = "failed"
		event.ErrorCode = string(pkgerrors.CodeOf(runErr))
		event.Error = runErr.Error()
		p.logg.Error(doneCtx, "run failed", runErr)
	} else {
		p.logg.Info(doneCtx, "run completed")
	}
	p.notify(ctx, event)
}

// notify publishes the run event. Failures are logged and never change
// the run outcome.
func (p *Pipeline) notify(ctx context.Context, event RunEvent) {
	if p.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	attrs := map[string]string{"plan": event.Plan, "status": event.Status}
	id, err := p.notifier.PublishJSON(ctx, event, attrs)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("publish timed out after %s: %w", notifyTimeout, err)
		}
		p.logg.Warn(p.logg.WithField(ctx, "error", err.Error()), "run event not published")
		return
	}
	p.logg.Debug(p.logg.WithField(ctx, "message_id", id), "run event published")
}
