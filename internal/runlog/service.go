// Package runlog records every pipeline run in the etl_runs ledger table.
package runlog

import (
	"context"
	"time"

	"github.com/angelmondragon/sparkify-dwh/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sparkify-dwh/pkg/errors"
	"github.com/google/uuid"
)

const maxErrorMessage = 4096

// Recorder writes run start and outcome.
type Recorder interface {
	Start(ctx context.Context, runID uuid.UUID, plan string, startedAt time.Time) error
	Finish(ctx context.Context, runID uuid.UUID, outcome Outcome) error
}

// Outcome describes how a run ended.
type Outcome struct {
	FinishedAt time.Time
	Err        error
	// Songplays is the fact row count, nil when the plan did not build facts.
	Songplays *int64
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Start(ctx context.Context, runID uuid.UUID, plan string, startedAt time.Time) error {
	return s.repo.Create(ctx, &models.ETLRun{
		RunID:     runID,
		Plan:      plan,
		Status:    models.RunStatusRunning,
		StartedAt: startedAt.UTC(),
	})
}

func (s *Service) Finish(ctx context.Context, runID uuid.UUID, outcome Outcome) error {
	updates := map[string]any{
		"status":      models.RunStatusSucceeded,
		"finished_at": outcome.FinishedAt.UTC(),
	}
	if outcome.Songplays != nil {
		updates["songplays"] = *outcome.Songplays
	}
	if outcome.Err != nil {
		msg := outcome.Err.Error()
		if len(msg) > maxErrorMessage {
			msg = msg[:maxErrorMessage]
		}
		updates["status"] = models.RunStatusFailed
		updates["error_code"] = string(pkgerrors.CodeOf(outcome.Err))
		updates["error_message"] = msg
	}
	return s.repo.Finish(ctx, runID, updates)
}

// Noop discards every record. Used when the ledger is disabled or the
// warehouse cannot host it.
type Noop struct{}

func (Noop) Start(context.Context, uuid.UUID, string, time.Time) error { return nil }
func (Noop) Finish(context.Context, uuid.UUID, Outcome) error          { return nil }
