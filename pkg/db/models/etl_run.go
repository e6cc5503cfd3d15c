package models

import (
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// ETLRun is one row of the run ledger.
type ETLRun struct {
	RunID        uuid.UUID  `gorm:"column:run_id;type:varchar(36);primaryKey"`
	Plan         string     `gorm:"column:plan;not null"`
	Status       string     `gorm:"column:status;not null"`
	StartedAt    time.Time  `gorm:"column:started_at;not null"`
	FinishedAt   *time.Time `gorm:"column:finished_at"`
	ErrorCode    *string    `gorm:"column:error_code"`
	ErrorMessage *string    `gorm:"column:error_message"`
	Songplays    *int64     `gorm:"column:songplays"`
}

func (ETLRun) TableName() string { return "etl_runs" }
