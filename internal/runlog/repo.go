package runlog

import (
	"context"

	"github.com/angelmondragon/sparkify-dwh/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository manages persistence for ledger rows.
type Repository interface {
	Create(ctx context.Context, run *models.ETLRun) error
	Finish(ctx context.Context, runID uuid.UUID, updates map[string]any) error
	FindByID(ctx context.Context, runID uuid.UUID) (*models.ETLRun, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, run *models.ETLRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *repository) Finish(ctx context.Context, runID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.ETLRun{}).
		Where("run_id = ?", runID.String()).
		Updates(updates).Error
}

func (r *repository) FindByID(ctx context.Context, runID uuid.UUID) (*models.ETLRun, error) {
	var run models.ETLRun
	if err := r.db.WithContext(ctx).
		Where("run_id = ?", runID.String()).
		First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}
