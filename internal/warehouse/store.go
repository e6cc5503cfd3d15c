package warehouse

import (
	"context"
	"fmt"

	"github.com/angelmondragon/sparkify-dwh/pkg/bigquery"
	"github.com/angelmondragon/sparkify-dwh/pkg/config"
	"github.com/angelmondragon/sparkify-dwh/pkg/db"
	"github.com/angelmondragon/sparkify-dwh/pkg/logger"
)

// Store is the blocking request/response surface of a warehouse engine.
type Store interface {
	Dialect() Dialect
	Exec(ctx context.Context, stmt Statement) error
	// ExecTx applies every statement or none of them.
	ExecTx(ctx context.Context, stmts ...Statement) error
	// QueryInt64 returns the first column of the first row; NULL reads as 0.
	QueryInt64(ctx context.Context, stmt Statement) (int64, error)
	TableExists(ctx context.Context, table string) (bool, error)
	Count(ctx context.Context, table string) (int64, error)
	// InsertRows appends rows keyed by column name. Every row carries every column.
	InsertRows(ctx context.Context, table string, rows []map[string]any) error
	Close() error
}

// Open connects to the configured warehouse.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Store, error) {
	dialect, err := DialectFor(cfg.Warehouse.Driver, cfg.Warehouse.Schema)
	if err != nil {
		return nil, err
	}

	if cfg.Warehouse.IsSQL() {
		client, err := db.New(ctx, cfg.Warehouse, logg)
		if err != nil {
			return nil, fmt.Errorf("connecting warehouse: %w", err)
		}
		return NewSQLStore(client, dialect, cfg.Warehouse.StatementTimeout), nil
	}

	client, err := bigquery.NewClient(ctx, cfg.GCP, cfg.Warehouse.Schema, logg)
	if err != nil {
		return nil, fmt.Errorf("connecting warehouse: %w", err)
	}
	return NewBigQueryStore(client, dialect), nil
}
