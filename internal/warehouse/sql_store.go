package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/angelmondragon/sparkify-dwh/pkg/db"
	"gorm.io/gorm"
)

// maxBindParams stays under the smallest bind limit of the SQL engines.
const maxBindParams = 30000

// SQLStore runs statements through the gorm client.
type SQLStore struct {
	client  *db.Client
	dialect Dialect
	timeout time.Duration
}

func NewSQLStore(client *db.Client, dialect Dialect, statementTimeout time.Duration) *SQLStore {
	return &SQLStore{client: client, dialect: dialect, timeout: statementTimeout}
}

// Client exposes the underlying gorm client for the run ledger.
func (s *SQLStore) Client() *db.Client {
	return s.client
}

func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

func (s *SQLStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return ctx, func() {}
}

func (s *SQLStore) Exec(ctx context.Context, stmt Statement) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.Exec(ctx, stmt.SQL, stmt.Args...).Error
}

func (s *SQLStore) ExecTx(ctx context.Context, stmts ...Statement) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.client.WithTx(ctx, func(tx *gorm.DB) error {
		for _, stmt := range stmts {
			if err := tx.Exec(stmt.SQL, stmt.Args...).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) QueryInt64(ctx context.Context, stmt Statement) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var value sql.NullInt64
	row := s.client.Raw(ctx, stmt.SQL, stmt.Args...).Row()
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return value.Int64, nil
}

func (s *SQLStore) TableExists(ctx context.Context, table string) (bool, error) {
	n, err := s.QueryInt64(ctx, s.dialect.TableExistsQuery(table))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLStore) Count(ctx context.Context, table string) (int64, error) {
	return s.QueryInt64(ctx, s.dialect.CountRows(table))
}

func (s *SQLStore) InsertRows(ctx context.Context, table string, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	chunk := maxBindParams / len(rows[0])
	if chunk < 1 {
		chunk = 1
	}
	conn := s.client.DB().WithContext(ctx)
	for start := 0; start < len(rows); start += chunk {
		end := start + chunk
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]
		if err := conn.Table(table).Create(&batch).Error; err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.client.Close()
}
