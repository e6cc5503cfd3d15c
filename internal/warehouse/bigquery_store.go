package warehouse

import (
	"context"
	"fmt"
	"strings"

	cbigquery "cloud.google.com/go/bigquery"
)

// bigQueryRunner is the subset of pkg/bigquery.Client the store drives.
type bigQueryRunner interface {
	Exec(ctx context.Context, sql string, params []cbigquery.QueryParameter) error
	QueryInt64(ctx context.Context, sql string, params []cbigquery.QueryParameter) (int64, bool, error)
	TableExists(ctx context.Context, table string) (bool, error)
	InsertRows(ctx context.Context, table string, rows []any) error
	Close() error
}

// BigQueryStore runs statements as query jobs against one dataset.
type BigQueryStore struct {
	client  bigQueryRunner
	dialect Dialect
}

func NewBigQueryStore(client bigQueryRunner, dialect Dialect) *BigQueryStore {
	return &BigQueryStore{client: client, dialect: dialect}
}

func (s *BigQueryStore) Dialect() Dialect {
	return s.dialect
}

func (s *BigQueryStore) Exec(ctx context.Context, stmt Statement) error {
	sql, params, err := rebindNamed(stmt.SQL, stmt.Args, 0)
	if err != nil {
		return err
	}
	return s.client.Exec(ctx, sql, params)
}

// ExecTx submits the statements as one multi-statement transaction script.
func (s *BigQueryStore) ExecTx(ctx context.Context, stmts ...Statement) error {
	if len(stmts) == 0 {
		return nil
	}
	script, params, err := transactionScript(stmts)
	if err != nil {
		return err
	}
	return s.client.Exec(ctx, script, params)
}

func (s *BigQueryStore) QueryInt64(ctx context.Context, stmt Statement) (int64, error) {
	sql, params, err := rebindNamed(stmt.SQL, stmt.Args, 0)
	if err != nil {
		return 0, err
	}
	value, _, err := s.client.QueryInt64(ctx, sql, params)
	return value, err
}

func (s *BigQueryStore) TableExists(ctx context.Context, table string) (bool, error) {
	return s.client.TableExists(ctx, table)
}

func (s *BigQueryStore) Count(ctx context.Context, table string) (int64, error) {
	return s.QueryInt64(ctx, s.dialect.CountRows(table))
}

func (s *BigQueryStore) InsertRows(ctx context.Context, table string, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}
	savers := make([]any, 0, len(rows))
	for _, row := range rows {
		savers = append(savers, mapSaver(row))
	}
	return s.client.InsertRows(ctx, table, savers)
}

func (s *BigQueryStore) Close() error {
	return s.client.Close()
}

// mapSaver streams a column map; nil values land as NULL.
type mapSaver map[string]any

func (m mapSaver) Save() (map[string]cbigquery.Value, string, error) {
	row := make(map[string]cbigquery.Value, len(m))
	for k, v := range m {
		row[k] = v
	}
	return row, cbigquery.NoDedupeID, nil
}

func transactionScript(stmts []Statement) (string, []cbigquery.QueryParameter, error) {
	var b strings.Builder
	var params []cbigquery.QueryParameter
	b.WriteString("BEGIN TRANSACTION;\n")
	for _, stmt := range stmts {
		sql, p, err := rebindNamed(stmt.SQL, stmt.Args, len(params))
		if err != nil {
			return "", nil, err
		}
		b.WriteString(sql)
		b.WriteString(";\n")
		params = append(params, p...)
	}
	b.WriteString("COMMIT TRANSACTION;")
	return b.String(), params, nil
}

// rebindNamed rewrites `?` placeholders to @pN named parameters starting at
// offset so several statements can share one script.
func rebindNamed(sql string, args []any, offset int) (string, []cbigquery.QueryParameter, error) {
	var offsets []int
	scanPlaceholders(sql, func(i int) { offsets = append(offsets, i) })
	if len(offsets) != len(args) {
		return "", nil, fmt.Errorf("statement has %d placeholders but %d args", len(offsets), len(args))
	}
	if len(args) == 0 {
		return sql, nil, nil
	}

	var b strings.Builder
	params := make([]cbigquery.QueryParameter, 0, len(args))
	last := 0
	for i, at := range offsets {
		name := fmt.Sprintf("p%d", offset+i)
		b.WriteString(sql[last:at])
		b.WriteString("@" + name)
		last = at + 1
		params = append(params, cbigquery.QueryParameter{Name: name, Value: args[i]})
	}
	b.WriteString(sql[last:])
	return b.String(), params, nil
}
