package warehouse

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/angelmondragon/sparkify-dwh/pkg/config"
	"github.com/angelmondragon/sparkify-dwh/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "warehouse.db") + "?_fk=1"
	client, err := db.New(context.Background(), config.WarehouseConfig{Driver: config.DriverSQLite, DSN: dsn}, nil)
	require.NoError(t, err)
	store := NewSQLStore(client, Dialect{Kind: KindSQLite}, 0)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func kvTable() TableDef {
	return TableDef{
		Name: "kv",
		Columns: []Column{
			{Name: "k", Type: Varchar(16)},
			{Name: "v", Type: BigInt},
		},
		PrimaryKey: "k",
	}
}

func TestSQLStoreExecAndQuery(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	d := store.Dialect()

	exists, err := store.TableExists(ctx, "kv")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Exec(ctx, d.CreateTable(kvTable())))
	exists, err = store.TableExists(ctx, "kv")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Exec(ctx, Statement{SQL: `INSERT INTO "kv" (k, v) VALUES (?, ?)`, Args: []any{"a", 41}}))
	got, err := store.QueryInt64(ctx, Statement{SQL: `SELECT v + 1 FROM "kv" WHERE k = ?`, Args: []any{"a"}})
	require.NoError(t, err)
	assert.EqualValues(t, 42, got)

	got, err = store.QueryInt64(ctx, Statement{SQL: `SELECT MAX(v) FROM "kv" WHERE k = ?`, Args: []any{"missing"}})
	require.NoError(t, err)
	assert.EqualValues(t, 0, got, "NULL reads as zero")
}

func TestSQLStoreTableExistsReportsStoreErrors(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	require.NoError(t, store.Exec(ctx, store.Dialect().CreateTable(kvTable())))
	require.NoError(t, store.Close())

	exists, err := store.TableExists(ctx, "kv")
	require.Error(t, err)
	assert.False(t, exists)
	assert.Contains(t, err.Error(), "database is closed")
}

func TestSQLStoreExecTxIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	d := store.Dialect()
	require.NoError(t, store.Exec(ctx, d.CreateTable(kvTable())))

	err := store.ExecTx(ctx,
		Statement{SQL: `INSERT INTO "kv" (k, v) VALUES (?, ?)`, Args: []any{"a", 1}},
		Statement{SQL: `INSERT INTO "kv" (k, v) VALUES (?, ?)`, Args: []any{"a", 2}},
	)
	require.Error(t, err, "duplicate primary key must fail")

	n, err := store.Count(ctx, "kv")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestSQLStoreInsertRows(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	require.NoError(t, store.Exec(ctx, store.Dialect().CreateTable(kvTable())))

	rows := []map[string]any{
		{"k": "a", "v": int64(1)},
		{"k": "b", "v": nil},
	}
	require.NoError(t, store.InsertRows(ctx, "kv", rows))
	require.NoError(t, store.InsertRows(ctx, "kv", nil))

	n, err := store.Count(ctx, "kv")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	nulls, err := store.QueryInt64(ctx, Statement{SQL: `SELECT COUNT(*) FROM "kv" WHERE v IS NULL`})
	require.NoError(t, err)
	assert.EqualValues(t, 1, nulls)
}

func TestSQLStoreStatementTimeout(t *testing.T) {
	store := newSQLiteStore(t)
	store.timeout = time.Nanosecond
	err := store.Exec(context.Background(), Statement{SQL: "SELECT 1"})
	if err != nil {
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
}

// The canonical instant 1541990544796 decomposes identically on the local engine.
func TestSQLiteTimeDecomposition(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	d := store.Dialect()

	ts := d.EpochMillisToTimestamp("?")
	tests := []struct {
		part DatePart
		want int64
	}{
		{PartHour, 2},
		{PartDay, 12},
		{PartWeek, 46},
		{PartMonth, 11},
		{PartYear, 2018},
		{PartWeekday, 1},
	}
	for _, tt := range tests {
		got, err := store.QueryInt64(ctx, Statement{SQL: "SELECT " + d.DatePart(tt.part, ts), Args: []any{int64(1541990544796)}})
		require.NoError(t, err, tt.part)
		assert.Equal(t, tt.want, got, tt.part)
	}
}

func TestSQLiteISOWeekBoundaries(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	d := store.Dialect()

	tests := []struct {
		date string
		want int64
	}{
		{"2018-01-01 00:00:00", 1},  // Monday
		{"2016-01-03 12:00:00", 53}, // Sunday closing ISO week 53 of 2015
		{"2018-12-31 23:59:59", 1},  // Monday of ISO week 1 of 2019
		{"2018-11-18 10:00:00", 46}, // Sunday
	}
	for _, tt := range tests {
		got, err := store.QueryInt64(ctx, Statement{SQL: "SELECT " + d.DatePart(PartWeek, "?"), Args: []any{tt.date}})
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.date)
	}
}
