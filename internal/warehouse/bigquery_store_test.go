package warehouse

import (
	"context"
	"testing"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql    string
	params []cbigquery.QueryParameter
}

type fakeRunner struct {
	execs    []execCall
	inserted map[string][]any
	scalar   int64
	tables   map[string]bool
}

func (f *fakeRunner) Exec(_ context.Context, sql string, params []cbigquery.QueryParameter) error {
	f.execs = append(f.execs, execCall{sql: sql, params: params})
	return nil
}

func (f *fakeRunner) QueryInt64(_ context.Context, sql string, params []cbigquery.QueryParameter) (int64, bool, error) {
	f.execs = append(f.execs, execCall{sql: sql, params: params})
	return f.scalar, true, nil
}

func (f *fakeRunner) TableExists(_ context.Context, table string) (bool, error) {
	return f.tables[table], nil
}

func (f *fakeRunner) InsertRows(_ context.Context, table string, rows []any) error {
	if f.inserted == nil {
		f.inserted = map[string][]any{}
	}
	f.inserted[table] = append(f.inserted[table], rows...)
	return nil
}

func (f *fakeRunner) Close() error { return nil }

func newFakeBigQueryStore() (*BigQueryStore, *fakeRunner) {
	runner := &fakeRunner{tables: map[string]bool{"staging_events": true}}
	return NewBigQueryStore(runner, Dialect{Kind: KindBigQuery, Dataset: "sparkify"}), runner
}

func TestBigQueryStoreExecRebinds(t *testing.T) {
	store, runner := newFakeBigQueryStore()
	err := store.Exec(context.Background(), Statement{SQL: "DELETE FROM t WHERE page = ?", Args: []any{"NextSong"}})
	require.NoError(t, err)
	require.Len(t, runner.execs, 1)
	assert.Equal(t, "DELETE FROM t WHERE page = @p0", runner.execs[0].sql)
	assert.Equal(t, "NextSong", runner.execs[0].params[0].Value)
}

func TestBigQueryStoreExecTxWrapsScript(t *testing.T) {
	store, runner := newFakeBigQueryStore()
	d := store.Dialect()
	require.NoError(t, store.ExecTx(context.Background(), d.DeleteAll("songplays"), d.DeleteAll("users")))
	require.Len(t, runner.execs, 1)
	assert.Equal(t,
		"BEGIN TRANSACTION;\nDELETE FROM `sparkify.songplays` WHERE 1 = 1;\nDELETE FROM `sparkify.users` WHERE 1 = 1;\nCOMMIT TRANSACTION;",
		runner.execs[0].sql)

	require.NoError(t, store.ExecTx(context.Background()))
	assert.Len(t, runner.execs, 1, "empty unit submits nothing")
}

func TestBigQueryStoreCountAndExists(t *testing.T) {
	store, runner := newFakeBigQueryStore()
	runner.scalar = 7

	n, err := store.Count(context.Background(), "songs")
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)
	assert.Equal(t, "SELECT COUNT(*) FROM `sparkify.songs`", runner.execs[0].sql)

	ok, err := store.TableExists(context.Background(), "staging_events")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.TableExists(context.Background(), "staging_songs")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBigQueryStoreInsertRowsUsesSavers(t *testing.T) {
	store, runner := newFakeBigQueryStore()
	rows := []map[string]any{{"song_id": "S1", "year": nil}}
	require.NoError(t, store.InsertRows(context.Background(), "staging_songs", rows))

	require.Len(t, runner.inserted["staging_songs"], 1)
	saver, ok := runner.inserted["staging_songs"][0].(cbigquery.ValueSaver)
	require.True(t, ok)
	row, id, err := saver.Save()
	require.NoError(t, err)
	assert.Equal(t, cbigquery.NoDedupeID, id)
	assert.Equal(t, "S1", row["song_id"])
	assert.Nil(t, row["year"])
}
