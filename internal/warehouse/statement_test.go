package warehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBuildOrdersArgs(t *testing.T) {
	inner := Select{
		Columns: []string{"song_id", "title"},
		From:    Frag("staging_songs"),
		Where:   []Fragment{Frag("year > ?", 2000)},
	}
	s := Select{
		Distinct: true,
		Columns:  []string{"e.user_id", "s.song_id"},
		From:     Frag("staging_events e"),
		Joins:    []Fragment{{SQL: "LEFT JOIN " + Subquery(inner, "s").SQL + " ON s.title = e.song", Args: Subquery(inner, "s").Args}},
		Where:    []Fragment{Frag("e.page = ?", "NextSong"), Frag("e.ts IS NOT NULL")},
		OrderBy:  []string{"e.ts"},
	}

	stmt := s.Build()
	assert.Equal(t, []any{2000, "NextSong"}, stmt.Args)
	assert.Contains(t, stmt.SQL, "SELECT DISTINCT e.user_id, s.song_id")
	assert.Contains(t, stmt.SQL, "WHERE (e.page = ?) AND (e.ts IS NOT NULL)")
	assert.Contains(t, stmt.SQL, "ORDER BY e.ts")
	assert.Equal(t, len(stmt.Args), Placeholders(stmt.SQL))
}

func TestInsertSelect(t *testing.T) {
	stmt := InsertSelect{
		Table:   "users",
		Columns: []string{"user_id", "level"},
		Query: Select{
			Columns: []string{"user_id", "level"},
			From:    Frag("staging_events"),
			Where:   []Fragment{Frag("page = ?", "NextSong")},
		},
	}.Build(Dialect{Kind: KindSQLite})

	assert.Equal(t, "INSERT INTO \"users\" (user_id, level)\nSELECT user_id, level\nFROM staging_events\nWHERE (page = ?)", stmt.SQL)
	assert.Equal(t, []any{"NextSong"}, stmt.Args)
}

func TestPlaceholdersIgnoreQuoted(t *testing.T) {
	assert.Equal(t, 1, Placeholders(`SELECT '?' , "?" , `+"`?`"+`, ? FROM t`))
	assert.Equal(t, 2, Placeholders(`SELECT 'it''s ?', ?, ?`))
}

func TestRebindNamed(t *testing.T) {
	sql, params, err := rebindNamed("SELECT * FROM t WHERE a = ? AND b = '?' AND c = ?", []any{"x", 3}, 2)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE a = @p2 AND b = '?' AND c = @p3", sql)
	require.Len(t, params, 2)
	assert.Equal(t, "p2", params[0].Name)
	assert.Equal(t, "x", params[0].Value)
	assert.Equal(t, 3, params[1].Value)

	_, _, err = rebindNamed("SELECT ?", nil, 0)
	require.Error(t, err)
}

func TestTransactionScript(t *testing.T) {
	script, params, err := transactionScript([]Statement{
		{SQL: "DELETE FROM a WHERE x = ?", Args: []any{1}},
		{SQL: "DELETE FROM b WHERE y = ?", Args: []any{2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "BEGIN TRANSACTION;\nDELETE FROM a WHERE x = @p0;\nDELETE FROM b WHERE y = @p1;\nCOMMIT TRANSACTION;", script)
	require.Len(t, params, 2)
	assert.Equal(t, "p1", params[1].Name)
}
