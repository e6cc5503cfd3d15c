package warehouse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectFor(t *testing.T) {
	for _, driver := range []string{"redshift", "Postgres", " sqlite "} {
		d, err := DialectFor(driver, "")
		require.NoError(t, err, driver)
		assert.Equal(t, strings.ToLower(strings.TrimSpace(driver)), d.String())
	}

	_, err := DialectFor("bigquery", "")
	require.Error(t, err, "bigquery needs a dataset")

	d, err := DialectFor("bigquery", "sparkify")
	require.NoError(t, err)
	assert.Equal(t, "`sparkify.time`", d.Table("time"))

	_, err = DialectFor("mysql", "")
	require.Error(t, err)
}

func TestQuoting(t *testing.T) {
	pg := Dialect{Kind: KindPostgres}
	assert.Equal(t, `"time"`, pg.Table("time"))
	assert.Equal(t, `"we""ird"`, pg.QuoteIdent(`we"ird`))
	assert.Equal(t, `'it''s'`, pg.QuoteLiteral("it's"))

	bq := Dialect{Kind: KindBigQuery, Dataset: "dwh"}
	assert.Equal(t, `'it\'s'`, bq.QuoteLiteral("it's"))
	assert.Equal(t, `'a\\b'`, bq.QuoteLiteral(`a\b`))
}

func TestColumnTypes(t *testing.T) {
	tests := []struct {
		kind Kind
		typ  ColumnType
		want string
	}{
		{KindRedshift, Varchar(256), "VARCHAR(256)"},
		{KindRedshift, BigInt, "BIGINT"},
		{KindPostgres, Double, "DOUBLE PRECISION"},
		{KindSQLite, Varchar(50), "TEXT"},
		{KindSQLite, SmallInt, "INTEGER"},
		{KindBigQuery, Varchar(50), "STRING"},
		{KindBigQuery, Integer, "INT64"},
		{KindBigQuery, Double, "FLOAT64"},
		{KindBigQuery, Timestamp, "TIMESTAMP"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Dialect{Kind: tt.kind}.ColumnType(tt.typ), "%s %+v", tt.kind, tt.typ)
	}
}

func TestEpochMillisToTimestamp(t *testing.T) {
	assert.Equal(t, "(TIMESTAMP 'epoch' + (ts / 1000) * INTERVAL '1 second')",
		Dialect{Kind: KindRedshift}.EpochMillisToTimestamp("ts"))
	assert.Equal(t, "datetime((ts / 1000), 'unixepoch')",
		Dialect{Kind: KindSQLite}.EpochMillisToTimestamp("ts"))
	assert.Equal(t, "TIMESTAMP_SECONDS(DIV(ts, 1000))",
		Dialect{Kind: KindBigQuery, Dataset: "d"}.EpochMillisToTimestamp("ts"))
}

func TestDatePartRendering(t *testing.T) {
	pg := Dialect{Kind: KindPostgres}
	assert.Equal(t, "CAST(EXTRACT(dow FROM start_time) AS INTEGER)", pg.DatePart(PartWeekday, "start_time"))
	assert.Equal(t, "CAST(EXTRACT(week FROM start_time) AS INTEGER)", pg.DatePart(PartWeek, "start_time"))

	bq := Dialect{Kind: KindBigQuery, Dataset: "d"}
	assert.Equal(t, "EXTRACT(ISOWEEK FROM start_time)", bq.DatePart(PartWeek, "start_time"))
	assert.Equal(t, "(EXTRACT(DAYOFWEEK FROM start_time) - 1)", bq.DatePart(PartWeekday, "start_time"))
	assert.Equal(t, "EXTRACT(HOUR FROM start_time)", bq.DatePart(PartHour, "start_time"))
}

func TestCollateOnlyOnPostgres(t *testing.T) {
	assert.Equal(t, `title COLLATE "C"`, Dialect{Kind: KindPostgres}.Collate("title"))
	assert.Equal(t, "title", Dialect{Kind: KindRedshift}.Collate("title"))
	assert.Equal(t, "title", Dialect{Kind: KindSQLite}.Collate("title"))
}

func TestCreateTable(t *testing.T) {
	def := TableDef{
		Name: "songs",
		Columns: []Column{
			{Name: "song_id", Type: Varchar(64)},
			{Name: "title", Type: Varchar(512)},
			{Name: "artist_id", Type: Varchar(64)},
		},
		PrimaryKey:  "song_id",
		ForeignKeys: []ForeignKey{{Column: "artist_id", RefTable: "artists", RefColumn: "artist_id"}},
		Physical:    Physical{DistKey: "song_id"},
	}

	rs := Dialect{Kind: KindRedshift}.CreateTable(def).SQL
	assert.Contains(t, rs, `CREATE TABLE "songs"`)
	assert.Contains(t, rs, "song_id VARCHAR(64) NOT NULL")
	assert.Contains(t, rs, `FOREIGN KEY (artist_id) REFERENCES "artists" (artist_id)`)
	assert.True(t, strings.HasSuffix(rs, ") DISTKEY(song_id)"), rs)

	bq := Dialect{Kind: KindBigQuery, Dataset: "dwh"}.CreateTable(def).SQL
	assert.Contains(t, bq, "PRIMARY KEY (song_id) NOT ENFORCED")
	assert.Contains(t, bq, "REFERENCES `dwh.artists` (artist_id) NOT ENFORCED")
	assert.NotContains(t, bq, "DISTKEY")

	assert.Equal(t, []string{"artists"}, def.References())
	assert.Equal(t, []string{"song_id", "title", "artist_id"}, def.ColumnNames())
}

func TestTableOptions(t *testing.T) {
	rs := Dialect{Kind: KindRedshift}
	assert.Equal(t, " DISTSTYLE ALL", rs.TableOptions(Physical{DistStyleAll: true}))
	assert.Equal(t, " DISTKEY(song_id) SORTKEY(start_time)", rs.TableOptions(Physical{DistKey: "song_id", SortKey: "start_time"}))
	assert.Equal(t, "", Dialect{Kind: KindPostgres}.TableOptions(Physical{DistStyleAll: true}))
}

func TestTableExistsQuery(t *testing.T) {
	sqlite := Dialect{Kind: KindSQLite}.TableExistsQuery("users")
	assert.Contains(t, sqlite.SQL, "sqlite_master")
	assert.Equal(t, []any{"users"}, sqlite.Args)

	pg := Dialect{Kind: KindRedshift}.TableExistsQuery("users")
	assert.Contains(t, pg.SQL, "information_schema.tables")
	assert.Contains(t, pg.SQL, "current_schema()")
	assert.Equal(t, 1, Placeholders(pg.SQL))

	bq := Dialect{Kind: KindBigQuery, Dataset: "d"}.TableExistsQuery("users")
	assert.Contains(t, bq.SQL, "`d.INFORMATION_SCHEMA.TABLES`")
}

func TestDeleteAllHasPredicate(t *testing.T) {
	assert.Equal(t, "DELETE FROM `d.users` WHERE 1 = 1", Dialect{Kind: KindBigQuery, Dataset: "d"}.DeleteAll("users").SQL)
}
