package schema

import (
	"github.com/angelmondragon/sparkify-dwh/internal/staging"
	"github.com/angelmondragon/sparkify-dwh/internal/starschema"
	wh "github.com/angelmondragon/sparkify-dwh/internal/warehouse"
)

func usersDef() wh.TableDef {
	return wh.TableDef{
		Name: starschema.UsersTable,
		Columns: []wh.Column{
			{Name: "user_id", Type: wh.Varchar(32)},
			{Name: "first_name", Type: wh.Varchar(256)},
			{Name: "last_name", Type: wh.Varchar(256)},
			{Name: "gender", Type: wh.Varchar(8)},
			{Name: "level", Type: wh.Varchar(16)},
		},
		PrimaryKey: "user_id",
		Physical:   wh.Physical{DistStyleAll: true, SortKey: "user_id"},
	}
}

func artistsDef() wh.TableDef {
	return wh.TableDef{
		Name: starschema.ArtistsTable,
		Columns: []wh.Column{
			{Name: "artist_id", Type: wh.Varchar(64)},
			{Name: "name", Type: wh.Varchar(512)},
			{Name: "location", Type: wh.Varchar(512)},
			{Name: "latitude", Type: wh.Double},
			{Name: "longitude", Type: wh.Double},
		},
		PrimaryKey: "artist_id",
		Physical:   wh.Physical{DistStyleAll: true, SortKey: "artist_id"},
	}
}

func songsDef() wh.TableDef {
	return wh.TableDef{
		Name: starschema.SongsTable,
		Columns: []wh.Column{
			{Name: "song_id", Type: wh.Varchar(64)},
			{Name: "title", Type: wh.Varchar(512)},
			{Name: "artist_id", Type: wh.Varchar(64)},
			{Name: "year", Type: wh.Integer},
			{Name: "duration", Type: wh.Double},
		},
		PrimaryKey: "song_id",
		ForeignKeys: []wh.ForeignKey{
			{Column: "artist_id", RefTable: starschema.ArtistsTable, RefColumn: "artist_id"},
		},
		Physical: wh.Physical{DistKey: "song_id", SortKey: "song_id"},
	}
}

func timeDef() wh.TableDef {
	return wh.TableDef{
		Name: starschema.TimeTable,
		Columns: []wh.Column{
			{Name: "start_time", Type: wh.Timestamp},
			{Name: "hour", Type: wh.SmallInt, NotNull: true},
			{Name: "day", Type: wh.SmallInt, NotNull: true},
			{Name: "week", Type: wh.SmallInt, NotNull: true},
			{Name: "month", Type: wh.SmallInt, NotNull: true},
			{Name: "year", Type: wh.SmallInt, NotNull: true},
			{Name: "weekday", Type: wh.SmallInt, NotNull: true},
		},
		PrimaryKey: "start_time",
		Physical:   wh.Physical{DistStyleAll: true, SortKey: "start_time"},
	}
}

func songplaysDef() wh.TableDef {
	return wh.TableDef{
		Name: starschema.SongplaysTable,
		Columns: []wh.Column{
			{Name: "songplay_id", Type: wh.BigInt},
			{Name: "start_time", Type: wh.Timestamp, NotNull: true},
			{Name: "user_id", Type: wh.Varchar(32), NotNull: true},
			{Name: "level", Type: wh.Varchar(16)},
			{Name: "song_id", Type: wh.Varchar(64)},
			{Name: "artist_id", Type: wh.Varchar(64)},
			{Name: "session_id", Type: wh.Integer},
			{Name: "location", Type: wh.Varchar(512)},
			{Name: "user_agent", Type: wh.Varchar(512)},
		},
		PrimaryKey: "songplay_id",
		ForeignKeys: []wh.ForeignKey{
			{Column: "start_time", RefTable: starschema.TimeTable, RefColumn: "start_time"},
			{Column: "user_id", RefTable: starschema.UsersTable, RefColumn: "user_id"},
			{Column: "song_id", RefTable: starschema.SongsTable, RefColumn: "song_id"},
			{Column: "artist_id", RefTable: starschema.ArtistsTable, RefColumn: "artist_id"},
		},
		Physical: wh.Physical{DistKey: "song_id", SortKey: "start_time"},
	}
}

// TargetTables returns the fact and dimension definitions.
func TargetTables() []wh.TableDef {
	return []wh.TableDef{usersDef(), artistsDef(), songsDef(), timeDef(), songplaysDef()}
}

// Tables returns every relation the manager owns, staging included.
func Tables() []wh.TableDef {
	return append(staging.Defs(), TargetTables()...)
}

// Lookup finds a definition by table name.
func Lookup(name string) (wh.TableDef, bool) {
	for _, def := range Tables() {
		if def.Name == name {
			return def, true
		}
	}
	return wh.TableDef{}, false
}
