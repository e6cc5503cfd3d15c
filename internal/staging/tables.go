// Package staging describes the raw relations that ingest fills and the
// transform reads, along with decoding of the source JSON records.
package staging

import (
	"github.com/angelmondragon/sparkify-dwh/internal/warehouse"
)

const (
	EventsTable = "staging_events"
	SongsTable  = "staging_songs"

	// PageNextSong marks a song playback in the event log.
	PageNextSong = "NextSong"
)

// EventsDef declares staging_events. Column order follows the events
// JSONPaths file so positional COPY lines up.
func EventsDef() warehouse.TableDef {
	return warehouse.TableDef{
		Name: EventsTable,
		Columns: []warehouse.Column{
			{Name: "artist", Type: warehouse.Varchar(512)},
			{Name: "auth", Type: warehouse.Varchar(32)},
			{Name: "first_name", Type: warehouse.Varchar(256)},
			{Name: "gender", Type: warehouse.Varchar(8)},
			{Name: "item_in_session", Type: warehouse.Integer},
			{Name: "last_name", Type: warehouse.Varchar(256)},
			{Name: "length", Type: warehouse.Double},
			{Name: "level", Type: warehouse.Varchar(16)},
			{Name: "location", Type: warehouse.Varchar(512)},
			{Name: "method", Type: warehouse.Varchar(16)},
			{Name: "page", Type: warehouse.Varchar(64)},
			{Name: "registration", Type: warehouse.Double},
			{Name: "session_id", Type: warehouse.Integer},
			{Name: "song", Type: warehouse.Varchar(512)},
			{Name: "status", Type: warehouse.Integer},
			{Name: "ts", Type: warehouse.BigInt},
			{Name: "user_agent", Type: warehouse.Varchar(512)},
			{Name: "user_id", Type: warehouse.Varchar(32)},
		},
	}
}

// SongsDef declares staging_songs in catalog record order.
func SongsDef() warehouse.TableDef {
	return warehouse.TableDef{
		Name: SongsTable,
		Columns: []warehouse.Column{
			{Name: "num_songs", Type: warehouse.Integer},
			{Name: "artist_id", Type: warehouse.Varchar(64)},
			{Name: "artist_latitude", Type: warehouse.Double},
			{Name: "artist_longitude", Type: warehouse.Double},
			{Name: "artist_location", Type: warehouse.Varchar(512)},
			{Name: "artist_name", Type: warehouse.Varchar(512)},
			{Name: "song_id", Type: warehouse.Varchar(64)},
			{Name: "title", Type: warehouse.Varchar(512)},
			{Name: "duration", Type: warehouse.Double},
			{Name: "year", Type: warehouse.Integer},
		},
	}
}

// Defs returns both staging relations.
func Defs() []warehouse.TableDef {
	return []warehouse.TableDef{EventsDef(), SongsDef()}
}
