// Package facts renders the songplays fact build.
package facts

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/sparkify-dwh/internal/staging"
	"github.com/angelmondragon/sparkify-dwh/internal/starschema"
	wh "github.com/angelmondragon/sparkify-dwh/internal/warehouse"
)

var songplayColumns = []string{
	"songplay_id", "start_time", "user_id", "level", "song_id",
	"artist_id", "session_id", "location", "user_agent",
}

// Builder returns the songplays builder.
func Builder() wh.Builder {
	return wh.Builder{Table: starschema.SongplaysTable, Render: Songplays}
}

// catalog is one row per (title, artist_name): the lowest song id, then the
// lowest artist id among exact matches.
func catalog(d wh.Dialect) wh.Fragment {
	rank := fmt.Sprintf("ROW_NUMBER() OVER (PARTITION BY title, artist_name ORDER BY "+
		"%s ASC NULLS LAST, %s ASC NULLS LAST)", d.Collate("song_id"), d.Collate("artist_id"))
	ranked := wh.Select{
		Columns: []string{"title", "artist_name", "song_id", "artist_id", rank + " AS rn"},
		From:    wh.Frag(d.Table(staging.SongsTable)),
		Where: []wh.Fragment{
			wh.Frag("title IS NOT NULL"),
			wh.Frag("artist_name IS NOT NULL"),
		},
	}
	return wh.Subquery(wh.Select{
		Columns: []string{"title", "artist_name", "song_id", "artist_id"},
		From:    wh.Subquery(ranked, "ranked"),
		Where:   []wh.Fragment{wh.Frag("rn = 1")},
	}, "c")
}

// playOrder ranks events by (ts, session, item, user), then by every other
// copied column so rows tied on all of them are identical.
func playOrder(d wh.Dialect) string {
	keys := []string{"e.ts ASC", "e.session_id ASC NULLS LAST", "e.item_in_session ASC NULLS LAST"}
	for _, col := range []string{"e.user_id", "e.level", "e.song", "e.artist", "e.location", "e.user_agent"} {
		keys = append(keys, d.Collate(col)+" ASC NULLS LAST")
	}
	return strings.Join(keys, ", ")
}

// Songplays emits one row per qualifying event with a user. A catalog miss
// keeps the row with NULL song and artist ids. Ids are dense from zero in
// play order.
func Songplays(d wh.Dialect) wh.Statement {
	join := catalog(d)
	join.SQL = "LEFT JOIN " + join.SQL + " ON e.song = c.title AND e.artist = c.artist_name"

	id := "ROW_NUMBER() OVER (ORDER BY " + playOrder(d) + ") - 1"

	return wh.InsertSelect{
		Table:   starschema.SongplaysTable,
		Columns: songplayColumns,
		Query: wh.Select{
			Columns: []string{
				id,
				staging.StartTime(d, "e"),
				"e.user_id",
				"e.level",
				"c.song_id",
				"c.artist_id",
				"e.session_id",
				"e.location",
				"e.user_agent",
			},
			From:  wh.Frag(d.Table(staging.EventsTable) + " e"),
			Joins: []wh.Fragment{join},
			Where: append(staging.PlaybackWhere("e"), wh.Frag("e.user_id IS NOT NULL")),
		},
	}.Build(d)
}
