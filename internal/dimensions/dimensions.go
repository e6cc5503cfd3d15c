// Package dimensions renders the insert-selects that fill the users,
// artists, songs and time tables from staging.
//
// Every representative row is chosen with ROW_NUMBER over an explicit,
// total ordering so the outcome does not depend on scan order or engine.
package dimensions

import (
	"fmt"

	"github.com/angelmondragon/sparkify-dwh/internal/staging"
	"github.com/angelmondragon/sparkify-dwh/internal/starschema"
	wh "github.com/angelmondragon/sparkify-dwh/internal/warehouse"
)

var (
	userColumns   = []string{"user_id", "first_name", "last_name", "gender", "level"}
	artistColumns = []string{"artist_id", "name", "location", "latitude", "longitude"}
	songColumns   = []string{"song_id", "title", "artist_id", "year", "duration"}
	timeColumns   = []string{"start_time", "hour", "day", "week", "month", "year", "weekday"}
)

// Builders returns the four dimension builders in name order.
func Builders() []wh.Builder {
	return []wh.Builder{
		{Table: starschema.ArtistsTable, Render: Artists},
		{Table: starschema.SongsTable, Render: Songs},
		{Table: starschema.TimeTable, Render: Time},
		{Table: starschema.UsersTable, Render: Users},
	}
}

func latest(columns []string, rank string, from wh.Fragment, where []wh.Fragment) wh.Select {
	ranked := wh.Select{
		Columns: append(append([]string{}, columns...), rank+" AS rn"),
		From:    from,
		Where:   where,
	}
	return wh.Select{
		Columns: columns,
		From:    wh.Subquery(ranked, "ranked"),
		Where:   []wh.Fragment{wh.Frag("rn = 1")},
	}
}

// Users keeps the latest playback of each user: greatest ts, then session,
// then item in session.
func Users(d wh.Dialect) wh.Statement {
	rank := "ROW_NUMBER() OVER (PARTITION BY user_id ORDER BY " +
		"ts DESC NULLS LAST, session_id DESC NULLS LAST, item_in_session DESC NULLS LAST)"
	where := append(staging.PlaybackWhere(""), wh.Frag("user_id IS NOT NULL"))

	return wh.InsertSelect{
		Table:   starschema.UsersTable,
		Columns: userColumns,
		Query:   latest(userColumns, rank, wh.Frag(d.Table(staging.EventsTable)), where),
	}.Build(d)
}

// Artists represents each artist by its catalog row with the lowest song id.
func Artists(d wh.Dialect) wh.Statement {
	inner := []string{
		"artist_id",
		"artist_name AS name",
		"artist_location AS location",
		"artist_latitude AS latitude",
		"artist_longitude AS longitude",
	}
	rank := fmt.Sprintf("ROW_NUMBER() OVER (PARTITION BY artist_id ORDER BY %s ASC NULLS LAST)",
		d.Collate("song_id"))

	ranked := wh.Select{
		Columns: append(inner, rank+" AS rn"),
		From:    wh.Frag(d.Table(staging.SongsTable)),
		Where:   []wh.Fragment{wh.Frag("artist_id IS NOT NULL")},
	}
	return wh.InsertSelect{
		Table:   starschema.ArtistsTable,
		Columns: artistColumns,
		Query: wh.Select{
			Columns: artistColumns,
			From:    wh.Subquery(ranked, "ranked"),
			Where:   []wh.Fragment{wh.Frag("rn = 1")},
		},
	}.Build(d)
}

// Songs keeps one row per song id ordered by artist, title, year, duration.
func Songs(d wh.Dialect) wh.Statement {
	rank := fmt.Sprintf("ROW_NUMBER() OVER (PARTITION BY song_id ORDER BY "+
		"%s ASC NULLS LAST, %s ASC NULLS LAST, year ASC NULLS LAST, duration ASC NULLS LAST)",
		d.Collate("artist_id"), d.Collate("title"))
	where := []wh.Fragment{wh.Frag("song_id IS NOT NULL")}

	return wh.InsertSelect{
		Table:   starschema.SongsTable,
		Columns: songColumns,
		Query:   latest(songColumns, rank, wh.Frag(d.Table(staging.SongsTable)), where),
	}.Build(d)
}

// Time decomposes every distinct playback instant.
func Time(d wh.Dialect) wh.Statement {
	instants := wh.Select{
		Distinct: true,
		Columns:  []string{staging.StartTime(d, "") + " AS start_time"},
		From:     wh.Frag(d.Table(staging.EventsTable)),
		Where:    staging.PlaybackWhere(""),
	}
	return wh.InsertSelect{
		Table:   starschema.TimeTable,
		Columns: timeColumns,
		Query: wh.Select{
			Columns: []string{
				"start_time",
				d.DatePart(wh.PartHour, "start_time"),
				d.DatePart(wh.PartDay, "start_time"),
				d.DatePart(wh.PartWeek, "start_time"),
				d.DatePart(wh.PartMonth, "start_time"),
				d.DatePart(wh.PartYear, "start_time"),
				d.DatePart(wh.PartWeekday, "start_time"),
			},
			From: wh.Subquery(instants, "instants"),
		},
	}.Build(d)
}
