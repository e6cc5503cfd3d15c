// Package verify checks a freshly built star schema before a run is
// reported as successful.
package verify

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/sparkify-dwh/internal/staging"
	"github.com/angelmondragon/sparkify-dwh/internal/starschema"
	wh "github.com/angelmondragon/sparkify-dwh/internal/warehouse"
	pkgerrors "github.com/angelmondragon/sparkify-dwh/pkg/errors"
	"github.com/angelmondragon/sparkify-dwh/pkg/logger"
)

// Check renders a query returning the number of offending rows.
type Check struct {
	Name   string
	Render func(d wh.Dialect) wh.Statement
}

func orphans(child, column, parent, parentColumn string, nullable bool) Check {
	return Check{
		Name: fmt.Sprintf("%s.%s references missing %s", child, column, parent),
		Render: func(d wh.Dialect) wh.Statement {
			s := wh.Select{
				Columns: []string{"COUNT(*)"},
				From:    wh.Frag(d.Table(child) + " f"),
				Joins: []wh.Fragment{wh.Frag(fmt.Sprintf("LEFT JOIN %s p ON f.%s = p.%s",
					d.Table(parent), column, parentColumn))},
				Where: []wh.Fragment{wh.Frag("p." + parentColumn + " IS NULL")},
			}
			if nullable {
				s.Where = append(s.Where, wh.Frag("f."+column+" IS NOT NULL"))
			}
			return s.Build()
		},
	}
}

func duplicates(table, key string) Check {
	return Check{
		Name: fmt.Sprintf("%s has duplicate %s", table, key),
		Render: func(d wh.Dialect) wh.Statement {
			dups := wh.Select{
				Columns: []string{key},
				From:    wh.Frag(d.Table(table)),
				GroupBy: []string{key},
				Having:  "COUNT(*) > 1",
			}
			return wh.Select{
				Columns: []string{"COUNT(*)"},
				From:    wh.Subquery(dups, "d"),
			}.Build()
		},
	}
}

func factCount() Check {
	return Check{
		Name: "songplays row count differs from qualifying events",
		Render: func(d wh.Dialect) wh.Statement {
			qualifying := wh.Select{
				Columns: []string{"COUNT(*)"},
				From:    wh.Frag(d.Table(staging.EventsTable)),
				Where:   append(staging.PlaybackWhere(""), wh.Frag("user_id IS NOT NULL")),
			}.Build()
			return wh.Statement{
				SQL: fmt.Sprintf("SELECT ABS((SELECT COUNT(*) FROM %s) - (%s))",
					d.Table(starschema.SongplaysTable), qualifying.SQL),
				Args: qualifying.Args,
			}
		},
	}
}

func denseIDs() Check {
	return Check{
		Name: "songplay ids are not dense from zero",
		Render: func(d wh.Dialect) wh.Statement {
			t := d.Table(starschema.SongplaysTable)
			return wh.Select{
				Columns: []string{"COUNT(*)"},
				From:    wh.Frag(t),
				Where: []wh.Fragment{wh.Frag(fmt.Sprintf(
					"songplay_id < 0 OR songplay_id >= (SELECT COUNT(*) FROM %s)", t))},
			}.Build()
		},
	}
}

// Checks returns every post-build check.
func Checks() []Check {
	return []Check{
		orphans(starschema.SongplaysTable, "start_time", starschema.TimeTable, "start_time", false),
		orphans(starschema.SongplaysTable, "user_id", starschema.UsersTable, "user_id", false),
		orphans(starschema.SongplaysTable, "song_id", starschema.SongsTable, "song_id", true),
		orphans(starschema.SongplaysTable, "artist_id", starschema.ArtistsTable, "artist_id", true),
		orphans(starschema.SongsTable, "artist_id", starschema.ArtistsTable, "artist_id", true),
		duplicates(starschema.UsersTable, "user_id"),
		duplicates(starschema.ArtistsTable, "artist_id"),
		duplicates(starschema.SongsTable, "song_id"),
		duplicates(starschema.TimeTable, "start_time"),
		duplicates(starschema.SongplaysTable, "songplay_id"),
		factCount(),
		denseIDs(),
	}
}

type Verifier struct {
	store wh.Store
	logg  *logger.Logger
}

func New(store wh.Store, logg *logger.Logger) *Verifier {
	return &Verifier{store: store, logg: logg}
}

// Run executes every check and reports all violations together.
func (v *Verifier) Run(ctx context.Context) error {
	d := v.store.Dialect()
	var violations error
	found := map[string]int64{}

	for _, c := range Checks() {
		n, err := v.store.QueryInt64(ctx, c.Render(d))
		if err != nil {
			return pkgerrors.Classify(err, pkgerrors.CodeInternal, "integrity check "+c.Name)
		}
		if n != 0 {
			found[c.Name] = n
			violations = multierr.Append(violations, fmt.Errorf("%s: %d rows", c.Name, n))
		}
	}

	if violations != nil {
		v.logg.Warn(v.logg.WithField(ctx, "violations", found), "integrity check failed")
		return pkgerrors.Wrap(pkgerrors.CodeIntegrity, violations, "star schema integrity check failed").
			WithDetails(found)
	}
	v.logg.Info(ctx, "integrity checks passed")
	return nil
}
