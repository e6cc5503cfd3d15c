package starschema

import (
	"testing"
	"time"

	"github.com/angelmondragon/sparkify-dwh/internal/staging"
	"github.com/angelmondragon/sparkify-dwh/internal/testsupport"
)

func TestDecomposeCanonicalInstant(t *testing.T) {
	got := Decompose(StartTime(1541990544796))
	want := Time{
		StartTime: time.Date(2018, time.November, 12, 2, 42, 24, 0, time.UTC),
		Hour:      2,
		Day:       12,
		Week:      46,
		Month:     11,
		Year:      2018,
		Weekday:   1,
	}
	if !got.StartTime.Equal(want.StartTime) {
		t.Fatalf("expected start %v, got %v", want.StartTime, got.StartTime)
	}
	got.StartTime, want.StartTime = time.Time{}, time.Time{}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestStartTimeTruncatesToWholeSeconds(t *testing.T) {
	if !StartTime(1541990544999).Equal(StartTime(1541990544000)) {
		t.Fatal("sub-second remainder should be dropped")
	}
}

func TestDecomposeCalendarYearWithISOWeek(t *testing.T) {
	// 2018-12-31 is in ISO week 1 of 2019 but keeps calendar year 2018
	got := Decompose(time.Date(2018, time.December, 31, 23, 0, 0, 0, time.UTC))
	if got.Week != 1 || got.Year != 2018 || got.Weekday != 1 {
		t.Fatalf("unexpected decomposition %+v", got)
	}
	sunday := Decompose(time.Date(2018, time.November, 18, 0, 0, 0, 0, time.UTC))
	if sunday.Weekday != 0 {
		t.Fatalf("expected Sunday to be 0, got %d", sunday.Weekday)
	}
}

func TestScenario(t *testing.T) {
	schema := Build(testsupport.ScenarioEvents(), testsupport.ScenarioSongs())

	if len(schema.Songplays) != 3 {
		t.Fatalf("expected 3 songplays, got %d", len(schema.Songplays))
	}
	if len(schema.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(schema.Users))
	}
	if len(schema.Time) != 2 {
		t.Fatalf("expected 2 distinct instants, got %d", len(schema.Time))
	}
}

func TestUsersTakeLatestPlayback(t *testing.T) {
	users := BuildUsers(testsupport.ScenarioEvents())
	byID := map[string]User{}
	for _, u := range users {
		byID[u.UserID] = u
	}
	if lvl := byID["10"].Level; lvl == nil || *lvl != "paid" {
		t.Fatalf("expected user 10 to be paid, got %v", lvl)
	}
	if lvl := byID["26"].Level; lvl == nil || *lvl != "free" {
		t.Fatalf("expected user 26 to be free, got %v", lvl)
	}
}

func TestUsersTieBreakOnSession(t *testing.T) {
	a := staging.Event{Page: staging.String(staging.PageNextSong), TS: staging.Int64(5), SessionID: staging.Int64(1), UserID: staging.String("u"), Level: staging.String("free")}
	b := a
	b.SessionID = staging.Int64(2)
	b.Level = staging.String("paid")
	users := BuildUsers([]staging.Event{b, a})
	if *users[0].Level != "paid" {
		t.Fatalf("higher session should win a ts tie, got %s", *users[0].Level)
	}
}

func TestSongplaysResolution(t *testing.T) {
	plays := BuildSongplays(testsupport.ScenarioEvents(), testsupport.ScenarioSongs())

	for i, p := range plays {
		if p.SongplayID != int64(i) {
			t.Fatalf("expected dense ids from 0, got %d at %d", p.SongplayID, i)
		}
	}

	if plays[0].SongID == nil || *plays[0].SongID != "SOAAA" || *plays[0].ArtistID != "ARA" {
		t.Fatalf("expected first play to resolve to SOAAA/ARA, got %+v", plays[0])
	}
	if plays[1].SongID != nil || plays[1].ArtistID != nil {
		t.Fatalf("expected unresolved play to carry NULLs, got %+v", plays[1])
	}
	if plays[2].SongID == nil || *plays[2].SongID != "SOCCC" || *plays[2].ArtistID != "ARC" {
		t.Fatalf("expected tie-break on lowest song id, got %+v", plays[2])
	}
}

func TestSongplaysMatchIsCaseSensitive(t *testing.T) {
	plays := BuildSongplays(testsupport.ExtendedEvents(), testsupport.ScenarioSongs())
	for _, p := range plays {
		if p.UserID == "26" && p.StartTime.Equal(StartTime(testsupport.CanonicalTS+240000)) && p.SongID != nil {
			t.Fatalf("upper-case title must not resolve, got %s", *p.SongID)
		}
	}
	if len(plays) != 5 {
		t.Fatalf("expected 5 songplays, got %d", len(plays))
	}
	last := plays[len(plays)-1]
	if last.SessionID != nil {
		t.Fatalf("NULL session should sort last at equal ts, got %+v", last)
	}
}

func TestArtistsAndSongsDedup(t *testing.T) {
	artists := BuildArtists(testsupport.ScenarioSongs())
	if len(artists) != 4 {
		t.Fatalf("expected 4 artists, got %d", len(artists))
	}
	if artists[0].ArtistID != "ARA" || artists[0].Location == nil || *artists[0].Location != "NYC" {
		t.Fatalf("expected ARA represented by lowest song id, got %+v", artists[0])
	}

	songs := BuildSongs(testsupport.ScenarioSongs())
	if len(songs) != 4 {
		t.Fatalf("expected 4 songs, got %d", len(songs))
	}
	if songs[0].SongID != "SOAAA" || *songs[0].Duration != 199.0 {
		t.Fatalf("expected shortest duplicate to win, got %+v", songs[0])
	}
}

func TestTimeOnlyFromPlaybacks(t *testing.T) {
	rows := BuildTime(testsupport.ExtendedEvents())
	if len(rows) != 4 {
		t.Fatalf("expected 4 instants, got %d", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if !rows[i-1].StartTime.Before(rows[i].StartTime) {
			t.Fatal("time rows should be sorted and distinct")
		}
	}
}

func TestEmptyStaging(t *testing.T) {
	schema := Build(nil, nil)
	if len(schema.Users)+len(schema.Artists)+len(schema.Songs)+len(schema.Time)+len(schema.Songplays) != 0 {
		t.Fatalf("expected empty schema, got %+v", schema)
	}
}
