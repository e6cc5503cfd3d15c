package starschema

import (
	"sort"
	"time"

	"github.com/angelmondragon/sparkify-dwh/internal/staging"
)

// Build derives the full star schema from staging rows.
func Build(events []staging.Event, songs []staging.Song) Schema {
	return Schema{
		Users:     BuildUsers(events),
		Artists:   BuildArtists(songs),
		Songs:     BuildSongs(songs),
		Time:      BuildTime(events),
		Songplays: BuildSongplays(events, songs),
	}
}

// BuildUsers keeps, per user, the latest playback by ts, then session,
// then item in session.
func BuildUsers(events []staging.Event) []User {
	latest := map[string]staging.Event{}
	for _, e := range events {
		if !e.IsPlayback() || e.UserID == nil {
			continue
		}
		cur, ok := latest[*e.UserID]
		if !ok || newerEvent(e, cur) {
			latest[*e.UserID] = e
		}
	}

	users := make([]User, 0, len(latest))
	for id, e := range latest {
		users = append(users, User{
			UserID:    id,
			FirstName: e.FirstName,
			LastName:  e.LastName,
			Gender:    e.Gender,
			Level:     e.Level,
		})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users
}

func newerEvent(a, b staging.Event) bool {
	if c := compareInt(a.TS, b.TS); c != 0 {
		return c > 0
	}
	if c := compareInt(a.SessionID, b.SessionID); c != 0 {
		return c > 0
	}
	return compareInt(a.ItemInSession, b.ItemInSession) > 0
}

// BuildArtists represents each artist by its catalog row with the lowest song id.
func BuildArtists(songs []staging.Song) []Artist {
	best := map[string]staging.Song{}
	for _, s := range songs {
		if s.ArtistID == nil {
			continue
		}
		cur, ok := best[*s.ArtistID]
		if !ok || compareStringNullsLast(s.SongID, cur.SongID) < 0 {
			best[*s.ArtistID] = s
		}
	}

	artists := make([]Artist, 0, len(best))
	for id, s := range best {
		artists = append(artists, Artist{
			ArtistID:  id,
			Name:      s.ArtistName,
			Location:  s.ArtistLocation,
			Latitude:  s.ArtistLatitude,
			Longitude: s.ArtistLongitude,
		})
	}
	sort.Slice(artists, func(i, j int) bool { return artists[i].ArtistID < artists[j].ArtistID })
	return artists
}

// BuildSongs keeps one row per song id, ordered by artist, title, year, duration.
func BuildSongs(songs []staging.Song) []Song {
	best := map[string]staging.Song{}
	for _, s := range songs {
		if s.SongID == nil {
			continue
		}
		cur, ok := best[*s.SongID]
		if !ok || songBefore(s, cur) {
			best[*s.SongID] = s
		}
	}

	out := make([]Song, 0, len(best))
	for id, s := range best {
		out = append(out, Song{
			SongID:   id,
			Title:    s.Title,
			ArtistID: s.ArtistID,
			Year:     s.Year,
			Duration: s.Duration,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SongID < out[j].SongID })
	return out
}

func songBefore(a, b staging.Song) bool {
	if c := compareStringNullsLast(a.ArtistID, b.ArtistID); c != 0 {
		return c < 0
	}
	if c := compareStringNullsLast(a.Title, b.Title); c != 0 {
		return c < 0
	}
	if c := compareIntNullsLast(a.Year, b.Year); c != 0 {
		return c < 0
	}
	return compareFloatNullsLast(a.Duration, b.Duration) < 0
}

// BuildTime decomposes every distinct playback instant.
func BuildTime(events []staging.Event) []Time {
	seen := map[time.Time]struct{}{}
	var rows []Time
	for _, e := range events {
		if !e.IsPlayback() {
			continue
		}
		start := StartTime(*e.TS)
		if _, ok := seen[start]; ok {
			continue
		}
		seen[start] = struct{}{}
		rows = append(rows, Decompose(start))
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].StartTime.Before(rows[j].StartTime) })
	return rows
}

type catalogKey struct {
	title  string
	artist string
}

type catalogMatch struct {
	songID   *string
	artistID *string
}

// BuildSongplays emits one fact per playback with a user, resolving the
// catalog entry by exact title and artist name.
func BuildSongplays(events []staging.Event, songs []staging.Song) []Songplay {
	catalog := map[catalogKey]catalogMatch{}
	for _, s := range songs {
		if s.Title == nil || s.ArtistName == nil {
			continue
		}
		key := catalogKey{title: *s.Title, artist: *s.ArtistName}
		cur, ok := catalog[key]
		if !ok || matchBefore(s.SongID, s.ArtistID, cur) {
			catalog[key] = catalogMatch{songID: s.SongID, artistID: s.ArtistID}
		}
	}

	var plays []staging.Event
	for _, e := range events {
		if e.IsPlayback() && e.UserID != nil {
			plays = append(plays, e)
		}
	}
	sort.SliceStable(plays, func(i, j int) bool { return playBefore(plays[i], plays[j]) })

	out := make([]Songplay, 0, len(plays))
	for i, e := range plays {
		row := Songplay{
			SongplayID: int64(i),
			StartTime:  StartTime(*e.TS),
			UserID:     *e.UserID,
			Level:      e.Level,
			SessionID:  e.SessionID,
			Location:   e.Location,
			UserAgent:  e.UserAgent,
		}
		if e.Song != nil && e.Artist != nil {
			if m, ok := catalog[catalogKey{title: *e.Song, artist: *e.Artist}]; ok {
				row.SongID = m.songID
				row.ArtistID = m.artistID
			}
		}
		out = append(out, row)
	}
	return out
}

func matchBefore(songID, artistID *string, cur catalogMatch) bool {
	if c := compareStringNullsLast(songID, cur.songID); c != 0 {
		return c < 0
	}
	return compareStringNullsLast(artistID, cur.artistID) < 0
}

func playBefore(a, b staging.Event) bool {
	if c := compareInt(a.TS, b.TS); c != 0 {
		return c < 0
	}
	if c := compareIntNullsLast(a.SessionID, b.SessionID); c != 0 {
		return c < 0
	}
	if c := compareIntNullsLast(a.ItemInSession, b.ItemInSession); c != 0 {
		return c < 0
	}
	for _, pair := range [][2]*string{
		{a.UserID, b.UserID},
		{a.Level, b.Level},
		{a.Song, b.Song},
		{a.Artist, b.Artist},
		{a.Location, b.Location},
		{a.UserAgent, b.UserAgent},
	} {
		if c := compareStringNullsLast(pair[0], pair[1]); c != 0 {
			return c < 0
		}
	}
	return false
}

// compareInt orders NULL below every value, mirroring DESC NULLS LAST
// when used to pick the greatest.
func compareInt(a, b *int64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}

// compareIntNullsLast orders NULL above every value, mirroring ASC NULLS LAST.
func compareIntNullsLast(a, b *int64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return compareInt(a, b)
}

func compareStringNullsLast(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}

func compareFloatNullsLast(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}
