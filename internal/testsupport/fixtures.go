// Package testsupport holds fixtures and a throwaway SQLite warehouse for
// package tests.
package testsupport

import "github.com/angelmondragon/sparkify-dwh/internal/staging"

const (
	// CanonicalTS is 2018-11-12 02:42:24.796 UTC.
	CanonicalTS int64 = 1541990544796
	earlierTS   int64 = 1541990258796
)

func playback(user, level string, ts, session, item int64, song, artist string) staging.Event {
	return staging.Event{
		Artist:        staging.String(artist),
		Auth:          staging.String("Logged In"),
		FirstName:     staging.String("First" + user),
		Gender:        staging.String("F"),
		ItemInSession: staging.Int64(item),
		LastName:      staging.String("Last" + user),
		Length:        staging.Float64(201.5),
		Level:         staging.String(level),
		Location:      staging.String("San Jose-Sunnyvale-Santa Clara, CA"),
		Method:        staging.String("PUT"),
		Page:          staging.String(staging.PageNextSong),
		Registration:  staging.Float64(1540266185796),
		SessionID:     staging.Int64(session),
		Song:          staging.String(song),
		Status:        staging.Int64(200),
		TS:            staging.Int64(ts),
		UserAgent:     staging.String("Mozilla/5.0"),
		UserID:        staging.String(user),
	}
}

func login(user, level string, ts int64) staging.Event {
	return staging.Event{
		Auth:          staging.String("Logged In"),
		FirstName:     staging.String("First" + user),
		LastName:      staging.String("Last" + user),
		Gender:        staging.String("M"),
		ItemInSession: staging.Int64(0),
		Level:         staging.String(level),
		Method:        staging.String("PUT"),
		Page:          staging.String("Login"),
		SessionID:     staging.Int64(900),
		Status:        staging.Int64(307),
		TS:            staging.Int64(ts),
		UserID:        staging.String(user),
	}
}

// ScenarioEvents is three NextSong and two Login events for users 10 and 26.
// User 10 upgrades to paid on the later playback; a later Login as free
// must not count. Two playbacks share CanonicalTS.
func ScenarioEvents() []staging.Event {
	return []staging.Event{
		playback("10", "free", earlierTS, 345, 0, "Song One", "Artist A"),
		playback("10", "paid", CanonicalTS, 345, 1, "Unknown Song", "Nobody"),
		playback("26", "free", CanonicalTS, 400, 0, "Twin", "Artist A"),
		login("10", "free", CanonicalTS+60000),
		login("26", "paid", earlierTS-60000),
	}
}

// ExtendedEvents adds events that must be filtered or only feed time.
func ExtendedEvents() []staging.Event {
	events := ScenarioEvents()

	anonymous := playback("0", "free", CanonicalTS+120000, 12, 3, "Song One", "Artist A")
	anonymous.UserID = nil
	events = append(events, anonymous)

	noTS := playback("26", "paid", 0, 400, 1, "Song One", "Artist A")
	noTS.TS = nil
	events = append(events, noTS)

	home := playback("26", "paid", CanonicalTS+180000, 400, 2, "", "")
	home.Page = staging.String("Home")
	home.Song, home.Artist = nil, nil
	events = append(events, home)

	// case differs from the catalog, so it must not resolve
	shout := playback("26", "free", CanonicalTS+240000, 400, 3, "SONG ONE", "Artist A")
	events = append(events, shout)

	// NULL session and item sort after valued ones at equal ts
	nullSession := playback("10", "paid", CanonicalTS+240000, 0, 0, "Song Two", "Artist B")
	nullSession.SessionID, nullSession.ItemInSession = nil, nil
	events = append(events, nullSession)

	return events
}

func song(songID, artistID, artistName, title string, year int64, duration float64, location *string) staging.Song {
	return staging.Song{
		NumSongs:        staging.Int64(1),
		ArtistID:        staging.String(artistID),
		ArtistLatitude:  staging.Float64(40.7),
		ArtistLongitude: staging.Float64(-74.0),
		ArtistLocation:  location,
		ArtistName:      staging.String(artistName),
		SongID:          staging.String(songID),
		Title:           staging.String(title),
		Duration:        staging.Float64(duration),
		Year:            staging.Int64(year),
	}
}

// ScenarioSongs is a catalog where "Twin" by "Artist A" resolves to two
// songs, SOCCC (artist ARC) winning over SOZZZ, and SOAAA appears twice.
func ScenarioSongs() []staging.Song {
	noArtistSong := song("", "ARD", "Artist D", "Lonely", 1999, 100, nil)
	noArtistSong.SongID = nil

	return []staging.Song{
		song("SOAAA", "ARA", "Artist A", "Song One", 2001, 200.5, staging.String("NYC")),
		song("SOAAA", "ARA", "Artist A", "Song One", 2001, 199.0, staging.String("NYC")),
		song("SOBBB", "ARB", "Artist B", "Song Two", 0, 180, nil),
		song("SOZZZ", "ARA", "Artist A", "Twin", 2010, 210, staging.String("Boston")),
		song("SOCCC", "ARC", "Artist A", "Twin", 2011, 220, staging.String("LA")),
		noArtistSong,
	}
}
