package staging

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Source records are loosely typed: numbers sometimes arrive quoted, and
// blank strings mean "absent". The flex types normalise both.

type flexString struct{ v *string }

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if isNull(b) {
		f.v = nil
		return nil
	}
	var s string
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		s = string(b)
	}
	if strings.TrimSpace(s) == "" {
		f.v = nil
		return nil
	}
	f.v = &s
	return nil
}

type flexInt struct{ v *int64 }

func (f *flexInt) UnmarshalJSON(b []byte) error {
	raw, ok, err := numericText(b)
	if err != nil || !ok {
		f.v = nil
		return err
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		f.v = &n
		return nil
	}
	// 1.541e12 style integers
	fl, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %q", raw)
	}
	n := int64(fl)
	f.v = &n
	return nil
}

type flexFloat struct{ v *float64 }

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	raw, ok, err := numericText(b)
	if err != nil || !ok {
		f.v = nil
		return err
	}
	fl, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q", raw)
	}
	f.v = &fl
	return nil
}

func numericText(b []byte) (string, bool, error) {
	b = bytes.TrimSpace(b)
	if isNull(b) {
		return "", false, nil
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return "", false, err
		}
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, nil
	}
	return raw, true, nil
}

func isNull(b []byte) bool {
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}

type wireEvent struct {
	Artist        flexString `json:"artist"`
	Auth          flexString `json:"auth"`
	FirstName     flexString `json:"firstName"`
	Gender        flexString `json:"gender"`
	ItemInSession flexInt    `json:"itemInSession"`
	LastName      flexString `json:"lastName"`
	Length        flexFloat  `json:"length"`
	Level         flexString `json:"level"`
	Location      flexString `json:"location"`
	Method        flexString `json:"method"`
	Page          flexString `json:"page"`
	Registration  flexFloat  `json:"registration"`
	SessionID     flexInt    `json:"sessionId"`
	Song          flexString `json:"song"`
	Status        flexInt    `json:"status"`
	TS            flexInt    `json:"ts"`
	UserAgent     flexString `json:"userAgent"`
	UserID        flexString `json:"userId"`
}

func (w wireEvent) event() Event {
	return Event{
		Artist:        w.Artist.v,
		Auth:          w.Auth.v,
		FirstName:     w.FirstName.v,
		Gender:        w.Gender.v,
		ItemInSession: w.ItemInSession.v,
		LastName:      w.LastName.v,
		Length:        w.Length.v,
		Level:         w.Level.v,
		Location:      w.Location.v,
		Method:        w.Method.v,
		Page:          w.Page.v,
		Registration:  w.Registration.v,
		SessionID:     w.SessionID.v,
		Song:          w.Song.v,
		Status:        w.Status.v,
		TS:            w.TS.v,
		UserAgent:     w.UserAgent.v,
		UserID:        w.UserID.v,
	}
}

type wireSong struct {
	NumSongs        flexInt    `json:"num_songs"`
	ArtistID        flexString `json:"artist_id"`
	ArtistLatitude  flexFloat  `json:"artist_latitude"`
	ArtistLongitude flexFloat  `json:"artist_longitude"`
	ArtistLocation  flexString `json:"artist_location"`
	ArtistName      flexString `json:"artist_name"`
	SongID          flexString `json:"song_id"`
	Title           flexString `json:"title"`
	Duration        flexFloat  `json:"duration"`
	Year            flexInt    `json:"year"`
}

func (w wireSong) song() Song {
	return Song{
		NumSongs:        w.NumSongs.v,
		ArtistID:        w.ArtistID.v,
		ArtistLatitude:  w.ArtistLatitude.v,
		ArtistLongitude: w.ArtistLongitude.v,
		ArtistLocation:  w.ArtistLocation.v,
		ArtistName:      w.ArtistName.v,
		SongID:          w.SongID.v,
		Title:           w.Title.v,
		Duration:        w.Duration.v,
		Year:            w.Year.v,
	}
}

// DecodeEvents streams every event record in r to fn. Records may be
// newline-delimited or simply concatenated.
func DecodeEvents(r io.Reader, fn func(Event) error) error {
	return decodeStream(r, func(dec *json.Decoder) error {
		var w wireEvent
		if err := dec.Decode(&w); err != nil {
			return err
		}
		return fn(w.event())
	})
}

// DecodeSongs streams every catalog record in r to fn.
func DecodeSongs(r io.Reader, fn func(Song) error) error {
	return decodeStream(r, func(dec *json.Decoder) error {
		var w wireSong
		if err := dec.Decode(&w); err != nil {
			return err
		}
		return fn(w.song())
	})
}

func decodeStream(r io.Reader, next func(*json.Decoder) error) error {
	dec := json.NewDecoder(r)
	for record := 1; ; record++ {
		if !dec.More() {
			return nil
		}
		if err := next(dec); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("record %d: %w", record, err)
		}
	}
}
