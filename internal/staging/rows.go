package staging

import (
	"unicode/utf8"

	"github.com/angelmondragon/sparkify-dwh/internal/warehouse"
)

// Event is one raw log record. Nil pointers are SQL NULLs.
type Event struct {
	Artist        *string  `gorm:"column:artist"`
	Auth          *string  `gorm:"column:auth"`
	FirstName     *string  `gorm:"column:first_name"`
	Gender        *string  `gorm:"column:gender"`
	ItemInSession *int64   `gorm:"column:item_in_session"`
	LastName      *string  `gorm:"column:last_name"`
	Length        *float64 `gorm:"column:length"`
	Level         *string  `gorm:"column:level"`
	Location      *string  `gorm:"column:location"`
	Method        *string  `gorm:"column:method"`
	Page          *string  `gorm:"column:page"`
	Registration  *float64 `gorm:"column:registration"`
	SessionID     *int64   `gorm:"column:session_id"`
	Song          *string  `gorm:"column:song"`
	Status        *int64   `gorm:"column:status"`
	TS            *int64   `gorm:"column:ts"`
	UserAgent     *string  `gorm:"column:user_agent"`
	UserID        *string  `gorm:"column:user_id"`
}

func (Event) TableName() string { return EventsTable }

// Row maps the event onto staging_events columns.
func (e Event) Row() map[string]any {
	return map[string]any{
		"artist":          ptrValue(e.Artist),
		"auth":            ptrValue(e.Auth),
		"first_name":      ptrValue(e.FirstName),
		"gender":          ptrValue(e.Gender),
		"item_in_session": ptrValue(e.ItemInSession),
		"last_name":       ptrValue(e.LastName),
		"length":          ptrValue(e.Length),
		"level":           ptrValue(e.Level),
		"location":        ptrValue(e.Location),
		"method":          ptrValue(e.Method),
		"page":            ptrValue(e.Page),
		"registration":    ptrValue(e.Registration),
		"session_id":      ptrValue(e.SessionID),
		"song":            ptrValue(e.Song),
		"status":          ptrValue(e.Status),
		"ts":              ptrValue(e.TS),
		"user_agent":      ptrValue(e.UserAgent),
		"user_id":         ptrValue(e.UserID),
	}
}

// IsPlayback reports whether the event qualifies as a song playback.
func (e Event) IsPlayback() bool {
	return e.Page != nil && *e.Page == PageNextSong && e.TS != nil
}

// Song is one catalog record.
type Song struct {
	NumSongs        *int64   `gorm:"column:num_songs"`
	ArtistID        *string  `gorm:"column:artist_id"`
	ArtistLatitude  *float64 `gorm:"column:artist_latitude"`
	ArtistLongitude *float64 `gorm:"column:artist_longitude"`
	ArtistLocation  *string  `gorm:"column:artist_location"`
	ArtistName      *string  `gorm:"column:artist_name"`
	SongID          *string  `gorm:"column:song_id"`
	Title           *string  `gorm:"column:title"`
	Duration        *float64 `gorm:"column:duration"`
	Year            *int64   `gorm:"column:year"`
}

func (Song) TableName() string { return SongsTable }

// Row maps the song onto staging_songs columns.
func (s Song) Row() map[string]any {
	return map[string]any{
		"num_songs":        ptrValue(s.NumSongs),
		"artist_id":        ptrValue(s.ArtistID),
		"artist_latitude":  ptrValue(s.ArtistLatitude),
		"artist_longitude": ptrValue(s.ArtistLongitude),
		"artist_location":  ptrValue(s.ArtistLocation),
		"artist_name":      ptrValue(s.ArtistName),
		"song_id":          ptrValue(s.SongID),
		"title":            ptrValue(s.Title),
		"duration":         ptrValue(s.Duration),
		"year":             ptrValue(s.Year),
	}
}

// TruncateColumns clips string values to their declared width on a rune
// boundary, the client-side equivalent of COPY ... TRUNCATECOLUMNS.
func TruncateColumns(def warehouse.TableDef, row map[string]any) {
	for _, col := range def.Columns {
		if col.Type.Kind != warehouse.TypeVarchar || col.Type.Length <= 0 {
			continue
		}
		s, ok := row[col.Name].(string)
		if !ok || len(s) <= col.Type.Length {
			continue
		}
		cut := col.Type.Length
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		row[col.Name] = s[:cut]
	}
}

func String(v string) *string    { return &v }
func Int64(v int64) *int64       { return &v }
func Float64(v float64) *float64 { return &v }

func ptrValue[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
