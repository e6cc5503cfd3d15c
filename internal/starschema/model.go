// Package starschema holds the star schema row types and a pure Go
// rendition of the transform rules used to check engine output.
package starschema

import "time"

const (
	UsersTable     = "users"
	ArtistsTable   = "artists"
	SongsTable     = "songs"
	TimeTable      = "time"
	SongplaysTable = "songplays"
)

type User struct {
	UserID    string  `gorm:"column:user_id"`
	FirstName *string `gorm:"column:first_name"`
	LastName  *string `gorm:"column:last_name"`
	Gender    *string `gorm:"column:gender"`
	Level     *string `gorm:"column:level"`
}

func (User) TableName() string { return UsersTable }

type Artist struct {
	ArtistID  string   `gorm:"column:artist_id"`
	Name      *string  `gorm:"column:name"`
	Location  *string  `gorm:"column:location"`
	Latitude  *float64 `gorm:"column:latitude"`
	Longitude *float64 `gorm:"column:longitude"`
}

func (Artist) TableName() string { return ArtistsTable }

type Song struct {
	SongID   string   `gorm:"column:song_id"`
	Title    *string  `gorm:"column:title"`
	ArtistID *string  `gorm:"column:artist_id"`
	Year     *int64   `gorm:"column:year"`
	Duration *float64 `gorm:"column:duration"`
}

func (Song) TableName() string { return SongsTable }

type Time struct {
	StartTime time.Time `gorm:"column:start_time"`
	Hour      int       `gorm:"column:hour"`
	Day       int       `gorm:"column:day"`
	Week      int       `gorm:"column:week"`
	Month     int       `gorm:"column:month"`
	Year      int       `gorm:"column:year"`
	Weekday   int       `gorm:"column:weekday"`
}

func (Time) TableName() string { return TimeTable }

type Songplay struct {
	SongplayID int64     `gorm:"column:songplay_id"`
	StartTime  time.Time `gorm:"column:start_time"`
	UserID     string    `gorm:"column:user_id"`
	Level      *string   `gorm:"column:level"`
	SongID     *string   `gorm:"column:song_id"`
	ArtistID   *string   `gorm:"column:artist_id"`
	SessionID  *int64    `gorm:"column:session_id"`
	Location   *string   `gorm:"column:location"`
	UserAgent  *string   `gorm:"column:user_agent"`
}

func (Songplay) TableName() string { return SongplaysTable }

// Schema is one full set of target rows, each slice sorted by its key.
type Schema struct {
	Users     []User
	Artists   []Artist
	Songs     []Song
	Time      []Time
	Songplays []Songplay
}
