package starschema

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Read loads a materialized star schema from a SQL warehouse, each table
// ordered by its key.
func Read(ctx context.Context, conn *gorm.DB) (Schema, error) {
	var s Schema
	conn = conn.WithContext(ctx)

	reads := []struct {
		order string
		dest  any
	}{
		{"user_id", &s.Users},
		{"artist_id", &s.Artists},
		{"song_id", &s.Songs},
		{"start_time", &s.Time},
		{"songplay_id", &s.Songplays},
	}
	for _, r := range reads {
		if err := conn.Order(r.order).Find(r.dest).Error; err != nil {
			return Schema{}, fmt.Errorf("reading %T: %w", r.dest, err)
		}
	}

	for i := range s.Time {
		s.Time[i].StartTime = s.Time[i].StartTime.UTC()
	}
	for i := range s.Songplays {
		s.Songplays[i].StartTime = s.Songplays[i].StartTime.UTC()
	}
	return s, nil
}
