package staging

import "github.com/angelmondragon/sparkify-dwh/internal/warehouse"

func qualify(alias, column string) string {
	if alias == "" {
		return column
	}
	return alias + "." + column
}

// PlaybackWhere selects qualifying events: NextSong pages carrying a timestamp.
func PlaybackWhere(alias string) []warehouse.Fragment {
	return []warehouse.Fragment{
		warehouse.Frag(qualify(alias, "page")+" = ?", PageNextSong),
		warehouse.Frag(qualify(alias, "ts") + " IS NOT NULL"),
	}
}

// StartTime renders the whole-second start instant of an event.
func StartTime(d warehouse.Dialect, alias string) string {
	return d.EpochMillisToTimestamp(qualify(alias, "ts"))
}
