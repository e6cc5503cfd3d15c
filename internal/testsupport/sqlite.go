package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/angelmondragon/sparkify-dwh/internal/staging"
	"github.com/angelmondragon/sparkify-dwh/internal/warehouse"
	"github.com/angelmondragon/sparkify-dwh/pkg/config"
	"github.com/angelmondragon/sparkify-dwh/pkg/db"
)

// SQLiteConfig returns a warehouse config backed by a temp-file database
// with foreign keys enforced.
func SQLiteConfig(t testing.TB) config.WarehouseConfig {
	t.Helper()
	return config.WarehouseConfig{
		Driver:               config.DriverSQLite,
		DSN:                  "file:" + filepath.Join(t.TempDir(), "dwh.db") + "?_fk=1",
		ConcurrentDimensions: true,
	}
}

// OpenSQLite opens a fresh warehouse closed at test cleanup.
func OpenSQLite(t testing.TB) *warehouse.SQLStore {
	t.Helper()
	return OpenSQLiteWith(t, SQLiteConfig(t))
}

func OpenSQLiteWith(t testing.TB, cfg config.WarehouseConfig) *warehouse.SQLStore {
	t.Helper()
	client, err := db.New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("open sqlite warehouse: %v", err)
	}
	store := warehouse.NewSQLStore(client, warehouse.Dialect{Kind: warehouse.KindSQLite}, 0)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// CreateStaging creates both staging relations.
func CreateStaging(t testing.TB, store warehouse.Store) {
	t.Helper()
	for _, def := range staging.Defs() {
		if err := store.Exec(context.Background(), store.Dialect().CreateTable(def)); err != nil {
			t.Fatalf("create %s: %v", def.Name, err)
		}
	}
}

// LoadStaging appends the given rows to the existing staging relations.
func LoadStaging(t testing.TB, store warehouse.Store, events []staging.Event, songs []staging.Song) {
	t.Helper()
	ctx := context.Background()

	eventRows := make([]map[string]any, 0, len(events))
	for _, e := range events {
		eventRows = append(eventRows, e.Row())
	}
	if err := store.InsertRows(ctx, staging.EventsTable, eventRows); err != nil {
		t.Fatalf("load staging events: %v", err)
	}

	songRows := make([]map[string]any, 0, len(songs))
	for _, s := range songs {
		songRows = append(songRows, s.Row())
	}
	if err := store.InsertRows(ctx, staging.SongsTable, songRows); err != nil {
		t.Fatalf("load staging songs: %v", err)
	}
}
