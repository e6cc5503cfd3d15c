// Package ingest populates the staging relations, either with a server side
// COPY on Redshift or by streaming the source objects through the client.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/sparkify-dwh/internal/staging"
	wh "github.com/angelmondragon/sparkify-dwh/internal/warehouse"
	"github.com/angelmondragon/sparkify-dwh/pkg/config"
	pkgerrors "github.com/angelmondragon/sparkify-dwh/pkg/errors"
	"github.com/angelmondragon/sparkify-dwh/pkg/logger"
	"github.com/angelmondragon/sparkify-dwh/pkg/storage/gcs"
	"github.com/angelmondragon/sparkify-dwh/pkg/storage/s3"
)

const (
	ModeCopy = "copy"
	ModeLoad = "load"
)

type Ingester struct {
	store  wh.Store
	loader *Loader
	cfg    config.IngestConfig
	logg   *logger.Logger
}

// New builds an ingester. The loader is only consulted in load mode.
func New(store wh.Store, loader *Loader, cfg config.IngestConfig, logg *logger.Logger) *Ingester {
	return &Ingester{store: store, loader: loader, cfg: cfg, logg: logg}
}

// Tables lists the staging relations ingest fills.
func Tables() []string {
	return []string{staging.EventsTable, staging.SongsTable}
}

func (i *Ingester) source(table string) string {
	if table == staging.EventsTable {
		return i.cfg.EventsURI
	}
	return i.cfg.SongsURI
}

// Ingest fills one staging table and returns its row count afterwards.
// Every table load commits before returning.
func (i *Ingester) Ingest(ctx context.Context, table string) (int64, error) {
	ctx = i.logg.WithTable(ctx, table)
	start := time.Now()

	switch i.cfg.Mode {
	case ModeCopy:
		stmt, err := CopyStatement(i.store.Dialect(), table, i.cfg)
		if err != nil {
			return 0, err
		}
		if err := i.store.Exec(ctx, stmt); err != nil {
			return 0, pkgerrors.Classify(err, pkgerrors.CodeDependency, "copy into "+table)
		}
	case ModeLoad:
		if i.loader == nil {
			return 0, pkgerrors.New(pkgerrors.CodeInternal, "load mode without a loader")
		}
		if _, err := i.loader.Load(ctx, table, i.source(table)); err != nil {
			return 0, err
		}
	default:
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown ingest mode %q", i.cfg.Mode))
	}

	n, err := i.store.Count(ctx, table)
	if err != nil {
		return 0, pkgerrors.Classify(err, pkgerrors.CodeInternal, "count "+table)
	}
	i.logg.Info(i.logg.WithFields(ctx, map[string]any{
		"mode":        i.cfg.Mode,
		"rows":        n,
		"duration_ms": time.Since(start).Milliseconds(),
	}), "staging ingest finished")
	return n, nil
}

// CheckStaging fails with a source-unavailable error when either staging
// relation is missing. Empty relations are valid.
func CheckStaging(ctx context.Context, store wh.Store, logg *logger.Logger) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, table := range Tables() {
		exists, err := store.TableExists(ctx, table)
		if err != nil {
			return nil, pkgerrors.Classify(err, pkgerrors.CodeTransientStore, "checking "+table)
		}
		if !exists {
			return nil, pkgerrors.New(pkgerrors.CodeSourceUnavailable, fmt.Sprintf("staging relation %s does not exist", table))
		}
		n, err := store.Count(ctx, table)
		if err != nil {
			return nil, pkgerrors.Classify(err, pkgerrors.CodeSourceUnavailable, "counting "+table)
		}
		counts[table] = n
		logg.Info(logg.WithField(logg.WithTable(ctx, table), "rows", n), "staging relation ready")
	}
	return counts, nil
}

// ObjectStores opens a client for every remote scheme the configured
// locations use.
func ObjectStores(ctx context.Context, cfg *config.Config, logg *logger.Logger) (map[string]ObjectStore, error) {
	stores := map[string]ObjectStore{SchemeFile: LocalStore{}}
	for _, uri := range []string{cfg.Ingest.EventsURI, cfg.Ingest.SongsURI} {
		loc, err := ParseLocation(uri)
		if err != nil {
			return nil, err
		}
		if _, ok := stores[loc.Scheme]; ok {
			continue
		}
		switch loc.Scheme {
		case SchemeS3:
			client, err := s3.NewClient(ctx, cfg.AWS, logg)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "s3 client")
			}
			stores[SchemeS3] = client
		case SchemeGCS:
			client, err := gcs.NewClient(ctx, cfg.GCP, logg)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "gcs client")
			}
			stores[SchemeGCS] = client
		}
	}
	return stores, nil
}
