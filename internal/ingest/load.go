package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/angelmondragon/sparkify-dwh/internal/staging"
	wh "github.com/angelmondragon/sparkify-dwh/internal/warehouse"
	pkgerrors "github.com/angelmondragon/sparkify-dwh/pkg/errors"
	"github.com/angelmondragon/sparkify-dwh/pkg/logger"
	"github.com/angelmondragon/sparkify-dwh/pkg/storage/gcs"
	"github.com/angelmondragon/sparkify-dwh/pkg/storage/s3"
)

const defaultBatchSize = 500

// decoder streams the rows of one source object to emit.
type decoder func(r io.Reader, emit func(map[string]any) error) error

func eventRows(r io.Reader, emit func(map[string]any) error) error {
	return staging.DecodeEvents(r, func(e staging.Event) error { return emit(e.Row()) })
}

func songRows(r io.Reader, emit func(map[string]any) error) error {
	return staging.DecodeSongs(r, func(s staging.Song) error { return emit(s.Row()) })
}

// Loader fills staging tables client side: it lists the JSON objects under
// a location, decodes them and appends the rows in batches.
type Loader struct {
	store     wh.Store
	stores    map[string]ObjectStore
	batchSize int
	logg      *logger.Logger
}

func NewLoader(store wh.Store, stores map[string]ObjectStore, batchSize int, logg *logger.Logger) *Loader {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if stores == nil {
		stores = map[string]ObjectStore{}
	}
	if _, ok := stores[SchemeFile]; !ok {
		stores[SchemeFile] = LocalStore{}
	}
	return &Loader{store: store, stores: stores, batchSize: batchSize, logg: logg}
}

// Load appends every record found under uri to table and returns the number
// of rows written.
func (l *Loader) Load(ctx context.Context, table, uri string) (int64, error) {
	var def wh.TableDef
	var decode decoder
	switch table {
	case staging.EventsTable:
		def, decode = staging.EventsDef(), eventRows
	case staging.SongsTable:
		def, decode = staging.SongsDef(), songRows
	default:
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "no loader for table "+table)
	}

	loc, err := ParseLocation(uri)
	if err != nil {
		return 0, err
	}
	objects, ok := l.stores[loc.Scheme]
	if !ok {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("no object store configured for %s://", loc.Scheme))
	}

	keys, err := objects.List(ctx, loc.Bucket, loc.Prefix)
	if err != nil {
		return 0, sourceError(err, "listing "+loc.String())
	}

	ctx = l.logg.WithTable(ctx, table)
	batch := make([]map[string]any, 0, l.batchSize)
	var written int64
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := l.store.InsertRows(ctx, table, batch); err != nil {
			return err
		}
		written += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	files := 0
	for _, key := range keys {
		if !isJSONObject(key) {
			continue
		}
		files++

		var flushErr error
		err := l.readObject(ctx, objects, loc.Bucket, key, decode, func(row map[string]any) error {
			staging.TruncateColumns(def, row)
			batch = append(batch, row)
			if len(batch) >= l.batchSize {
				flushErr = flush()
				return flushErr
			}
			return nil
		})
		switch {
		case flushErr != nil:
			return written, pkgerrors.Classify(flushErr, pkgerrors.CodeInternal, "inserting into "+table)
		case err != nil:
			return written, err
		}
	}
	if err := flush(); err != nil {
		return written, pkgerrors.Classify(err, pkgerrors.CodeInternal, "inserting into "+table)
	}

	if files == 0 {
		l.logg.Warn(l.logg.WithField(ctx, "location", loc.String()), "no source objects found")
	}
	l.logg.Info(l.logg.WithFields(ctx, map[string]any{"objects": files, "rows": written}), "staging table loaded")
	return written, nil
}

func (l *Loader) readObject(ctx context.Context, objects ObjectStore, bucket, key string, decode decoder, emit func(map[string]any) error) error {
	rc, err := objects.Open(ctx, bucket, key)
	if err != nil {
		return sourceError(err, "opening "+key)
	}
	defer func() { _ = rc.Close() }()

	if err := decode(rc, emit); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding "+key)
	}
	return nil
}

func sourceError(err error, msg string) error {
	if errors.Is(err, s3.ErrObjectNotFound) || errors.Is(err, gcs.ErrObjectNotFound) || errors.Is(err, fs.ErrNotExist) {
		return pkgerrors.Wrap(pkgerrors.CodeSourceUnavailable, err, msg)
	}
	return pkgerrors.Classify(err, pkgerrors.CodeDependency, msg)
}
