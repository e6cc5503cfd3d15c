package ingest

import (
	"fmt"

	"github.com/angelmondragon/sparkify-dwh/internal/staging"
	wh "github.com/angelmondragon/sparkify-dwh/internal/warehouse"
	"github.com/angelmondragon/sparkify-dwh/pkg/config"
	pkgerrors "github.com/angelmondragon/sparkify-dwh/pkg/errors"
)

// CopyStatement renders a server side COPY of one staging table. Every
// embedded literal is validated and then quoted by the dialect.
func CopyStatement(d wh.Dialect, table string, cfg config.IngestConfig) (wh.Statement, error) {
	if !d.SupportsCopy() {
		return wh.Statement{}, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("copy ingest is not available on %s; use load mode", d))
	}

	var source, format string
	switch table {
	case staging.EventsTable:
		if cfg.EventsJSONPaths == "" {
			return wh.Statement{}, pkgerrors.New(pkgerrors.CodeValidation, "events copy requires a jsonpaths file")
		}
		if err := validS3URI(cfg.EventsJSONPaths); err != nil {
			return wh.Statement{}, err
		}
		source, format = cfg.EventsURI, d.QuoteLiteral(cfg.EventsJSONPaths)
	case staging.SongsTable:
		source, format = cfg.SongsURI, d.QuoteLiteral("auto")
	default:
		return wh.Statement{}, pkgerrors.New(pkgerrors.CodeValidation, "no copy source for table "+table)
	}

	if err := validS3URI(source); err != nil {
		return wh.Statement{}, err
	}
	if err := validRoleARN(cfg.IAMRoleARN); err != nil {
		return wh.Statement{}, err
	}
	if err := validRegion(cfg.Region); err != nil {
		return wh.Statement{}, err
	}

	sql := fmt.Sprintf("COPY %s FROM %s\nIAM_ROLE %s\nREGION %s\nFORMAT AS JSON %s\nBLANKSASNULL EMPTYASNULL TRUNCATECOLUMNS",
		d.Table(table),
		d.QuoteLiteral(source),
		d.QuoteLiteral(cfg.IAMRoleARN),
		d.QuoteLiteral(cfg.Region),
		format,
	)
	return wh.Statement{SQL: sql}, nil
}
