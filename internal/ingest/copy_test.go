package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/sparkify-dwh/internal/staging"
	wh "github.com/angelmondragon/sparkify-dwh/internal/warehouse"
	"github.com/angelmondragon/sparkify-dwh/pkg/config"
	pkgerrors "github.com/angelmondragon/sparkify-dwh/pkg/errors"
)

func copyConfig() config.IngestConfig {
	return config.IngestConfig{
		Mode:            ModeCopy,
		EventsURI:       "s3://udacity-dend/log_data",
		SongsURI:        "s3://udacity-dend/song_data",
		EventsJSONPaths: "s3://udacity-dend/log_json_path.json",
		Region:          "us-west-2",
		IAMRoleARN:      "arn:aws:iam::123456789012:role/dwhRole",
	}
}

var redshift = wh.Dialect{Kind: wh.KindRedshift}

func TestCopyEvents(t *testing.T) {
	stmt, err := CopyStatement(redshift, staging.EventsTable, copyConfig())
	require.NoError(t, err)

	assert.Equal(t, `COPY "staging_events" FROM 's3://udacity-dend/log_data'
IAM_ROLE 'arn:aws:iam::123456789012:role/dwhRole'
REGION 'us-west-2'
FORMAT AS JSON 's3://udacity-dend/log_json_path.json'
BLANKSASNULL EMPTYASNULL TRUNCATECOLUMNS`, stmt.SQL)
	assert.Empty(t, stmt.Args)
}

func TestCopySongsUsesAuto(t *testing.T) {
	stmt, err := CopyStatement(redshift, staging.SongsTable, copyConfig())
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, `FROM 's3://udacity-dend/song_data'`)
	assert.Contains(t, stmt.SQL, `FORMAT AS JSON 'auto'`)
}

func TestCopyRejectsUnsafeValues(t *testing.T) {
	cases := map[string]func(*config.IngestConfig){
		"quote in uri":     func(c *config.IngestConfig) { c.EventsURI = "s3://udacity-dend/log_data' CREDENTIALS 'x" },
		"non s3 uri":       func(c *config.IngestConfig) { c.EventsURI = "gs://bucket/log_data" },
		"malformed arn":    func(c *config.IngestConfig) { c.IAMRoleARN = "arn:aws:iam::123:role/x'" },
		"empty arn":        func(c *config.IngestConfig) { c.IAMRoleARN = "" },
		"bad region":       func(c *config.IngestConfig) { c.Region = "us-west-2'; DROP TABLE users; --" },
		"missing jsonpath": func(c *config.IngestConfig) { c.EventsJSONPaths = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := copyConfig()
			mutate(&cfg)
			_, err := CopyStatement(redshift, staging.EventsTable, cfg)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
		})
	}
}

func TestCopyNeedsRedshift(t *testing.T) {
	for _, kind := range []wh.Kind{wh.KindPostgres, wh.KindSQLite} {
		_, err := CopyStatement(wh.Dialect{Kind: kind}, staging.SongsTable, copyConfig())
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	}
}

func TestParseLocation(t *testing.T) {
	cases := []struct {
		in   string
		want Location
	}{
		{"s3://udacity-dend/log_data", Location{Scheme: SchemeS3, Bucket: "udacity-dend", Prefix: "log_data"}},
		{"gs://bucket/song_data/", Location{Scheme: SchemeGCS, Bucket: "bucket", Prefix: "song_data/"}},
		{"file:///tmp/data", Location{Scheme: SchemeFile, Prefix: "/tmp/data"}},
		{"./data/log_data", Location{Scheme: SchemeFile, Prefix: "./data/log_data"}},
	}
	for _, tc := range cases {
		got, err := ParseLocation(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}

	for _, bad := range []string{"", "ftp://host/x", "s3:///nobucket"} {
		_, err := ParseLocation(bad)
		assert.Error(t, err, bad)
	}
}
