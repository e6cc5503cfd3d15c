package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	Warehouse WarehouseConfig
	Ingest    IngestConfig
	AWS       AWSConfig
	GCP       GCPConfig
	Redis     RedisConfig
	Lock      LockConfig
	PubSub    PubSubConfig
	Metrics   MetricsConfig
	Ledger    LedgerConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Warehouse.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Ingest.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DWH_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"DWH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DWH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

type WarehouseConfig struct {
	Driver string `envconfig:"DWH_WAREHOUSE_DRIVER" default:"redshift"`
	DSN    string `envconfig:"DWH_WAREHOUSE_DSN"`
	// Schema is the BigQuery dataset holding every relation.
	Schema string `envconfig:"DWH_WAREHOUSE_SCHEMA" default:"sparkify"`

	LegacyHost     string `envconfig:"DWH_DB_HOST"`
	LegacyPort     int    `envconfig:"DWH_DB_PORT" default:"5439"`
	LegacyUser     string `envconfig:"DWH_DB_USER"`
	LegacyPassword string `envconfig:"DWH_DB_PASSWORD"`
	LegacyName     string `envconfig:"DWH_DB_NAME"`
	LegacySSLMode  string `envconfig:"DWH_DB_SSLMODE" default:"require"`

	MaxOpenConns    int           `envconfig:"DWH_WAREHOUSE_MAX_OPEN_CONNS" default:"8"`
	MaxIdleConns    int           `envconfig:"DWH_WAREHOUSE_MAX_IDLE_CONNS" default:"4"`
	ConnMaxLifetime time.Duration `envconfig:"DWH_WAREHOUSE_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DWH_WAREHOUSE_CONN_MAX_IDLE_TIME" default:"10m"`

	StatementTimeout     time.Duration `envconfig:"DWH_WAREHOUSE_STATEMENT_TIMEOUT" default:"0s"`
	ConcurrentDimensions bool          `envconfig:"DWH_WAREHOUSE_CONCURRENT_DIMENSIONS" default:"true"`
}

// IsSQL reports whether the configured driver speaks database/sql.
func (w WarehouseConfig) IsSQL() bool {
	switch w.NormalizedDriver() {
	case DriverRedshift, DriverPostgres, DriverSQLite:
		return true
	}
	return false
}

// NormalizedDriver returns the lower-cased driver name.
func (w WarehouseConfig) NormalizedDriver() string {
	return strings.ToLower(strings.TrimSpace(w.Driver))
}

type IngestConfig struct {
	Mode            string `envconfig:"DWH_INGEST_MODE" default:"copy" validate:"oneof=copy load"`
	EventsURI       string `envconfig:"DWH_INGEST_EVENTS_URI" default:"s3://udacity-dend/log_data" validate:"required"`
	SongsURI        string `envconfig:"DWH_INGEST_SONGS_URI" default:"s3://udacity-dend/song_data" validate:"required"`
	EventsJSONPaths string `envconfig:"DWH_INGEST_EVENTS_JSONPATHS" default:"s3://udacity-dend/log_json_path.json"`
	Region          string `envconfig:"DWH_INGEST_REGION" default:"us-west-2" validate:"required"`
	// IAMRoleARN is handed to the warehouse COPY untouched.
	IAMRoleARN string `envconfig:"DWH_INGEST_IAM_ROLE_ARN" validate:"required_if=Mode copy"`
	BatchSize  int    `envconfig:"DWH_INGEST_BATCH_SIZE" default:"500" validate:"gte=1,lte=10000"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the ingest settings against their struct tags.
func (i IngestConfig) Validate() error {
	if err := validate.Struct(i); err != nil {
		return fmt.Errorf("invalid ingest config: %w", err)
	}
	return nil
}

type AWSConfig struct {
	Region          string `envconfig:"DWH_AWS_REGION" default:"us-west-2"`
	AccessKeyID     string `envconfig:"DWH_AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"DWH_AWS_SECRET_ACCESS_KEY"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"DWH_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"DWH_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"DWH_GOOGLE_APPLICATION_CREDENTIALS"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DWH_REDIS_URL"`
	Address      string        `envconfig:"DWH_REDIS_ADDR"`
	Password     string        `envconfig:"DWH_REDIS_PASSWORD"`
	DB           int           `envconfig:"DWH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DWH_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"DWH_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"DWH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DWH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DWH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type LockConfig struct {
	KeyPrefix string        `envconfig:"DWH_LOCK_KEY_PREFIX" default:"dwh:run-lock"`
	TTL       time.Duration `envconfig:"DWH_LOCK_TTL" default:"6h"`
}

type PubSubConfig struct {
	RunEventsTopic string `envconfig:"DWH_PUBSUB_RUN_EVENTS_TOPIC"`
}

type MetricsConfig struct {
	PushgatewayURL string `envconfig:"DWH_METRICS_PUSHGATEWAY_URL"`
	JobName        string `envconfig:"DWH_METRICS_JOB_NAME" default:"sparkify_etl"`
}

type LedgerConfig struct {
	Enabled     bool `envconfig:"DWH_LEDGER_ENABLED" default:"true"`
	AutoMigrate bool `envconfig:"DWH_AUTO_MIGRATE" default:"false"`
}

func (w *WarehouseConfig) ensureDSN() error {
	switch w.NormalizedDriver() {
	case DriverRedshift, DriverPostgres:
	case DriverSQLite:
		if w.DSN == "" {
			return fmt.Errorf("%s is required for the sqlite driver", EnvWarehouseDSN)
		}
		return nil
	case DriverBigQuery:
		return nil
	default:
		return fmt.Errorf("unsupported warehouse driver %q", w.Driver)
	}

	if w.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: w.LegacyHost,
		EnvDBUser: w.LegacyUser,
		EnvDBName: w.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvWarehouseDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(w.LegacyUser)
	if w.LegacyPassword != "" {
		userInfo = url.UserPassword(w.LegacyUser, w.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", w.LegacyHost, w.LegacyPort),
		Path:   w.LegacyName,
	}

	if w.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", w.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	w.DSN = u.String()
	return nil
}
