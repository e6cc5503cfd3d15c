package config

const (
	EnvPrefix = "DWH"

	AppEnvDev = "dev"

	DriverRedshift = "redshift"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverBigQuery = "bigquery"

	IngestModeCopy = "copy"
	IngestModeLoad = "load"
)

const (
	EnvAppEnv          = "DWH_APP_ENV"
	EnvWarehouseDriver = "DWH_WAREHOUSE_DRIVER"
	EnvWarehouseDSN    = "DWH_WAREHOUSE_DSN"
	EnvDBHost          = "DWH_DB_HOST"
	EnvDBUser          = "DWH_DB_USER"
	EnvDBPassword      = "DWH_DB_PASSWORD"
	EnvDBName          = "DWH_DB_NAME"
	EnvIngestMode      = "DWH_INGEST_MODE"
	EnvIngestRoleARN   = "DWH_INGEST_IAM_ROLE_ARN"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
