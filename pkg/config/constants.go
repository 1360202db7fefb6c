package config

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "MERCATA_DB_DSN"
	EnvDBHost = "MERCATA_DB_HOST"
	EnvDBUser = "MERCATA_DB_USER"
	EnvDBName = "MERCATA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
