package config

const (
	// EnvPrefix namespaces every Kaçlıra environment variable.
	EnvPrefix = "KACLIRA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "KACLIRA_DB_DSN"
	EnvDBHost = "KACLIRA_DB_HOST"
	EnvDBUser = "KACLIRA_DB_USER"
	EnvDBName = "KACLIRA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
