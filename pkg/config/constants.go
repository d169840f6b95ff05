package config

// EnvPrefix is intentionally empty; every field carries its fully
// qualified PRODFLOW_ variable name in its envconfig tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "PRODFLOW_DB_DSN"
	EnvDBHost = "PRODFLOW_DB_HOST"
	EnvDBUser = "PRODFLOW_DB_USER"
	EnvDBName = "PRODFLOW_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
