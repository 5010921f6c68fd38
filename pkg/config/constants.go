package config

// EnvPrefix is the envconfig namespace shared by every binary.
const EnvPrefix = "PIXKEYS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "PIXKEYS_DB_DSN"
	EnvDBHost = "PIXKEYS_DB_HOST"
	EnvDBUser = "PIXKEYS_DB_USER"
	EnvDBName = "PIXKEYS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
