package config

// EnvPrefix is the envconfig prefix shared by every service binary.
const EnvPrefix = "AUCTIONHOUSE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names used directly by tests and DSN assembly.
const (
	EnvAppEnv   = "AUCTIONHOUSE_APP_ENV"
	EnvPort     = "AUCTIONHOUSE_APP_PORT"
	EnvDBDSN    = "AUCTIONHOUSE_DB_DSN"
	EnvDBHost   = "AUCTIONHOUSE_DB_HOST"
	EnvDBUser   = "AUCTIONHOUSE_DB_USER"
	EnvDBName   = "AUCTIONHOUSE_DB_NAME"
	EnvRedisURL = "AUCTIONHOUSE_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
