package config

const (
	EnvPrefix = "FARMFRESH"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

// Environment variable names referenced outside of struct tags.
const (
	EnvAppEnv              = "FARMFRESH_APP_ENV"
	EnvPort                = "FARMFRESH_APP_PORT"
	EnvDBDSN               = "FARMFRESH_DB_DSN"
	EnvDBDriver            = "FARMFRESH_DB_DRIVER"
	EnvDBHost              = "FARMFRESH_DB_HOST"
	EnvDBUser              = "FARMFRESH_DB_USER"
	EnvDBName              = "FARMFRESH_DB_NAME"
	EnvDBPassword          = "FARMFRESH_DB_PASSWORD"
	EnvRedisURL            = "FARMFRESH_REDIS_URL"
	EnvJWTSecret           = "FARMFRESH_JWT_SECRET"
	EnvJWTIssuer           = "FARMFRESH_JWT_ISSUER"
	EnvCheckoutCurrency    = "FARMFRESH_CHECKOUT_CURRENCY"
	EnvCheckoutDeliveryFee = "FARMFRESH_CHECKOUT_DELIVERY_FEE"
	EnvReconcileTx         = "FARMFRESH_RECONCILE_TRANSACTIONAL"
	EnvPubSubOrdersTopic   = "FARMFRESH_PUBSUB_ORDERS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
