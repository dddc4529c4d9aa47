package config

const (
	// EnvPrefix is handed to envconfig; every field also names its full variable.
	EnvPrefix = "PAINTSIP"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "PAINTSIP_APP_ENV"
	EnvPort                   = "PAINTSIP_APP_PORT"
	EnvDBDSN                  = "PAINTSIP_DB_DSN"
	EnvDBHost                 = "PAINTSIP_DB_HOST"
	EnvDBUser                 = "PAINTSIP_DB_USER"
	EnvDBName                 = "PAINTSIP_DB_NAME"
	EnvRedisURL               = "PAINTSIP_REDIS_URL"
	EnvRedisAddr              = "PAINTSIP_REDIS_ADDR"
	EnvJWTSecret              = "PAINTSIP_JWT_SECRET"
	EnvJWTIssuer              = "PAINTSIP_JWT_ISSUER"
	EnvJWTExpMins             = "PAINTSIP_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "PAINTSIP_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "PAINTSIP_GCP_PROJECT_ID"
	EnvGCSBucket              = "PAINTSIP_GCS_BUCKET_NAME"
	EnvStripeEnv              = "PAINTSIP_STRIPE_ENV"
	EnvStripeAPIKey           = "PAINTSIP_STRIPE_API_KEY"
	EnvCheckoutPendingTTL     = "PAINTSIP_CHECKOUT_PENDING_TTL"
	EnvPubSubBookingsTopic    = "PAINTSIP_PUBSUB_BOOKINGS_TOPIC"
)
