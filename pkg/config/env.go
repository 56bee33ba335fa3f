package config

const (
	EnvPrefix = "TUCOSTO"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv            = "TUCOSTO_APP_ENV"
	EnvPort              = "TUCOSTO_APP_PORT"
	EnvSessionStore      = "TUCOSTO_SESSION_STORE"
	EnvSessionTTL        = "TUCOSTO_SESSION_TTL"
	EnvRedisURL          = "TUCOSTO_REDIS_URL"
	EnvRedisAddr         = "TUCOSTO_REDIS_ADDR"
	EnvGoogleSheetID     = "TUCOSTO_GOOGLE_SHEET_ID"
	EnvGoogleExportSheet = "TUCOSTO_GOOGLE_EXPORT_SHEET_NAME"
	EnvCatalogSource     = "TUCOSTO_CATALOG_SOURCE"
	EnvCatalogCacheTTL   = "TUCOSTO_CATALOG_CACHE_TTL"
	EnvCatalogMissPolicy = "TUCOSTO_CATALOG_MISS_POLICY"
)
