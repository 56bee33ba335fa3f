package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/deliotti/tucosto-backend/pkg/enums"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	Session   SessionConfig
	Redis     RedisConfig
	Google    GoogleConfig
	Catalog   CatalogConfig
	Report    ReportConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env             string        `envconfig:"TUCOSTO_APP_ENV" required:"true"`
	Port            string        `envconfig:"TUCOSTO_APP_PORT" default:"8080"`
	LogLevel        string        `envconfig:"TUCOSTO_LOG_LEVEL" default:"info"`
	LogWarnStack    bool          `envconfig:"TUCOSTO_LOG_WARN_STACK" default:"false"`
	ShutdownTimeout time.Duration `envconfig:"TUCOSTO_SHUTDOWN_TIMEOUT" default:"10s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type SessionConfig struct {
	Store        string        `envconfig:"TUCOSTO_SESSION_STORE" default:"memory"`
	TTL          time.Duration `envconfig:"TUCOSTO_SESSION_TTL" default:"12h"`
	CookieName   string        `envconfig:"TUCOSTO_SESSION_COOKIE" default:"tucosto_session"`
	CookieSecure bool          `envconfig:"TUCOSTO_SESSION_COOKIE_SECURE" default:"false"`
}

// StoreKind returns the parsed session store selection.
func (s SessionConfig) StoreKind() enums.SessionStoreKind {
	kind, err := enums.ParseSessionStoreKind(s.Store)
	if err != nil {
		return enums.SessionStoreMemory
	}
	return kind
}

type RedisConfig struct {
	URL          string        `envconfig:"TUCOSTO_REDIS_URL"`
	Address      string        `envconfig:"TUCOSTO_REDIS_ADDR"`
	Password     string        `envconfig:"TUCOSTO_REDIS_PASSWORD"`
	DB           int           `envconfig:"TUCOSTO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TUCOSTO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TUCOSTO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TUCOSTO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TUCOSTO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TUCOSTO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type GoogleConfig struct {
	SheetID                string        `envconfig:"TUCOSTO_GOOGLE_SHEET_ID"`
	DefaultSheetName       string        `envconfig:"TUCOSTO_GOOGLE_DEFAULT_SHEET_NAME" default:"Hoja 1"`
	ExportSheetName        string        `envconfig:"TUCOSTO_GOOGLE_EXPORT_SHEET_NAME"`
	ItemColumn             string        `envconfig:"TUCOSTO_GOOGLE_ITEM_COLUMN" default:"Materiales"`
	PriceColumn            string        `envconfig:"TUCOSTO_GOOGLE_PRICE_COLUMN" default:"Costo"`
	CredentialsJSON        string        `envconfig:"TUCOSTO_GOOGLE_SERVICE_ACCOUNT_JSON"`
	ApplicationCredentials string        `envconfig:"TUCOSTO_GOOGLE_APPLICATION_CREDENTIALS"`
	RequestTimeout         time.Duration `envconfig:"TUCOSTO_GOOGLE_REQUEST_TIMEOUT" default:"10s"`
}

// ExportEnabled reports whether ledger rows can be appended to a sheet.
func (g GoogleConfig) ExportEnabled() bool {
	return strings.TrimSpace(g.SheetID) != "" && strings.TrimSpace(g.ExportSheetName) != ""
}

type CatalogConfig struct {
	Source       string        `envconfig:"TUCOSTO_CATALOG_SOURCE" default:"sheets"`
	CacheTTL     time.Duration `envconfig:"TUCOSTO_CATALOG_CACHE_TTL" default:"300s"`
	FetchTimeout time.Duration `envconfig:"TUCOSTO_CATALOG_FETCH_TIMEOUT" default:"10s"`
	MissPolicy   string        `envconfig:"TUCOSTO_CATALOG_MISS_POLICY" default:"reject"`
}

// SourceKind returns the parsed catalog source selection.
func (c CatalogConfig) SourceKind() enums.CatalogSourceKind {
	kind, err := enums.ParseCatalogSourceKind(c.Source)
	if err != nil {
		return enums.CatalogSourceSheets
	}
	return kind
}

// Policy returns the parsed catalog miss policy.
func (c CatalogConfig) Policy() enums.CatalogMissPolicy {
	policy, err := enums.ParseCatalogMissPolicy(c.MissPolicy)
	if err != nil {
		return enums.CatalogMissPolicyReject
	}
	return policy
}

type ReportConfig struct {
	Title string `envconfig:"TUCOSTO_REPORT_TITLE" default:"Reporte de Puntos - TuCosto App"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"TUCOSTO_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:8501"`
}

type RateLimitConfig struct {
	Window       time.Duration `envconfig:"TUCOSTO_RATE_LIMIT_WINDOW" default:"1m"`
	SessionLimit int           `envconfig:"TUCOSTO_RATE_LIMIT_SESSION" default:"120"`
	IPLimit      int           `envconfig:"TUCOSTO_RATE_LIMIT_IP" default:"600"`
}

func (c *Config) validate() error {
	if _, err := enums.ParseSessionStoreKind(c.Session.Store); err != nil {
		return fmt.Errorf("%s: %w", EnvSessionStore, err)
	}
	if _, err := enums.ParseCatalogSourceKind(c.Catalog.Source); err != nil {
		return fmt.Errorf("%s: %w", EnvCatalogSource, err)
	}
	if _, err := enums.ParseCatalogMissPolicy(c.Catalog.MissPolicy); err != nil {
		return fmt.Errorf("%s: %w", EnvCatalogMissPolicy, err)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvSessionTTL)
	}

	var missing []string
	if c.Session.StoreKind() == enums.SessionStoreRedis && !c.Redis.Enabled() {
		missing = append(missing, EnvRedisURL+" or "+EnvRedisAddr)
	}
	if c.Catalog.SourceKind() == enums.CatalogSourceSheets && strings.TrimSpace(c.Google.SheetID) == "" {
		missing = append(missing, EnvGoogleSheetID)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
