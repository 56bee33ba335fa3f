package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/deliotti/tucosto-backend/api/controllers"
	"github.com/deliotti/tucosto-backend/api/middleware"
	"github.com/deliotti/tucosto-backend/internal/budget"
	"github.com/deliotti/tucosto-backend/pkg/config"
	"github.com/deliotti/tucosto-backend/pkg/logger"
	"github.com/deliotti/tucosto-backend/pkg/redis"
)

// NewRouter wires the HTTP surface. redisClient and sheetsClient may be nil
// when the deployment runs without them; idempotency and rate limiting are
// only mounted when Redis is available.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	sheetsClient controllers.Pinger,
	budgetService budget.Service,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
		middleware.Session(cfg.Session, logg),
		middleware.Logging(logg),
	)

	deps := map[string]controllers.Pinger{"sheets": sheetsClient}
	if redisClient != nil {
		deps["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	ledgerPolicy := middleware.NewRateLimitPolicy(
		"ledger",
		cfg.RateLimit.Window,
		cfg.RateLimit.IPLimit,
		cfg.RateLimit.SessionLimit,
	)

	r.Route("/api/v1", func(r chi.Router) {
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
			r.Use(middleware.RateLimit(ledgerPolicy, redisClient, logg))
		}

		r.Get("/catalog", controllers.CatalogList(budgetService, logg))
		r.Post("/catalog/refresh", controllers.CatalogRefresh(budgetService, logg))
		r.Delete("/session", controllers.SessionEnd(budgetService, cfg.Session, logg))

		r.Route("/ledger", func(r chi.Router) {
			r.Get("/", controllers.LedgerGet(budgetService, logg))
			r.Delete("/", controllers.LedgerClear(budgetService, logg))
			r.Post("/items", controllers.LedgerAddItem(budgetService, logg))
			r.Get("/report", controllers.LedgerReport(budgetService, logg))
			r.Post("/export", controllers.LedgerExport(budgetService, logg))
		})
	})

	return r
}
