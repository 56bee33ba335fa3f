package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/deliotti/tucosto-backend/api/controllers"
	"github.com/deliotti/tucosto-backend/api/routes"
	"github.com/deliotti/tucosto-backend/internal/budget"
	"github.com/deliotti/tucosto-backend/internal/catalog"
	"github.com/deliotti/tucosto-backend/internal/sessions"
	"github.com/deliotti/tucosto-backend/pkg/config"
	"github.com/deliotti/tucosto-backend/pkg/enums"
	"github.com/deliotti/tucosto-backend/pkg/instance"
	"github.com/deliotti/tucosto-backend/pkg/logger"
	"github.com/deliotti/tucosto-backend/pkg/metrics"
	"github.com/deliotti/tucosto-backend/pkg/redis"
	"github.com/deliotti/tucosto-backend/pkg/report"
	"github.com/deliotti/tucosto-backend/pkg/sheets"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
	}

	var sheetsClient *sheets.Client
	if cfg.Catalog.SourceKind() == enums.CatalogSourceSheets || cfg.Google.ExportEnabled() {
		sheetsClient, err = sheets.NewClient(ctx, cfg.Google, logg)
		if err != nil {
			return err
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	source, err := catalogSource(cfg, sheetsClient)
	if err != nil {
		return err
	}
	cached := catalog.NewCachedSource(catalog.CachedSourceParams{
		Source:       source,
		TTL:          cfg.Catalog.CacheTTL,
		FetchTimeout: cfg.Catalog.FetchTimeout,
		Observer:     metrics.NewCatalogMetrics(registry),
	})

	store, err := sessionStore(cfg, redisClient, registry)
	if err != nil {
		return err
	}

	params := budget.ServiceParams{
		Source:       cached,
		Store:        store,
		Renderer:     report.NewRenderer(cfg.Report.Title),
		CatalogID:    cfg.Google.SheetID,
		SheetName:    cfg.Google.DefaultSheetName,
		ExportSheet:  cfg.Google.ExportSheetName,
		MissPolicy:   cfg.Catalog.Policy(),
		FetchTimeout: cfg.Catalog.FetchTimeout,
		Metrics:      metrics.NewLedgerMetrics(registry),
		Logger:       logg,
	}
	if sheetsClient != nil && cfg.Google.ExportEnabled() {
		params.Exporter = sheetsClient
	}
	budgetService, err := budget.NewService(params)
	if err != nil {
		return err
	}

	var sheetsPinger controllers.Pinger
	if sheetsClient != nil {
		sheetsPinger = sheetsClient
	}

	addr := ":" + cfg.App.Port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":            cfg.App.Env,
		"addr":           addr,
		"instance":       instance.GetID(),
		"catalog_source": cfg.Catalog.SourceKind().String(),
		"session_store":  cfg.Session.StoreKind().String(),
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, redisClient, sheetsPinger, budgetService, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func catalogSource(cfg *config.Config, sheetsClient *sheets.Client) (catalog.Source, error) {
	if cfg.Catalog.SourceKind() == enums.CatalogSourceStatic {
		return catalog.NewStaticSource(catalog.DemoProducts()), nil
	}
	return catalog.NewSheetsSource(catalog.SheetsSourceParams{
		Reader:      sheetsClient,
		ItemColumn:  cfg.Google.ItemColumn,
		PriceColumn: cfg.Google.PriceColumn,
	})
}

func sessionStore(cfg *config.Config, redisClient *redis.Client, reg prometheus.Registerer) (sessions.Store, error) {
	if cfg.Session.StoreKind() == enums.SessionStoreRedis {
		if redisClient == nil {
			return nil, errors.New("redis session store requires redis configuration")
		}
		return sessions.NewRedisStore(redisClient, cfg.Session.TTL)
	}
	store := sessions.NewMemoryStore(cfg.Session.TTL)
	metrics.RegisterActiveSessions(reg, store.Len)
	return store, nil
}
