package routes

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/quartermaster/backend/internal/api/handlers"
	"github.com/quartermaster/backend/internal/api/middleware"
	"github.com/quartermaster/backend/internal/config"
	"github.com/quartermaster/backend/internal/database"
	"github.com/quartermaster/backend/internal/identity"
	"github.com/quartermaster/backend/internal/logger"
	"github.com/quartermaster/backend/internal/metrics"
	"github.com/quartermaster/backend/internal/services"
)

// Deps bundles the long-lived services so the caller (and tests) can reach
// them after route registration.
type Deps struct {
	Provider  identity.Provider
	Reconcile *services.ReconcileService
	Scanner   *services.OrphanScanner
	Audit     *services.AuditService
	Auth      *services.AuthService
}

// Register migrates the schema and wires up the versioned API.
func Register(router *gin.Engine, db *gorm.DB, cfg config.Config) (*Deps, error) {
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	provider := selectProvider(cfg)

	guard := services.NewVersionGuard(db)
	audit := services.NewAuditService(db, cfg.AuditPatchWindow)
	resolver := services.NewIdentityResolver(provider, cfg.Identity.Suffix, cfg.Identity.PageSize)
	reconcile := services.NewReconcileService(db, guard, resolver, provider, audit, cfg.DefaultEmployeePassword)
	notifier := services.NewNotificationService(cfg.NotifyURLs)
	scanner := services.NewOrphanScanner(db, provider, cfg.Identity.PageSize, notifier)
	master := services.NewMasterDataService(db, guard, audit)
	authService := services.NewAuthService(db, cfg.JWTSecret)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics.Register(registry)

	router.GET("/api/v1/health", handlers.HealthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1")

	authHandler := handlers.NewAuthHandler(authService)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(authService))
	{
		protected.POST("/auth/logout", authHandler.Logout)
		protected.GET("/auth/me", authHandler.Me)

		employeeHandler := handlers.NewEmployeeHandler(db, reconcile)
		employeeHandler.RegisterRoutes(protected)

		masterHandler := handlers.NewMasterDataHandler(db, master)
		masterHandler.RegisterRoutes(protected)

		auditHandler := handlers.NewAuditHandler(audit)
		auditHandler.RegisterRoutes(protected)

		admin := protected.Group("/")
		admin.Use(middleware.RequireRole("admin"))
		{
			orphanHandler := handlers.NewOrphanHandler(scanner)
			orphanHandler.RegisterRoutes(admin)
		}
	}

	return &Deps{
		Provider:  provider,
		Reconcile: reconcile,
		Scanner:   scanner,
		Audit:     audit,
		Auth:      authService,
	}, nil
}

// selectProvider returns the HTTP identity client when an upstream is
// configured, otherwise the in-process store used for development and tests.
func selectProvider(cfg config.Config) identity.Provider {
	if cfg.Identity.URL != "" {
		logger.Log().WithField("url", cfg.Identity.URL).Info("Using remote identity provider")
		return identity.NewClient(cfg.Identity.URL, cfg.Identity.ServiceKey)
	}

	logger.Log().Warn("QM_IDENTITY_URL not set, using in-memory identity provider")
	return identity.NewMemoryProvider()
}
