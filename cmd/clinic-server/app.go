package main

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/clinicops/clinic/internal/config"
	"github.com/clinicops/clinic/internal/domain/audit"
	"github.com/clinicops/clinic/internal/domain/billing"
	"github.com/clinicops/clinic/internal/domain/clinical"
	"github.com/clinicops/clinic/internal/domain/dashboard"
	"github.com/clinicops/clinic/internal/domain/identity"
	"github.com/clinicops/clinic/internal/domain/queue"
	"github.com/clinicops/clinic/internal/domain/scheduling"
	"github.com/clinicops/clinic/internal/domain/triage"
	"github.com/clinicops/clinic/internal/platform/auth"
	"github.com/clinicops/clinic/internal/platform/db"
	"github.com/clinicops/clinic/internal/platform/events"
	"github.com/clinicops/clinic/internal/platform/middleware"
	"github.com/clinicops/clinic/internal/platform/store"
	"github.com/clinicops/clinic/internal/platform/websocket"
)

const requestTimeout = 30 * time.Second

// services is the wired domain layer over one store.
type services struct {
	audit      *audit.Service
	identity   *identity.Service
	staff      *identity.StaffService
	scheduling *scheduling.Service
	queue      *queue.Service
	triage     *triage.Service
	clinical   *clinical.Service
	billing    *billing.Service
	dashboard  *dashboard.Service
}

func newServices(cfg *config.Config, s store.Store, pub events.Publisher, logger zerolog.Logger) *services {
	auditSvc := audit.NewService(audit.NewStoreRepo(s))
	identitySvc := identity.NewService(identity.NewPatientRepo(s), identity.NewPractitionerRepo(s), auditSvc)
	staffSvc := identity.NewStaffService(identity.NewStaffRepo(s), auditSvc)
	schedSvc := scheduling.NewService(scheduling.NewAppointmentRepo(s), identitySvc, auditSvc, pub, logger)
	queueSvc := queue.NewService(queue.NewItemRepo(s), schedSvc, identitySvc, auditSvc, pub, logger)
	schedSvc.OnTerminal(queueSvc.Release)
	triageSvc := triage.NewService(triage.NewAssessmentRepo(s), triage.NewVitalsRepo(s), schedSvc, identitySvc,
		queueSvc, auditSvc, pub, logger)
	clinicalSvc := clinical.NewService(clinical.NewTreatmentRecordRepo(s), clinical.NewDiagnosticTestRepo(s),
		schedSvc, identitySvc, auditSvc)
	billingSvc := billing.NewService(billing.NewInvoiceRepo(s), identitySvc, schedSvc, auditSvc, pub, logger, cfg.InvoiceDueDays)

	return &services{
		audit:      auditSvc,
		identity:   identitySvc,
		staff:      staffSvc,
		scheduling: schedSvc,
		queue:      queueSvc,
		triage:     triageSvc,
		clinical:   clinicalSvc,
		billing:    billingSvc,
		dashboard:  dashboard.NewService(identitySvc, schedSvc, queueSvc, clinicalSvc, billingSvc),
	}
}

// newEcho builds the HTTP server: global middleware, auth, public routes and
// every domain handler under /api/v1.
func newEcho(cfg *config.Config, svcs *services, hub *websocket.Hub, signingKey []byte, health db.Pinger, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(echomw.Secure())
	e.Use(echomw.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(requestTimeout))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(signingKey))
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{SigningKey: signingKey, Skipper: auth.AuthSkipper}))
	}

	// Audit middleware
	e.Use(middleware.Audit(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(cfg.StoreDriver, health))

	identity.NewAuthHandler(svcs.staff, signingKey, cfg.AuthTokenTTL).RegisterRoutes(e)
	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(e)

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	identity.NewHandler(svcs.identity, svcs.staff).RegisterRoutes(apiV1)
	scheduling.NewHandler(svcs.scheduling).RegisterRoutes(apiV1)
	queue.NewHandler(svcs.queue).RegisterRoutes(apiV1)
	triage.NewHandler(svcs.triage).RegisterRoutes(apiV1)
	clinical.NewHandler(svcs.clinical).RegisterRoutes(apiV1)
	billing.NewHandler(svcs.billing).RegisterRoutes(apiV1)
	dashboard.NewHandler(svcs.dashboard).RegisterRoutes(apiV1)
	audit.NewHandler(svcs.audit).RegisterRoutes(apiV1)

	return e
}
