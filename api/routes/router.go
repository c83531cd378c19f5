package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kelechianya/complypoint-backend/api/controllers"
	"github.com/kelechianya/complypoint-backend/api/middleware"
	"github.com/kelechianya/complypoint-backend/internal/auth"
	"github.com/kelechianya/complypoint-backend/internal/compliance"
	"github.com/kelechianya/complypoint-backend/internal/notifications"
	"github.com/kelechianya/complypoint-backend/pkg/auth/session"
	"github.com/kelechianya/complypoint-backend/pkg/config"
	"github.com/kelechianya/complypoint-backend/pkg/db"
	"github.com/kelechianya/complypoint-backend/pkg/enums"
	"github.com/kelechianya/complypoint-backend/pkg/logger"
	"github.com/kelechianya/complypoint-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionChecker session.AccessSessionChecker,
	authService auth.Service,
	registerService auth.RegisterService,
	adminRegisterService auth.AdminRegisterService,
	complianceService compliance.Service,
	notificationsService notifications.Service,
	webhookRegistrar controllers.WebhookRegistrar,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(registerService, authService, logg))
		r.Post("/logout", controllers.AuthLogout(authService, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))
	})

	r.Route("/api/admin/v1/auth", func(r chi.Router) {
		if !cfg.App.IsProd() {
			r.Post("/register", controllers.AdminAuthRegister(adminRegisterService, authService, logg))
		}
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/compliance", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, "vendor", "agent"))
			r.Post("/business-verification", controllers.ComplianceCreate(complianceService, enums.VariantBusinessVerification, logg))
			r.Post("/licenses", controllers.ComplianceCreate(complianceService, enums.VariantDriverLicense, logg))
			r.Post("/vehicles", controllers.ComplianceCreate(complianceService, enums.VariantVehicle, logg))
			r.Post("/{submissionId}/resubmit", controllers.ComplianceResubmit(complianceService, logg))
			r.Get("/status", controllers.ComplianceStatus(complianceService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
			r.Put("/webhook", controllers.RegisterWebhook(webhookRegistrar, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
		r.Use(middleware.RequireRole(logg, "admin"))
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Get("/ping", controllers.AdminPing())
		r.Patch("/v1/compliance", controllers.AdminComplianceBatch(complianceService, logg))
	})

	return r
}
