package identity

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	// Регистрация OpenAPI-описания для /docs.
	_ "github.com/magabrotheeeer/edu-identity/docs"
	"github.com/magabrotheeeer/edu-identity/internal/config"
	"github.com/magabrotheeeer/edu-identity/internal/http/handlers/account/me"
	"github.com/magabrotheeeer/edu-identity/internal/http/handlers/access/check"
	"github.com/magabrotheeeer/edu-identity/internal/http/handlers/access/entitlements"
	"github.com/magabrotheeeer/edu-identity/internal/http/handlers/admin/unlock"
	"github.com/magabrotheeeer/edu-identity/internal/http/handlers/auth/federated"
	"github.com/magabrotheeeer/edu-identity/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/edu-identity/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/edu-identity/internal/http/handlers/auth/signup"
	"github.com/magabrotheeeer/edu-identity/internal/http/handlers/auth/verify"
	"github.com/magabrotheeeer/edu-identity/internal/http/handlers/health"
	"github.com/magabrotheeeer/edu-identity/internal/http/middlewarectx"
	"github.com/magabrotheeeer/edu-identity/internal/models"
)

// RegisterRoutes регистрирует все маршруты процесса.
func RegisterRoutes(r chi.Router, cfg *config.Config, logger *slog.Logger, s *Services, checks map[string]health.Check, gatherer prometheus.Gatherer) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки входа и регистрации
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger, cfg.RateLimit.RPS, cfg.RateLimit.Burst))
			r.Post("/auth/login", login.New(logger, s.Auth).ServeHTTP)
			r.Post("/auth/signup", signup.New(logger, s.Auth).ServeHTTP)
			r.Post("/auth/signup/verify", verify.New(logger, s.Auth).ServeHTTP)
			r.Post("/auth/federated", federated.New(logger, s.Auth).ServeHTTP)
		})

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Auth, logger))
			r.Post("/auth/logout", logout.New(logger, s.Auth).ServeHTTP)
			r.Post("/auth/logout-all", logout.NewAll(logger, s.Auth).ServeHTTP)
			r.Get("/access/{targetType}/{targetID}", check.New(logger, s.Entitlements).ServeHTTP)
			r.Get("/subscriptions/me", entitlements.New(logger, s.Entitlements).ServeHTTP)
			r.Get("/accounts/me", me.New(logger, s.Accounts).ServeHTTP)

			r.With(middlewarectx.RequireRole(models.RoleAdmin, logger)).
				Post("/admin/accounts/{handle}/unlock", unlock.New(logger, s.Auth).ServeHTTP)
		})

		r.Get("/health", health.New(logger, cfg.CollaboratorTimeout, checks).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
