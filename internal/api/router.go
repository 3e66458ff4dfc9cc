package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/iam-engine/docs"
	"github.com/99minutos/iam-engine/internal/api/handler"
	"github.com/99minutos/iam-engine/internal/api/middleware"
	"github.com/99minutos/iam-engine/internal/core/domain"
	"github.com/99minutos/iam-engine/internal/core/ports"
	"github.com/99minutos/iam-engine/internal/core/service"
)

// Dependencies are the collaborators the HTTP layer is built from.
type Dependencies struct {
	Log        zerolog.Logger
	Tokens     ports.TokenValidator
	Resolver   *service.PermissionResolver
	Audit      ports.AuditSink
	Auth       ports.AuthService
	Accounts   ports.AccountService
	Membership ports.MembershipService
	// Readiness checks keyed by dependency name.
	Readiness map[string]handler.CheckFunc

	LoginRatePerSecond float64
	LoginBurst         int

	// Registry receives the HTTP request metrics and backs /metrics.
	// Nil uses the Prometheus default registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(metricsConfig(deps.Registry)))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	accountHandler := handler.NewAccountHandler(deps.Accounts)
	membershipHandler := handler.NewMembershipHandler(deps.Membership)
	authMiddleware := middleware.Auth(deps.Tokens, deps.Resolver, deps.Audit, deps.Log)

	// --- Public auth routes ---
	limited := middleware.RateLimit(deps.LoginRatePerSecond, deps.LoginBurst)
	e.POST("/auth/register", authHandler.Register, limited)
	e.POST("/auth/login", authHandler.Login, limited)

	// --- Authenticated routes ---
	e.POST("/auth/switch-account", authHandler.SwitchAccount, authMiddleware)
	e.POST("/auth/logout", authHandler.Logout, authMiddleware)
	e.POST("/auth/logout-all", authHandler.LogoutAll, authMiddleware)
	e.GET("/auth/me", authHandler.Me, authMiddleware)
	e.GET("/auth/authorize", authHandler.Authorize, authMiddleware)
	e.PUT("/users/:id/password", authHandler.ChangePassword, authMiddleware)

	e.POST("/accounts", accountHandler.Create, authMiddleware)
	e.GET("/accounts", accountHandler.List, authMiddleware)

	e.GET("/account/roles", membershipHandler.ListRoles, authMiddleware,
		middleware.RequirePermission(domain.ActionRead, domain.ResourceRole, ""))
	e.DELETE("/account/roles/:roleID", membershipHandler.DeleteRole, authMiddleware)
	e.PUT("/account/users/:userID/roles/:roleID", membershipHandler.AssignUserRole, authMiddleware)
	e.DELETE("/account/users/:userID/roles/:roleID", membershipHandler.RemoveUserRole, authMiddleware)
	e.PUT("/account/groups/:groupID/members/:userID", membershipHandler.AddGroupMember, authMiddleware)
	e.DELETE("/account/groups/:groupID/members/:userID", membershipHandler.RemoveGroupMember, authMiddleware)

	// --- Health checks, metrics and docs (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Readiness)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", metricsHandler(deps.Registry))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func metricsConfig(reg *prometheus.Registry) echoprometheus.MiddlewareConfig {
	cfg := echoprometheus.MiddlewareConfig{Namespace: "iam"}
	if reg != nil {
		cfg.Registerer = reg
	}
	return cfg
}

func metricsHandler(reg *prometheus.Registry) echo.HandlerFunc {
	if reg == nil {
		return echoprometheus.NewHandler()
	}
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg})
}

// requestLogger writes one zerolog entry per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Warn().Err(v.Error)
			}
			evt.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
