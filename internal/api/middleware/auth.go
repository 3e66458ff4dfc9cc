package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/iam-engine/internal/core/domain"
	"github.com/99minutos/iam-engine/internal/core/ports"
	"github.com/99minutos/iam-engine/internal/core/service"
)

// HeaderDeviceID optionally identifies the caller's device.
const HeaderDeviceID = "X-Device-ID"

// ContextKeyUser is the echo context key holding the *domain.UserContext.
const ContextKeyUser = "user"

// Auth validates the bearer token and binds a per-request Authorizer for the
// caller to the request context.
func Auth(validator ports.TokenValidator, resolver *service.PermissionResolver, audit ports.AuditSink, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			ctx := c.Request().Context()
			res, err := validator.Validate(ctx, strings.TrimSpace(parts[1]))
			if err != nil {
				return err
			}
			if res.Status != domain.TokenValid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			uc := &domain.UserContext{
				UserID:    res.UserID,
				AccountID: res.SignedInAccountID,
				TokenID:   res.TokenID,
				DeviceID:  c.Request().Header.Get(HeaderDeviceID),
			}
			for _, id := range res.AccountIDs {
				uc.Accounts = append(uc.Accounts, domain.AccountSummary{ID: id})
			}
			reqLog := log.With().
				Str("user_id", uc.UserID).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Logger()

			ctx = service.WithAuthorizer(reqLog.WithContext(ctx), service.NewAuthorizer(resolver, uc, audit, reqLog))
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set(ContextKeyUser, uc)

			return next(c)
		}
	}
}
