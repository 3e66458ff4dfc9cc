package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/iam-engine/internal/core/domain"
	"github.com/99minutos/iam-engine/internal/core/service"
)

// RequirePermission allows the request through only when the caller holds
// action on resourceType. When idParam is non-empty the path parameter of
// that name selects the instance; otherwise every instance is required.
// Must run after Auth.
func RequirePermission(action domain.Action, resourceType, idParam string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := domain.AllInstances
			if idParam != "" {
				id = domain.InstanceID(c.Param(idParam))
			}

			ctx := c.Request().Context()
			ok, err := service.AuthorizerFrom(ctx).IsAuthorized(ctx, action, resourceType, id)
			if err != nil {
				return err
			}
			if !ok {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
