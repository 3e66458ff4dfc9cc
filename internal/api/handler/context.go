package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/iam-engine/internal/core/domain"
	"github.com/99minutos/iam-engine/internal/core/service"
)

// ctxUser returns the caller bound by the Auth middleware. A missing context
// means the route was registered without authentication: reject with 401
// before any service call.
func ctxUser(c echo.Context) (*domain.UserContext, error) {
	uc := service.UserContextFrom(c.Request().Context())
	if uc == nil || uc.UserID == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication context")
	}
	return uc, nil
}

// bindAndValidate decodes the body into req and runs struct validation.
// Failures come back as 400 HTTP errors.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
