package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/iam-engine/internal/core/domain"
	"github.com/99minutos/iam-engine/internal/core/ports"
	"github.com/99minutos/iam-engine/internal/core/service"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a new user.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  registerResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, registerResponse{User: user})
}

// Login authenticates a user and returns a signed token, optionally scoped
// to one of the user's accounts.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      423   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Username, req.Password, req.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTokenResponse(res))
}

// SwitchAccount issues a token for another account and revokes the current one.
//
// @Summary      Switch the signed-in account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      switchAccountRequest  true  "Target account"
// @Success      200   {object}  tokenResponse
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /auth/switch-account [post]
func (h *AuthHandler) SwitchAccount(c echo.Context) error {
	if _, err := ctxUser(c); err != nil {
		return err
	}
	var req switchAccountRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.SwitchAccount(c.Request().Context(), req.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTokenResponse(res))
}

// Logout revokes the presented token.
//
// @Summary      Logout
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401   {object}  map[string]string
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	if _, err := ctxUser(c); err != nil {
		return err
	}
	if err := h.authService.Logout(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// LogoutAll revokes every active token of the caller.
//
// @Summary      Logout from every device
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401   {object}  map[string]string
// @Router       /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	if _, err := ctxUser(c); err != nil {
		return err
	}
	if err := h.authService.LogoutAll(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Me describes the caller and their effective permissions in the active account.
//
// @Summary      Current user context
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200   {object}  meResponse
// @Failure      401   {object}  map[string]string
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	uc, err := ctxUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	perms, err := service.AuthorizerFrom(ctx).EffectivePermissions(ctx)
	if err != nil {
		return err
	}
	accounts := uc.Accounts
	if accounts == nil {
		accounts = []domain.AccountSummary{}
	}
	return c.JSON(http.StatusOK, meResponse{
		UserID:      uc.UserID,
		AccountID:   uc.AccountID,
		TokenID:     uc.TokenID,
		DeviceID:    uc.DeviceID,
		Accounts:    accounts,
		Permissions: toPermissionPayloads(perms),
	})
}

// Authorize evaluates one access decision for the caller. An empty
// resource_id asks about every instance of the type.
//
// @Summary      Check a permission
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Param        action         query     string  true   "create, read, update, delete or execute"
// @Param        resource_type  query     string  true   "Resource type"
// @Param        resource_id    query     string  false  "Resource instance id"
// @Success      200            {object}  authorizeResponse
// @Failure      400            {object}  map[string]string
// @Failure      401            {object}  map[string]string
// @Router       /auth/authorize [get]
func (h *AuthHandler) Authorize(c echo.Context) error {
	if _, err := ctxUser(c); err != nil {
		return err
	}
	action, err := domain.ParseAction(c.QueryParam("action"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	resourceType := c.QueryParam("resource_type")
	if resourceType == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "resource_type is required")
	}
	id := domain.AllInstances
	if raw := c.QueryParam("resource_id"); raw != "" {
		id = domain.InstanceID(raw)
	}

	ctx := c.Request().Context()
	allowed, err := service.AuthorizerFrom(ctx).IsAuthorized(ctx, action, resourceType, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authorizeResponse{
		Allowed:      allowed,
		Action:       string(action),
		ResourceType: resourceType,
		ResourceID:   id.String(),
	})
}

// ChangePassword sets a new password for a user and revokes all their tokens.
//
// @Summary      Change a user's password
// @Tags         users
// @Accept       json
// @Security     BearerAuth
// @Param        id    path      string                 true  "User id"
// @Param        body  body      changePasswordRequest  true  "New password"
// @Success      204
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /users/{id}/password [put]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	if _, err := ctxUser(c); err != nil {
		return err
	}
	var req changePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.authService.ChangePassword(c.Request().Context(), c.Param("id"), req.Password); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
