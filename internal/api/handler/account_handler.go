package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/iam-engine/internal/core/domain"
	"github.com/99minutos/iam-engine/internal/core/ports"
)

// AccountHandler handles tenant creation and listing.
type AccountHandler struct {
	service ports.AccountService
}

func NewAccountHandler(service ports.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// Create handles POST /accounts. The caller becomes the account owner.
//
// @Summary      Create an account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createAccountRequest  true  "Account details"
// @Success      201   {object}  accountResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /accounts [post]
func (h *AccountHandler) Create(c echo.Context) error {
	if _, err := ctxUser(c); err != nil {
		return err
	}
	var req createAccountRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.service.CreateAccount(c.Request().Context(), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, accountResponse{ID: account.ID, Name: account.Name, CreatedAt: account.CreatedAt})
}

// List handles GET /accounts.
//
// @Summary      List the caller's accounts
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Success      200   {object}  accountsResponse
// @Failure      401   {object}  map[string]string
// @Router       /accounts [get]
func (h *AccountHandler) List(c echo.Context) error {
	if _, err := ctxUser(c); err != nil {
		return err
	}
	accounts, err := h.service.ListAccounts(c.Request().Context())
	if err != nil {
		return err
	}
	if accounts == nil {
		accounts = []domain.AccountSummary{}
	}
	return c.JSON(http.StatusOK, accountsResponse{Accounts: accounts})
}
