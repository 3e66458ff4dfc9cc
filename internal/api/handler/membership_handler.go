package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/iam-engine/internal/core/domain"
	"github.com/99minutos/iam-engine/internal/core/ports"
)

// MembershipHandler manages roles and group members of the caller's active
// account. Authorization happens in the service decorators.
type MembershipHandler struct {
	service ports.MembershipService
}

func NewMembershipHandler(service ports.MembershipService) *MembershipHandler {
	return &MembershipHandler{service: service}
}

// ListRoles handles GET /account/roles.
//
// @Summary      List roles of the active account
// @Tags         membership
// @Produce      json
// @Security     BearerAuth
// @Success      200   {object}  rolesResponse
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /account/roles [get]
func (h *MembershipHandler) ListRoles(c echo.Context) error {
	if _, err := ctxUser(c); err != nil {
		return err
	}
	roles, err := h.service.ListRoles(c.Request().Context())
	if err != nil {
		return err
	}
	if roles == nil {
		roles = []*domain.Role{}
	}
	return c.JSON(http.StatusOK, rolesResponse{Roles: roles})
}

// DeleteRole handles DELETE /account/roles/:roleID.
//
// @Summary      Delete a custom role
// @Tags         membership
// @Security     BearerAuth
// @Param        roleID  path  string  true  "Role id"
// @Success      204
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /account/roles/{roleID} [delete]
func (h *MembershipHandler) DeleteRole(c echo.Context) error {
	return h.mutate(c, func() error {
		return h.service.DeleteRole(c.Request().Context(), c.Param("roleID"))
	})
}

// AssignUserRole handles PUT /account/users/:userID/roles/:roleID.
//
// @Summary      Assign a role to a user
// @Tags         membership
// @Security     BearerAuth
// @Param        userID  path  string  true  "User id"
// @Param        roleID  path  string  true  "Role id"
// @Success      204
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /account/users/{userID}/roles/{roleID} [put]
func (h *MembershipHandler) AssignUserRole(c echo.Context) error {
	return h.mutate(c, func() error {
		return h.service.AssignUserRole(c.Request().Context(), c.Param("userID"), c.Param("roleID"))
	})
}

// RemoveUserRole handles DELETE /account/users/:userID/roles/:roleID.
//
// @Summary      Remove a role from a user
// @Tags         membership
// @Security     BearerAuth
// @Param        userID  path  string  true  "User id"
// @Param        roleID  path  string  true  "Role id"
// @Success      204
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /account/users/{userID}/roles/{roleID} [delete]
func (h *MembershipHandler) RemoveUserRole(c echo.Context) error {
	return h.mutate(c, func() error {
		return h.service.RemoveUserRole(c.Request().Context(), c.Param("userID"), c.Param("roleID"))
	})
}

// AddGroupMember handles PUT /account/groups/:groupID/members/:userID.
//
// @Summary      Add a user to a group
// @Tags         membership
// @Security     BearerAuth
// @Param        groupID  path  string  true  "Group id"
// @Param        userID   path  string  true  "User id"
// @Success      204
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /account/groups/{groupID}/members/{userID} [put]
func (h *MembershipHandler) AddGroupMember(c echo.Context) error {
	return h.mutate(c, func() error {
		return h.service.AddGroupMember(c.Request().Context(), c.Param("groupID"), c.Param("userID"))
	})
}

// RemoveGroupMember handles DELETE /account/groups/:groupID/members/:userID.
//
// @Summary      Remove a user from a group
// @Tags         membership
// @Security     BearerAuth
// @Param        groupID  path  string  true  "Group id"
// @Param        userID   path  string  true  "User id"
// @Success      204
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /account/groups/{groupID}/members/{userID} [delete]
func (h *MembershipHandler) RemoveGroupMember(c echo.Context) error {
	return h.mutate(c, func() error {
		return h.service.RemoveGroupMember(c.Request().Context(), c.Param("groupID"), c.Param("userID"))
	})
}

func (h *MembershipHandler) mutate(c echo.Context, op func() error) error {
	if _, err := ctxUser(c); err != nil {
		return err
	}
	if err := op(); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
