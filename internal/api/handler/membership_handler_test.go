package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/iam-engine/internal/core/domain"
)

type stubMembershipService struct {
	calls []string
	err   error
}

func (s *stubMembershipService) record(call string) error {
	s.calls = append(s.calls, call)
	return s.err
}

func (s *stubMembershipService) ListRoles(context.Context) ([]*domain.Role, error) {
	return []*domain.Role{{ID: "r1", Name: domain.RoleOwner}}, s.record("list")
}

func (s *stubMembershipService) AssignUserRole(_ context.Context, userID, roleID string) error {
	return s.record("assign:" + userID + ":" + roleID)
}

func (s *stubMembershipService) RemoveUserRole(_ context.Context, userID, roleID string) error {
	return s.record("unassign:" + userID + ":" + roleID)
}

func (s *stubMembershipService) AddGroupMember(_ context.Context, groupID, userID string) error {
	return s.record("join:" + groupID + ":" + userID)
}

func (s *stubMembershipService) RemoveGroupMember(_ context.Context, groupID, userID string) error {
	return s.record("leave:" + groupID + ":" + userID)
}

func (s *stubMembershipService) DeleteRole(_ context.Context, roleID string) error {
	return s.record("delete:" + roleID)
}

func TestMembershipHandler_RoutesParams(t *testing.T) {
	stub := &stubMembershipService{}
	h := NewMembershipHandler(stub)

	cases := []struct {
		fn     echo.HandlerFunc
		names  []string
		values []string
		want   string
	}{
		{h.AssignUserRole, []string{"userID", "roleID"}, []string{"u2", "r1"}, "assign:u2:r1"},
		{h.RemoveUserRole, []string{"userID", "roleID"}, []string{"u2", "r1"}, "unassign:u2:r1"},
		{h.AddGroupMember, []string{"groupID", "userID"}, []string{"g1", "u2"}, "join:g1:u2"},
		{h.RemoveGroupMember, []string{"groupID", "userID"}, []string{"g1", "u2"}, "leave:g1:u2"},
		{h.DeleteRole, []string{"roleID"}, []string{"r9"}, "delete:r9"},
	}
	for _, tc := range cases {
		e, c, rec := newJSONContext(http.MethodPut, "/", "")
		c.SetParamNames(tc.names...)
		c.SetParamValues(tc.values...)
		withUser(c, &domain.UserContext{UserID: "u1", AccountID: "a1"})

		if code := httpStatus(t, e, c, rec, tc.fn(c)); code != http.StatusNoContent {
			t.Fatalf("%s: expected 204, got %d", tc.want, code)
		}
		if got := stub.calls[len(stub.calls)-1]; got != tc.want {
			t.Fatalf("expected call %q, got %q", tc.want, got)
		}
	}
}

func TestMembershipHandler_PropagatesDomainErrors(t *testing.T) {
	stub := &stubMembershipService{err: domain.ErrSoleOwner}
	_, c, _ := newJSONContext(http.MethodDelete, "/", "")
	c.SetParamNames("userID", "roleID")
	c.SetParamValues("u1", "owner")
	withUser(c, &domain.UserContext{UserID: "u1", AccountID: "a1"})

	if err := NewMembershipHandler(stub).RemoveUserRole(c); !errors.Is(err, domain.ErrSoleOwner) {
		t.Fatalf("expected ErrSoleOwner, got %v", err)
	}
}

func TestMembershipHandler_ListRoles(t *testing.T) {
	stub := &stubMembershipService{}
	e, c, rec := newJSONContext(http.MethodGet, "/account/roles", "")
	withUser(c, &domain.UserContext{UserID: "u1", AccountID: "a1"})

	if code := httpStatus(t, e, c, rec, NewMembershipHandler(stub).ListRoles(c)); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestMembershipHandler_Unauthenticated(t *testing.T) {
	stub := &stubMembershipService{}
	e, c, rec := newJSONContext(http.MethodDelete, "/", "")

	if code := httpStatus(t, e, c, rec, NewMembershipHandler(stub).DeleteRole(c)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	if len(stub.calls) != 0 {
		t.Fatalf("service must not be called")
	}
}
