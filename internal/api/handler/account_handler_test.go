package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/99minutos/iam-engine/internal/core/domain"
)

type stubAccountService struct {
	createFn func(ctx context.Context, name string) (*domain.Account, error)
	listFn   func(ctx context.Context) ([]domain.AccountSummary, error)
}

func (s *stubAccountService) CreateAccount(ctx context.Context, name string) (*domain.Account, error) {
	return s.createFn(ctx, name)
}

func (s *stubAccountService) ListAccounts(ctx context.Context) ([]domain.AccountSummary, error) {
	return s.listFn(ctx)
}

func TestAccountHandler_Create(t *testing.T) {
	stub := &stubAccountService{
		createFn: func(ctx context.Context, name string) (*domain.Account, error) {
			return &domain.Account{ID: "a1", Name: name, CreatedAt: time.Now()}, nil
		},
	}
	e, c, rec := newJSONContext(http.MethodPost, "/accounts", `{"name":"Acme"}`)
	withUser(c, &domain.UserContext{UserID: "u1"})

	if code := httpStatus(t, e, c, rec, NewAccountHandler(stub).Create(c)); code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	var resp accountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.ID != "a1" || resp.Name != "Acme" {
		t.Fatalf("unexpected account: %+v", resp)
	}
}

func TestAccountHandler_Create_MissingName(t *testing.T) {
	stub := &stubAccountService{
		createFn: func(ctx context.Context, name string) (*domain.Account, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	e, c, rec := newJSONContext(http.MethodPost, "/accounts", `{}`)
	withUser(c, &domain.UserContext{UserID: "u1"})

	if code := httpStatus(t, e, c, rec, NewAccountHandler(stub).Create(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestAccountHandler_List_EmptyIsArray(t *testing.T) {
	stub := &stubAccountService{
		listFn: func(ctx context.Context) ([]domain.AccountSummary, error) { return nil, nil },
	}
	e, c, rec := newJSONContext(http.MethodGet, "/accounts", "")
	withUser(c, &domain.UserContext{UserID: "u1"})

	if code := httpStatus(t, e, c, rec, NewAccountHandler(stub).List(c)); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if got := rec.Body.String(); got != "{\"accounts\":[]}\n" {
		t.Fatalf("unexpected body: %q", got)
	}
}
