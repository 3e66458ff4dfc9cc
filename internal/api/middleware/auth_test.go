package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/iam-engine/internal/core/domain"
	"github.com/99minutos/iam-engine/internal/core/service"
)

type stubValidator struct {
	result domain.TokenValidationResult
	err    error
	got    string
}

func (s *stubValidator) Validate(_ context.Context, token string) (domain.TokenValidationResult, error) {
	s.got = token
	return s.result, s.err
}

func runAuth(t *testing.T, v *stubValidator, header string, next echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	req.Header.Set(HeaderDeviceID, "laptop")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := Auth(v, service.NewPermissionResolver(nil, nil, nil), nil, zerolog.Nop())
	if err := mw(next)(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	v := &stubValidator{result: domain.TokenValidationResult{
		Status:            domain.TokenValid,
		UserID:            "u1",
		SignedInAccountID: "a1",
		TokenID:           "jti-1",
		AccountIDs:        []string{"a1", "a2"},
	}}

	called := false
	rec := runAuth(t, v, "Bearer abc.def.ghi", func(c echo.Context) error {
		called = true
		uc := service.UserContextFrom(c.Request().Context())
		if uc == nil {
			t.Fatalf("user context not bound to request")
		}
		if uc.UserID != "u1" || uc.AccountID != "a1" || uc.TokenID != "jti-1" || uc.DeviceID != "laptop" {
			t.Fatalf("unexpected user context: %+v", uc)
		}
		if len(uc.Accounts) != 2 || uc.Accounts[0].ID != "a1" || uc.Accounts[1].ID != "a2" {
			t.Fatalf("expected accounts from the token, got %+v", uc.Accounts)
		}
		if c.Get(ContextKeyUser) != uc {
			t.Fatalf("echo context user mismatch")
		}
		return c.NoContent(http.StatusOK)
	})

	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if v.got != "abc.def.ghi" {
		t.Fatalf("validator received %q", v.got)
	}
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	rec := runAuth(t, &stubValidator{}, "", func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddleware_InvalidHeaderFormat(t *testing.T) {
	rec := runAuth(t, &stubValidator{}, "Token abc", func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddleware_RejectedToken(t *testing.T) {
	for _, status := range []domain.TokenValidationStatus{
		domain.TokenInvalidFormat,
		domain.TokenMissingUserIDClaim,
		domain.TokenValidationFailed,
	} {
		v := &stubValidator{result: domain.TokenValidationResult{Status: status}}
		rec := runAuth(t, v, "Bearer not-a-token", func(c echo.Context) error {
			t.Fatalf("should not reach next")
			return nil
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%v: expected 401, got %d", status, rec.Code)
		}
	}
}

func TestAuthMiddleware_StorageFailure(t *testing.T) {
	v := &stubValidator{err: errors.New("mongo down")}
	rec := runAuth(t, v, "Bearer abc", func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
