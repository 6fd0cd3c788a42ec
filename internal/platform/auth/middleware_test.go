package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinic/reserve/pkg/model"
)

type fakeResolver struct {
	users map[string]*model.User
}

func (f *fakeResolver) Resolve(_ context.Context, token string) (*model.User, error) {
	if u, ok := f.users[token]; ok {
		return u, nil
	}
	return nil, errors.New("unknown token")
}

func newResolver() *fakeResolver {
	return &fakeResolver{users: map[string]*model.User{
		"admin1":  {UserID: "admin1", Name: "Admin", Role: model.RoleAdmin},
		"staff1":  {UserID: "staff1", Name: "Staff", Role: model.RoleGeneral},
		"viewer1": {UserID: "viewer1", Name: "Viewer", Role: model.RoleViewer},
	}}
}

func run(t *testing.T, mw echo.MiddlewareFunc, authorization string, extra ...echo.MiddlewareFunc) (int, *model.User) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *model.User
	handler := func(c echo.Context) error {
		seen = CurrentUser(c)
		return c.NoContent(http.StatusOK)
	}
	h := handler
	for i := len(extra) - 1; i >= 0; i-- {
		h = extra[i](h)
	}
	err := mw(h)(c)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he.Code, seen
		}
		t.Fatalf("unexpected error type: %v", err)
	}
	return rec.Code, seen
}

func TestAuthenticate(t *testing.T) {
	mw := Authenticate(newResolver())

	tests := []struct {
		name          string
		authorization string
		wantStatus    int
		wantUser      string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"unknown token", "Bearer nobody", http.StatusForbidden, ""},
		{"bearer token", "Bearer staff1", http.StatusOK, "staff1"},
		{"raw token without prefix", "staff1", http.StatusOK, "staff1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, user := run(t, mw, tt.authorization)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if tt.wantUser != "" && (user == nil || user.UserID != tt.wantUser) {
				t.Errorf("user = %+v, want %s", user, tt.wantUser)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	mw := Authenticate(newResolver())

	if status, _ := run(t, mw, "Bearer admin1", RequireAdmin); status != http.StatusOK {
		t.Errorf("admin should pass, got %d", status)
	}
	if status, _ := run(t, mw, "Bearer staff1", RequireAdmin); status != http.StatusForbidden {
		t.Errorf("general staff should be rejected, got %d", status)
	}
}

func TestRequireWriter(t *testing.T) {
	mw := Authenticate(newResolver())

	if status, _ := run(t, mw, "Bearer staff1", RequireWriter); status != http.StatusOK {
		t.Errorf("general staff should pass, got %d", status)
	}
	if status, _ := run(t, mw, "Bearer admin1", RequireWriter); status != http.StatusOK {
		t.Errorf("admin should pass, got %d", status)
	}
	if status, _ := run(t, mw, "Bearer viewer1", RequireWriter); status != http.StatusForbidden {
		t.Errorf("viewer should be rejected, got %d", status)
	}
}

func TestCurrentUserWithoutAuth(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if u := CurrentUser(c); u != nil {
		t.Errorf("expected nil user on unauthenticated context, got %+v", u)
	}
}
