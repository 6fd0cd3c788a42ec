// Package auth authenticates requests with the bearer-token scheme the
// clients use: the token is the caller's userId. Older clients send the
// raw token without the "Bearer " prefix; both forms are accepted.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/clinic/reserve/pkg/model"
)

const userContextKey = "auth_user"

// TokenResolver maps a token to its active account. The identity service
// implements it.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (*model.User, error)
}

// Authenticate returns middleware that requires a valid token and stores
// the resolved account in the request context. Missing token is 401,
// unknown token is 403.
func Authenticate(resolver TokenResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			token := strings.TrimPrefix(header, "Bearer ")
			u, err := resolver.Resolve(c.Request().Context(), token)
			if err != nil {
				return echo.NewHTTPError(http.StatusForbidden, "invalid token")
			}
			c.Set(userContextKey, u)
			return next(c)
		}
	}
}

// CurrentUser returns the authenticated account stored by Authenticate, or
// nil on an unauthenticated route.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(userContextKey).(*model.User)
	return u
}

// SetCurrentUser stores an account on the context directly. Handler tests
// use it to exercise routes without the full middleware chain.
func SetCurrentUser(c echo.Context, u *model.User) {
	c.Set(userContextKey, u)
}

// RequireAdmin rejects everyone but admins.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		u := CurrentUser(c)
		if u == nil || u.Role != model.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return next(c)
	}
}

// RequireWriter rejects viewer accounts; admins and general staff pass.
func RequireWriter(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		u := CurrentUser(c)
		if u == nil || u.Role == model.RoleViewer {
			return echo.NewHTTPError(http.StatusForbidden, "read-only account")
		}
		return next(c)
	}
}
