package token

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/ecommerce_backend/internal/authz"
)

// Require authenticates the request (rotating tokens when needed) and
// rejects it unless the caller's role is allowed the action. This is the
// only place the authz table is consulted for HTTP traffic.
func (t *TokenService) Require(action authz.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			newAccess, newRefresh, claims, err := t.CheckCookie(c)
			if err != nil {
				return err
			}

			if newRefresh != "" {
				c.SetCookie(CreateCookie("accessToken", newAccess, "/", time.Now().Add(AccessTTL)))
				c.SetCookie(CreateCookie("refreshToken", newRefresh, "/", time.Now().Add(RefreshTTL)))
			}

			role, err := setUserContext(c, claims)
			if err != nil {
				return err
			}

			if !authz.Allowed(role, action) {
				return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
			}
			return next(c)
		}
	}
}

func setUserContext(c echo.Context, claims jwt.MapClaims) (authz.Role, error) {
	sub, ok := claims["sub"].(float64)
	if !ok {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid subject claim")
	}
	rawRole, ok := claims["role"].(string)
	if !ok {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid role claim")
	}
	role, err := authz.ParseRole(rawRole)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusForbidden, "unknown role")
	}

	c.Set("userID", uint(sub))
	c.Set("role", role)
	return role, nil
}

// UserID reads the authenticated user id placed in the context by Require.
func UserID(c echo.Context) (uint, bool) {
	id, ok := c.Get("userID").(uint)
	return id, ok
}

func RoleOf(c echo.Context) (authz.Role, bool) {
	role, ok := c.Get("role").(authz.Role)
	return role, ok
}
