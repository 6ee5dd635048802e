package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/electromart/electromart/internal/service/token"
)

// Guard is the single place requests are authenticated and role-gated.
// Handlers read the attached identity from the echo context instead of
// inspecting tokens themselves.
type Guard struct {
	Tokens *token.Service
}

func CreateCookie(name, value, path string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  exp,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

// UserID returns the authenticated user id attached by the guard.
func UserID(c echo.Context) (uint, error) {
	id, ok := c.Get("userID").(uint)
	if !ok || id == 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	return id, nil
}

func Role(c echo.Context) string {
	role, _ := c.Get("role").(string)
	return role
}

func setUserContext(c echo.Context, claims jwt.MapClaims) {
	if sub, ok := claims["sub"].(float64); ok {
		c.Set("userID", uint(sub))
	}
	if role, ok := claims["role"].(string); ok {
		c.Set("role", role)
	}
}

// authenticate validates the access cookie, transparently rotating via
// the refresh cookie when the access token has expired.
func (g *Guard) authenticate(c echo.Context) error {
	if cookie, err := c.Cookie("accessToken"); err == nil {
		claims, parseErr := g.Tokens.ParseAccess(cookie.Value)
		if parseErr == nil {
			setUserContext(c, claims)
			return nil
		}
		if !errors.Is(parseErr, jwt.ErrTokenExpired) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}
	}

	rfCookie, err := c.Cookie("refreshToken")
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "refresh token missing")
	}

	newAccess, newRefresh, claims, err := g.Tokens.RotateToken(rfCookie.Value)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "cannot rotate token: "+err.Error())
	}

	c.SetCookie(CreateCookie("accessToken", newAccess, "/", time.Now().Add(15*time.Minute)))
	c.SetCookie(CreateCookie("refreshToken", newRefresh, "/", time.Now().Add(7*24*time.Hour)))

	setUserContext(c, claims)
	return nil
}

func (g *Guard) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := g.authenticate(c); err != nil {
			return err
		}
		return next(c)
	}
}

func (g *Guard) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := g.authenticate(c); err != nil {
			return err
		}
		if Role(c) != "admin" {
			return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
		}
		return next(c)
	}
}
