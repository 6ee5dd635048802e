package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/electromart/electromart/internal/models"
	"github.com/electromart/electromart/internal/service/token"
)

func newGuard(t *testing.T) *Guard {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.RefreshToken{}))
	return &Guard{Tokens: &token.Service{
		DB:            db,
		JWTSecret:     []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
	}}
}

func run(t *testing.T, g *Guard, mw func(echo.HandlerFunc) echo.HandlerFunc, cookies ...*http.Cookie) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := mw(func(c echo.Context) error {
		id, err := UserID(c)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, echo.Map{"user_id": id, "role": Role(c)})
	})
	return rec, handler(c)
}

func TestRequireLoginWithAccessCookie(t *testing.T) {
	g := newGuard(t)

	raw, err := g.Tokens.SignAccessToken(7, "user")
	require.NoError(t, err)

	rec, err := run(t, g, g.RequireLogin, &http.Cookie{Name: "accessToken", Value: raw})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"user_id":7`)
}

func TestRequireLoginNoCookies(t *testing.T) {
	g := newGuard(t)

	_, err := run(t, g, g.RequireLogin)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestRequireLoginGarbageAccessToken(t *testing.T) {
	g := newGuard(t)

	_, err := run(t, g, g.RequireLogin, &http.Cookie{Name: "accessToken", Value: "garbage"})

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

// With no access cookie but a valid stored refresh token, the guard
// rotates and sets fresh cookies instead of rejecting the request.
func TestRequireLoginRotatesViaRefreshCookie(t *testing.T) {
	g := newGuard(t)

	refresh, err := g.Tokens.SignRefreshToken(5, "user")
	require.NoError(t, err)
	require.NoError(t, g.Tokens.SaveRefreshToken(refresh, 5, "user"))

	rec, err := run(t, g, g.RequireLogin, &http.Cookie{Name: "refreshToken", Value: refresh})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"user_id":5`)

	cookieNames := make(map[string]bool)
	for _, ck := range rec.Result().Cookies() {
		cookieNames[ck.Name] = true
	}
	require.True(t, cookieNames["accessToken"])
	require.True(t, cookieNames["refreshToken"])
}

func TestRequireAdminForbidsUserRole(t *testing.T) {
	g := newGuard(t)

	raw, err := g.Tokens.SignAccessToken(7, "user")
	require.NoError(t, err)

	_, err = run(t, g, g.RequireAdmin, &http.Cookie{Name: "accessToken", Value: raw})

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusForbidden, httpErr.Code)
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	g := newGuard(t)

	raw, err := g.Tokens.SignAccessToken(1, "admin")
	require.NoError(t, err)

	rec, err := run(t, g, g.RequireAdmin, &http.Cookie{Name: "accessToken", Value: raw})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"role":"admin"`)
}
