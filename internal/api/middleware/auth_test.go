package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret"

func newAuthEcho(roles ...string) *echo.Echo {
	e := echo.New()
	mws := []echo.MiddlewareFunc{JWTAuth(testSecret)}
	if len(roles) > 0 {
		mws = append(mws, RequireRole(roles...))
	}
	e.GET("/me", func(c echo.Context) error {
		id, ok := IdentityFrom(c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.String(http.StatusOK, id.UserID+"/"+id.Role+"/"+id.CinemaID)
	}, mws...)
	return e
}

func doGet(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	t.Run("有効なトークンで呼び出し元が格納される", func(t *testing.T) {
		token, err := IssueToken(testSecret, Identity{UserID: "user-1", Role: RoleUser, CinemaID: "cinema-1"}, time.Hour)
		require.NoError(t, err)

		rec := doGet(newAuthEcho(), token)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1/USER/cinema-1", rec.Body.String())
	})

	t.Run("トークンなしは401", func(t *testing.T) {
		rec := doGet(newAuthEcho(), "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("署名鍵が異なると401", func(t *testing.T) {
		token, err := IssueToken("other-secret", Identity{UserID: "user-1", Role: RoleUser}, time.Hour)
		require.NoError(t, err)

		rec := doGet(newAuthEcho(), token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("期限切れは401", func(t *testing.T) {
		token, err := IssueToken(testSecret, Identity{UserID: "user-1", Role: RoleUser}, -time.Minute)
		require.NoError(t, err)

		rec := doGet(newAuthEcho(), token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("未知のロールは401", func(t *testing.T) {
		token, err := IssueToken(testSecret, Identity{UserID: "user-1", Role: "ROOT"}, time.Hour)
		require.NoError(t, err)

		rec := doGet(newAuthEcho(), token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("HS256以外のアルゴリズムは拒否", func(t *testing.T) {
		claims := Claims{
			Role:             RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{Subject: "admin-1"},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		rec := doGet(newAuthEcho(), token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	e := newAuthEcho(RoleStaff, RoleAdmin)

	t.Run("一般ユーザーは403", func(t *testing.T) {
		token, err := IssueToken(testSecret, Identity{UserID: "user-1", Role: RoleUser}, time.Hour)
		require.NoError(t, err)

		rec := doGet(e, token)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("スタッフは許可", func(t *testing.T) {
		token, err := IssueToken(testSecret, Identity{UserID: "staff-1", Role: RoleStaff}, time.Hour)
		require.NoError(t, err)

		rec := doGet(e, token)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestIdentity_Requester(t *testing.T) {
	user := &Identity{UserID: "user-1", Role: RoleUser}
	require.NotNil(t, user.Requester())
	assert.Equal(t, "user-1", *user.Requester())
	assert.False(t, user.IsStaff())

	staff := &Identity{UserID: "staff-1", Role: RoleStaff}
	assert.Nil(t, staff.Requester())
	assert.True(t, staff.IsStaff())

	admin := &Identity{UserID: "admin-1", Role: RoleAdmin}
	assert.Nil(t, admin.Requester())
}
