package middleware

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// ロール
const (
	RoleUser  = "USER"
	RoleStaff = "STAFF"
	RoleAdmin = "ADMIN"
)

const identityKey = "identity"

// Identity はトークンから取り出した呼び出し元
type Identity struct {
	UserID   string
	Role     string
	CinemaID string
}

// IsStaff はスタッフ以上の権限を持つかを返す
func (i *Identity) IsStaff() bool {
	return i.Role == RoleStaff || i.Role == RoleAdmin
}

// Requester は所有者チェックに使う呼び出し元IDを返す
// スタッフは全件にアクセスできるため nil を返す
func (i *Identity) Requester() *string {
	if i.IsStaff() {
		return nil
	}
	id := i.UserID
	return &id
}

// Claims はアクセストークンのクレーム
type Claims struct {
	Role     string `json:"role"`
	CinemaID string `json:"cinema_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTAuth は HS256 の Bearer トークンを検証し、呼び出し元をコンテキストに格納する
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "認証トークンがありません")
			}

			claims := &Claims{}
			_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "認証トークンが無効です").SetInternal(err)
			}
			if claims.Subject == "" || !validRole(claims.Role) {
				return echo.NewHTTPError(http.StatusUnauthorized, "認証トークンのクレームが不正です")
			}

			SetIdentity(c, &Identity{
				UserID:   claims.Subject,
				Role:     claims.Role,
				CinemaID: claims.CinemaID,
			})
			return next(c)
		}
	}
}

// RequireRole は指定ロールのいずれかを要求する
// JWTAuth の後に適用する
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "認証が必要です")
			}
			if !slices.Contains(roles, id.Role) {
				return echo.NewHTTPError(http.StatusForbidden, "権限がありません")
			}
			return next(c)
		}
	}
}

// IdentityFrom はコンテキストから呼び出し元を取得する
func IdentityFrom(c echo.Context) (*Identity, bool) {
	id, ok := c.Get(identityKey).(*Identity)
	return id, ok && id != nil
}

// SetIdentity は呼び出し元をコンテキストに格納する
func SetIdentity(c echo.Context, id *Identity) {
	c.Set(identityKey, id)
}

// IssueToken はアクセストークンを発行する
func IssueToken(secret string, id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:     id.Role,
		CinemaID: id.CinemaID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func validRole(role string) bool {
	switch role {
	case RoleUser, RoleStaff, RoleAdmin:
		return true
	}
	return false
}
