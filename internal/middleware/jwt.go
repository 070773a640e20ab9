package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// JWTAuth validates an HS256 Bearer access token and stores the subject
// (as uint64) and role claims in the context for UserID and Role.
func JWTAuth(secret string) echo.MiddlewareFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	key := func(*jwt.Token) (any, error) { return []byte(secret), nil }

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || raw == "" {
				return deny(c, http.StatusUnauthorized, "missing bearer token")
			}
			claims := jwt.MapClaims{}
			tok, err := parser.ParseWithClaims(raw, claims, key)
			if err != nil || !tok.Valid {
				return deny(c, http.StatusUnauthorized, "invalid token")
			}
			id, ok := subjectClaim(claims["sub"])
			if !ok {
				return deny(c, http.StatusUnauthorized, "invalid claims")
			}
			role, _ := claims["role"].(string)
			c.Set(ctxUserID, id)
			c.Set(ctxRole, role)
			return next(c)
		}
	}
}

// subjectClaim accepts the numeric sub written by utils.NewAccessToken as
// well as the string form used by other issuers.
func subjectClaim(v any) (uint64, bool) {
	var (
		id  uint64
		err error
	)
	switch s := v.(type) {
	case float64:
		if s <= 0 || s != float64(uint64(s)) {
			return 0, false
		}
		return uint64(s), true
	case json.Number:
		id, err = strconv.ParseUint(s.String(), 10, 64)
	case string:
		id, err = strconv.ParseUint(s, 10, 64)
	default:
		return 0, false
	}
	return id, err == nil && id != 0
}
