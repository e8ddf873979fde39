package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const userIDKey = "user_id"

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// AuthMiddleware accepts the token from the "token" header, an
// "Authorization: Bearer" header, or a "token" query parameter for
// EventSource clients that cannot set headers.
func AuthMiddleware(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractToken(c.Request())
			if token == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "Unauthorized",
					"code":  "UNAUTHENTICATED",
				})
			}

			userID, err := verifier.VerifyToken(token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "Invalid or expired token",
					"code":  "UNAUTHENTICATED",
				})
			}

			c.Set(userIDKey, userID)
			return next(c)
		}
	}
}

func extractToken(r *http.Request) string {
	if t := strings.TrimSpace(r.Header.Get("token")); t != "" {
		return t
	}
	if auth := r.Header.Get(echo.HeaderAuthorization); len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// UserID returns the id set by AuthMiddleware.
func UserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}
