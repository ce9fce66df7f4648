// Package middleware provides HTTP middleware for the bridge API.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"meshview/internal/auth"
)

// ContextKey type for context values.
type ContextKey string

// ClientIDKey is the context key for the authenticated frontend client ID.
const ClientIDKey ContextKey = "client_id"

// TokenAuth validates the bridge bearer token. The token may arrive in
// the Authorization header or, for WebSocket upgrades where headers are
// awkward for some frontends, the access_token query parameter.
func TokenAuth(tokenConfig *auth.TokenConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString := bearerToken(c)
			if tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bridge token")
			}

			claims, err := auth.ValidateToken(tokenString, tokenConfig)
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(string(ClientIDKey), claims.ClientID)
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.QueryParam("access_token")
}

// GetClientID retrieves the authenticated client ID from context.
func GetClientID(c echo.Context) string {
	if id, ok := c.Get(string(ClientIDKey)).(string); ok {
		return id
	}
	return ""
}
