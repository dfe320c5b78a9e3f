// Package auth holds the JWT middleware and token issuance. Players
// are guests: a token binds a generated player ID and a display name,
// with no account behind it.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys set by the middleware.
const (
	ContextPlayerID   = "playerID"
	ContextPlayerName = "playerName"
)

// Claims carries the player identity inside the token.
type Claims struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	jwt.RegisteredClaims
}

// Middleware validates the bearer token and stores the player identity
// in the request context. The websocket upgrade path cannot set
// headers, so a token query parameter is accepted as a fallback.
func Middleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString := ""

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.Split(authHeader, " ")
				if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
					tokenString = parts[1]
				}
			}
			if tokenString == "" {
				tokenString = c.QueryParam("token")
			}
			if tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid token")
			}

			token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			claims, ok := token.Claims.(*Claims)
			if !ok {
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to extract claims")
			}

			c.Set(ContextPlayerID, claims.PlayerID)
			c.Set(ContextPlayerName, claims.PlayerName)
			return next(c)
		}
	}
}

// PlayerID returns the authenticated player's ID from the context.
func PlayerID(c echo.Context) string {
	id, _ := c.Get(ContextPlayerID).(string)
	return id
}

// PlayerName returns the authenticated player's display name.
func PlayerName(c echo.Context) string {
	name, _ := c.Get(ContextPlayerName).(string)
	return name
}

// GenerateToken issues a signed token for a guest player.
func GenerateToken(playerID, playerName, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		PlayerID:   playerID,
		PlayerName: playerName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
