package webmiddleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt"
	echojwt "github.com/labstack/echo-jwt"
	"github.com/labstack/echo/v4"
)

// ActorClaims is the bearer token shape the core consumes. Per spec.md §1
// the core never issues tokens — it only validates {actor, role}, which an
// external auth service is assumed to have minted.
type ActorClaims struct {
	Actor string `json:"actor"`
	Role  string `json:"role"`
	jwt.StandardClaims
}

const contextKeyActor = "actor_claims"

// BearerAuth builds the echo-jwt middleware that guards every /api/equipment,
// /api/temperature and /api/schedule route. secret is the JWT signing key;
// the "runner" role is accepted so CronRunner's own loopback POST can reuse
// the user-facing endpoints.
func BearerAuth(secret string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(secret),
		Claims:        &ActorClaims{},
		ContextKey:    contextKeyActor,
		TokenLookup:   "header:Authorization:Bearer ",
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing bearer token")
		},
	})
}

// Actor extracts the validated claims BearerAuth attached to the request
// context. Callers must run behind BearerAuth.
func Actor(c echo.Context) *ActorClaims {
	token, ok := c.Get(contextKeyActor).(*jwt.Token)
	if !ok {
		return nil
	}
	claims, ok := token.Claims.(*ActorClaims)
	if !ok {
		return nil
	}
	return claims
}

// ESP32APIKey guards the two device-facing endpoints with a static shared
// key header instead of a bearer token — the microcontroller has no session
// of its own to hold a JWT for.
func ESP32APIKey(expected string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got := strings.TrimSpace(c.Request().Header.Get("X-API-Key"))
			if expected == "" || got != expected {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid API key")
			}
			return next(c)
		}
	}
}
