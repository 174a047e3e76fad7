package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RegisterRevocationRoutes registers POST /auth/logout, which revokes the
// caller's current token.
func RegisterRevocationRoutes(g *echo.Group, store Revoker) {
	g.POST("/auth/logout", handleLogout(store))
}

func handleLogout(store Revoker) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, ok := ClaimsFromEcho(c)
		if !ok || claims.ID == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "token has no jti")
		}
		exp := time.Now().Add(24 * time.Hour)
		if claims.ExpiresAt != nil {
			exp = claims.ExpiresAt.Time
		}
		if err := store.Revoke(c.Request().Context(), claims.ID, exp); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}
