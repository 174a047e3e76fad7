package auth

import (
	"github.com/labstack/echo/v4"
)

var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
}

// AuthSkipper returns true for infrastructure endpoints that must answer
// without a bearer token.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}
