package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout bounds the request context. Handlers and the outbound AI
// call observe ctx.Done(), so a slow upstream is cancelled instead of leaking
// past the deadline. Export downloads are excluded.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if timeout <= 0 || c.Request().Header.Get(echo.HeaderAccept) == mimeXLSX {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
