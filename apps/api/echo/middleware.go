package echoapi

import (
	"github.com/labstack/echo/v4"
)

// noStoreMiddleware keeps rendered marksheets, which carry student data, out of shared caches.
func noStoreMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctx.Response().Header().Set("Cache-Control", "no-store")
			return next(ctx)
		}
	}
}
