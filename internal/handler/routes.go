package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/narapeka/emby.plugin.strmx/internal/middleware"
)

// RegisterRoutes wires all route handlers onto the Echo instance. The
// wildcard proxy route catches everything else; echo gives the static
// routes precedence. Security headers go only on the proxy-owned endpoints
// so forwarded Emby responses stay untouched.
func RegisterRoutes(e *echo.Echo, proxy *ProxyHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz, middleware.SecurityHeaders())
	e.GET("/proxy/status", health.Status, middleware.SecurityHeaders())

	e.Any("/*", proxy.Handle)
}
