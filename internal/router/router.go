package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/iliyamo/lang-learner-backend/internal/handler"
	"github.com/iliyamo/lang-learner-backend/internal/metrics"
	"github.com/iliyamo/lang-learner-backend/internal/middleware"
	"github.com/iliyamo/lang-learner-backend/internal/utils"
)

// bodyLimit caps auth request bodies at 16 KiB.
const bodyLimit = "16K"

// RegisterRoutes registers routes that need no authentication: the health
// check and, when reg is non-nil, the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, reg *prometheus.Registry) {
	e.GET("/healthz", handler.Health)
	if reg != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(reg)))
	}
}

// RegisterAuth registers the auth API under /api. limiter guards the
// credential endpoints; pass nil to skip rate limiting. /api/me requires a
// valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, tokens *utils.TokenIssuer, limiter echo.MiddlewareFunc) {
	g := e.Group("/api", echomw.BodyLimit(bodyLimit))

	creds := []echo.MiddlewareFunc{}
	if limiter != nil {
		creds = append(creds, limiter)
	}
	g.POST("/register", a.Register, creds...)
	g.POST("/login", a.Login, creds...)
	g.GET("/login", a.Login, creds...)
	g.POST("/refresh", a.Refresh, creds...)

	g.GET("/me", a.Me, middleware.JWTAuth(tokens))
}
