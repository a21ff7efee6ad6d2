package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	bridgeapi "github.com/edulab-dev/lms-bridge/api/echo"
	"github.com/edulab-dev/lms-bridge/config"
)

// PingFunc is the health-check dependency, typically the mongo client ping.
type PingFunc func(ctx context.Context) error

// NewHTTPServer builds the echo server with the bridge routes, metrics,
// and health endpoints mounted.
func NewHTTPServer(cfg *config.ServerConfig, api *bridgeapi.BridgeAPI, gatherer prometheus.Gatherer, ping PingFunc) *http.Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	api.RegisterRoutes(e)

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	e.GET("/healthz", func(c echo.Context) error {
		if ping != nil {
			if err := ping(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: e,
	}
}
