package main

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/jonwraymond/healthcheck/health"
)

// newServer mounts the health handlers on an echo router.
func newServer(hc *health.HealthCheck, prefix string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/healthz", echo.WrapHandler(health.LivenessHandler()))
	e.GET("/readyz", echo.WrapHandler(health.ReadinessHandler(hc)))

	g := e.Group(strings.TrimSuffix(prefix, "/"))
	g.GET("/config", echo.WrapHandler(health.ConfigHandler(hc)))
	g.GET("/internal", echo.WrapHandler(health.TasksHandler(hc)))
	g.POST("/internal", echo.WrapHandler(health.RunTasksHandler(hc)))

	return e
}
