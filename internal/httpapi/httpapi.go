// Package httpapi serves health, metrics and a JSON mirror of the Ormos
// operations over HTTP.
package httpapi

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/unitexe/skopos/internal/api"
	"github.com/unitexe/skopos/internal/service"
	"github.com/unitexe/skopos/internal/system"
)

const (
	HealthRoute  = "/healthz"
	MetricsRoute = "/metrics"
	BaseRoute    = "/api/v0"
)

type Options struct {
	// Metrics serves MetricsRoute when set
	Metrics http.Handler
	// Debug registers the pprof routes
	Debug bool
}

// New builds the echo instance
func New(ops service.Operations, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger())

	if opts.Debug {
		pprof.Register(e)
	}

	e.GET(HealthRoute, func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		e.GET(MetricsRoute, echo.WrapHandler(opts.Metrics))
	}

	g := &group{ops: ops}
	v0 := e.Group(BaseRoute)
	v0.GET("/devices", g.ListDevices)
	v0.POST("/devices/mount", g.MountDevice)
	v0.POST("/devices/unmount", g.UnmountDevice)
	v0.GET("/archives", g.ListArchives)
	v0.POST("/archives/load", g.LoadArchive)
	v0.POST("/archives/inspect", g.InspectArchive)

	return e
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURIPath: true,
		LogError:   true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Error != nil {
				event = log.Warn().Err(v.Error)
			}
			event.Str("method", c.Request().Method).
				Str("URI", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("http")
			return nil
		},
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == HealthRoute
		},
	})
}

type group struct {
	ops service.Operations
}

func (g *group) ListDevices(c echo.Context) error {
	resp, err := g.ops.ListUsbDevices(c.Request().Context(), &api.ListUsbDevicesRequest{})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (g *group) MountDevice(c echo.Context) error {
	var req api.MountUsbDeviceRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	resp, err := g.ops.MountUsbDevice(c.Request().Context(), &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (g *group) UnmountDevice(c echo.Context) error {
	var req api.UnmountUsbDeviceRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	resp, err := g.ops.UnmountUsbDevice(c.Request().Context(), &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (g *group) ListArchives(c echo.Context) error {
	req := api.ListImageArchivesRequest{Path: c.QueryParam("path")}
	resp, err := g.ops.ListImageArchives(c.Request().Context(), &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (g *group) LoadArchive(c echo.Context) error {
	var req api.LoadImageArchiveRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	resp, err := g.ops.LoadImageArchive(c.Request().Context(), &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (g *group) InspectArchive(c echo.Context) error {
	var req api.InspectImageArchiveRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	resp, err := g.ops.InspectImageArchive(c.Request().Context(), &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func httpError(err error) *echo.HTTPError {
	code := http.StatusInternalServerError
	switch system.KindOf(err) {
	case system.KindMalformedInput:
		code = http.StatusBadRequest
	case system.KindResourceAccess:
		switch {
		case errors.Is(err, fs.ErrNotExist):
			code = http.StatusNotFound
		case errors.Is(err, fs.ErrPermission):
			code = http.StatusForbidden
		}
	case system.KindTimeout:
		code = http.StatusGatewayTimeout
	}
	return echo.NewHTTPError(code, err.Error()).SetInternal(err)
}
