package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	linkapi "github.com/cousinlabs/cousin-link/api/echo"
	"github.com/cousinlabs/cousin-link/config"
	"github.com/cousinlabs/cousin-link/log"
)

// NewHTTPServer creates and configures the Echo HTTP server hosting the
// linking API.
func NewHTTPServer(cfg *config.ServerConfig, appLogger log.Logger, api *linkapi.LinkAPI) *http.Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogger(appLogger))
	e.Use(otelecho.Middleware(cfg.OtelServiceName))

	api.RegisterRoutes(e)

	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      e,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// requestLogger logs one line per request with latency and outcome.
func requestLogger(appLogger log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			latency := time.Since(start)

			req := c.Request()
			fields := map[string]interface{}{
				"method":     req.Method,
				"path":       req.URL.Path,
				"status":     c.Response().Status,
				"latency":    latency.String(),
				"ip":         c.RealIP(),
				"user_agent": req.UserAgent(),
			}
			if err != nil {
				appLogger.Error(req.Context(), "HTTP request failed", err, fields)
			} else {
				appLogger.Info(req.Context(), "HTTP request", fields)
			}
			return err
		}
	}
}
