// Package http provides the HTTP server implementation for the gateway.
package http

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Herutriana44/kangtani.ai/internal/config"
	"github.com/Herutriana44/kangtani.ai/internal/domain"
	"github.com/Herutriana44/kangtani.ai/internal/service"
	v1 "github.com/Herutriana44/kangtani.ai/internal/transport/http/v1"
	"github.com/Herutriana44/kangtani.ai/internal/transport/ws"
)

// NewServer creates and configures the gateway HTTP server.
func NewServer(svc *service.Service, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = errorHandler

	// Middleware
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: domain.NewRequestID,
	}))
	e.Use(lifecycle())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		ExposeHeaders: []string{echo.HeaderXRequestID},
	}))
	if cfg.MaxUploadMB > 0 {
		// one extra megabyte for multipart framing and the message field
		e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", cfg.MaxUploadMB+1)))
	}

	// Handlers
	v1Handler := v1.NewHandler(svc)
	wsHandler := ws.NewHandler(svc, cfg.MaxUploadBytes()*2)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	wsHandler.RegisterRoutes(e)

	return e
}

// lifecycle logs the start and end of every request with its latency.
func lifecycle() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			requestID := v1.RequestID(c)
			start := time.Now()
			log.Printf("[%s] %s %s started", requestID, req.Method, req.URL.Path)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			log.Printf("[%s] %s %s -> %d (%.3fs)", requestID, req.Method, req.URL.Path,
				c.Response().Status, time.Since(start).Seconds())
			return nil
		}
	}
}

// errorHandler renders echo errors (404, 405, body limit, panics) in the
// gateway's error envelope.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	detail := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		detail = fmt.Sprint(he.Message)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, domain.ErrorResponse{
			Detail:    detail,
			Status:    string(domain.RequestStatusError),
			RequestID: v1.RequestID(c),
		})
	}
	if err != nil {
		log.Printf("ERROR: failed to write error response: %v", err)
	}
}
