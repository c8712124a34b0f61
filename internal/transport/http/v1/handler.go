// Package v1 provides the HTTP handlers of the gateway.
package v1

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Herutriana44/kangtani.ai/internal/domain"
	"github.com/Herutriana44/kangtani.ai/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the gateway routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/health", h.Health)
	e.GET("/debug", h.Debug)
	e.GET("/debug/requests/:request_id", h.DebugRequest)
	e.GET("/models", h.Models)

	e.POST("/chat", h.Chat)
	e.POST("/chat/file", h.ChatFile)
	e.POST("/chat/audio", h.ChatAudio)
	e.POST("/generate", h.Generate)
}

// Root identifies the service.
// GET /
func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Kangtani.ai Backend API",
		"status":  "running",
	})
}

// Health reports model server connectivity. It always answers 200.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Health(c.Request().Context()))
}

// Debug returns service info and recent requests.
// GET /debug?limit=20
func (h *Handler) Debug(c echo.Context) error {
	limit := service.DefaultDebugLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return errorJSON(c, http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	info, err := h.service.Debug(c.Request().Context(), limit)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, info)
}

// DebugRequest returns the ledger record of one request.
// GET /debug/requests/:request_id
func (h *Handler) DebugRequest(c echo.Context) error {
	rec, err := h.service.GetRequest(c.Request().Context(), c.Param("request_id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// Models lists the models installed on the model server.
// GET /models
func (h *Handler) Models(c echo.Context) error {
	models, err := h.service.ListModels(c.Request().Context())
	if err != nil {
		return errorJSON(c, http.StatusBadGateway, err.Error())
	}
	if models == nil {
		models = []domain.ModelInfo{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"models": models,
	})
}

// RequestID returns the id assigned by the RequestID middleware, or assigns
// one when the handler runs without it.
func RequestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	id := c.Request().Header.Get(echo.HeaderXRequestID)
	if id == "" {
		id = domain.NewRequestID()
	}
	c.Response().Header().Set(echo.HeaderXRequestID, id)
	return id
}

func errorJSON(c echo.Context, code int, detail string) error {
	return c.JSON(code, domain.ErrorResponse{
		Detail:    detail,
		Status:    string(domain.RequestStatusError),
		RequestID: RequestID(c),
	})
}

// serviceError maps a service error to its status code and error envelope.
func serviceError(c echo.Context, err error) error {
	return errorJSON(c, domain.HTTPStatus(err), err.Error())
}

// readUpload reads a multipart file part into memory.
func readUpload(c echo.Context, field string) (*domain.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, domain.Invalid(field + " is required")
		}
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
			return nil, &domain.UploadRejectedError{Reason: domain.ReasonTooLarge}
		}
		return nil, domain.Invalid("invalid multipart form: " + err.Error())
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &domain.Upload{Filename: fh.Filename, Data: data}, nil
}
