package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Herutriana44/kangtani.ai/internal/domain"
)

// Chat sends a message, with optional inline audio and file content.
// POST /chat
func (h *Handler) Chat(c echo.Context) error {
	requestID := RequestID(c)

	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	resp, err := h.service.Chat(c.Request().Context(), requestID, &req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// ChatFile sends a message with an uploaded document.
// POST /chat/file (multipart: message, file)
func (h *Handler) ChatFile(c echo.Context) error {
	requestID := RequestID(c)

	upload, err := readUpload(c, "file")
	if err != nil {
		return serviceError(c, err)
	}

	resp, err := h.service.ChatWithFile(c.Request().Context(), requestID, c.FormValue("message"), upload)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// ChatAudio sends a message with an uploaded audio clip.
// POST /chat/audio (multipart: message, audio)
func (h *Handler) ChatAudio(c echo.Context) error {
	requestID := RequestID(c)

	upload, err := readUpload(c, "audio")
	if err != nil {
		return serviceError(c, err)
	}

	resp, err := h.service.ChatWithAudio(c.Request().Context(), requestID, c.FormValue("message"), upload)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Generate sends a bare prompt to the generate endpoint.
// POST /generate
func (h *Handler) Generate(c echo.Context) error {
	requestID := RequestID(c)

	var req domain.GenerateRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	resp, err := h.service.Generate(c.Request().Context(), requestID, &req)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}
