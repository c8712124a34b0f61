// Package ws streams chat replies over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Herutriana44/kangtani.ai/internal/domain"
	"github.com/Herutriana44/kangtani.ai/internal/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

var errConnClosed = errors.New("websocket connection closed")

// Handler upgrades /ws/chat and serves streaming chat.
type Handler struct {
	service        *service.Service
	maxMessageSize int64
	upgrader       websocket.Upgrader
}

// NewHandler creates a WebSocket handler. maxMessageSize <= 0 disables the read limit.
func NewHandler(svc *service.Service, maxMessageSize int64) *Handler {
	return &Handler{
		service:        svc,
		maxMessageSize: maxMessageSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes registers the WebSocket route.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/chat", h.HandleWebSocket)
}

// connection is one client socket. Writes go through send so that only
// writePump touches the socket.
type connection struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	ctx    context.Context
	cancel context.CancelFunc
}

func (c *connection) close() {
	c.once.Do(func() {
		c.cancel()
		close(c.done)
	})
}

func (c *connection) sendJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return errConnClosed
	}
}

// HandleWebSocket handles WebSocket upgrade and connection lifecycle.
func (h *Handler) HandleWebSocket(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	conn := &connection{
		conn:   ws,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	if h.maxMessageSize > 0 {
		ws.SetReadLimit(h.maxMessageSize)
	}

	go h.writePump(conn)
	go h.readPump(conn)

	return nil
}

// readPump reads messages from the WebSocket connection.
func (h *Handler) readPump(conn *connection) {
	defer conn.close()

	conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.conn.SetPongHandler(func(string) error {
		conn.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
		conn.conn.SetReadDeadline(time.Now().Add(pongWait))

		h.handleMessage(conn, message)
	}
}

// writePump writes queued messages and keeps the connection alive with pings.
func (h *Handler) writePump(conn *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.close()
		conn.conn.Close()
	}()

	for {
		select {
		case message := <-conn.send:
			conn.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Failed to write message: %v", err)
				return
			}

		case <-ticker.C:
			conn.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-conn.done:
			conn.conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// handleMessage dispatches incoming messages to appropriate handlers.
func (h *Handler) handleMessage(conn *connection, data []byte) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		h.sendError(conn, "", ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch base.Type {
	case TypeChat:
		h.handleChat(conn, data)
	default:
		h.sendError(conn, base.RequestID, ErrorCodeInvalidMessage, "unknown message type: "+base.Type)
	}
}

// handleChat streams one reply. It runs in its own goroutine so the read
// loop keeps answering pings during long generations.
func (h *Handler) handleChat(conn *connection, data []byte) {
	var msg ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendError(conn, "", ErrorCodeInvalidMessage, "invalid chat message")
		return
	}

	requestID := msg.RequestID
	if requestID == "" {
		requestID = domain.NewRequestID()
	}
	req := &domain.ChatRequest{
		Message:     msg.Message,
		AudioBase64: msg.AudioBase64,
		FileContent: msg.FileContent,
	}

	go func() {
		log.Printf("[%s] websocket chat started", requestID)
		resp, err := h.service.ChatStream(conn.ctx, requestID, req, func(delta string) error {
			return conn.sendJSON(DeltaMessage{
				BaseMessage: BaseMessage{Type: TypeDelta, Ts: time.Now().UnixMilli(), RequestID: requestID},
				Content:     delta,
			})
		})
		if err != nil {
			code := ErrorCodeModelError
			if errors.Is(err, domain.ErrInvalidRequest) {
				code = ErrorCodeInvalidRequest
			}
			h.sendError(conn, requestID, code, err.Error())
			return
		}

		conn.sendJSON(DoneMessage{
			BaseMessage:    BaseMessage{Type: TypeDone, Ts: time.Now().UnixMilli(), RequestID: requestID},
			Response:       resp.Response,
			ProcessingTime: resp.ProcessingTime,
			Model:          resp.Model,
		})
	}()
}

// sendError sends an error message to a connection.
func (h *Handler) sendError(conn *connection, requestID, code, message string) {
	errMsg := ErrorMessage{
		BaseMessage: BaseMessage{
			Type:      TypeError,
			Ts:        time.Now().UnixMilli(),
			RequestID: requestID,
		},
		Code:    code,
		Message: message,
	}
	if err := conn.sendJSON(errMsg); err != nil && !errors.Is(err, errConnClosed) {
		log.Printf("Failed to send error message: %v", err)
	}
}
