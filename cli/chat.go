package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Message types
const (
	TypeChat  = "chat"
	TypeDelta = "delta"
	TypeDone  = "done"
	TypeError = "error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	RequestID string `json:"request_id,omitempty"`
}

// ChatMessage is sent to start a streamed reply.
type ChatMessage struct {
	BaseMessage
	Message string `json:"message"`
}

// ServerMessage is the union of delta, done and error frames.
type ServerMessage struct {
	BaseMessage
	Content        string  `json:"content,omitempty"`
	Response       string  `json:"response,omitempty"`
	ProcessingTime float64 `json:"processing_time,omitempty"`
	Code           string  `json:"code,omitempty"`
	Message        string  `json:"message,omitempty"`
}

// Client represents a WebSocket client.
type Client struct {
	conn *websocket.Conn
	done chan struct{}
}

// NewClient creates a new client and connects to the server.
func NewClient(addr string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	return &Client{
		conn: conn,
		done: make(chan struct{}),
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	close(c.done)
	return c.conn.Close()
}

// SendChat sends a chat message.
func (c *Client) SendChat(content string) error {
	msg := ChatMessage{
		BaseMessage: BaseMessage{
			Type:      TypeChat,
			Ts:        time.Now().UnixMilli(),
			RequestID: fmt.Sprintf("req_%d", time.Now().UnixNano()),
		},
		Message: content,
	}

	return c.conn.WriteJSON(msg)
}

// ReadMessages reads frames and prints them to w until the connection closes.
// turnDone receives a value after every done or error frame.
func (c *Client) ReadMessages(w io.Writer, turnDone chan<- struct{}) {
	for {
		select {
		case <-c.done:
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					log.Printf("Read error: %v", err)
				}
				close(turnDone)
				return
			}

			var msg ServerMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				log.Printf("Unmarshal error: %v", err)
				continue
			}
			if renderMessage(w, msg) {
				turnDone <- struct{}{}
			}
		}
	}
}

// renderMessage prints one frame and reports whether it ended a turn.
func renderMessage(w io.Writer, msg ServerMessage) bool {
	switch msg.Type {
	case TypeDelta:
		fmt.Fprint(w, msg.Content)
		return false
	case TypeDone:
		fmt.Fprintf(w, "\n[%s] %.2fs\n", msg.RequestID, msg.ProcessingTime)
		return true
	case TypeError:
		fmt.Fprintf(w, "\n[%s] error %s: %s\n", msg.RequestID, msg.Code, msg.Message)
		return true
	default:
		fmt.Fprintf(w, "\n[%s] unexpected frame\n", msg.Type)
		return false
	}
}

// wsURL turns the HTTP base URL into the streaming chat endpoint.
func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws/chat"
}

func runChat(base string) error {
	addr := wsURL(base)
	fmt.Printf("Connecting to %s...\n", addr)

	client, err := NewClient(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	fmt.Println("Connected. Ask Kangtani anything about your farm.")
	fmt.Println("Commands: /quit to exit")

	turnDone := make(chan struct{}, 1)
	go client.ReadMessages(os.Stdout, turnDone)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" {
			fmt.Println("Bye!")
			return nil
		}

		if err := client.SendChat(input); err != nil {
			log.Printf("Send error: %v", err)
			continue
		}

		select {
		case _, ok := <-turnDone:
			if !ok {
				return fmt.Errorf("connection closed")
			}
		case <-interrupt:
			fmt.Println("\nInterrupted")
			return nil
		}
	}
}
