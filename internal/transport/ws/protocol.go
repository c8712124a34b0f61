package ws

// Message types from client to gateway
const (
	TypeChat = "chat"
)

// Message types from gateway to client
const (
	TypeDelta = "delta"
	TypeDone  = "done"
	TypeError = "error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ChatMessage is sent by the client; the fields mirror POST /chat.
type ChatMessage struct {
	BaseMessage
	Message     string `json:"message"`
	AudioBase64 string `json:"audio_base64,omitempty"`
	FileContent string `json:"file_content,omitempty"`
}

// DeltaMessage carries one streamed fragment of the reply.
type DeltaMessage struct {
	BaseMessage
	Content string `json:"content"`
}

// DoneMessage ends a successful stream with the full reply.
type DoneMessage struct {
	BaseMessage
	Response       string  `json:"response"`
	ProcessingTime float64 `json:"processing_time"`
	Model          string  `json:"model,omitempty"`
}

// ErrorMessage ends a failed stream or reports a bad client message.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeModelError     = "model_error"
)
