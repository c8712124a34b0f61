// Package domain holds the request and response types shared by the gateway layers.
package domain

// ChatRequest is the JSON body of POST /chat.
type ChatRequest struct {
	Message     string `json:"message"`
	AudioBase64 string `json:"audio_base64,omitempty"`
	FileContent string `json:"file_content,omitempty"`
}

// HasInput reports whether the request carries anything to send to the model.
func (r *ChatRequest) HasInput() bool {
	return r.Message != "" || r.AudioBase64 != "" || r.FileContent != ""
}

// ChatResponse is returned by every chat variant.
type ChatResponse struct {
	Response       string  `json:"response"`
	Status         string  `json:"status"`
	RequestID      string  `json:"request_id"`
	ProcessingTime float64 `json:"processing_time"`
	Model          string  `json:"model,omitempty"`
}

// GenerateRequest is the JSON body of POST /generate.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

// ErrorResponse is the error envelope for all endpoints.
type ErrorResponse struct {
	Detail    string `json:"detail"`
	Status    string `json:"status"`
	RequestID string `json:"request_id,omitempty"`
}

// Upload is an attached file or audio clip received over multipart.
type Upload struct {
	Filename string
	Data     []byte
}
