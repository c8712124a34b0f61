package domain

// Endpoint names recorded in the request ledger.
type Endpoint string

const (
	EndpointChat      Endpoint = "chat"
	EndpointChatFile  Endpoint = "chat_file"
	EndpointChatAudio Endpoint = "chat_audio"
	EndpointChatWS    Endpoint = "chat_ws"
	EndpointGenerate  Endpoint = "generate"
)

// RequestStatus is the outcome of a gateway request.
type RequestStatus string

const (
	RequestStatusSuccess  RequestStatus = "success"
	RequestStatusError    RequestStatus = "error"
	RequestStatusRejected RequestStatus = "rejected"
)

// UploadKind distinguishes documents from audio in policy input.
type UploadKind string

const (
	UploadKindFile  UploadKind = "file"
	UploadKindAudio UploadKind = "audio"
)

// Policy decisions.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Policy reasons with a dedicated HTTP status.
const (
	ReasonTooLarge = "too_large"
)
