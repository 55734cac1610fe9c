package proto

import "encoding/json"

// Inbound is the envelope for requests coming from the client. ID correlates
// the request with its result and, for subscriptions, names the stream.
type Inbound struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	InboundTypeUserName     = "user_name"
	InboundTypeUserNames    = "user_names"
	InboundTypeMessage      = "message"
	InboundTypeMessages     = "messages"
	InboundTypeConnected    = "connected"
	InboundTypeDisconnected = "disconnected"
	InboundTypeCancel       = "cancel"
	InboundTypeFibonacci    = "fibonacci"
	InboundTypeFactorial    = "factorial"

	OutboundTypeResult = "result"
	OutboundTypeEvent  = "event"
	OutboundTypeLagged = "lagged"
	OutboundTypeEnd    = "end"
	OutboundTypeError  = "error"

	EventMessage      = "message"
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
)

// Error codes carried in Outbound.Error.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeUnknownType     = "unknown_type"
	ErrCodeDuplicateStream = "duplicate_stream"
	ErrCodeUnknownStream   = "unknown_stream"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeComputeFailed   = "compute_failed"
)

// MessageData is the payload of a "message" request.
type MessageData struct {
	Text string `json:"text"`
}

// NumberData is the payload of a compute request.
type NumberData struct {
	N uint64 `json:"n"`
}

// Outbound is the envelope for frames sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// UserNameResult answers "user_name".
type UserNameResult struct {
	Name string `json:"name"`
}

// UserNamesResult answers "user_names".
type UserNamesResult struct {
	Names []string `json:"names"`
}

// ComputeResult answers a compute request. Value is a base-10 integer.
type ComputeResult struct {
	N     uint64 `json:"n"`
	Value string `json:"value"`
}

// MessageEvent is a chat message pushed on a "messages" stream.
type MessageEvent struct {
	User string `json:"user"`
	Text string `json:"text"`
}

// EventUser is pushed on "connected" and "disconnected" streams.
type EventUser struct {
	User string `json:"user"`
}

// Lagged tells the client how many events a stream dropped.
type Lagged struct {
	Skipped uint64 `json:"skipped"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Msg
}

// Frame is an Outbound frame as read back by a client, with Data left raw.
type Frame struct {
	Type  string          `json:"type"`
	ID    string          `json:"id,omitempty"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *Error          `json:"error,omitempty"`
}
