// Package envelope defines the request/reply contract layered on top of
// the one-way broker transport. A delivery that carries a reply address
// and a correlation token receives at most one JSON reply, published
// directly to that address; deliveries without a reply address are
// fire-and-forget.
package envelope

import "fmt"

// Metadata keys carried alongside every delivery. The transport marshaler
// maps them onto the corresponding AMQP properties.
const (
	KeyCorrelationID = "correlation_id"
	KeyReplyTo       = "reply_to"
	KeyContentType   = "content_type"
	KeyRoutingKey    = "routing_key"
)

// Status is the outcome field of a reply body.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Reply is the JSON body published to a delivery's reply address.
type Reply struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// OK builds a success reply with a human-readable message.
func OK(format string, args ...any) *Reply {
	return &Reply{Status: StatusOK, Message: fmt.Sprintf(format, args...)}
}

// OKData builds a success reply carrying a data payload.
func OKData(data any) *Reply {
	return &Reply{Status: StatusOK, Data: data}
}

// Errorf builds an error reply with a descriptive message.
func Errorf(format string, args ...any) *Reply {
	return &Reply{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}
