package push

import (
	"reflect"

	"github.com/danmuck/pushwire/internal/protocol"
)

// Response is the immutable outcome of one push: a status tag plus an opaque
// result payload.
type Response struct {
	Status  string
	Payload any
}

// ResponseFromMessage extracts the reply body from a correlated message.
// Absent status/response keys yield zero values rather than an error.
func ResponseFromMessage(msg protocol.Message) Response {
	body, ok := msg.Payload.(map[string]any)
	if !ok {
		return Response{}
	}
	var resp Response
	if status, ok := body["status"].(string); ok {
		resp.Status = status
	}
	resp.Payload = body["response"]
	return resp
}

// TimeoutResponse synthesizes the outcome recorded when no reply arrived.
func TimeoutResponse() Response {
	return Response{Status: protocol.StatusTimeout}
}

func (r Response) IsOK() bool      { return r.Status == protocol.StatusOK }
func (r Response) IsError() bool   { return r.Status == protocol.StatusError }
func (r Response) IsTimeout() bool { return r.Status == protocol.StatusTimeout }

// Equal reports structural equality of status and payload.
func (r Response) Equal(other Response) bool {
	return r.Status == other.Status && reflect.DeepEqual(r.Payload, other.Payload)
}
