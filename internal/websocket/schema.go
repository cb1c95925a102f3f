// Package websocket carries the wire schema and connection helpers for the
// WebSocket variant of the generation stream. Frames mirror the SSE events
// one-to-one so both transports expose the same protocol.
package websocket

import "github.com/searchlab/examgen-backend/internal/stream"

// Frame is one server-to-client message.
type Frame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// NewFrame converts a stream event into its wire frame.
func NewFrame(ev stream.Event) Frame {
	return Frame{Event: string(ev.Type), Data: ev.Data}
}

// ErrorFrame builds an error frame with a detail message.
func ErrorFrame(detail string) Frame {
	return Frame{Event: string(stream.EventError), Data: map[string]string{"detail": detail}}
}
