package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// WriteFrame sends a frame with a write deadline.
func WriteFrame(conn *websocket.Conn, frame Frame) error {
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(frame)
}

// WriteError sends an error frame.
func WriteError(conn *websocket.Conn, detail string) error {
	return WriteFrame(conn, ErrorFrame(detail))
}

// ReadJSON reads and decodes one client message with a read deadline.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
	return conn.ReadJSON(v)
}
