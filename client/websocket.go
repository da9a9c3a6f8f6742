package client

import (
	"fmt"

	"github.com/gorilla/websocket"
)

// WebSocketConnection is one scoped connection to the ComfyUI event channel.
// It is acquired immediately before a wait loop and must be closed when the
// loop exits, on every path.
type WebSocketConnection struct {
	conn *websocket.Conn
}

// openWebSocket dials the event channel with the client's TLS policy and
// session identifier.
func (c *ComfyClient) openWebSocket() (*WebSocketConnection, error) {
	conn, _, err := c.dialer.Dial(c.wsURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to event channel: %w", err)
	}
	return &WebSocketConnection{conn: conn}, nil
}

// ReadMessage blocks until the next frame arrives and returns its type
// (text or binary) along with the payload.
func (w *WebSocketConnection) ReadMessage() (int, []byte, error) {
	return w.conn.ReadMessage()
}

func (w *WebSocketConnection) Close() error {
	return w.conn.Close()
}
