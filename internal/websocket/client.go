package websocket

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	// fits a send command carrying chat.MaxMessageLength characters of
	// three-byte script plus the JSON envelope
	maxMessageSize = 8192
)

// Client is a middleman between the websocket connection and the surface
// loop that owns it.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// ID identifies the connection in logs.
	ID string

	// Surface is "widget" or "operator".
	Surface string

	// Buffered channel of outbound frames. Only the surface loop sends on it
	// and closes it when the loop returns.
	Send chan []byte

	// Inbound commands, read by the surface loop.
	Commands chan []byte
}

// readPump pumps commands from the websocket connection to the surface loop
// until the connection fails or ctx ends.
func (c *Client) readPump(ctx context.Context) {
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("Hub", "Unexpected close", map[string]interface{}{"client_id": c.ID, "error": err.Error()})
			}
			return
		}
		select {
		case c.Commands <- message:
		case <-ctx.Done():
			return
		}
	}
}

// writePump pumps frames from the surface loop to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The surface loop is done.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One frame per websocket message: every frame is a complete
			// replacement of the previous one.
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
