package websocket

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Loop is a surface event loop. It reads commands until the channel closes
// or ctx ends, and owns send: it must not send after returning.
type Loop func(ctx context.Context, commands <-chan []byte, send chan<- []byte)

// ServeWs runs loop for one connection and returns once the connection and
// every goroutine started for it are gone.
func ServeWs(hub *Hub, c *websocket.Conn, surface string, loop Loop) {
	client := &Client{
		Hub:      hub,
		Conn:     c,
		ID:       uuid.NewString(),
		Surface:  surface,
		Send:     make(chan []byte, 64),
		Commands: make(chan []byte, 16),
	}
	hub.add(client)
	defer hub.remove(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		defer close(client.Send)
		loop(ctx, client.Commands, client.Send)
	}()

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		client.writePump()
	}()

	// Run readPump in current goroutine (handler)
	client.readPump(ctx)
	cancel()
	<-loopDone
	<-writeDone
}
