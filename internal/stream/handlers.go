package stream

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes exposes a read-only websocket per view: every message
// broadcast for the view is forwarded to the client.
func RegisterRoutes(r fiber.Router, hub *Hub) {
	r.Get("/ws/:viewID", websocket.New(func(c *websocket.Conn) {
		client := hub.Register(c.Params("viewID"))
		Pump(c, hub, client, nil)
	}))
}

// Pump writes the client messages to the socket until either side goes
// away. Incoming messages are passed to onMessage, if any.
func Pump(c *websocket.Conn, hub *Hub, client *Client, onMessage func(msg []byte)) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range client.Send {
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				// unblock the reader
				_ = c.Close()
				return
			}
		}
	}()

	for {
		_, msg, err := c.ReadMessage()
		if err != nil {
			break
		}
		if onMessage != nil {
			onMessage(msg)
		}
	}
	hub.Unregister(client)
	<-done
}
