package stream

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const (
	maxMessageSize  = 64 * 1024
	writeWait       = 10 * time.Second
	defaultPongWait = 60 * time.Second
)

// RegisterRoutes mounts the websocket endpoint. Clients pass userId and
// sessionId as query parameters.
func RegisterRoutes(r fiber.Router, gw *Gateway) {
	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		client := gw.Open(c.Query("userId"), c.Query("sessionId"))
		c.SetReadLimit(maxMessageSize)
		_ = c.SetReadDeadline(time.Now().Add(gw.pongWait))
		c.SetPongHandler(func(string) error {
			return c.SetReadDeadline(time.Now().Add(gw.pongWait))
		})

		done := make(chan struct{})
		go func() {
			defer close(done)
			ticker := time.NewTicker(gw.pingPeriod())
			defer ticker.Stop()
			for {
				select {
				case msg, ok := <-client.Send:
					if !ok {
						return
					}
					_ = c.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
						_ = c.Close()
						return
					}
				case <-ticker.C:
					_ = c.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
						_ = c.Close()
						return
					}
				}
			}
		}()

		reason := "client disconnect"
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					reason = err.Error()
				}
				break
			}
			// any inbound frame proves the peer is alive
			_ = c.SetReadDeadline(time.Now().Add(gw.pongWait))
			gw.Dispatch(client.ID, msg)
		}

		gw.log.Debug("connection closing", zap.String("connection_id", client.ID), zap.String("reason", reason))
		gw.Close(client, reason)
		<-done
	}))
}
