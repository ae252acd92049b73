package realtime

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/studysync/studysync/models"
)

const (
	pingInterval   = 15 * time.Second
	sendBufferSize = 32
)

// Conn wraps one websocket connection. Events are queued on a buffered
// channel and written by a single pump goroutine; slow consumers drop
// events rather than block the broadcast path.
type Conn struct {
	ID       string
	Identity models.Identity

	ws   *websocket.Conn
	send chan models.Event
}

func newConn(id string, identity models.Identity, ws *websocket.Conn) *Conn {
	return &Conn{
		ID:       id,
		Identity: identity,
		ws:       ws,
		send:     make(chan models.Event, sendBufferSize),
	}
}

// writePump serializes all writes to the websocket and keeps the
// connection alive with periodic pings.
func (c *Conn) writePump(logger *zap.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(event); err != nil {
				logger.Debug("write failed, closing connection",
					zap.String("connection", c.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
}
