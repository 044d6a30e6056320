package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	readLimit = 512
	pongWait  = 60 * time.Second
)

// Listen drains inbound frames until the peer goes away, then hands the
// client back to the hub. Checkout pages never send application data; the
// read loop exists only to observe pings and disconnects.
func (c *WsClient) Listen(hub *WsHub) {
	defer func() {
		hub.Unregister <- c
	}()

	c.Conn.SetReadLimit(readLimit)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("invoice_id", c.InvoiceID).Msg("Unexpected WebSocket close error")
			}
			return
		}
	}
}
