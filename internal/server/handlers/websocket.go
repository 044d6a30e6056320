package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/paywatch/paywatch/internal/server/websocket"
	"github.com/paywatch/paywatch/pkg/config"
)

type WebSocketHandler struct {
	hub      *websocket.WsHub
	upgrader gws.Upgrader
}

func NewWebSocketHandler(hub *websocket.WsHub, cfg config.WebSocketConfig) *WebSocketHandler {
	readBuffer := cfg.ReadBufferSize
	if readBuffer <= 0 {
		readBuffer = 1024
	}
	writeBuffer := cfg.WriteBufferSize
	if writeBuffer <= 0 {
		writeBuffer = 1024
	}

	return &WebSocketHandler{
		hub: hub,
		upgrader: gws.Upgrader{
			ReadBufferSize:  readBuffer,
			WriteBufferSize: writeBuffer,
			CheckOrigin: func(r *http.Request) bool {
				if !cfg.CheckOrigin {
					// Checkout pages run on merchant origins which are not
					// known ahead of time.
					return true
				}
				origin := r.Header.Get("Origin")
				return origin == "" || strings.Contains(origin, r.Host)
			},
		},
	}
}

// HandleConnection upgrades the request and subscribes the client. An
// invoice_id query parameter pins the subscription to one invoice; without it
// the client receives every update.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Failed to upgrade to WebSocket",
		})
		return
	}

	client := &websocket.WsClient{
		InvoiceID: c.Query("invoice_id"),
		Conn:      conn,
	}

	h.hub.Register <- client
	go client.Listen(h.hub)
}
