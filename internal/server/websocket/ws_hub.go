package websocket

import (
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/paywatch/paywatch/internal/domain"
)

// firehoseKey is the subscription bucket for clients that did not pin an
// invoice and want every update.
const firehoseKey = ""

type WsHub struct {
	Clients    map[string]map[*websocket.Conn]bool // invoice id -> connections
	Broadcast  chan WsMessage
	Register   chan *WsClient
	Unregister chan *WsClient
	Logger     zerolog.Logger
}

// WsClient is one checkout page connection. InvoiceID is empty for firehose
// subscribers such as merchant dashboards.
type WsClient struct {
	InvoiceID string
	Conn      *websocket.Conn
}

type WsMessage struct {
	Type         string                      `json:"type"`
	Invoice      *domain.Invoice             `json:"invoice,omitempty"`
	Confirmation *domain.PaymentConfirmation `json:"confirmation,omitempty"`
}

func NewWsHub(logger zerolog.Logger) *WsHub {
	return &WsHub{
		Clients:    make(map[string]map[*websocket.Conn]bool),
		Broadcast:  make(chan WsMessage, 100),
		Register:   make(chan *WsClient, 100),
		Unregister: make(chan *WsClient, 100),
		Logger:     logger,
	}
}

func (h *WsHub) Run() {
	for {
		select {
		case client := <-h.Register:
			if h.Clients[client.InvoiceID] == nil {
				h.Clients[client.InvoiceID] = make(map[*websocket.Conn]bool)
			}
			h.Clients[client.InvoiceID][client.Conn] = true
			h.Logger.Info().
				Str("invoice_id", client.InvoiceID).
				Int("connection_count", len(h.Clients[client.InvoiceID])).
				Msg("WebSocket client registered")

		case client := <-h.Unregister:
			if clients, ok := h.Clients[client.InvoiceID]; ok {
				delete(clients, client.Conn)
				if len(clients) == 0 {
					delete(h.Clients, client.InvoiceID)
				}
				client.Conn.Close()
				h.Logger.Info().
					Str("invoice_id", client.InvoiceID).
					Msg("WebSocket client unregistered")
			}

		case message := <-h.Broadcast:
			invoiceID := message.invoiceID()
			h.Logger.Info().
				Str("invoice_id", invoiceID).
				Str("type", message.Type).
				Msg("Broadcasting update")

			h.send(invoiceID, message)
			if invoiceID != firehoseKey {
				h.send(firehoseKey, message)
			}
		}
	}
}

func (h *WsHub) send(key string, message WsMessage) {
	clients, ok := h.Clients[key]
	if !ok {
		return
	}
	for conn := range clients {
		if err := conn.WriteJSON(message); err != nil {
			h.Logger.Err(err).
				Str("invoice_id", key).
				Str("type", message.Type).
				Msg("Failed to send WebSocket message")
			conn.Close()
			delete(clients, conn)
		}
	}
	if len(clients) == 0 {
		delete(h.Clients, key)
	}
}

func (m WsMessage) invoiceID() string {
	switch {
	case m.Invoice != nil:
		return m.Invoice.ID
	case m.Confirmation != nil:
		return m.Confirmation.Invoice.ID
	}
	return firehoseKey
}

// BroadcastInvoice pushes an invoice state change to subscribers.
func (h *WsHub) BroadcastInvoice(invoice domain.Invoice) {
	h.Broadcast <- WsMessage{
		Type:    "invoice",
		Invoice: &invoice,
	}
}

// BroadcastConfirmation pushes a confirmed payment to subscribers.
func (h *WsHub) BroadcastConfirmation(confirmation domain.PaymentConfirmation) {
	h.Broadcast <- WsMessage{
		Type:         "confirmation",
		Confirmation: &confirmation,
	}
}
