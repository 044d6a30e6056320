package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/paywatch/paywatch/internal/application/invoiceservice"
	"github.com/paywatch/paywatch/internal/application/paymentmonitor"
	"github.com/paywatch/paywatch/internal/domain"
	"github.com/paywatch/paywatch/internal/server/websocket"
)

type InvoiceHandler struct {
	invoiceSvc invoiceservice.IInvoiceService
	monitor    paymentmonitor.IPaymentMonitor
	wsHub      *websocket.WsHub
	logger     zerolog.Logger
}

func NewInvoiceHandler(
	invoiceSvc invoiceservice.IInvoiceService,
	monitor paymentmonitor.IPaymentMonitor,
	wsHub *websocket.WsHub,
	logger zerolog.Logger,
) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceSvc: invoiceSvc,
		monitor:    monitor,
		wsHub:      wsHub,
		logger:     logger,
	}
}

type CreateInvoiceRequest struct {
	Recipient        string `json:"recipient" binding:"required"`
	Amount           string `json:"amount" binding:"required"`
	Token            string `json:"token" binding:"required"`
	Label            string `json:"label"`
	Message          string `json:"message"`
	Memo             string `json:"memo"`
	ExpiresInSeconds int64  `json:"expires_in_seconds"`
}

type InvoiceResponse struct {
	Invoice *domain.Invoice             `json:"invoice"`
	Links   invoiceservice.PaymentLinks `json:"links"`
}

func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "amount must be a decimal string",
		})
		return
	}

	invoice, err := h.invoiceSvc.Create(c.Request.Context(), invoiceservice.CreateParams{
		Recipient: req.Recipient,
		Amount:    amount,
		Token:     domain.TokenCode(req.Token),
		Label:     req.Label,
		Message:   req.Message,
		Memo:      req.Memo,
		ExpiresIn: time.Duration(req.ExpiresInSeconds) * time.Second,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}

	h.wsHub.BroadcastInvoice(*invoice)

	c.JSON(http.StatusCreated, InvoiceResponse{
		Invoice: invoice,
		Links:   h.invoiceSvc.Links(invoice),
	})
}

func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	var status *domain.InvoiceStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.InvoiceStatus(raw)
		status = &s
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	invoices, err := h.invoiceSvc.List(c.Request.Context(), status, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list invoices")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to list invoices",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invoices": invoices,
		"count":    len(invoices),
	})
}

func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.invoiceSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondInvoiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, InvoiceResponse{
		Invoice: invoice,
		Links:   h.invoiceSvc.Links(invoice),
	})
}

func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	invoice, err := h.invoiceSvc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondInvoiceError(c, err)
		return
	}

	h.wsHub.BroadcastInvoice(*invoice)
	c.JSON(http.StatusOK, gin.H{"invoice": invoice})
}

// CheckInvoice triggers an on-demand payment check outside the polling
// schedule, for checkout pages that want an immediate answer.
func (h *InvoiceHandler) CheckInvoice(c *gin.Context) {
	id := c.Param("id")

	paid, err := h.monitor.CheckInvoicePayment(c.Request.Context(), id)
	if err != nil {
		h.logger.Error().Err(err).Str("invoice_id", id).Msg("Manual payment check failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Payment check failed",
		})
		return
	}

	invoice, err := h.invoiceSvc.Get(c.Request.Context(), id)
	if err != nil {
		h.respondInvoiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"paid":    paid,
		"invoice": invoice,
	})
}

func (h *InvoiceHandler) ListInvoiceTransactions(c *gin.Context) {
	transactions, err := h.invoiceSvc.ListTransactions(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondInvoiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

func (h *InvoiceHandler) respondInvoiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, invoiceservice.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Not Found",
			"message": "Invoice not found",
		})
	case errors.Is(err, invoiceservice.ErrNotCancellable):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "Conflict",
			"message": "Invoice is in a terminal state",
		})
	default:
		h.logger.Error().Err(err).Msg("Invoice request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": err.Error(),
		})
	}
}
