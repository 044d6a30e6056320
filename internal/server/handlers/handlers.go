package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/paywatch/paywatch/internal/application/invoiceservice"
	"github.com/paywatch/paywatch/internal/application/paymentmonitor"
	"github.com/paywatch/paywatch/internal/infrastructure/clients"
	"github.com/paywatch/paywatch/internal/infrastructure/database"
	"github.com/paywatch/paywatch/internal/infrastructure/rpc"
	"github.com/paywatch/paywatch/internal/server/middleware"
	"github.com/paywatch/paywatch/internal/server/websocket"
	"github.com/paywatch/paywatch/pkg/config"
)

type Handlers struct {
	InvoiceSvc invoiceservice.IInvoiceService
	Monitor    paymentmonitor.IPaymentMonitor
	BasePay    *clients.BasePayClient
	DB         *database.DBManager
	Chain      *rpc.SolanaClient
	WsHub      *websocket.WsHub
	Logger     zerolog.Logger
	Config     *config.Config
}

func New(
	invoiceSvc invoiceservice.IInvoiceService,
	monitor paymentmonitor.IPaymentMonitor,
	basePay *clients.BasePayClient,
	db *database.DBManager,
	chain *rpc.SolanaClient,
	wsHub *websocket.WsHub,
	logger zerolog.Logger,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		InvoiceSvc: invoiceSvc,
		Monitor:    monitor,
		BasePay:    basePay,
		DB:         db,
		Chain:      chain,
		WsHub:      wsHub,
		Logger:     logger,
		Config:     cfg,
	}
}

func (h *Handlers) SetupHandlers(router *gin.Engine) {
	mw := middleware.NewMiddleware(h.Config.Security.APIKey, h.Logger)
	mw.SetupMiddleware(router)

	invoiceHandler := NewInvoiceHandler(h.InvoiceSvc, h.Monitor, h.WsHub, h.Logger)
	monitorHandler := NewMonitorHandler(h.Monitor)
	basePayHandler := NewBasePayHandler(h.BasePay, h.Logger)
	wsHandler := NewWebSocketHandler(h.WsHub, h.Config.WebSocket)
	healthHandler := NewHealthHandler(h.DB, h.Chain, h.Monitor)

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// WebSocket endpoint for checkout pages and dashboards. Browsers cannot
	// set headers on WebSocket dials, so the middleware's api_key query
	// parameter branch carries the key here.
	router.GET("/ws", mw.APIKeyMiddleware(), wsHandler.HandleConnection)

	v1 := router.Group("/v1")
	v1.Use(mw.APIKeyMiddleware())
	{
		invoices := v1.Group("/invoices")
		{
			invoices.POST("", invoiceHandler.CreateInvoice)
			invoices.GET("", invoiceHandler.ListInvoices)
			invoices.GET("/:id", invoiceHandler.GetInvoice)
			invoices.POST("/:id/cancel", invoiceHandler.CancelInvoice)
			invoices.POST("/:id/check", invoiceHandler.CheckInvoice)
			invoices.GET("/:id/transactions", invoiceHandler.ListInvoiceTransactions)
		}

		monitor := v1.Group("/monitor")
		{
			monitor.GET("", monitorHandler.Status)
			monitor.POST("/start", monitorHandler.Start)
			monitor.POST("/stop", monitorHandler.Stop)
		}

		base := v1.Group("/base")
		{
			base.POST("/charges", basePayHandler.CreateCharge)
			base.GET("/charges/:id", basePayHandler.GetChargeStatus)
		}
	}
}
