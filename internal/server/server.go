package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/paywatch/paywatch/internal/application/invoiceservice"
	"github.com/paywatch/paywatch/internal/application/paymentmonitor"
	"github.com/paywatch/paywatch/internal/infrastructure/clients"
	"github.com/paywatch/paywatch/internal/infrastructure/database"
	"github.com/paywatch/paywatch/internal/infrastructure/rpc"
	"github.com/paywatch/paywatch/internal/server/handlers"
	"github.com/paywatch/paywatch/internal/server/websocket"
	"github.com/paywatch/paywatch/pkg/config"
)

type Server struct {
	InvoiceSvc invoiceservice.IInvoiceService
	Monitor    paymentmonitor.IPaymentMonitor
	BasePay    *clients.BasePayClient
	DB         *database.DBManager
	Chain      *rpc.SolanaClient
	Cfg        *config.Config
	Logger     zerolog.Logger
	Router     *gin.Engine
	httpServer *http.Server
	WsHub      *websocket.WsHub
}

func New(
	cfg *config.Config,
	invoiceSvc invoiceservice.IInvoiceService,
	monitor paymentmonitor.IPaymentMonitor,
	basePay *clients.BasePayClient,
	db *database.DBManager,
	chain *rpc.SolanaClient,
	logger zerolog.Logger,
	wsHub *websocket.WsHub,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	return &Server{
		Cfg:        cfg,
		InvoiceSvc: invoiceSvc,
		Monitor:    monitor,
		BasePay:    basePay,
		DB:         db,
		Chain:      chain,
		Logger:     logger,
		Router:     router,
		WsHub:      wsHub,
	}
}

func (s *Server) SetupRouter() {
	handler := handlers.New(
		s.InvoiceSvc,
		s.Monitor,
		s.BasePay,
		s.DB,
		s.Chain,
		s.WsHub,
		s.Logger,
		s.Cfg,
	)
	handler.SetupHandlers(s.Router)
}

// Start runs the HTTP server until SIGINT or SIGTERM, then drains in-flight
// requests and stops the payment monitor.
func (s *Server) Start() {
	s.SetupRouter()

	s.httpServer = &http.Server{
		Addr:         s.Cfg.Server.Host + ":" + s.Cfg.Server.Port,
		Handler:      s.Router,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	s.Logger.Info().Msgf("Starting server on %s", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-stopChan
	s.Logger.Info().Msg("Shutdown signal received, shutting down server...")

	s.Monitor.StopMonitoring()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.Logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	s.Logger.Info().Msg("Server exited gracefully")
}
