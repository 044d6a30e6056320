package main

import (
	"github.com/paywatch/paywatch/internal/application/invoiceservice"
	"github.com/paywatch/paywatch/internal/application/paymentmonitor"
	"github.com/paywatch/paywatch/internal/domain"
	"github.com/paywatch/paywatch/internal/infrastructure/clients"
	"github.com/paywatch/paywatch/internal/infrastructure/database"
	"github.com/paywatch/paywatch/internal/infrastructure/rpc"
	"github.com/paywatch/paywatch/internal/repositories/invoicerepo"
	"github.com/paywatch/paywatch/internal/repositories/transactionrepo"
	"github.com/paywatch/paywatch/internal/server"
	"github.com/paywatch/paywatch/internal/server/websocket"
	"github.com/paywatch/paywatch/pkg/config"
	"github.com/paywatch/paywatch/pkg/logger"
)

func main() {
	logger := logger.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.ShutDown()

	tokens, err := domain.NewTokenRegistry(domain.SolanaClusterType(cfg.Solana.Cluster), cfg.MintAddresses)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build token registry")
	}

	chain, err := rpc.NewSolanaClient(cfg.Solana, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build Solana RPC client")
	}

	invoiceRepo := invoicerepo.New(db, logger)
	transactionRepo := transactionrepo.New(db, logger)
	basePayClient := clients.NewBasePayClient(cfg.BasePay, logger)

	invoiceService := invoiceservice.New(invoiceRepo, transactionRepo, tokens, cfg.Monitor, logger)
	monitor := paymentmonitor.New(invoiceRepo, transactionRepo, chain, tokens, cfg.Monitor, logger)

	wsHub := websocket.NewWsHub(logger)
	go wsHub.Run()

	monitor.OnPaymentConfirmed(func(confirmation domain.PaymentConfirmation) {
		wsHub.BroadcastConfirmation(confirmation)
		wsHub.BroadcastInvoice(confirmation.Invoice)
	})
	monitor.OnPaymentFailed(func(invoice domain.Invoice, cause error) {
		logger.Error().
			Str("invoice_id", invoice.ID).
			Err(cause).
			Msg("Payment failed")
		wsHub.BroadcastInvoice(invoice)
	})

	monitor.StartMonitoring()

	srv := server.New(cfg, invoiceService, monitor, basePayClient, db, chain, logger, wsHub)
	srv.Start()
}
