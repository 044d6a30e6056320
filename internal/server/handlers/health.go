package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/paywatch/paywatch/internal/application/paymentmonitor"
	"github.com/paywatch/paywatch/internal/infrastructure/database"
	"github.com/paywatch/paywatch/internal/infrastructure/rpc"
)

type HealthHandler struct {
	db      *database.DBManager
	chain   *rpc.SolanaClient
	monitor paymentmonitor.IPaymentMonitor
}

func NewHealthHandler(db *database.DBManager, chain *rpc.SolanaClient, monitor paymentmonitor.IPaymentMonitor) *HealthHandler {
	return &HealthHandler{
		db:      db,
		chain:   chain,
		monitor: monitor,
	}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "paywatch",
		"version":   "1.0.0",
		"timestamp": time.Now(),
	})
}

// Ready verifies the database and the RPC node before reporting ready.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.Db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  "database unreachable",
		})
		return
	}

	version, err := h.chain.GetVersion(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  "rpc node unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "ready",
		"service":     "paywatch",
		"version":     "1.0.0",
		"solana_core": version.SolanaCore,
		"monitoring":  h.monitor.Status().IsMonitoring,
		"timestamp":   time.Now(),
	})
}
