package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/paywatch/paywatch/internal/infrastructure/clients"
)

// BasePayHandler fronts the Base L2 charge rail for merchants that accept
// EVM settlement alongside Solana.
type BasePayHandler struct {
	basePay *clients.BasePayClient
	logger  zerolog.Logger
}

func NewBasePayHandler(basePay *clients.BasePayClient, logger zerolog.Logger) *BasePayHandler {
	return &BasePayHandler{
		basePay: basePay,
		logger:  logger,
	}
}

func (h *BasePayHandler) CreateCharge(c *gin.Context) {
	var params clients.CreateChargeParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}

	charge, err := h.basePay.CreateCharge(c.Request.Context(), params)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create Base charge")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Bad Gateway",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, charge)
}

func (h *BasePayHandler) GetChargeStatus(c *gin.Context) {
	testnet, _ := strconv.ParseBool(c.DefaultQuery("testnet", "false"))

	status, err := h.basePay.GetChargeStatus(c.Request.Context(), c.Param("id"), testnet)
	if err != nil {
		h.logger.Error().Err(err).Str("charge_id", c.Param("id")).Msg("Failed to fetch Base charge status")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Bad Gateway",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, status)
}
