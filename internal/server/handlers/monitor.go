package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/paywatch/paywatch/internal/application/paymentmonitor"
)

type MonitorHandler struct {
	monitor paymentmonitor.IPaymentMonitor
}

func NewMonitorHandler(monitor paymentmonitor.IPaymentMonitor) *MonitorHandler {
	return &MonitorHandler{monitor: monitor}
}

func (h *MonitorHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.Status())
}

func (h *MonitorHandler) Start(c *gin.Context) {
	h.monitor.StartMonitoring()
	c.JSON(http.StatusOK, h.monitor.Status())
}

func (h *MonitorHandler) Stop(c *gin.Context) {
	h.monitor.StopMonitoring()
	c.JSON(http.StatusOK, h.monitor.Status())
}
