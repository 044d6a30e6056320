package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paywatch/paywatch/internal/application/invoiceservice"
	"github.com/paywatch/paywatch/internal/application/paymentmonitor"
	"github.com/paywatch/paywatch/internal/domain"
	"github.com/paywatch/paywatch/internal/server/middleware"
	"github.com/paywatch/paywatch/internal/server/websocket"
	"github.com/paywatch/paywatch/pkg/config"
)

type stubInvoiceService struct {
	invoices map[string]*domain.Invoice
}

func (s *stubInvoiceService) Create(_ context.Context, params invoiceservice.CreateParams) (*domain.Invoice, error) {
	invoice := &domain.Invoice{
		ID:        uuid.New().String(),
		Amount:    params.Amount,
		Token:     params.Token,
		Status:    domain.InvoiceStatusCreated,
		Label:     params.Label,
		CreatedAt: time.Now(),
	}
	s.invoices[invoice.ID] = invoice
	return invoice, nil
}

func (s *stubInvoiceService) Get(_ context.Context, id string) (*domain.Invoice, error) {
	if invoice, ok := s.invoices[id]; ok {
		return invoice, nil
	}
	return nil, invoiceservice.ErrNotFound
}

func (s *stubInvoiceService) GetByReference(_ context.Context, _ string) (*domain.Invoice, error) {
	return nil, invoiceservice.ErrNotFound
}

func (s *stubInvoiceService) List(_ context.Context, _ *domain.InvoiceStatus, _, _ int) ([]domain.Invoice, error) {
	var result []domain.Invoice
	for _, invoice := range s.invoices {
		result = append(result, *invoice)
	}
	return result, nil
}

func (s *stubInvoiceService) Cancel(_ context.Context, id string) (*domain.Invoice, error) {
	invoice, ok := s.invoices[id]
	if !ok {
		return nil, invoiceservice.ErrNotFound
	}
	if invoice.Status.IsTerminal() {
		return nil, invoiceservice.ErrNotCancellable
	}
	invoice.Status = domain.InvoiceStatusCancelled
	return invoice, nil
}

func (s *stubInvoiceService) ListTransactions(_ context.Context, id string) ([]domain.Transaction, error) {
	if _, ok := s.invoices[id]; !ok {
		return nil, invoiceservice.ErrNotFound
	}
	return nil, nil
}

func (s *stubInvoiceService) Links(invoice *domain.Invoice) invoiceservice.PaymentLinks {
	return invoiceservice.PaymentLinks{PaymentURL: invoice.PaymentURL}
}

type stubMonitor struct {
	running bool
	paid    bool
}

func (m *stubMonitor) StartMonitoring() { m.running = true }
func (m *stubMonitor) StopMonitoring()  { m.running = false }
func (m *stubMonitor) Status() paymentmonitor.MonitorStatus {
	return paymentmonitor.MonitorStatus{IsMonitoring: m.running}
}
func (m *stubMonitor) CheckInvoicePayment(context.Context, string) (bool, error) {
	return m.paid, nil
}
func (m *stubMonitor) OnPaymentConfirmed(func(domain.PaymentConfirmation)) {}
func (m *stubMonitor) OnPaymentFailed(func(domain.Invoice, error))         {}

const testAPIKey = "test-key"

func newTestRouter(t *testing.T) (*gin.Engine, *stubInvoiceService, *stubMonitor) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := &stubInvoiceService{invoices: make(map[string]*domain.Invoice)}
	monitor := &stubMonitor{}
	hub := websocket.NewWsHub(zerolog.Nop())

	invoiceHandler := NewInvoiceHandler(svc, monitor, hub, zerolog.Nop())
	monitorHandler := NewMonitorHandler(monitor)
	mw := middleware.NewMiddleware(testAPIKey, zerolog.Nop())

	router := gin.New()
	v1 := router.Group("/v1")
	v1.Use(mw.APIKeyMiddleware())
	v1.POST("/invoices", invoiceHandler.CreateInvoice)
	v1.GET("/invoices/:id", invoiceHandler.GetInvoice)
	v1.POST("/invoices/:id/cancel", invoiceHandler.CancelInvoice)
	v1.POST("/invoices/:id/check", invoiceHandler.CheckInvoice)
	v1.GET("/monitor", monitorHandler.Status)

	wsHandler := NewWebSocketHandler(hub, config.WebSocketConfig{})
	router.GET("/ws", mw.APIKeyMiddleware(), wsHandler.HandleConnection)

	return router, svc, monitor
}

func doRequest(router *gin.Engine, method, path, body string, withKey bool) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if withKey {
		req.Header.Set("X-API-Key", testAPIKey)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAPIKeyRequired(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/v1/monitor", "", false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(router, http.MethodGet, "/v1/monitor", "", true)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestWebSocketEndpointRequiresAPIKey(t *testing.T) {
	router, _, _ := newTestRouter(t)

	// No key: rejected before any upgrade attempt.
	w := doRequest(router, http.MethodGet, "/ws", "", false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Keyed via query parameter, the only channel a browser dial has; the
	// plain HTTP request then fails at the upgrade, not at auth.
	w = doRequest(router, http.MethodGet, "/ws?api_key="+testAPIKey, "", false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateInvoiceEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/v1/invoices",
		`{"recipient":"mvines9iiHiQTysrwkJjGf2gb9Ex9jXJX9ndA1uXWqW","amount":"2.5","token":"USDC"}`, true)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"invoice"`)

	// Missing required fields and malformed amounts are rejected.
	w = doRequest(router, http.MethodPost, "/v1/invoices", `{"token":"USDC"}`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPost, "/v1/invoices",
		`{"recipient":"x","amount":"abc","token":"USDC"}`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAndCancelInvoiceEndpoints(t *testing.T) {
	router, svc, _ := newTestRouter(t)

	invoice, err := svc.Create(context.Background(), invoiceservice.CreateParams{Token: domain.TokenSOL})
	require.NoError(t, err)

	w := doRequest(router, http.MethodGet, "/v1/invoices/"+invoice.ID, "", true)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/v1/invoices/"+uuid.New().String(), "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodPost, "/v1/invoices/"+invoice.ID+"/cancel", "", true)
	assert.Equal(t, http.StatusOK, w.Code)

	// Cancelling a terminal invoice conflicts.
	w = doRequest(router, http.MethodPost, "/v1/invoices/"+invoice.ID+"/cancel", "", true)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCheckInvoiceEndpoint(t *testing.T) {
	router, svc, monitor := newTestRouter(t)

	invoice, err := svc.Create(context.Background(), invoiceservice.CreateParams{Token: domain.TokenSOL})
	require.NoError(t, err)

	monitor.paid = true
	w := doRequest(router, http.MethodPost, "/v1/invoices/"+invoice.ID+"/check", "", true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"paid":true`)
}
