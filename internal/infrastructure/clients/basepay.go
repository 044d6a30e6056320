package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/paywatch/paywatch/pkg/config"
)

// ChargeStatus values reported by the hosted Base charge API.
const (
	ChargeStatusPending   = "pending"
	ChargeStatusCompleted = "completed"
	ChargeStatusFailed    = "failed"
)

var evmAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// BasePayClient talks to the hosted USDC-on-Base charge API: create a charge
// for an amount and destination address, then poll its status by id.
type BasePayClient struct {
	baseURL    string
	apiKey     string
	testnet    bool
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
	logger     zerolog.Logger
}

type CreateChargeParams struct {
	Amount  string `json:"amount"`
	To      string `json:"to"`
	Testnet bool   `json:"testnet"`
}

type Charge struct {
	ID string `json:"id"`
}

type ChargeStatusResponse struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	TransactionHash string `json:"transactionHash,omitempty"`
}

func NewBasePayClient(cfg config.BasePayConfig, logger zerolog.Logger) *BasePayClient {
	retryDelay := cfg.RetryBackoffBase
	if retryDelay == 0 {
		retryDelay = time.Second
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &BasePayClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		testnet: cfg.Testnet,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: cfg.MaxRetries,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// CreateCharge registers a new charge and returns its opaque id.
func (c *BasePayClient) CreateCharge(ctx context.Context, params CreateChargeParams) (*Charge, error) {
	if !evmAddressPattern.MatchString(params.To) {
		return nil, fmt.Errorf("invalid destination address: %s", params.To)
	}

	var charge Charge
	if err := c.makeRequest(ctx, "POST", "/v1/charges", params, &charge); err != nil {
		return nil, fmt.Errorf("failed to create charge: %w", err)
	}

	c.logger.Info().
		Str("charge_id", charge.ID).
		Str("to", params.To).
		Str("amount", params.Amount).
		Bool("testnet", params.Testnet).
		Msg("Charge created")
	return &charge, nil
}

// GetChargeStatus polls the hosted API for a charge's settlement status.
func (c *BasePayClient) GetChargeStatus(ctx context.Context, id string, testnet bool) (*ChargeStatusResponse, error) {
	endpoint := fmt.Sprintf("/v1/charges/%s?testnet=%t", id, testnet)

	var status ChargeStatusResponse
	if err := c.makeRequest(ctx, "GET", endpoint, nil, &status); err != nil {
		return nil, fmt.Errorf("failed to get charge status for %s: %w", id, err)
	}

	return &status, nil
}

// makeRequest makes an HTTP request with retries
func (c *BasePayClient) makeRequest(ctx context.Context, method, endpoint string, body interface{}, response interface{}) error {
	fullURL := c.baseURL + endpoint

	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(1<<(attempt-1))): // Exponential backoff
			}
		}

		var reqBody []byte
		var err error

		if body != nil {
			reqBody, err = json.Marshal(body)
			if err != nil {
				return fmt.Errorf("failed to marshal request body: %w", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader(reqBody))
		if err != nil {
			lastErr = fmt.Errorf("failed to create request: %w", err)
			continue
		}

		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("X-API-Key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			c.logger.Warn().Err(err).Int("attempt", attempt+1).Str("url", fullURL).Msg("Charge API request failed, retrying")
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", readErr)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if response != nil {
				if err := json.Unmarshal(respBody, response); err != nil {
					lastErr = fmt.Errorf("failed to unmarshal response: %w", err)
					continue
				}
			}
			return nil
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error (status %d): %s", resp.StatusCode, string(respBody))
			c.logger.Warn().Int("status", resp.StatusCode).Int("attempt", attempt+1).Str("url", fullURL).Msg("Charge API server error, retrying")
			continue
		}

		// Client errors (4xx) - don't retry
		return fmt.Errorf("client error (status %d): %s", resp.StatusCode, string(respBody))
	}

	c.logger.Error().Err(lastErr).Str("url", fullURL).Int("max_retries", c.maxRetries).Msg("Charge API request failed after all retries")
	return fmt.Errorf("request failed after %d retries: %w", c.maxRetries, lastErr)
}
